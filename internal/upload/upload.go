// Package upload stores media files under a public URL prefix.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrTooLarge is returned when content exceeds the size limit.
	ErrTooLarge = errors.New("file too large")

	// ErrUnsupportedType is returned for content that is not an image or PDF.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrFetch is returned when a remote file cannot be downloaded.
	ErrFetch = errors.New("could not fetch remote file")
)

// fetchTimeout bounds a single by-URL download attempt.
const fetchTimeout = 15 * time.Second

// Transport failures and 5xx answers are retried; anything else is final.
const (
	fetchAttempts = 3
	fetchDelay    = 300 * time.Millisecond
)

// File describes a stored upload.
type File struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// Store writes uploads to a directory.
type Store struct {
	dir      string
	prefix   string
	maxBytes int64
	client   *http.Client
	logger   *slog.Logger
}

// NewStore creates the upload directory if needed.
func NewStore(dir, publicPrefix string, maxBytes int64, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Store{
		dir:      dir,
		prefix:   "/" + strings.Trim(publicPrefix, "/"),
		maxBytes: maxBytes,
		client:   &http.Client{Timeout: fetchTimeout},
		logger:   logger,
	}, nil
}

// Dir returns the directory files are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Prefix returns the URL prefix files are served under.
func (s *Store) Prefix() string {
	return s.prefix
}

// MaxBytes returns the size limit.
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Save sniffs r, rejects anything but images and PDFs, and stores it under a
// random name with the detected extension.
func (s *Store) Save(r io.Reader) (*File, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrTooLarge
	}

	mt := mimetype.Detect(data)
	if !allowed(mt) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mt.String())
	}

	name := uuid.NewString() + mt.Extension()
	dest := filepath.Join(s.dir, name)
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("write upload: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("finalize upload: %w", err)
	}

	s.logger.Info("file stored",
		slog.String("filename", name),
		slog.String("mime_type", mt.String()),
		slog.Int("size", len(data)),
	)

	return &File{
		URL:      path.Join(s.prefix, name),
		Filename: name,
		MimeType: mt.String(),
		Size:     int64(len(data)),
	}, nil
}

// Fetch downloads rawURL and stores it with the same checks as Save.
func (s *Store) Fetch(ctx context.Context, rawURL string) (*File, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: only http and https URLs are accepted", ErrFetch)
	}

	var file *File
	err = retry.Do(
		func() error {
			f, err := s.fetchOnce(ctx, u.String())
			if err != nil {
				return err
			}
			file = f
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(fetchAttempts),
		retry.Delay(fetchDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("remote fetch failed, retrying",
				slog.String("url", u.Redacted()),
				slog.Uint64("attempt", uint64(n+1)),
				slog.Any("error", err),
			)
		}),
	)
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (s *Store) fetchOnce(ctx context.Context, rawURL string) (*File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("%w: %v", ErrFetch, err))
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: remote answered %d", ErrFetch, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, retry.Unrecoverable(fmt.Errorf("%w: remote answered %d", ErrFetch, resp.StatusCode))
	case resp.ContentLength > s.maxBytes:
		return nil, retry.Unrecoverable(ErrTooLarge)
	}

	f, err := s.Save(resp.Body)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	return f, nil
}

// allowed accepts raster images and PDFs. SVG can carry scripts and is refused.
func allowed(mt *mimetype.MIME) bool {
	if mt.Is("application/pdf") {
		return true
	}
	if mt.Is("image/svg+xml") {
		return false
	}
	return strings.HasPrefix(mt.String(), "image/")
}
