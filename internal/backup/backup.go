// Package backup creates, lists and restores zip archives of the database
// and the uploads tree.
package backup

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zapponejosh/parish-api/internal/database"
)

// Type indicates how the backup was created.
type Type string

const (
	TypeManual     Type = "manual"
	TypeScheduled  Type = "scheduled"
	TypePreRestore Type = "pre_restore"
)

// ManifestVersion is written into every new archive.
const ManifestVersion = "1.0"

const (
	filePrefix    = "parish_backup_"
	fileSuffix    = ".zip"
	manifestEntry = "manifest.json"
	databaseEntry = "database.db"
	uploadsPrefix = "uploads/"

	// StagedSuffix is appended to the database path for a restored snapshot
	// waiting to be applied.
	StagedSuffix = ".restore"
)

var (
	// ErrInvalidName is returned for names that are not backup archives.
	ErrInvalidName = errors.New("invalid backup filename")

	// ErrNotFound is returned when the archive does not exist.
	ErrNotFound = errors.New("backup not found")

	// ErrCorrupt is returned when an archive fails verification.
	ErrCorrupt = errors.New("backup is corrupt")
)

// Info describes one archive.
type Info struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
	Type      Type      `json:"type"`
	Version   string    `json:"version,omitempty"`
}

// Manifest lists the archive contents with their sha256 checksums.
type Manifest struct {
	Version   string            `json:"version"`
	CreatedAt time.Time         `json:"createdAt"`
	Type      Type              `json:"type"`
	Files     map[string]string `json:"files"`
}

// RestoreResult reports what Restore did.
type RestoreResult struct {
	PreRestore *Info  `json:"preRestore"`
	Uploads    int    `json:"uploads"`
	StagedDB   string `json:"stagedDb"`
}

// Service owns the backup directory. Create, Restore and Delete are
// serialized.
type Service struct {
	mu         sync.Mutex
	db         *database.DB
	dir        string
	uploadsDir string
	keep       int
	now        func() time.Time
	logger     *slog.Logger
}

// NewService creates the backup directory if needed. keep is how many
// scheduled archives Prune retains.
func NewService(db *database.DB, dir, uploadsDir string, keep int, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &Service{
		db:         db,
		dir:        dir,
		uploadsDir: uploadsDir,
		keep:       keep,
		now:        time.Now,
		logger:     logger,
	}, nil
}

// Create writes a new archive.
func (s *Service) Create(ctx context.Context, typ Type) (*Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(ctx, typ)
}

func (s *Service) create(ctx context.Context, typ Type) (*Info, error) {
	created := s.now().UTC()
	stamp := strings.Replace(created.Format("20060102-150405.000"), ".", "-", 1)
	filename := fmt.Sprintf("%s%s_%s%s", filePrefix, stamp, typ, fileSuffix)
	backupPath := filepath.Join(s.dir, filename)
	if _, err := os.Stat(backupPath); err == nil {
		return nil, fmt.Errorf("backup %s already exists", filename)
	}

	// The snapshot goes to a scratch directory; VACUUM INTO refuses to overwrite.
	scratch, err := os.MkdirTemp(s.dir, ".snapshot-")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	snapshot := filepath.Join(scratch, databaseEntry)
	if err := s.db.SnapshotTo(ctx, snapshot); err != nil {
		return nil, err
	}

	tmpPath := backupPath + ".tmp"
	zipFile, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}
	fail := func(err error) (*Info, error) {
		zipFile.Close()
		os.Remove(tmpPath)
		return nil, err
	}

	zw := zip.NewWriter(zipFile)
	manifest := Manifest{
		Version:   ManifestVersion,
		CreatedAt: created,
		Type:      typ,
		Files:     make(map[string]string),
	}

	sum, err := addFileToZip(zw, snapshot, databaseEntry)
	if err != nil {
		zw.Close()
		return fail(fmt.Errorf("add database: %w", err))
	}
	manifest.Files[databaseEntry] = sum

	if err := s.addUploads(zw, manifest.Files); err != nil {
		zw.Close()
		return fail(err)
	}

	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		zw.Close()
		return fail(fmt.Errorf("marshal manifest: %w", err))
	}
	mw, err := zw.Create(manifestEntry)
	if err != nil {
		zw.Close()
		return fail(fmt.Errorf("create manifest in zip: %w", err))
	}
	if _, err := mw.Write(manifestJSON); err != nil {
		zw.Close()
		return fail(fmt.Errorf("write manifest: %w", err))
	}

	if err := zw.Close(); err != nil {
		return fail(fmt.Errorf("close zip writer: %w", err))
	}
	if err := zipFile.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("close zip file: %w", err)
	}
	if err := os.Rename(tmpPath, backupPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("finalize backup: %w", err)
	}

	stat, err := os.Stat(backupPath)
	if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}

	info := &Info{
		Filename:  filename,
		Size:      stat.Size(),
		CreatedAt: created,
		Type:      typ,
		Version:   ManifestVersion,
	}
	s.logger.Info("backup created",
		slog.String("filename", filename),
		slog.String("type", string(typ)),
		slog.Int64("size", info.Size),
		slog.Int("files", len(manifest.Files)),
	)
	return info, nil
}

// addUploads adds every regular file under the uploads directory.
func (s *Service) addUploads(zw *zip.Writer, files map[string]string) error {
	if s.uploadsDir == "" {
		return nil
	}
	err := filepath.WalkDir(s.uploadsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == s.uploadsDir {
				return filepath.SkipDir
			}
			return err
		}
		if !d.Type().IsRegular() || strings.HasSuffix(p, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(s.uploadsDir, p)
		if err != nil {
			return err
		}
		name := uploadsPrefix + filepath.ToSlash(rel)
		sum, err := addFileToZip(zw, p, name)
		if err != nil {
			return fmt.Errorf("add %s: %w", name, err)
		}
		files[name] = sum
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk uploads: %w", err)
	}
	return nil
}

// addFileToZip copies a file into the archive and returns its checksum.
func addFileToZip(zw *zip.Writer, srcPath, destName string) (string, error) {
	file, err := os.Open(srcPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	w, err := zw.Create(destName)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(w, io.TeeReader(file, hasher)); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// List returns all archives, newest first.
func (s *Service) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Info{}, nil
		}
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	backups := []Info{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || validateName(name) != nil {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			s.logger.Warn("stat backup", slog.String("filename", name), slog.Any("error", err))
			continue
		}

		info := Info{
			Filename:  name,
			Size:      fi.Size(),
			CreatedAt: fi.ModTime().UTC(),
			Type:      TypeManual,
		}
		if m, err := readManifest(filepath.Join(s.dir, name)); err == nil {
			info.CreatedAt = m.CreatedAt
			info.Type = m.Type
			info.Version = m.Version
		}
		backups = append(backups, info)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Open returns a reader for downloading an archive and its size.
func (s *Service) Open(name string) (io.ReadCloser, int64, error) {
	p, err := s.pathOf(name)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, 0, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, stat.Size(), nil
}

// Delete removes an archive.
func (s *Service) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.pathOf(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("delete backup: %w", err)
	}
	s.logger.Info("backup deleted", slog.String("filename", name))
	return nil
}

// Prune deletes the oldest scheduled archives beyond the retention count.
func (s *Service) Prune() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.List()
	if err != nil {
		return 0, err
	}

	kept, removed := 0, 0
	for _, b := range all {
		if b.Type != TypeScheduled {
			continue
		}
		if kept < s.keep {
			kept++
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, b.Filename)); err != nil {
			return removed, fmt.Errorf("prune %s: %w", b.Filename, err)
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("old backups pruned", slog.Int("removed", removed), slog.Int("kept", kept))
	}
	return removed, nil
}

// Restore verifies an archive, takes a pre-restore backup, copies the
// uploads back and stages the database snapshot next to the live database.
// The staged file is applied by ApplyStaged while the server is stopped.
func (s *Service) Restore(ctx context.Context, name string) (*RestoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.pathOf(name)
	if err != nil {
		return nil, err
	}
	manifest, err := readManifest(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer zr.Close()

	entries, err := verify(zr, manifest)
	if err != nil {
		return nil, err
	}

	pre, err := s.create(ctx, TypePreRestore)
	if err != nil {
		return nil, fmt.Errorf("pre-restore backup: %w", err)
	}
	res := &RestoreResult{PreRestore: pre}

	for _, f := range entries {
		switch {
		case f.Name == databaseEntry:
			res.StagedDB = s.db.Path() + StagedSuffix
			if err := extractTo(f, res.StagedDB); err != nil {
				return nil, fmt.Errorf("stage database: %w", err)
			}
		case strings.HasPrefix(f.Name, uploadsPrefix):
			rel := strings.TrimPrefix(f.Name, uploadsPrefix)
			if err := extractTo(f, filepath.Join(s.uploadsDir, filepath.FromSlash(rel))); err != nil {
				return nil, fmt.Errorf("restore %s: %w", f.Name, err)
			}
			res.Uploads++
		}
	}

	s.logger.Info("backup restored",
		slog.String("filename", name),
		slog.Time("created_at", manifest.CreatedAt),
		slog.Int("uploads", res.Uploads),
		slog.String("staged_db", res.StagedDB),
	)
	return res, nil
}

// verify checks every manifest entry against its checksum and returns the
// entries in archive order.
func verify(zr *zip.ReadCloser, m *Manifest) ([]*zip.File, error) {
	var entries []*zip.File
	seen := make(map[string]bool, len(m.Files))

	for _, f := range zr.File {
		want, ok := m.Files[f.Name]
		if !ok {
			continue
		}
		if !safeEntry(f.Name) {
			return nil, fmt.Errorf("%w: unsafe entry %q", ErrCorrupt, f.Name)
		}
		got, err := checksum(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		if got != want {
			return nil, fmt.Errorf("%w: checksum mismatch for %s", ErrCorrupt, f.Name)
		}
		seen[f.Name] = true
		entries = append(entries, f)
	}

	for name := range m.Files {
		if !seen[name] {
			return nil, fmt.Errorf("%w: %s listed in manifest but missing", ErrCorrupt, name)
		}
	}
	return entries, nil
}

// safeEntry accepts the database entry and relative paths under uploads/.
func safeEntry(name string) bool {
	if name == databaseEntry {
		return true
	}
	if !strings.HasPrefix(name, uploadsPrefix) {
		return false
	}
	rel := strings.TrimPrefix(name, uploadsPrefix)
	return rel != "" && path.Clean(rel) == rel && filepath.IsLocal(filepath.FromSlash(rel))
}

func checksum(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, rc); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// extractTo writes an entry to dest through a temp file.
func extractTo(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	tmp := dest + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// readManifest reads the manifest from a backup zip file.
func readManifest(zipPath string) (*Manifest, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != manifestEntry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		var m Manifest
		if err := json.NewDecoder(rc).Decode(&m); err != nil {
			return nil, err
		}
		return &m, nil
	}
	return nil, errors.New("manifest not found in backup")
}

// pathOf validates name and returns the archive path.
func (s *Service) pathOf(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	p := filepath.Join(s.dir, name)
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return p, nil
}

func validateName(name string) error {
	if strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return ErrInvalidName
	}
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return ErrInvalidName
	}
	return nil
}

// ApplyStaged replaces the database at dbPath with a staged snapshot, if
// one exists. The database must not be open. Reports whether a snapshot was
// applied.
func ApplyStaged(dbPath string) (bool, error) {
	staged := dbPath + StagedSuffix
	if _, err := os.Stat(staged); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	// Stale WAL files would be replayed on top of the snapshot.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return false, fmt.Errorf("remove %s: %w", dbPath+suffix, err)
		}
	}
	if err := os.Rename(staged, dbPath); err != nil {
		return false, fmt.Errorf("apply staged database: %w", err)
	}
	return true, nil
}
