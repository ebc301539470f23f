package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/zapponejosh/parish-api/internal/logger"
	"github.com/zapponejosh/parish-api/internal/upload"
)

// multipartOverhead covers form boundaries and headers around the file part.
const multipartOverhead = 64 << 10

// Upload handles POST /api/upload (multipart field "file").
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	limit := h.uploads.MaxBytes() + multipartOverhead
	if r.ContentLength > limit {
		h.writeServiceError(w, r, upload.ErrTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeServiceError(w, r, upload.ErrTooLarge)
			return
		}
		WriteBadRequest(w, "Missing file")
		return
	}
	defer file.Close()

	saved, err := h.uploads.Save(file)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	logger.FromContext(r.Context(), h.logger).Info("file uploaded",
		slog.String("original", header.Filename),
		slog.String("stored", saved.Filename),
		slog.String("mime", saved.MimeType),
		slog.Int64("size", saved.Size),
	)
	WriteCreated(w, saved)
}

// UploadByURL handles POST /api/upload/by-url
// Body: {"url":"https://..."}
func (h *Handlers) UploadByURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		WriteBadRequest(w, "URL is required")
		return
	}

	saved, err := h.uploads.Fetch(r.Context(), strings.TrimSpace(req.URL))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, saved)
}
