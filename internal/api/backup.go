package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zapponejosh/parish-api/internal/backup"
	"github.com/zapponejosh/parish-api/internal/logger"
)

// ListBackups handles GET /api/backups
func (h *Handlers) ListBackups(w http.ResponseWriter, r *http.Request) {
	list, err := h.backups.List()
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, list)
}

// CreateBackup handles POST /api/backups
func (h *Handlers) CreateBackup(w http.ResponseWriter, r *http.Request) {
	info, err := h.backups.Create(r.Context(), backup.TypeManual)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, info)
}

// DownloadBackup handles GET /api/backups/{filename}
func (h *Handlers) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	rc, size, err := h.backups.Open(name)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		logger.FromContext(r.Context(), h.logger).Warn("backup download interrupted",
			slog.String("filename", name),
			slog.Any("error", err),
		)
	}
}

// DeleteBackup handles DELETE /api/backups/{filename}
func (h *Handlers) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	if err := h.backups.Delete(chi.URLParam(r, "filename")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w)
}

// RestoreBackup handles POST /api/backups/{filename}/restore
// Uploads are restored immediately. The database is staged and replaces the
// live one on the next start.
func (h *Handlers) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	result, err := h.backups.Restore(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteOK(w, map[string]interface{}{
		"success":         true,
		"preRestore":      result.PreRestore,
		"uploads":         result.Uploads,
		"restartRequired": true,
	})
}
