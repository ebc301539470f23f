package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zapponejosh/parish-api/internal/auth"
	"github.com/zapponejosh/parish-api/internal/backup"
	"github.com/zapponejosh/parish-api/internal/calendar"
	"github.com/zapponejosh/parish-api/internal/config"
	"github.com/zapponejosh/parish-api/internal/database"
	"github.com/zapponejosh/parish-api/internal/treba"
	"github.com/zapponejosh/parish-api/internal/upload"
)

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	db       *database.DB
	calendar *calendar.Service
	auth     *auth.Service
	treby    *treba.Service
	uploads  *upload.Store
	backups  *backup.Service
	cfg      *config.Config
	logger   *slog.Logger
}

// Deps bundles the services the handlers need.
type Deps struct {
	DB       *database.DB
	Calendar *calendar.Service
	Auth     *auth.Service
	Treby    *treba.Service
	Uploads  *upload.Store
	Backups  *backup.Service
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps, cfg *config.Config, logger *slog.Logger) *Handlers {
	return &Handlers{
		db:       deps.DB,
		calendar: deps.Calendar,
		auth:     deps.Auth,
		treby:    deps.Treby,
		uploads:  deps.Uploads,
		backups:  deps.Backups,
		cfg:      cfg,
		logger:   logger,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Health(r.Context()); err != nil {
		h.logger.Warn("health check failed", slog.Any("error", err))
		WriteError(w, http.StatusServiceUnavailable, "Database unhealthy")
		return
	}

	WriteOK(w, map[string]string{
		"status": "healthy",
	})
}

// =============================================================================
// Parameter helpers
// =============================================================================

// idParam parses a positive integer URL parameter.
func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, raw)
	}
	return id, nil
}

// yearMonthParams parses {year} and {month}.
func yearMonthParams(r *http.Request) (int, time.Month, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 || year > 9999 {
		return 0, 0, fmt.Errorf("%w: invalid year", errBadRequest)
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("%w: month must be between 1 and 12", errBadRequest)
	}
	return year, time.Month(month), nil
}

// queryInt reads a positive integer query parameter with a default and a cap.
func queryInt(r *http.Request, name string, def, max int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 1 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
