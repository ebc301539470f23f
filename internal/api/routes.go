package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zapponejosh/parish-api/internal/config"
	"github.com/zapponejosh/parish-api/internal/database"
)

// Limiters are the per-IP limiters guarding public write endpoints.
type Limiters struct {
	Login *IPRateLimiter
	Treby *IPRateLimiter
}

// ChainMiddleware combines multiple middleware into one. The first runs
// outermost.
func ChainMiddleware(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// NewRouter configures all HTTP routes and returns the root handler.
//
// Route structure:
//
//	GET  /health
//	GET  /uploads/*                         uploaded files
//	     /api/calendar, /api/schedule       public reads, staff writes
//	     /api/news, /api/pages, /api/menu   public reads, staff writes
//	     /api/carousel, /api/sitemap
//	     /api/treby                         public order, staff processing
//	     /api/upload                        staff
//	     /api/auth                          login, current user
//	     /api/users, /api/backups           admin only
func NewRouter(h *Handlers, cfg *config.Config, logger *slog.Logger, limits Limiters) http.Handler {
	r := chi.NewRouter()

	r.Use(ChainMiddleware(
		RecoveryMiddleware(logger),
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.CORSOrigin),
	))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", h.HealthCheck)

	if h.uploads != nil {
		prefix := strings.TrimRight(h.uploads.Prefix(), "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, noDirListing(http.FileServer(http.Dir(h.uploads.Dir())))))
	}

	authRequired := AuthMiddleware(h.auth, logger)
	staff := RequireRole(database.RoleAdmin, database.RoleEditor)
	admin := RequireRole(database.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		// ======================================================================
		// Public routes (a valid token unlocks drafts and hidden entries)
		// ======================================================================
		r.Group(func(r chi.Router) {
			r.Use(OptionalAuthMiddleware(h.auth))

			r.Get("/calendar/month/{year}/{month}", h.GetMonth)
			r.Get("/calendar/paschalion/{year}", h.GetPaschalion)
			r.Get("/calendar/{date}", h.GetDay)

			r.Get("/schedule", h.ListSchedule)
			r.Get("/schedule/month/{year}/{month}", h.ListScheduleMonth)
			r.Get("/schedule/ical", h.ScheduleICal)
			r.Get("/schedule/{id}", h.GetSchedule)

			r.Get("/news", h.ListNews)
			r.Get("/news/slug/{slug}", h.GetNewsBySlug)
			r.Get("/news/{id}", h.GetNews)

			r.Get("/pages", h.ListPages)
			r.Get("/pages/{slug}", h.GetPageBySlug)

			r.Get("/sitemap", h.Sitemap)
			r.Get("/menu", h.GetMenu)
			r.Get("/carousel", h.ListSlides)

			r.Get("/treby/price", h.TrebaPrice)
			r.Get("/treby/order/{number}", h.GetTrebaByOrderNumber)
			r.With(RateLimitMiddleware(limits.Treby)).Post("/treby", h.CreateTreba)

			r.With(RateLimitMiddleware(limits.Login)).Post("/auth/login", h.Login)
		})

		// ======================================================================
		// Authenticated routes
		// ======================================================================
		r.Group(func(r chi.Router) {
			r.Use(authRequired)

			r.Get("/auth/me", h.Me)

			// Staff (admin or editor)
			r.Group(func(r chi.Router) {
				r.Use(staff)

				r.Get("/calendar/admin/saints", h.ListSaints)
				r.Get("/calendar/admin/readings", h.ListReadings)
				r.Delete("/calendar/saints/{saintId}", h.DeleteSaint)
				r.Delete("/calendar/readings/{readingId}", h.DeleteReading)
				r.Put("/calendar/{date}", h.UpsertDay)
				r.Post("/calendar/{date}/saints", h.AddSaint)
				r.Post("/calendar/{date}/saints/{saintId}", h.AttachSaint)
				r.Delete("/calendar/{date}/saints/{saintId}", h.DetachSaint)
				r.Post("/calendar/{date}/readings", h.AddReading)
				r.Post("/calendar/{date}/readings/{readingId}", h.AttachReading)
				r.Delete("/calendar/{date}/readings/{readingId}", h.DetachReading)

				r.Post("/schedule", h.CreateSchedule)
				r.Put("/schedule/{id}", h.UpdateSchedule)
				r.Delete("/schedule/{id}", h.DeleteSchedule)

				r.Post("/news", h.CreateNews)
				r.Put("/news/{id}", h.UpdateNews)
				r.Delete("/news/{id}", h.DeleteNews)

				r.Post("/pages", h.CreatePage)
				r.Put("/pages/id/{id}", h.UpdatePage)
				r.Delete("/pages/id/{id}", h.DeletePage)

				r.Get("/menu/all", h.ListAllMenuItems)
				r.Post("/menu", h.CreateMenuItem)
				r.Put("/menu/reorder", h.ReorderMenu)
				r.Put("/menu/{id}", h.UpdateMenuItem)
				r.Delete("/menu/{id}", h.DeleteMenuItem)

				r.Get("/carousel/all", h.ListAllSlides)
				r.Post("/carousel", h.CreateSlide)
				r.Put("/carousel/{id}", h.UpdateSlide)
				r.Delete("/carousel/{id}", h.DeleteSlide)

				r.Post("/upload", h.Upload)
				r.Post("/upload/by-url", h.UploadByURL)

				r.Get("/treby", h.ListTreby)
				r.Get("/treby/{id}", h.GetTreba)
				r.Patch("/treby/{id}/status", h.ChangeTrebaStatus)
				r.Post("/treby/{id}/payment", h.RecordTrebaPayment)
			})

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(admin)

				r.Get("/users", h.ListUsers)
				r.Post("/users", h.CreateUser)
				r.Delete("/users/{id}", h.DeleteUser)

				r.Get("/backups", h.ListBackups)
				r.Post("/backups", h.CreateBackup)
				r.Get("/backups/{filename}", h.DownloadBackup)
				r.Delete("/backups/{filename}", h.DeleteBackup)
				r.Post("/backups/{filename}/restore", h.RestoreBackup)
			})
		})
	})

	return r
}

// noDirListing hides directory indexes of the file server.
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			WriteNotFound(w, "Not found")
			return
		}
		next.ServeHTTP(w, r)
	})
}
