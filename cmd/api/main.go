// Package main is the entry point for the parish API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/zapponejosh/parish-api/internal/api"
	"github.com/zapponejosh/parish-api/internal/auth"
	"github.com/zapponejosh/parish-api/internal/backup"
	"github.com/zapponejosh/parish-api/internal/calendar"
	"github.com/zapponejosh/parish-api/internal/config"
	"github.com/zapponejosh/parish-api/internal/database"
	"github.com/zapponejosh/parish-api/internal/logger"
	"github.com/zapponejosh/parish-api/internal/treba"
	"github.com/zapponejosh/parish-api/internal/upload"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Setup structured logging
	log := logger.Setup(cfg)

	log.Info("starting parish API",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
		slog.String("timezone", cfg.Timezone),
		slog.String("log_level", cfg.LogLevel),
	)

	if err := run(cfg, log); err != nil {
		log.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("parish API stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A restore stages a snapshot next to the database; swap it in before
	// anything opens the file.
	applied, err := backup.ApplyStaged(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("apply staged restore: %w", err)
	}
	if applied {
		log.Warn("database replaced by staged restore", slog.String("path", cfg.DatabasePath))
	}

	// =========================================================================
	// Storage
	// =========================================================================
	db, err := database.Open(database.DefaultConfig(cfg.DatabasePath), log)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Migrate(ctx); err != nil {
		return err
	}

	loc := cfg.Location()
	calendarSvc := calendar.NewService(db, loc, log)

	if applied {
		// Older archives may predate local-midnight storage.
		res, err := calendarSvc.NormalizeLegacyDays(ctx)
		if err != nil {
			log.Warn("normalize restored calendar days", slog.Any("error", err))
		} else {
			log.Info("restored calendar days normalized", slog.Int("moved", res.Moved), slog.Int("skipped", res.Skipped))
		}
	}

	store, err := upload.NewStore(cfg.UploadDir, cfg.PublicURLPrefix, cfg.UploadMaxBytes(), log)
	if err != nil {
		return err
	}

	backups, err := backup.NewService(db, cfg.BackupDir, cfg.UploadDir, cfg.BackupKeep, log)
	if err != nil {
		return err
	}

	// =========================================================================
	// Background jobs
	// =========================================================================
	if cfg.BackupSchedule != "" {
		scheduler, err := backup.NewScheduler(backups, cfg.BackupSchedule, loc, log)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			scheduler.Stop(stopCtx)
		}()
	}

	limits := api.Limiters{
		Login: api.NewIPRateLimiter(rate.Every(12*time.Second), 5),
		Treby: api.NewIPRateLimiter(rate.Every(30*time.Second), 5),
	}
	go limits.Login.RunCleanup(ctx, 10*time.Minute)
	go limits.Treby.RunCleanup(ctx, 10*time.Minute)

	// =========================================================================
	// HTTP server
	// =========================================================================
	handlers := api.NewHandlers(api.Deps{
		DB:       db,
		Calendar: calendarSvc,
		Auth:     auth.NewService(db, cfg.JWTSecret, cfg.JWTTTL, log),
		Treby:    treba.NewService(db, log),
		Uploads:  store,
		Backups:  backups,
	}, cfg, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.NewRouter(handlers, cfg, log, limits),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("parish API ready", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
