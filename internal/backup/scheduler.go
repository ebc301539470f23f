package backup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// jobTimeout bounds one scheduled run.
const jobTimeout = 10 * time.Minute

// Scheduler runs scheduled backups on a cron expression.
type Scheduler struct {
	cron   *cron.Cron
	svc    *Service
	logger *slog.Logger
}

// NewScheduler parses expr (standard five-field cron syntax or a descriptor
// such as @daily) evaluated in loc.
func NewScheduler(svc *Service, expr string, loc *time.Location, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		svc:    svc,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(expr, s.Run); err != nil {
		return nil, fmt.Errorf("parse backup schedule %q: %w", expr, err)
	}
	return s, nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("backup schedule started", slog.Time("next_run", e.Next))
	}
}

// Stop halts the scheduler and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("backup job still running at shutdown")
	}
}

// Run creates one scheduled backup and prunes old ones.
func (s *Scheduler) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := s.svc.Create(ctx, TypeScheduled); err != nil {
		s.logger.Error("scheduled backup failed", slog.Any("error", err))
		return
	}
	if _, err := s.svc.Prune(); err != nil {
		s.logger.Error("backup pruning failed", slog.Any("error", err))
	}
}

// cronLogger routes cron's logging through slog.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append([]any{slog.Any("error", err)}, keysAndValues...)...)
}
