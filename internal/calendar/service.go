package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/zapponejosh/parish-api/internal/database"
)

// ErrValidation marks input the caller must fix.
var ErrValidation = errors.New("validation failed")

var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Service owns every calendar and schedule operation. Writes always store
// local midnight; only Resolver reads fall back to the legacy convention.
type Service struct {
	db       *database.DB
	resolver *Resolver
	loc      *time.Location
	logger   *slog.Logger
}

// NewService creates a calendar service for the parish time zone loc.
func NewService(db *database.DB, loc *time.Location, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		db:       db,
		resolver: NewResolver(db, loc, logger),
		loc:      loc,
		logger:   logger,
	}
}

// Location returns the parish time zone.
func (s *Service) Location() *time.Location {
	return s.loc
}

// =============================================================================
// Days
// =============================================================================

// GetDay resolves a single day, creating it when missing.
func (s *Service) GetDay(ctx context.Context, date string) (*database.CalendarDay, error) {
	return s.resolver.Resolve(ctx, date)
}

// ListMonth returns the stored days of a month by date. Only rows between
// the first and last local midnight are matched.
func (s *Service) ListMonth(ctx context.Context, year int, month time.Month) ([]database.CalendarDay, error) {
	first, last, err := MonthBounds(year, month, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	days, err := s.db.ListDaysBetween(ctx, first, last)
	if err != nil {
		return nil, err
	}
	for i := range days {
		s.labelDay(&days[i])
	}
	return days, nil
}

// UpsertDay writes the editable fields of the day at date.
func (s *Service) UpsertDay(ctx context.Context, date string, f database.DayFields) (*database.CalendarDay, error) {
	at, err := ParseLocalDate(date, s.loc)
	if err != nil {
		return nil, err
	}
	if f.Priority != "" && !f.Priority.IsValid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, f.Priority)
	}
	if f.FastingType != "" && !f.FastingType.IsValid() {
		return nil, fmt.Errorf("%w: unknown fasting type %q", ErrValidation, f.FastingType)
	}

	day, err := s.db.UpsertDay(ctx, at, f)
	if err != nil {
		return nil, err
	}
	s.labelDay(day)
	return day, nil
}

// =============================================================================
// Saints and readings
// =============================================================================

// AddSaint creates a saint and links it to the day at date.
func (s *Service) AddSaint(ctx context.Context, date string, saint *database.Saint) error {
	at, err := ParseLocalDate(date, s.loc)
	if err != nil {
		return err
	}
	if strings.TrimSpace(saint.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if saint.Priority != "" && !saint.Priority.IsValid() {
		return fmt.Errorf("%w: unknown saint priority %q", ErrValidation, saint.Priority)
	}

	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		day, err := tx.EnsureDay(ctx, at)
		if err != nil {
			return err
		}
		if err := tx.CreateSaint(ctx, saint); err != nil {
			return err
		}
		return tx.AttachSaint(ctx, day.ID, saint.ID)
	})
}

// AddReading creates a reading and links it to the day at date.
func (s *Service) AddReading(ctx context.Context, date string, reading *database.Reading) error {
	at, err := ParseLocalDate(date, s.loc)
	if err != nil {
		return err
	}
	if strings.TrimSpace(reading.Reference) == "" {
		return fmt.Errorf("%w: reference is required", ErrValidation)
	}
	if !reading.Type.IsValid() {
		return fmt.Errorf("%w: unknown reading type %q", ErrValidation, reading.Type)
	}

	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		day, err := tx.EnsureDay(ctx, at)
		if err != nil {
			return err
		}
		if err := tx.CreateReading(ctx, reading); err != nil {
			return err
		}
		return tx.AttachReading(ctx, day.ID, reading.ID)
	})
}

// AttachSaint links an existing saint to the day at date.
func (s *Service) AttachSaint(ctx context.Context, date string, saintID int64) error {
	at, err := ParseLocalDate(date, s.loc)
	if err != nil {
		return err
	}
	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		day, err := tx.EnsureDay(ctx, at)
		if err != nil {
			return err
		}
		return tx.AttachSaint(ctx, day.ID, saintID)
	})
}

// AttachReading links an existing reading to the day at date.
func (s *Service) AttachReading(ctx context.Context, date string, readingID int64) error {
	at, err := ParseLocalDate(date, s.loc)
	if err != nil {
		return err
	}
	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		day, err := tx.EnsureDay(ctx, at)
		if err != nil {
			return err
		}
		return tx.AttachReading(ctx, day.ID, readingID)
	})
}

// DetachSaint unlinks a saint from the day at date; the saint survives.
func (s *Service) DetachSaint(ctx context.Context, date string, saintID int64) error {
	day, err := s.storedDay(ctx, date)
	if err != nil {
		return err
	}
	return s.db.DetachSaint(ctx, day.ID, saintID)
}

// DetachReading unlinks a reading from the day at date.
func (s *Service) DetachReading(ctx context.Context, date string, readingID int64) error {
	day, err := s.storedDay(ctx, date)
	if err != nil {
		return err
	}
	return s.db.DetachReading(ctx, day.ID, readingID)
}

// DeleteSaint destroys a saint everywhere.
func (s *Service) DeleteSaint(ctx context.Context, id int64) error {
	return s.db.DeleteSaint(ctx, id)
}

// DeleteReading destroys a reading everywhere.
func (s *Service) DeleteReading(ctx context.Context, id int64) error {
	return s.db.DeleteReading(ctx, id)
}

// ListSaints returns every saint.
func (s *Service) ListSaints(ctx context.Context) ([]database.Saint, error) {
	return s.db.ListSaints(ctx)
}

// ListReadings returns every reading.
func (s *Service) ListReadings(ctx context.Context) ([]database.Reading, error) {
	return s.db.ListReadings(ctx)
}

// storedDay finds the day row a detach applies to: local midnight first,
// then the legacy UTC row.
func (s *Service) storedDay(ctx context.Context, date string) (*database.CalendarDay, error) {
	at, err := ParseLocalDate(date, s.loc)
	if err != nil {
		return nil, err
	}
	day, err := s.db.GetDayByInstant(ctx, at)
	if !errors.Is(err, database.ErrNotFound) {
		return day, err
	}
	legacy, err := ParseLegacyUTCDate(date)
	if err != nil {
		return nil, err
	}
	return s.db.GetDayByInstant(ctx, legacy)
}

// =============================================================================
// Schedule
// =============================================================================

// ScheduleInput is the editable part of a schedule entry.
type ScheduleInput struct {
	Date        string                    `json:"date"`
	Time        string                    `json:"time"`
	Title       string                    `json:"title"`
	Description *string                   `json:"description"`
	Type        database.ScheduleType     `json:"type"`
	Priority    database.SchedulePriority `json:"priority"`
	IsVisible   *bool                     `json:"isVisible"`
}

// Validate checks the input and fills defaults.
func (in *ScheduleInput) Validate() error {
	if !IsValidDateString(in.Date) {
		return ErrInvalidDate
	}
	if !timePattern.MatchString(in.Time) {
		return fmt.Errorf("%w: time must be HH:mm", ErrValidation)
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.Type == "" {
		in.Type = database.ScheduleRegular
	}
	if !in.Type.IsValid() {
		return fmt.Errorf("%w: unknown schedule type %q", ErrValidation, in.Type)
	}
	if in.Priority == "" {
		in.Priority = database.SchedulePriorityNormal
	}
	if !in.Priority.IsValid() {
		return fmt.Errorf("%w: unknown schedule priority %q", ErrValidation, in.Priority)
	}
	if in.IsVisible == nil {
		visible := true
		in.IsVisible = &visible
	}
	return nil
}

// CreateSchedule stores an entry and links it to its calendar day, creating
// the day when needed.
func (s *Service) CreateSchedule(ctx context.Context, in ScheduleInput) (*database.Schedule, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	at, err := ParseLocalDate(in.Date, s.loc)
	if err != nil {
		return nil, err
	}

	entry := s.scheduleFrom(in, at)
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		day, err := tx.EnsureDay(ctx, at)
		if err != nil {
			return err
		}
		entry.CalendarDayID = &day.ID
		return tx.CreateSchedule(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	entry.Date = in.Date
	return entry, nil
}

// UpdateSchedule overwrites an entry, moving it to another day if the date changed.
func (s *Service) UpdateSchedule(ctx context.Context, id int64, in ScheduleInput) (*database.Schedule, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	at, err := ParseLocalDate(in.Date, s.loc)
	if err != nil {
		return nil, err
	}

	entry := s.scheduleFrom(in, at)
	entry.ID = id
	err = s.db.WithTx(ctx, func(tx *database.Tx) error {
		day, err := tx.EnsureDay(ctx, at)
		if err != nil {
			return err
		}
		entry.CalendarDayID = &day.ID
		return tx.UpdateSchedule(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	entry.Date = in.Date
	return entry, nil
}

// DeleteSchedule removes an entry.
func (s *Service) DeleteSchedule(ctx context.Context, id int64) error {
	return s.db.DeleteSchedule(ctx, id)
}

// GetSchedule returns one entry.
func (s *Service) GetSchedule(ctx context.Context, id int64) (*database.Schedule, error) {
	entry, err := s.db.GetSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	entry.Date = FormatLocalDate(entry.Stored, s.loc)
	return entry, nil
}

// SchedulesForDate lists the entries of one civil day.
func (s *Service) SchedulesForDate(ctx context.Context, date string, includeHidden bool) ([]database.Schedule, error) {
	at, err := ParseLocalDate(date, s.loc)
	if err != nil {
		return nil, err
	}
	return s.schedulesBetween(ctx, at, NextDay(at, s.loc), includeHidden)
}

// SchedulesForMonth lists the entries of a month.
func (s *Service) SchedulesForMonth(ctx context.Context, year int, month time.Month, includeHidden bool) ([]database.Schedule, error) {
	first, last, err := MonthBounds(year, month, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.schedulesBetween(ctx, first, NextDay(last, s.loc), includeHidden)
}

// SchedulesBetween lists the entries of an inclusive range of civil dates.
func (s *Service) SchedulesBetween(ctx context.Context, from, to string, includeHidden bool) ([]database.Schedule, error) {
	start, err := ParseLocalDate(from, s.loc)
	if err != nil {
		return nil, err
	}
	end, err := ParseLocalDate(to, s.loc)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: from must not be after to", ErrValidation)
	}
	return s.schedulesBetween(ctx, start, NextDay(end, s.loc), includeHidden)
}

func (s *Service) schedulesBetween(ctx context.Context, from, to time.Time, includeHidden bool) ([]database.Schedule, error) {
	entries, err := s.db.ListSchedulesBetween(ctx, from, to, includeHidden)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Date = FormatLocalDate(entries[i].Stored, s.loc)
	}
	return entries, nil
}

func (s *Service) scheduleFrom(in ScheduleInput, at time.Time) *database.Schedule {
	return &database.Schedule{
		Stored:      at,
		Time:        in.Time,
		Title:       in.Title,
		Description: in.Description,
		Type:        in.Type,
		Priority:    in.Priority,
		IsVisible:   *in.IsVisible,
	}
}

// labelDay derives the civil date of a stored day and its schedules.
func (s *Service) labelDay(day *database.CalendarDay) {
	day.Date = FormatLocalDate(day.Stored, s.loc)
	for i := range day.Schedules {
		day.Schedules[i].Date = day.Date
	}
}

// =============================================================================
// Maintenance
// =============================================================================

// NormalizeResult reports what NormalizeLegacyDays changed.
type NormalizeResult struct {
	Moved   int
	Skipped int
}

// NormalizeLegacyDays moves rows stored at UTC midnight to local midnight of
// the same civil date. A row is left alone when the local-midnight row for
// that date already exists.
func (s *Service) NormalizeLegacyDays(ctx context.Context) (NormalizeResult, error) {
	var res NormalizeResult

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		instants, err := tx.ListAllDayInstants(ctx)
		if err != nil {
			return err
		}

		taken := make(map[string]bool, len(instants))
		for _, at := range instants {
			taken[database.EncodeInstant(at)] = true
		}

		for id, at := range instants {
			if !isUTCMidnight(at) {
				continue
			}
			local, err := ParseLocalDate(at.Format(DateLayout), s.loc)
			if err != nil {
				return err
			}
			if local.Equal(at) {
				continue
			}
			if taken[database.EncodeInstant(local)] {
				s.logger.Warn("legacy day shadowed by local row, skipping",
					slog.Int64("id", id),
					slog.String("date", at.Format(DateLayout)),
				)
				res.Skipped++
				continue
			}
			if err := tx.MoveDay(ctx, id, local); err != nil {
				return fmt.Errorf("move day %d: %w", id, err)
			}
			taken[database.EncodeInstant(local)] = true
			delete(taken, database.EncodeInstant(at))
			res.Moved++
		}
		return nil
	})
	if err != nil {
		return NormalizeResult{}, err
	}

	s.logger.Info("legacy days normalized",
		slog.Int("moved", res.Moved),
		slog.Int("skipped", res.Skipped),
	)
	return res, nil
}

func isUTCMidnight(t time.Time) bool {
	u := t.UTC()
	return u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0
}
