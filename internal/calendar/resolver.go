package calendar

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zapponejosh/parish-api/internal/database"
)

// Store is the subset of the database the resolver reads and writes.
// Both *database.DB and *database.Tx satisfy it.
type Store interface {
	GetDayByInstant(ctx context.Context, at time.Time) (*database.CalendarDay, error)
	FindFirstDayBetween(ctx context.Context, from, to time.Time) (*database.CalendarDay, error)
	EnsureDay(ctx context.Context, at time.Time) (*database.CalendarDay, error)
}

// strategy tries to produce the day for a requested date. ok=false means
// "not found here, try the next one".
type strategy struct {
	name string
	fn   func(ctx context.Context, date string) (day *database.CalendarDay, ok bool, err error)
}

// Resolver turns a YYYY-MM-DD string into a calendar day. Days may be stored
// at local midnight or, for older rows, at UTC midnight; the resolver tries
// each convention in turn and creates the day when none matches.
type Resolver struct {
	store      Store
	loc        *time.Location
	logger     *slog.Logger
	strategies []strategy
}

// NewResolver creates a resolver for the parish time zone loc.
func NewResolver(store Store, loc *time.Location, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}

	r := &Resolver{store: store, loc: loc, logger: logger}
	r.strategies = []strategy{
		{"local", r.exactLocal},
		{"legacy_utc", r.exactLegacy},
		{"window", r.nearby},
		{"create", r.create},
	}
	return r
}

// Resolve returns the day for date. The returned Date is always the
// requested string, whichever strategy matched.
//
// Returns ErrInvalidDate for malformed or impossible dates. If creating the
// day loses a uniqueness race the resolver answers with an empty day rather
// than an error.
func (r *Resolver) Resolve(ctx context.Context, date string) (*database.CalendarDay, error) {
	if !IsValidDateString(date) {
		return nil, ErrInvalidDate
	}

	for _, s := range r.strategies {
		day, ok, err := s.fn(ctx, date)
		if err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				r.logger.Warn("calendar day creation raced, serving empty day",
					slog.String("date", date),
					slog.String("strategy", s.name),
				)
				return r.synthetic(date), nil
			}
			return nil, err
		}
		if ok {
			r.label(day, date)
			r.logger.Debug("calendar day resolved",
				slog.String("date", date),
				slog.String("strategy", s.name),
				slog.Int64("id", day.ID),
			)
			return day, nil
		}
	}

	return r.synthetic(date), nil
}

// exactLocal matches the row stored at local midnight.
func (r *Resolver) exactLocal(ctx context.Context, date string) (*database.CalendarDay, bool, error) {
	at, err := ParseLocalDate(date, r.loc)
	if err != nil {
		return nil, false, err
	}
	return found(r.store.GetDayByInstant(ctx, at))
}

// exactLegacy matches a row stored at UTC midnight.
func (r *Resolver) exactLegacy(ctx context.Context, date string) (*database.CalendarDay, bool, error) {
	at, err := ParseLegacyUTCDate(date)
	if err != nil {
		return nil, false, err
	}
	return found(r.store.GetDayByInstant(ctx, at))
}

// nearby takes the first row within one day either side of local midnight.
func (r *Resolver) nearby(ctx context.Context, date string) (*database.CalendarDay, bool, error) {
	anchor, err := ParseLocalDate(date, r.loc)
	if err != nil {
		return nil, false, err
	}
	return found(r.store.FindFirstDayBetween(ctx, anchor.Add(-24*time.Hour), anchor.Add(24*time.Hour)))
}

// create inserts the day at local midnight if it is still missing.
func (r *Resolver) create(ctx context.Context, date string) (*database.CalendarDay, bool, error) {
	at, err := ParseLocalDate(date, r.loc)
	if err != nil {
		return nil, false, err
	}
	day, err := r.store.EnsureDay(ctx, at)
	if err != nil {
		return nil, false, err
	}
	return day, true, nil
}

// synthetic is the empty day served when the row cannot be read back.
func (r *Resolver) synthetic(date string) *database.CalendarDay {
	now := time.Now().UTC()
	stored, _ := ParseLocalDate(date, r.loc)
	return &database.CalendarDay{
		Date:        date,
		Stored:      stored,
		Priority:    database.DayPriorityNormal,
		FastingType: database.FastingNone,
		IsHoliday:   false,
		Saints:      []database.Saint{},
		Readings:    []database.Reading{},
		Schedules:   []database.Schedule{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// label stamps the requested date on the day and its schedules.
func (r *Resolver) label(day *database.CalendarDay, date string) {
	day.Date = date
	for i := range day.Schedules {
		day.Schedules[i].Date = date
	}
}

func found(day *database.CalendarDay, err error) (*database.CalendarDay, bool, error) {
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return day, true, nil
}
