package calendar

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zapponejosh/parish-api/internal/database"
)

// ImportData is the JSON document accepted by parishctl import-calendar.
type ImportData struct {
	Days []ImportDay `json:"days"`
}

// ImportDay is one civil date with everything attached to it.
type ImportDay struct {
	Date        string               `json:"date"`
	Priority    database.DayPriority `json:"priority"`
	FastingType database.FastingType `json:"fastingType"`
	IsHoliday   bool                 `json:"isHoliday"`
	Color       *string              `json:"color"`
	Note        *string              `json:"note"`
	Saints      []database.Saint     `json:"saints"`
	Readings    []database.Reading   `json:"readings"`
	Schedules   []ScheduleInput      `json:"schedules"`
}

// ImportStats counts what an import wrote.
type ImportStats struct {
	Days      int
	Saints    int
	Readings  int
	Schedules int
}

// Import loads data in a single transaction. Days are upserted; saints,
// readings and schedules are always created, so importing the same file
// twice duplicates children.
func (s *Service) Import(ctx context.Context, data ImportData) (ImportStats, error) {
	var stats ImportStats

	// Validate everything before touching the database.
	for i := range data.Days {
		d := &data.Days[i]
		if !IsValidDateString(d.Date) {
			return stats, fmt.Errorf("day %d: %w: %q", i+1, ErrInvalidDate, d.Date)
		}
		if d.Priority != "" && !d.Priority.IsValid() {
			return stats, fmt.Errorf("day %d (%s): %w: unknown priority %q", i+1, d.Date, ErrValidation, d.Priority)
		}
		if d.FastingType != "" && !d.FastingType.IsValid() {
			return stats, fmt.Errorf("day %d (%s): %w: unknown fasting type %q", i+1, d.Date, ErrValidation, d.FastingType)
		}
		for j := range d.Readings {
			if !d.Readings[j].Type.IsValid() {
				return stats, fmt.Errorf("day %d (%s): %w: unknown reading type %q", i+1, d.Date, ErrValidation, d.Readings[j].Type)
			}
		}
		for j := range d.Schedules {
			d.Schedules[j].Date = d.Date
			if err := d.Schedules[j].Validate(); err != nil {
				return stats, fmt.Errorf("day %d (%s) schedule %d: %w", i+1, d.Date, j+1, err)
			}
		}
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		for i, d := range data.Days {
			at, err := ParseLocalDate(d.Date, s.loc)
			if err != nil {
				return err
			}

			day, err := tx.UpsertDay(ctx, at, database.DayFields{
				Priority:    d.Priority,
				FastingType: d.FastingType,
				IsHoliday:   d.IsHoliday,
				Color:       d.Color,
				Note:        d.Note,
			})
			if err != nil {
				return fmt.Errorf("upsert day %s: %w", d.Date, err)
			}
			stats.Days++

			for j := range d.Saints {
				saint := d.Saints[j]
				if err := tx.CreateSaint(ctx, &saint); err != nil {
					return fmt.Errorf("create saint for %s: %w", d.Date, err)
				}
				if err := tx.AttachSaint(ctx, day.ID, saint.ID); err != nil {
					return fmt.Errorf("attach saint for %s: %w", d.Date, err)
				}
				stats.Saints++
			}

			for j := range d.Readings {
				reading := d.Readings[j]
				if err := tx.CreateReading(ctx, &reading); err != nil {
					return fmt.Errorf("create reading for %s: %w", d.Date, err)
				}
				if err := tx.AttachReading(ctx, day.ID, reading.ID); err != nil {
					return fmt.Errorf("attach reading for %s: %w", d.Date, err)
				}
				stats.Readings++
			}

			for _, in := range d.Schedules {
				entry := s.scheduleFrom(in, at)
				entry.CalendarDayID = &day.ID
				if err := tx.CreateSchedule(ctx, entry); err != nil {
					return fmt.Errorf("create schedule for %s: %w", d.Date, err)
				}
				stats.Schedules++
			}

			// Progress logging every 50 days
			if (i+1)%50 == 0 {
				s.logger.Debug("import progress",
					slog.Int("day", i+1),
					slog.Int("total", len(data.Days)),
				)
			}
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}

	return stats, nil
}
