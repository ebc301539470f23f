package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// =============================================================================
// Schedule Queries
// =============================================================================

const scheduleColumns = `id, calendar_day_id, date, time, title, description, type, priority, is_visible, created_at, updated_at`

var (
	// scheduleDayOrder puts SPECIAL, then HOLIDAY, then NORMAL first, then by time.
	scheduleDayOrder = rankCase("priority", ValidSchedulePriorities()) + ` DESC, time ASC, id ASC`

	// scheduleRangeOrder groups by date before applying the day order.
	scheduleRangeOrder = `date ASC, ` + scheduleDayOrder
)

func (q *Queries) listSchedules(ctx context.Context, where string, args []any, order string) ([]Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules ` + where + ` ORDER BY ` + order

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer rows.Close()

	schedules := []Schedule{}
	for rows.Next() {
		var s Schedule
		var dayID sql.NullInt64
		var stored string
		var description, createdAt, updatedAt sql.NullString

		err := rows.Scan(
			&s.ID,
			&dayID,
			&stored,
			&s.Time,
			&s.Title,
			&description,
			&s.Type,
			&s.Priority,
			&s.IsVisible,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan schedule row: %w", err)
		}

		s.Stored, err = DecodeInstant(stored)
		if err != nil {
			return nil, err
		}
		s.CalendarDayID = nullInt64(dayID)
		s.Description = nullString(description)
		timestamps(createdAt, updatedAt, &s.CreatedAt, &s.UpdatedAt)

		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule rows: %w", err)
	}

	return schedules, nil
}

// GetSchedule retrieves a schedule entry by id.
func (q *Queries) GetSchedule(ctx context.Context, id int64) (*Schedule, error) {
	schedules, err := q.listSchedules(ctx, `WHERE id = ?`, []any{id}, scheduleDayOrder)
	if err != nil {
		return nil, err
	}
	if len(schedules) == 0 {
		return nil, ErrNotFound
	}
	return &schedules[0], nil
}

// ListSchedulesBetween returns entries with from <= date < to.
// Hidden entries are included only when includeHidden is set.
func (q *Queries) ListSchedulesBetween(ctx context.Context, from, to time.Time, includeHidden bool) ([]Schedule, error) {
	where := `WHERE date >= ? AND date < ?`
	if !includeHidden {
		where += ` AND is_visible = 1`
	}
	return q.listSchedules(ctx, where, []any{EncodeInstant(from), EncodeInstant(to)}, scheduleRangeOrder)
}

// CreateSchedule inserts an entry and sets its ID and timestamps.
// s.Stored must hold the entry's date instant.
func (q *Queries) CreateSchedule(ctx context.Context, s *Schedule) error {
	if s.Type == "" {
		s.Type = ScheduleRegular
	}
	if s.Priority == "" {
		s.Priority = SchedulePriorityNormal
	}

	result, err := q.q.ExecContext(ctx, `
		INSERT INTO schedules (calendar_day_id, date, time, title, description, type, priority, is_visible)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.CalendarDayID,
		EncodeInstant(s.Stored),
		s.Time,
		s.Title,
		s.Description,
		s.Type,
		s.Priority,
		s.IsVisible,
	)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get schedule id: %w", err)
	}

	created, err := q.GetSchedule(ctx, id)
	if err != nil {
		return err
	}
	*s = *created
	return nil
}

// UpdateSchedule overwrites every editable field of an entry.
// Returns ErrNotFound if the id doesn't exist.
func (q *Queries) UpdateSchedule(ctx context.Context, s *Schedule) error {
	result, err := q.q.ExecContext(ctx, `
		UPDATE schedules SET
			calendar_day_id = ?,
			date = ?,
			time = ?,
			title = ?,
			description = ?,
			type = ?,
			priority = ?,
			is_visible = ?,
			updated_at = datetime('now')
		WHERE id = ?
	`,
		s.CalendarDayID,
		EncodeInstant(s.Stored),
		s.Time,
		s.Title,
		s.Description,
		s.Type,
		s.Priority,
		s.IsVisible,
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("update schedule: %w", mapError(err))
	}
	if err := checkAffected(result); err != nil {
		return err
	}

	updated, err := q.GetSchedule(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *updated
	return nil
}

// DeleteSchedule removes an entry by id.
func (q *Queries) DeleteSchedule(ctx context.Context, id int64) error {
	result, err := q.q.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return checkAffected(result)
}
