package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// Calendar Day Queries
// =============================================================================

const dayColumns = `id, date, priority, fasting_type, is_holiday, color, note, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDay(row rowScanner) (*CalendarDay, error) {
	var day CalendarDay
	var stored string
	var color, note, createdAt, updatedAt sql.NullString

	err := row.Scan(
		&day.ID,
		&stored,
		&day.Priority,
		&day.FastingType,
		&day.IsHoliday,
		&color,
		&note,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	day.Stored, err = DecodeInstant(stored)
	if err != nil {
		return nil, err
	}
	day.Color = nullString(color)
	day.Note = nullString(note)
	timestamps(createdAt, updatedAt, &day.CreatedAt, &day.UpdatedAt)

	day.Saints = []Saint{}
	day.Readings = []Reading{}
	day.Schedules = []Schedule{}

	return &day, nil
}

// GetDayByInstant retrieves the day stored at exactly the given instant,
// with its saints, readings (by order) and visible schedules.
// Returns ErrNotFound if no row matches.
func (q *Queries) GetDayByInstant(ctx context.Context, at time.Time) (*CalendarDay, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT `+dayColumns+` FROM calendar_days WHERE date = ?`,
		EncodeInstant(at),
	)

	day, err := scanDay(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query day by instant: %w", err)
	}

	if err := q.loadDayChildren(ctx, day); err != nil {
		return nil, err
	}

	return day, nil
}

// FindFirstDayBetween returns the earliest day stored in [from, to] inclusive.
// Returns ErrNotFound if the window is empty.
func (q *Queries) FindFirstDayBetween(ctx context.Context, from, to time.Time) (*CalendarDay, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT `+dayColumns+` FROM calendar_days
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC
		LIMIT 1`,
		EncodeInstant(from), EncodeInstant(to),
	)

	day, err := scanDay(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query day window: %w", err)
	}

	if err := q.loadDayChildren(ctx, day); err != nil {
		return nil, err
	}

	return day, nil
}

// ListDaysBetween returns every day stored in [from, to] inclusive, by date.
// Returns an empty slice if none are found.
func (q *Queries) ListDaysBetween(ctx context.Context, from, to time.Time) ([]CalendarDay, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+dayColumns+` FROM calendar_days
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC`,
		EncodeInstant(from), EncodeInstant(to),
	)
	if err != nil {
		return nil, fmt.Errorf("query days between: %w", err)
	}

	days := []CalendarDay{}
	for rows.Next() {
		day, err := scanDay(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan day row: %w", err)
		}
		days = append(days, *day)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate day rows: %w", err)
	}
	// Children are loaded after the cursor is released: the pool holds one connection.
	rows.Close()

	for i := range days {
		if err := q.loadDayChildren(ctx, &days[i]); err != nil {
			return nil, err
		}
	}

	return days, nil
}

// EnsureDay returns the day stored at the given instant, creating it with
// default fields when absent.
//
// The insert is a single conditional statement (ON CONFLICT DO NOTHING), so
// two callers racing on a new date both succeed and read the same row.
func (q *Queries) EnsureDay(ctx context.Context, at time.Time) (*CalendarDay, error) {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO calendar_days (date) VALUES (?) ON CONFLICT(date) DO NOTHING`,
		EncodeInstant(at),
	)
	if err != nil {
		return nil, fmt.Errorf("ensure day: %w", mapError(err))
	}

	return q.GetDayByInstant(ctx, at)
}

// UpsertDay updates the editable fields of the day at the given instant,
// inserting the row first if needed.
func (q *Queries) UpsertDay(ctx context.Context, at time.Time, f DayFields) (*CalendarDay, error) {
	if f.Priority == "" {
		f.Priority = DayPriorityNormal
	}
	if f.FastingType == "" {
		f.FastingType = FastingNone
	}

	_, err := q.q.ExecContext(ctx, `
		INSERT INTO calendar_days (date, priority, fasting_type, is_holiday, color, note)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			priority = excluded.priority,
			fasting_type = excluded.fasting_type,
			is_holiday = excluded.is_holiday,
			color = excluded.color,
			note = excluded.note,
			updated_at = datetime('now')
	`,
		EncodeInstant(at),
		f.Priority,
		f.FastingType,
		f.IsHoliday,
		f.Color,
		f.Note,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert day: %w", mapError(err))
	}

	return q.GetDayByInstant(ctx, at)
}

// MoveDay rewrites the stored instant of a day. Used when normalizing rows
// saved under the legacy UTC convention.
func (q *Queries) MoveDay(ctx context.Context, id int64, to time.Time) error {
	result, err := q.q.ExecContext(ctx,
		`UPDATE calendar_days SET date = ?, updated_at = datetime('now') WHERE id = ?`,
		EncodeInstant(to), id,
	)
	if err != nil {
		return fmt.Errorf("move day: %w", mapError(err))
	}
	return checkAffected(result)
}

// ListAllDayInstants returns id and stored instant of every day.
func (q *Queries) ListAllDayInstants(ctx context.Context) (map[int64]time.Time, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT id, date FROM calendar_days ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("query day instants: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]time.Time)
	for rows.Next() {
		var id int64
		var stored string
		if err := rows.Scan(&id, &stored); err != nil {
			return nil, fmt.Errorf("scan day instant: %w", err)
		}
		t, err := DecodeInstant(stored)
		if err != nil {
			return nil, err
		}
		out[id] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate day instants: %w", err)
	}
	return out, nil
}

// loadDayChildren fills saints, readings and visible schedules of a day.
func (q *Queries) loadDayChildren(ctx context.Context, day *CalendarDay) error {
	saints, err := q.listSaints(ctx,
		`JOIN calendar_day_saints ds ON ds.saint_id = s.id WHERE ds.calendar_day_id = ?`,
		day.ID,
	)
	if err != nil {
		return fmt.Errorf("load saints for day %d: %w", day.ID, err)
	}
	day.Saints = saints

	readings, err := q.listReadings(ctx,
		`JOIN calendar_day_readings dr ON dr.reading_id = r.id WHERE dr.calendar_day_id = ?`,
		day.ID,
	)
	if err != nil {
		return fmt.Errorf("load readings for day %d: %w", day.ID, err)
	}
	day.Readings = readings

	schedules, err := q.listSchedules(ctx,
		`WHERE calendar_day_id = ? AND is_visible = 1`,
		[]any{day.ID},
		scheduleDayOrder,
	)
	if err != nil {
		return fmt.Errorf("load schedules for day %d: %w", day.ID, err)
	}
	day.Schedules = schedules

	return nil
}

// =============================================================================
// Saint Queries
// =============================================================================

const saintColumns = `s.id, s.name, s.description, s.icon, s.priority, s.created_at, s.updated_at`

func (q *Queries) listSaints(ctx context.Context, where string, args ...any) ([]Saint, error) {
	query := `SELECT ` + saintColumns + ` FROM saints s ` + where +
		` ORDER BY ` + rankCase("s.priority", ValidSaintPriorities()) + `, s.id`

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query saints: %w", err)
	}
	defer rows.Close()

	saints := []Saint{}
	for rows.Next() {
		var s Saint
		var description, icon, createdAt, updatedAt sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &description, &icon, &s.Priority, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan saint row: %w", err)
		}
		s.Description = nullString(description)
		s.Icon = nullString(icon)
		timestamps(createdAt, updatedAt, &s.CreatedAt, &s.UpdatedAt)
		saints = append(saints, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saint rows: %w", err)
	}

	return saints, nil
}

// ListSaints returns every saint, highest rank first.
func (q *Queries) ListSaints(ctx context.Context) ([]Saint, error) {
	return q.listSaints(ctx, "")
}

// GetSaint retrieves a saint by id.
func (q *Queries) GetSaint(ctx context.Context, id int64) (*Saint, error) {
	saints, err := q.listSaints(ctx, `WHERE s.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(saints) == 0 {
		return nil, ErrNotFound
	}
	return &saints[0], nil
}

// CreateSaint inserts a saint and sets its ID and timestamps.
func (q *Queries) CreateSaint(ctx context.Context, s *Saint) error {
	if s.Priority == "" {
		s.Priority = SaintPriorityCommemorated
	}

	result, err := q.q.ExecContext(ctx,
		`INSERT INTO saints (name, description, icon, priority) VALUES (?, ?, ?, ?)`,
		s.Name, s.Description, s.Icon, s.Priority,
	)
	if err != nil {
		return fmt.Errorf("insert saint: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get saint id: %w", err)
	}

	created, err := q.GetSaint(ctx, id)
	if err != nil {
		return err
	}
	*s = *created
	return nil
}

// AttachSaint links an existing saint to a day. Linking twice is a no-op.
func (q *Queries) AttachSaint(ctx context.Context, dayID, saintID int64) error {
	if _, err := q.GetSaint(ctx, saintID); err != nil {
		return err
	}
	_, err := q.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO calendar_day_saints (calendar_day_id, saint_id) VALUES (?, ?)`,
		dayID, saintID,
	)
	if err != nil {
		return fmt.Errorf("attach saint: %w", mapError(err))
	}
	return nil
}

// DetachSaint removes the link between a day and a saint; the saint survives.
// Returns ErrNotFound if they were not linked.
func (q *Queries) DetachSaint(ctx context.Context, dayID, saintID int64) error {
	result, err := q.q.ExecContext(ctx,
		`DELETE FROM calendar_day_saints WHERE calendar_day_id = ? AND saint_id = ?`,
		dayID, saintID,
	)
	if err != nil {
		return fmt.Errorf("detach saint: %w", err)
	}
	return checkAffected(result)
}

// DeleteSaint destroys a saint, removing it from every day it was linked to.
func (q *Queries) DeleteSaint(ctx context.Context, id int64) error {
	result, err := q.q.ExecContext(ctx, `DELETE FROM saints WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete saint: %w", err)
	}
	return checkAffected(result)
}

// =============================================================================
// Reading Queries
// =============================================================================

const readingColumns = `r.id, r.type, r.reference, r.title, r.text, r.sort_order, r.created_at, r.updated_at`

func (q *Queries) listReadings(ctx context.Context, where string, args ...any) ([]Reading, error) {
	query := `SELECT ` + readingColumns + ` FROM readings r ` + where + ` ORDER BY r.sort_order ASC, r.id ASC`

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	readings := []Reading{}
	for rows.Next() {
		var r Reading
		var title, text, createdAt, updatedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.Type, &r.Reference, &title, &text, &r.Order, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan reading row: %w", err)
		}
		r.Title = nullString(title)
		r.Text = nullString(text)
		timestamps(createdAt, updatedAt, &r.CreatedAt, &r.UpdatedAt)
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reading rows: %w", err)
	}

	return readings, nil
}

// ListReadings returns every reading by order.
func (q *Queries) ListReadings(ctx context.Context) ([]Reading, error) {
	return q.listReadings(ctx, "")
}

// GetReading retrieves a reading by id.
func (q *Queries) GetReading(ctx context.Context, id int64) (*Reading, error) {
	readings, err := q.listReadings(ctx, `WHERE r.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, ErrNotFound
	}
	return &readings[0], nil
}

// CreateReading inserts a reading and sets its ID and timestamps.
func (q *Queries) CreateReading(ctx context.Context, r *Reading) error {
	result, err := q.q.ExecContext(ctx,
		`INSERT INTO readings (type, reference, title, text, sort_order) VALUES (?, ?, ?, ?, ?)`,
		r.Type, r.Reference, r.Title, r.Text, r.Order,
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get reading id: %w", err)
	}

	created, err := q.GetReading(ctx, id)
	if err != nil {
		return err
	}
	*r = *created
	return nil
}

// AttachReading links an existing reading to a day. Linking twice is a no-op.
func (q *Queries) AttachReading(ctx context.Context, dayID, readingID int64) error {
	if _, err := q.GetReading(ctx, readingID); err != nil {
		return err
	}
	_, err := q.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO calendar_day_readings (calendar_day_id, reading_id) VALUES (?, ?)`,
		dayID, readingID,
	)
	if err != nil {
		return fmt.Errorf("attach reading: %w", mapError(err))
	}
	return nil
}

// DetachReading removes the link between a day and a reading.
// Returns ErrNotFound if they were not linked.
func (q *Queries) DetachReading(ctx context.Context, dayID, readingID int64) error {
	result, err := q.q.ExecContext(ctx,
		`DELETE FROM calendar_day_readings WHERE calendar_day_id = ? AND reading_id = ?`,
		dayID, readingID,
	)
	if err != nil {
		return fmt.Errorf("detach reading: %w", err)
	}
	return checkAffected(result)
}

// DeleteReading destroys a reading everywhere it is referenced.
func (q *Queries) DeleteReading(ctx context.Context, id int64) error {
	result, err := q.q.ExecContext(ctx, `DELETE FROM readings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reading: %w", err)
	}
	return checkAffected(result)
}
