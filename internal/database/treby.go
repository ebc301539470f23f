package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// Treba Queries
// =============================================================================

const trebaColumns = `id, order_number, type, period, names, notes, email, phone, price, status, payment_id, paid_at, created_at, updated_at`

func scanTreba(row rowScanner) (*Treba, error) {
	var t Treba
	var names string
	var notes, email, phone, paymentID, paidAt, createdAt, updatedAt sql.NullString

	err := row.Scan(
		&t.ID,
		&t.OrderNumber,
		&t.Type,
		&t.Period,
		&names,
		&notes,
		&email,
		&phone,
		&t.Price,
		&t.Status,
		&paymentID,
		&paidAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(names), &t.Names); err != nil {
		return nil, fmt.Errorf("decode names of treba %d: %w", t.ID, err)
	}
	if t.Names == nil {
		t.Names = []string{}
	}
	t.Notes = nullString(notes)
	t.Email = nullString(email)
	t.Phone = nullString(phone)
	t.PaymentID = nullString(paymentID)
	t.PaidAt = parseTimestamp(paidAt)
	timestamps(createdAt, updatedAt, &t.CreatedAt, &t.UpdatedAt)

	return &t, nil
}

// CreateTreba inserts an order. OrderNumber and Price must already be set.
func (q *Queries) CreateTreba(ctx context.Context, t *Treba) error {
	names, err := json.Marshal(t.Names)
	if err != nil {
		return fmt.Errorf("encode names: %w", err)
	}
	if t.Status == "" {
		t.Status = TrebaPending
	}

	result, err := q.q.ExecContext(ctx, `
		INSERT INTO treby (order_number, type, period, names, notes, email, phone, price, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.OrderNumber, t.Type, t.Period, string(names), t.Notes, t.Email, t.Phone, t.Price, t.Status,
	)
	if err != nil {
		return fmt.Errorf("insert treba: %w", mapError(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get treba id: %w", err)
	}

	created, err := q.GetTreba(ctx, id)
	if err != nil {
		return err
	}
	*t = *created
	return nil
}

// GetTreba retrieves an order by id.
func (q *Queries) GetTreba(ctx context.Context, id int64) (*Treba, error) {
	t, err := scanTreba(q.q.QueryRowContext(ctx, `SELECT `+trebaColumns+` FROM treby WHERE id = ?`, id))
	if err != nil {
		return nil, wrapLookup("treba by id", err)
	}
	return t, nil
}

// GetTrebaByOrderNumber retrieves an order by its public number.
func (q *Queries) GetTrebaByOrderNumber(ctx context.Context, number string) (*Treba, error) {
	t, err := scanTreba(q.q.QueryRowContext(ctx, `SELECT `+trebaColumns+` FROM treby WHERE order_number = ?`, number))
	if err != nil {
		return nil, wrapLookup("treba by order number", err)
	}
	return t, nil
}

// ListTreby returns orders newest first. An empty status lists all.
func (q *Queries) ListTreby(ctx context.Context, status TrebaStatus) ([]Treba, error) {
	query := `SELECT ` + trebaColumns + ` FROM treby`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query treby: %w", err)
	}
	defer rows.Close()

	list := []Treba{}
	for rows.Next() {
		t, err := scanTreba(rows)
		if err != nil {
			return nil, fmt.Errorf("scan treba row: %w", err)
		}
		list = append(list, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate treba rows: %w", err)
	}
	return list, nil
}

// UpdateTrebaStatus moves an order from one status to another. The update
// only applies while the row still holds from; otherwise it returns
// ErrInvalidTransition, or ErrNotFound if the order is gone.
func (q *Queries) UpdateTrebaStatus(ctx context.Context, id int64, from, to TrebaStatus) error {
	result, err := q.q.ExecContext(ctx,
		`UPDATE treby SET status = ?, updated_at = datetime('now') WHERE id = ? AND status = ?`,
		to, id, from,
	)
	if err != nil {
		return fmt.Errorf("update treba status: %w", err)
	}
	return q.checkTransition(ctx, result, id)
}

// MarkTrebaPaid records a payment against a pending order.
func (q *Queries) MarkTrebaPaid(ctx context.Context, id int64, paymentID string, paidAt time.Time) error {
	result, err := q.q.ExecContext(ctx, `
		UPDATE treby SET status = ?, payment_id = ?, paid_at = ?, updated_at = datetime('now')
		WHERE id = ? AND status = ?
	`, TrebaPaid, paymentID, nullTime(&paidAt), id, TrebaPending)
	if err != nil {
		return fmt.Errorf("mark treba paid: %w", err)
	}
	return q.checkTransition(ctx, result, id)
}

func (q *Queries) checkTransition(ctx context.Context, result sql.Result, id int64) error {
	if err := checkAffected(result); err != ErrNotFound {
		return err
	}
	var exists int
	err := q.q.QueryRowContext(ctx, `SELECT 1 FROM treby WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return wrapLookup("treba by id", err)
	}
	return ErrInvalidTransition
}
