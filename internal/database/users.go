package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// =============================================================================
// User Queries
// =============================================================================

const userColumns = `id, email, name, role, password_hash, created_at, updated_at`

func scanUser(row rowScanner) (*User, error) {
	var u User
	var createdAt, updatedAt sql.NullString
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	timestamps(createdAt, updatedAt, &u.CreatedAt, &u.UpdatedAt)
	return &u, nil
}

// CreateUser inserts a user. Emails are stored lower-cased.
// Returns ErrDuplicate if the email is taken.
func (q *Queries) CreateUser(ctx context.Context, u *User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = RoleUser
	}

	result, err := q.q.ExecContext(ctx,
		`INSERT INTO users (email, name, role, password_hash) VALUES (?, ?, ?, ?)`,
		u.Email, u.Name, u.Role, u.PasswordHash,
	)
	if err != nil {
		if mapped := mapError(err); mapped == ErrDuplicate {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get user id: %w", err)
	}

	created, err := q.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	*u = *created
	return nil
}

// GetUserByID retrieves a user by id.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(q.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, wrapLookup("user by id", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(q.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)),
	))
	if err != nil {
		return nil, wrapLookup("user by email", err)
	}
	return u, nil
}

// ListUsers returns all users by id.
func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}
	return users, nil
}

// UpdateUserPassword replaces a password hash.
func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, hash string) error {
	result, err := q.q.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = datetime('now') WHERE id = ?`,
		hash, id,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return checkAffected(result)
}

// DeleteUser removes a user.
func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	result, err := q.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return checkAffected(result)
}
