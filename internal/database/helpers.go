package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// InstantLayout is the fixed-width UTC layout of stored calendar instants.
// Lexical order equals chronological order.
const InstantLayout = "2006-01-02T15:04:05.000Z"

// EncodeInstant renders t for storage.
func EncodeInstant(t time.Time) string {
	return t.UTC().Format(InstantLayout)
}

// DecodeInstant parses a stored instant. Rows written by older tooling may
// carry plain RFC 3339, so that is accepted too.
func DecodeInstant(s string) (time.Time, error) {
	if t, err := time.Parse(InstantLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode instant %q: %w", s, err)
	}
	return t.UTC(), nil
}

// parseTimestamp parses a timestamp from SQLite TEXT format.
// Tries multiple formats and returns nil if parsing fails.
func parseTimestamp(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}

	// Try RFC3339 format first (with timezone)
	t, err := time.Parse(time.RFC3339, ns.String)
	if err == nil {
		return &t
	}

	// Try SQLite datetime format (no timezone)
	t, err = time.Parse("2006-01-02 15:04:05", ns.String)
	if err == nil {
		return &t
	}

	// Try ISO format with microseconds (no timezone)
	t, err = time.Parse("2006-01-02T15:04:05.999999", ns.String)
	if err == nil {
		return &t
	}

	return nil
}

// timestamps fills created/updated from their TEXT columns.
func timestamps(created, updated sql.NullString, createdAt, updatedAt *time.Time) {
	if t := parseTimestamp(created); t != nil {
		*createdAt = *t
	}
	if t := parseTimestamp(updated); t != nil {
		*updatedAt = *t
	}
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullInt64(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// rankCase builds a CASE expression mapping each enum value to its index in
// declared order, so ORDER BY can follow enum precedence instead of text.
func rankCase[T ~string](column string, declared []T) string {
	var b strings.Builder
	b.WriteString("CASE ")
	b.WriteString(column)
	for i, v := range declared {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", string(v), i)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(declared))
	return b.String()
}
