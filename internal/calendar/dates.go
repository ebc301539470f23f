// Package calendar resolves parish calendar days and computes the movable
// cycle of the church year.
package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// DateLayout is the civil date format used on the wire.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned for anything that is not a real YYYY-MM-DD date.
var ErrInvalidDate = errors.New("invalid date format, expected YYYY-MM-DD")

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseLocalDate interprets s as midnight in loc. This is the canonical
// convention for every write and for the primary lookup.
func ParseLocalDate(s string, loc *time.Location) (time.Time, error) {
	if !IsValidDateString(s) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return time.ParseInLocation(DateLayout, s, loc)
}

// ParseLegacyUTCDate interprets s as midnight UTC. Rows written before the
// local-midnight convention were stored this way; use it only to read.
func ParseLegacyUTCDate(s string) (time.Time, error) {
	return ParseLocalDate(s, time.UTC)
}

// FormatLocalDate renders the civil date of t as seen in loc.
func FormatLocalDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// IsValidDateString reports whether s is YYYY-MM-DD and names a day that
// exists: 2024-02-29 passes, 2023-02-29 and 2024-02-30 do not.
func IsValidDateString(s string) bool {
	if !datePattern.MatchString(s) {
		return false
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return false
	}
	return t.Format(DateLayout) == s
}

// MonthBounds returns local midnight of the first and of the last day of a
// month. Both ends are meant to be inclusive.
func MonthBounds(year int, month time.Month, loc *time.Location) (first, last time.Time, err error) {
	if month < time.January || month > time.December {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %d", month)
	}
	first = time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last = first.AddDate(0, 1, -1)
	return first, last, nil
}

// NextDay returns local midnight of the following civil day.
func NextDay(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day()+1, 0, 0, 0, 0, loc)
}
