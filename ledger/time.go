package ledger

import (
	"time"
)

// =============================================================================
// CALENDAR DATES - Due dates and statuses work on whole days
// =============================================================================

// Clock supplies "now". Controllers take one so tests can pin the date.
type Clock func() time.Time

// SystemClock returns the wall-clock time in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock { return func() time.Time { return t } }

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDate builds a UTC calendar date.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Today is the current calendar date in UTC.
func Today() time.Time { return DateOf(time.Now()) }

// DaysBetween counts whole days from one date to another (negative if to is earlier).
func DaysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}

// EndOfMonth returns the last calendar day of the month.
func EndOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// dayInMonth returns the given day of the month, clamped to the month length.
func dayInMonth(year int, month time.Month, day int) time.Time {
	last := EndOfMonth(year, month).Day()
	if day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns the calendar date.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}
