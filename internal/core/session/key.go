package session

import (
	"fmt"
	"strings"
	"time"
)

// Key separator used by the external store's entry naming scheme:
// principal-YYYY-MM-DD[-suffix]. The suffix distinguishes multiple
// sessions on the same day.
const keySeparator = "-"

// DayLayout and MonthLayout are the period key formats used throughout
// the engine. All period math is done in UTC.
const (
	DayLayout   = "2006-01-02"
	MonthLayout = "2006-01"
)

// Key identifies one record in the external store. Raw is the store's
// opaque entry key; Principal and DateKey are the structural parts the
// engine derived it from. Two Keys are equal iff all three fields match.
type Key struct {
	Principal string
	DateKey   string
	Raw       string
}

// KeyPrefix builds the listing prefix for all of a principal's records
// on one date.
func KeyPrefix(principal, dateKey string) string {
	return principal + keySeparator + dateKey
}

// ParseKey interprets a raw store key listed under the prefix for
// (principal, dateKey). It rejects keys that do not actually extend the
// prefix, which guards against a principal name that is itself a prefix
// of another (e.g. "al" matching "alice-...").
func ParseKey(raw, principal, dateKey string) (Key, error) {
	prefix := KeyPrefix(principal, dateKey)
	if raw != prefix && !strings.HasPrefix(raw, prefix+keySeparator) {
		return Key{}, fmt.Errorf("key %q does not belong to %s/%s", raw, principal, dateKey)
	}
	return Key{Principal: principal, DateKey: dateKey, Raw: raw}, nil
}

// DayKey formats t's UTC date as a period key.
func DayKey(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// MonthKey formats t's UTC month as a period key.
func MonthKey(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}

// MonthOfDay returns the month key containing the given day key.
func MonthOfDay(dayKey string) (string, error) {
	t, err := time.Parse(DayLayout, dayKey)
	if err != nil {
		return "", fmt.Errorf("invalid day key %q: %w", dayKey, err)
	}
	return t.Format(MonthLayout), nil
}

// DayOfMonth returns the day-of-month (1-31) for a day key.
func DayOfMonth(dayKey string) (int, error) {
	t, err := time.Parse(DayLayout, dayKey)
	if err != nil {
		return 0, fmt.Errorf("invalid day key %q: %w", dayKey, err)
	}
	return t.Day(), nil
}

// DaysInMonth returns the number of calendar days in the month.
func DaysInMonth(monthKey string) (int, error) {
	t, err := time.Parse(MonthLayout, monthKey)
	if err != nil {
		return 0, fmt.Errorf("invalid month key %q: %w", monthKey, err)
	}
	// Day 0 of the next month is the last day of this one.
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day(), nil
}

// DayInMonth builds the day key for the n-th day of a month.
func DayInMonth(monthKey string, day int) (string, error) {
	t, err := time.Parse(MonthLayout, monthKey)
	if err != nil {
		return "", fmt.Errorf("invalid month key %q: %w", monthKey, err)
	}
	return time.Date(t.Year(), t.Month(), day, 0, 0, 0, 0, time.UTC).Format(DayLayout), nil
}

// DayEnd returns the first instant after the day, i.e. midnight UTC of
// the following day. Used by retention to decide when a day has fully
// elapsed.
func DayEnd(dayKey string) (time.Time, error) {
	t, err := time.Parse(DayLayout, dayKey)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day key %q: %w", dayKey, err)
	}
	return t.AddDate(0, 0, 1), nil
}

// MonthEnd returns the first instant after the month.
func MonthEnd(monthKey string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, monthKey)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month key %q: %w", monthKey, err)
	}
	return t.AddDate(0, 1, 0), nil
}
