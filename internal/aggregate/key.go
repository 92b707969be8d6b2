// Package aggregate implements the tiered, TTL-governed cache of summed
// session durations per (principal-or-all) × (day-or-month).
package aggregate

// Period is the aggregation period kind of a cache entry.
type Period int

const (
	PeriodDay Period = iota
	PeriodMonth
)

// String returns the period's snapshot label.
func (p Period) String() string {
	if p == PeriodMonth {
		return "month"
	}
	return "day"
}

// parsePeriod maps a snapshot label back to a Period.
func parsePeriod(s string) (Period, bool) {
	switch s {
	case "day":
		return PeriodDay, true
	case "month":
		return PeriodMonth, true
	}
	return 0, false
}

// Key identifies one aggregate entry. Principal is empty for the
// all-principals scope; PeriodKey is a day key (YYYY-MM-DD) or month key
// (YYYY-MM). A struct key gives defined equality: a principal name that
// happens to contain the date separator cannot collide with another
// entry, which a concatenated string key could not guarantee.
type Key struct {
	Principal string
	Period    Period
	PeriodKey string
}
