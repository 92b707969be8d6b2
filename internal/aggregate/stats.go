package aggregate

import "github.com/shopspring/decimal"

// DailyAverage returns the floor of monthTotal divided by the number of
// days elapsed in the month. Exact decimal division avoids float drift
// for large month totals.
func DailyAverage(monthTotalMinutes int64, daysElapsed int) int64 {
	if daysElapsed <= 0 {
		return 0
	}
	return decimal.NewFromInt(monthTotalMinutes).
		Div(decimal.NewFromInt(int64(daysElapsed))).
		Floor().
		IntPart()
}
