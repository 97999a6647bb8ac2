package calendar

import "time"

// GridSize is six full weeks.
const GridSize = 42

// DayGrid returns the 42 days shown by a month view that starts on Sunday.
// Leading days come from the previous month and trailing days from the
// next one. Dates are midnight UTC; only the calendar day is meaningful.
func DayGrid(year int, month time.Month) []time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	start := first.AddDate(0, 0, -int(first.Weekday()))

	days := make([]time.Time, GridSize)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}
