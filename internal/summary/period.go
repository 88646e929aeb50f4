// Package summary builds the pre-aggregated hourly and branch summary
// tables from the transaction facts. All bucketing happens in the tenant's
// local timezone after a single UTC conversion per row.
package summary

import "time"

// Dayparts as local-hour half-open ranges. Hours outside the three named
// ranges fall into late night.
const (
	DaypartBreakfast = "breakfast"  // [6, 11)
	DaypartLunch     = "lunch"      // [11, 15)
	DaypartDinner    = "dinner"     // [15, 21)
	DaypartLateNight = "late_night" // [21, 24) and [0, 6)
)

// DaypartFor maps a local hour to its daypart name.
func DaypartFor(hour int) string {
	switch {
	case hour >= 6 && hour < 11:
		return DaypartBreakfast
	case hour >= 11 && hour < 15:
		return DaypartLunch
	case hour >= 15 && hour < 21:
		return DaypartDinner
	default:
		return DaypartLateNight
	}
}

// DayOfWeekMon0 maps a time to a Monday-first weekday index, 0=Monday
// through 6=Sunday.
func DayOfWeekMon0(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// LocalDate truncates a local time to its calendar date at midnight UTC.
// Dates are stored timezone-free; keeping them in UTC makes equality and
// range comparisons safe.
func LocalDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ISOWeekStart returns the Monday of the week containing the given date.
func ISOWeekStart(date time.Time) time.Time {
	return LocalDate(date).AddDate(0, 0, -DayOfWeekMon0(date))
}

// MonthStart returns the first day of the month containing the given date.
func MonthStart(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
}
