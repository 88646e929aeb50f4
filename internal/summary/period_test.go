package summary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDaypartFor(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{5, DaypartLateNight},
		{6, DaypartBreakfast},
		{10, DaypartBreakfast},
		{11, DaypartLunch},
		{14, DaypartLunch},
		{15, DaypartDinner},
		{20, DaypartDinner},
		{21, DaypartLateNight},
		{23, DaypartLateNight},
		{0, DaypartLateNight},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DaypartFor(tc.hour), "hour %d", tc.hour)
	}
}

func TestDayOfWeekMon0(t *testing.T) {
	monday := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DayOfWeekMon0(monday))
	assert.Equal(t, 5, DayOfWeekMon0(monday.AddDate(0, 0, 5)), "Saturday")
	assert.Equal(t, 6, DayOfWeekMon0(monday.AddDate(0, 0, 6)), "Sunday")
}

func TestISOWeekStart(t *testing.T) {
	monday := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, monday, ISOWeekStart(monday))
	assert.Equal(t, monday, ISOWeekStart(monday.AddDate(0, 0, 3)), "Thursday maps back to Monday")
	assert.Equal(t, monday, ISOWeekStart(monday.AddDate(0, 0, 6)), "Sunday maps back to Monday")
	assert.Equal(t, monday.AddDate(0, 0, 7), ISOWeekStart(monday.AddDate(0, 0, 7)))
}

func TestMonthStart(t *testing.T) {
	assert.Equal(t,
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		MonthStart(time.Date(2024, 2, 29, 18, 30, 0, 0, time.UTC)))
}
