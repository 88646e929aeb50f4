package model

import "math"

// RoundDiv divides two minor-unit amounts and rounds half away from zero,
// returning 0 for a zero divisor. All monetary math stays in integers.
func RoundDiv(numerator, divisor int64) int64 {
	if divisor == 0 {
		return 0
	}
	return int64(math.Round(float64(numerator) / float64(divisor)))
}

// Percent1 returns part/total as a percentage rounded to one decimal,
// 0 when total is 0.
func Percent1(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}

// Growth1 returns the percent change from previous to current rounded to
// one decimal. It is undefined (nil) when previous is not positive.
func Growth1(current, previous int64) *float64 {
	if previous <= 0 {
		return nil
	}
	g := math.Round(float64(current-previous)/float64(previous)*1000) / 10
	return &g
}
