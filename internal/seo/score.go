package seo

import "math"

// Deduction weights per severity. One canonical weighting is used for
// both page-level and report-level scores.
const (
	weightCritical = 10.0
	weightHigh     = 5.0
	weightMedium   = 2.0
	weightLow      = 0.5
)

// Score converts a severity histogram into a 0-100 health score by
// weighted deduction from 100. Info issues carry no weight.
func Score(c IssueCounts) int {
	deduction := float64(c.Critical)*weightCritical +
		float64(c.High)*weightHigh +
		float64(c.Medium)*weightMedium +
		float64(c.Low)*weightLow

	score := 100 - deduction
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(math.Round(score))
}
