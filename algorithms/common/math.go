package common

import (
	"gonum.org/v1/gonum/stat"
)

// Basic numerical helpers shared by the NCCF calculator and the
// post-processor. Kept deliberately small: this package used to carry a
// much larger statistics toolkit (percentiles, correlation, regression, peak
// finding) none of which a time-domain pitch tracker touches.

// Mean calculates the arithmetic mean of a slice using gonum.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// Clamp constrains a value to a range.
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
