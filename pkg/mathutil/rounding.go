// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/portion-planner/pkg/constants"
)

// Round rounds a value to one decimal, the precision plans are reported in.
func Round(val float64) float64 {
	return math.Round(val*constants.DecimalPrecision) / constants.DecimalPrecision
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// InWindow reports whether val lies in [lower, upper] allowing eps of slack
// on both sides.
func InWindow(val, lower, upper, eps float64) bool {
	return val >= lower-eps && val <= upper+eps
}

// Clamp limits val to [lower, upper].
func Clamp(val, lower, upper float64) float64 {
	return math.Max(lower, math.Min(upper, val))
}

// SafeDivide returns num/den, or zero when den is not positive.
func SafeDivide(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}
