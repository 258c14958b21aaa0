// Package gain converts between decibels and linear amplitude.
package gain

import "math"

const (
	// dbPerDecade is the 20·log10 scale for amplitude (not power) ratios.
	dbPerDecade = 20.0

	// MinDB is reported by LinearToDB for silence and negative amplitudes.
	MinDB = -200.0
)

// DBToLinear converts a decibel value to a linear amplitude multiplier: 10^(db/20).
// Defined for every real db; the result is always positive.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/dbPerDecade)
}

// LinearToDB converts a linear amplitude to decibels.
// Returns MinDB for amplitudes <= 0.
func LinearToDB(linear float64) float64 {
	if linear <= 0 {
		return MinDB
	}
	return max(dbPerDecade*math.Log10(linear), MinDB)
}
