package calculator

import "github.com/guregu/null/v6"

// Positive flags rows whose value is present and greater than zero.
func Positive(values []null.Float) []bool {
	return mask(values, func(v float64) bool { return v > 0 })
}

// Negative flags rows whose value is present and lower than zero.
func Negative(values []null.Float) []bool {
	return mask(values, func(v float64) bool { return v < 0 })
}

func mask(values []null.Float, cond func(float64) bool) []bool {
	out := make([]bool, len(values))
	for i, v := range values {
		out[i] = v.Valid && cond(v.Float64)
	}
	return out
}

// Streak counts consecutive true rows ending at each row. False rows are 0.
func Streak(cond []bool) []int {
	out := make([]int, len(cond))
	run := 0
	for i, c := range cond {
		if !c {
			run = 0
			continue
		}
		run++
		out[i] = run
	}
	return out
}

// RunningMax is the cumulative maximum of the present values. Missing rows
// stay missing and do not reset the maximum.
func RunningMax(values []null.Float) []null.Float {
	out := make([]null.Float, len(values))
	var peak null.Float
	for i, v := range values {
		if !v.Valid {
			continue
		}
		if !peak.Valid || v.Float64 > peak.Float64 {
			peak = v
		}
		out[i] = peak
	}
	return out
}

// AllTimeHighs flags rows whose value equals the running maximum through that row.
func AllTimeHighs(values []null.Float) []bool {
	peaks := RunningMax(values)
	out := make([]bool, len(values))
	for i, v := range values {
		out[i] = v.Valid && peaks[i].Valid && v.Float64 == peaks[i].Float64
	}
	return out
}
