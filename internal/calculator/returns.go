package calculator

import (
	"math"

	"github.com/guregu/null/v6"
)

// Horizons are the trading-day offsets of the multi-horizon close returns.
var Horizons = [...]int{2, 3, 4, 5, 6, 7, 8, 9, 10, 21, 30, 42, 63, 84, 105, 126}

// Percent returns (a/b - 1) * 100. The result is missing when either operand
// is missing, b is zero or the division is not finite.
func Percent(a, b null.Float) null.Float {
	if !a.Valid || !b.Valid || b.Float64 == 0 {
		return null.Float{}
	}
	v := (a.Float64/b.Float64 - 1.0) * 100.0
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

// Ratio returns a/b, missing under the same rules as Percent.
func Ratio(a, b null.Float) null.Float {
	if !a.Valid || !b.Valid || b.Float64 == 0 {
		return null.Float{}
	}
	v := a.Float64 / b.Float64
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

// Lagged computes Percent(num[t], den[t-lag]) for every row. A positive lag
// looks back, a negative lag looks forward; rows without a counterpart are missing.
func Lagged(num, den []null.Float, lag int) []null.Float {
	out := make([]null.Float, len(num))
	for t := range num {
		j := t - lag
		if j < 0 || j >= len(den) {
			continue
		}
		out[t] = Percent(num[t], den[j])
	}
	return out
}

// Change is the percent change of a column against itself lag rows away.
func Change(values []null.Float, lag int) []null.Float {
	return Lagged(values, values, lag)
}

// SameDay computes Percent(num[t], den[t]) element-wise.
func SameDay(num, den []null.Float) []null.Float {
	return Lagged(num, den, 0)
}

// HorizonReturns holds the backward and forward close returns of every
// horizon; index h of each array matches Horizons[h].
type HorizonReturns struct {
	Backward [len(Horizons)][]null.Float
	Forward  [len(Horizons)][]null.Float
}

// Horizon computes close[t]/close[t-h] - 1 and close[t]/close[t+h] - 1 for every horizon.
func Horizon(closes []null.Float) HorizonReturns {
	var hr HorizonReturns
	for i, h := range Horizons {
		hr.Backward[i] = Change(closes, h)
		hr.Forward[i] = Change(closes, -h)
	}
	return hr
}
