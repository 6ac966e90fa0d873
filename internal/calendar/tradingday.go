package calendar

// Position locates a bar inside its period: Ordinal is 1-based and Remaining
// counts the bars of the same period that follow it.
type Position struct {
	Ordinal   int `json:"ordinal"`
	Remaining int `json:"remaining"`
}

// TradingDays holds the position of a bar at every period granularity.
type TradingDays struct {
	Year      Position `json:"year"`
	Month     Position `json:"month"`
	Trimester Position `json:"trimester"`
	Semester  Position `json:"semester"`
}

type periodKey struct {
	year   int
	bucket int
}

// CountTradingDays computes the trading-day positions of each row from its
// calendar attributes. Groups are formed from the rows present only.
func CountTradingDays(attrs []Attributes) []TradingDays {
	n := len(attrs)
	years := positions(n, func(i int) int { return attrs[i].Year })
	months := positions(n, func(i int) periodKey { return periodKey{attrs[i].Year, attrs[i].Month} })
	trimesters := positions(n, func(i int) periodKey { return periodKey{attrs[i].Year, attrs[i].Trimester} })
	semesters := positions(n, func(i int) periodKey { return periodKey{attrs[i].Year, attrs[i].Semester} })

	out := make([]TradingDays, n)
	for i := range out {
		out[i] = TradingDays{
			Year:      years[i],
			Month:     months[i],
			Trimester: trimesters[i],
			Semester:  semesters[i],
		}
	}
	return out
}

// positions runs one sizing pass and one ordinal pass over n rows grouped by key.
func positions[K comparable](n int, key func(int) K) []Position {
	sizes := make(map[K]int)
	for i := 0; i < n; i++ {
		sizes[key(i)]++
	}
	seen := make(map[K]int, len(sizes))
	out := make([]Position, n)
	for i := 0; i < n; i++ {
		k := key(i)
		seen[k]++
		out[i] = Position{Ordinal: seen[k], Remaining: sizes[k] - seen[k]}
	}
	return out
}
