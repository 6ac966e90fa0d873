package calendar

import (
	"fmt"
	"time"

	"github.com/guregu/null/v6"

	"MarketSeasons/internal/model"
)

// Expiration describes the proximity of a bar to an expiration cycle.
// Remaining and Elapsed count bars, not calendar days, and are missing when
// the expiration cannot be located inside the series.
type Expiration struct {
	Next      time.Time `json:"next"`
	Previous  time.Time `json:"previous"`
	Remaining null.Int  `json:"remaining"`
	Elapsed   null.Int  `json:"elapsed"`
}

// Expirations pairs the monthly and quarterly cycles of a bar.
type Expirations struct {
	Monthly   Expiration `json:"monthly"`
	Quarterly Expiration `json:"quarterly"`
}

// ThirdFriday returns the first Friday of the month plus 14 days.
func ThirdFriday(year int, month time.Month) time.Time {
	if month < time.January || month > time.December {
		panic(fmt.Sprintf("calendar: invalid month %d", month))
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Friday) - int(first.Weekday()) + 7) % 7
	return first.AddDate(0, 0, offset+14)
}

// AddMonths shifts (year, month) by delta months.
func AddMonths(year int, month time.Month, delta int) (int, time.Month) {
	idx := year*12 + int(month) - 1 + delta
	y, m := idx/12, idx%12
	if m < 0 {
		y, m = y-1, m+12
	}
	return y, time.Month(m + 1)
}

// QuarterEnd returns the last month of the quarter containing month.
func QuarterEnd(month time.Month) time.Month {
	return time.Month(Quarter(month) * 3)
}

// cycle resolves the next and previous expirations around day for an anchor
// month, stepping step months to reach the neighbouring expirations.
func cycle(day time.Time, year int, anchor time.Month, step int) (next, prev time.Time) {
	current := ThirdFriday(year, anchor)
	if !day.After(current) {
		py, pm := AddMonths(year, anchor, -step)
		return current, ThirdFriday(py, pm)
	}
	ny, nm := AddMonths(year, anchor, step)
	return ThirdFriday(ny, nm), current
}

// MonthlyExpirations returns the next and previous monthly expirations of day.
func MonthlyExpirations(day time.Time) (next, prev time.Time) {
	year, month, _ := day.Date()
	return cycle(model.Day(day), year, month, 1)
}

// QuarterlyExpirations returns the next and previous quarterly expirations of day.
func QuarterlyExpirations(day time.Time) (next, prev time.Time) {
	year, month, _ := day.Date()
	return cycle(model.Day(day), year, QuarterEnd(month), 3)
}

// LocateExpirations computes the expiration proximity of every bar. Positions
// are resolved with a binary search over the ascending date index.
func LocateExpirations(series model.PriceSeries) []Expirations {
	out := make([]Expirations, series.Len())
	for i, bar := range series.Bars {
		mNext, mPrev := MonthlyExpirations(bar.Date)
		qNext, qPrev := QuarterlyExpirations(bar.Date)
		out[i] = Expirations{
			Monthly:   locate(series, i, mNext, mPrev),
			Quarterly: locate(series, i, qNext, qPrev),
		}
	}
	return out
}

func locate(series model.PriceSeries, i int, next, prev time.Time) Expiration {
	exp := Expiration{Next: next, Previous: prev}
	n := series.Len()
	if pos := series.Search(next); pos < n {
		exp.Remaining = null.IntFrom(int64(max(0, pos-i)))
	}
	if pos := series.Search(prev); pos < n {
		exp.Elapsed = null.IntFrom(int64(max(0, i-pos)))
	}
	return exp
}
