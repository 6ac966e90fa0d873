package model

import (
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

// DateLayout is the calendar-day format used by the cache and every serialized table.
const DateLayout = "2006-01-02"

// PriceBar represents one trading day for one ticker. Prices and volume are
// nullable because providers occasionally report partial bars.
type PriceBar struct {
	Date   time.Time  `json:"date"`
	Open   null.Float `json:"open"`
	High   null.Float `json:"high"`
	Low    null.Float `json:"low"`
	Close  null.Float `json:"close"`
	Volume null.Int   `json:"volume"`
}

// PriceSeries holds the daily bars of a single ticker in ascending date order.
// The index of a bar is its trading-day ordinal.
type PriceSeries struct {
	Symbol string
	Bars   []PriceBar
}

// Day truncates t to its calendar day at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a UTC calendar day.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// NewPriceSeries normalizes bar dates to calendar days, sorts them and drops
// duplicate dates. When two bars share a date the later one in the input wins.
func NewPriceSeries(symbol string, bars []PriceBar) PriceSeries {
	out := make([]PriceBar, len(bars))
	for i, b := range bars {
		b.Date = Day(b.Date)
		out[i] = b
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	deduped := out[:0]
	for _, b := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Date.Equal(b.Date) {
			deduped[n-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	return PriceSeries{Symbol: symbol, Bars: deduped}
}

// Len returns the number of bars.
func (s PriceSeries) Len() int { return len(s.Bars) }

// Empty reports whether the series has no bars.
func (s PriceSeries) Empty() bool { return len(s.Bars) == 0 }

// Dates returns the ascending date index backing the series.
func (s PriceSeries) Dates() []time.Time {
	dates := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		dates[i] = b.Date
	}
	return dates
}

// Search returns the leftmost position whose date is on or after day.
// It returns Len() when every bar is earlier than day.
func (s PriceSeries) Search(day time.Time) int {
	day = Day(day)
	return sort.Search(len(s.Bars), func(i int) bool { return !s.Bars[i].Date.Before(day) })
}

// First returns the first bar date and false when the series is empty.
func (s PriceSeries) First() (time.Time, bool) {
	if s.Empty() {
		return time.Time{}, false
	}
	return s.Bars[0].Date, true
}

// Last returns the last bar date and false when the series is empty.
func (s PriceSeries) Last() (time.Time, bool) {
	if s.Empty() {
		return time.Time{}, false
	}
	return s.Bars[len(s.Bars)-1].Date, true
}

// Closes extracts the close column.
func (s PriceSeries) Closes() []null.Float {
	return s.column(func(b PriceBar) null.Float { return b.Close })
}

// Opens extracts the open column.
func (s PriceSeries) Opens() []null.Float {
	return s.column(func(b PriceBar) null.Float { return b.Open })
}

// Highs extracts the high column.
func (s PriceSeries) Highs() []null.Float {
	return s.column(func(b PriceBar) null.Float { return b.High })
}

// Lows extracts the low column.
func (s PriceSeries) Lows() []null.Float {
	return s.column(func(b PriceBar) null.Float { return b.Low })
}

func (s PriceSeries) column(pick func(PriceBar) null.Float) []null.Float {
	values := make([]null.Float, len(s.Bars))
	for i, b := range s.Bars {
		values[i] = pick(b)
	}
	return values
}
