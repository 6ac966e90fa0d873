// Package volatility joins the cached volatility indexes into a term
// structure table with the usual ratio columns.
package volatility

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/guregu/null/v6"

	"MarketSeasons/internal/calculator"
	"MarketSeasons/internal/model"
	"MarketSeasons/internal/table"
)

// ErrMissingSeries is returned when one of the required indexes has no data.
var ErrMissingSeries = errors.New("missing VIX data")

// Index pairs a cached ticker with its column label.
type Index struct {
	Ticker string
	Label  string
}

// Indexes are the series joined into the term structure, in column order.
var Indexes = []Index{
	{"^VIX", "^VIX"},
	{"^VIX9D", "^VIX9D"},
	{"^VIX3M", "^VIX3M"},
	{"^VIX6M", "^VIX6M"},
	{"^SKEW", "SKEW"},
	{"^SDEX", "DEX S"},
	{"^TDEX", "DEX T"},
	{"^VOLI", "VOL I"},
}

// Tickers lists the tickers of Indexes.
func Tickers() []string {
	out := make([]string, len(Indexes))
	for i, idx := range Indexes {
		out[i] = idx.Ticker
	}
	return out
}

type ratio struct {
	label    string
	num, den string
}

var ratios = []ratio{
	{"C/B", "^VIX", "^VIX3M"},
	{"VIX9D / VIX", "^VIX9D", "^VIX"},
	{"VIX 9D / VIX 3M", "^VIX9D", "^VIX3M"},
	{"VIX 9D / VIX 6M", "^VIX9D", "^VIX6M"},
	{"VIX / VIX 3M", "^VIX", "^VIX3M"},
	{"VIX / VIX 6M", "^VIX", "^VIX6M"},
	{"VIX 3M / VIX 6M", "^VIX3M", "^VIX6M"},
}

// TermStructure inner-joins the closes of every index by date and appends the
// ratio columns. Dates missing from any index are dropped.
func TermStructure(series map[string]model.PriceSeries) (*table.Table, error) {
	closes := make(map[string]map[time.Time]null.Float, len(Indexes))
	for _, idx := range Indexes {
		s, ok := series[idx.Ticker]
		if !ok || s.Empty() {
			return nil, fmt.Errorf("%w: %s", ErrMissingSeries, idx.Ticker)
		}
		byDate := make(map[time.Time]null.Float, s.Len())
		for _, b := range s.Bars {
			byDate[model.Day(b.Date)] = b.Close
		}
		closes[idx.Ticker] = byDate
	}

	var dates []time.Time
	for d := range closes[Indexes[0].Ticker] {
		shared := true
		for _, idx := range Indexes[1:] {
			if _, ok := closes[idx.Ticker][d]; !ok {
				shared = false
				break
			}
		}
		if shared {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	columns := []string{"date"}
	for _, idx := range Indexes {
		columns = append(columns, idx.Label)
	}
	for _, r := range ratios {
		columns = append(columns, r.label)
	}

	t := table.New(columns...)
	for _, d := range dates {
		row := make([]any, 0, len(columns))
		row = append(row, d.Format(model.DateLayout))
		for _, idx := range Indexes {
			row = append(row, closes[idx.Ticker][d])
		}
		for _, r := range ratios {
			row = append(row, calculator.Ratio(closes[r.num][d], closes[r.den][d]))
		}
		t.Append(row...)
	}
	return t, nil
}
