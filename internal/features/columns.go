package features

import (
	"fmt"

	"MarketSeasons/internal/calculator"
	"MarketSeasons/internal/model"
	"MarketSeasons/internal/table"
)

const (
	monthlyExpiration   = "3 🧙"
	quarterlyExpiration = "4 🧙"
)

// Columns is the fixed header of the feature table.
var Columns = buildColumns()

func buildColumns() []string {
	cols := []string{
		"date",
		"open",
		"close",
		"weekday",
		"year",
		"semester",
		"trimester",
		"decade",
		"month",
		"week",
		"day of year",
		"trading day",
		"trading day of the month",
		"remaining trading days in the month",
		"trading day of the trimester",
		"remaining trading days in the trimester",
		"trading day of the semester",
		"remaining trading days in the semester",
		monthlyExpiration + " date",
		"trading days remaining before " + monthlyExpiration,
		"trading days elapsed since " + monthlyExpiration,
		quarterlyExpiration + " date",
		"trading days remaining before " + quarterlyExpiration,
		"trading days elapsed since " + quarterlyExpiration,
		"oc",
		"cc",
		"co",
		"bullish run oo",
		"bullish run oc",
		"bullish run hh",
		"bullish run ll",
		"bearish run oo",
		"bearish run oc",
		"bearish run hh",
		"bearish run ll",
		"ath open",
		"ath high",
		"ath close",
		"consecutive ath open",
		"consecutive ath high",
		"consecutive ath close",
	}
	for _, h := range calculator.Horizons {
		cols = append(cols, fmt.Sprintf("cc -%d", h))
	}
	for _, h := range calculator.Horizons {
		cols = append(cols, fmt.Sprintf("cc +%d", h))
	}
	return cols
}

// Cells renders a row in Columns order.
func (r FeatureRow) Cells() []any {
	cells := []any{
		r.Date.Format(model.DateLayout),
		r.Open,
		r.Close,
		r.Weekday,
		r.Year,
		r.Semester,
		r.Trimester,
		r.Decade,
		r.Month,
		r.Week,
		r.DayOfYear,
		r.TradingDays.Year.Ordinal,
		r.TradingDays.Month.Ordinal,
		r.TradingDays.Month.Remaining,
		r.TradingDays.Trimester.Ordinal,
		r.TradingDays.Trimester.Remaining,
		r.TradingDays.Semester.Ordinal,
		r.TradingDays.Semester.Remaining,
		r.Expirations.Monthly.Next.Format(model.DateLayout),
		r.Expirations.Monthly.Remaining,
		r.Expirations.Monthly.Elapsed,
		r.Expirations.Quarterly.Next.Format(model.DateLayout),
		r.Expirations.Quarterly.Remaining,
		r.Expirations.Quarterly.Elapsed,
		r.Returns.OC,
		r.Returns.CC,
		r.Returns.CO,
		r.Streaks.Bullish.OO,
		r.Streaks.Bullish.OC,
		r.Streaks.Bullish.HH,
		r.Streaks.Bullish.LL,
		r.Streaks.Bearish.OO,
		r.Streaks.Bearish.OC,
		r.Streaks.Bearish.HH,
		r.Streaks.Bearish.LL,
		flag(r.Streaks.ATH.Open),
		flag(r.Streaks.ATH.High),
		flag(r.Streaks.ATH.Close),
		r.Streaks.ConsecutiveATH.Open,
		r.Streaks.ConsecutiveATH.High,
		r.Streaks.ConsecutiveATH.Close,
	}
	for _, v := range r.Returns.Backward {
		cells = append(cells, v)
	}
	for _, v := range r.Returns.Forward {
		cells = append(cells, v)
	}
	return cells
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Table renders feature rows with the fixed header followed by any extra
// columns in the order given.
func Table(rows []FeatureRow, extra ...table.Column) (*table.Table, error) {
	t := table.New(Columns...)
	for _, r := range rows {
		t.Append(r.Cells()...)
	}
	for _, col := range extra {
		if err := t.AddColumn(col); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// BarColumns returns the high, low and volume of each row, the bar fields the
// fixed header leaves out.
func BarColumns(rows []FeatureRow) []table.Column {
	high := table.Column{Name: "high", Values: make([]any, len(rows))}
	low := table.Column{Name: "low", Values: make([]any, len(rows))}
	volume := table.Column{Name: "volume", Values: make([]any, len(rows))}
	for i, r := range rows {
		high.Values[i] = r.High
		low.Values[i] = r.Low
		volume.Values[i] = r.Volume
	}
	return []table.Column{high, low, volume}
}
