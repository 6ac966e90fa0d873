package volatility

import (
	"errors"
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketSeasons/internal/model"
)

func closes(ticker string, values map[string]float64) model.PriceSeries {
	var bars []model.PriceBar
	for date, c := range values {
		d, err := model.ParseDay(date)
		if err != nil {
			panic(err)
		}
		bars = append(bars, model.PriceBar{Date: d, Close: null.FloatFrom(c)})
	}
	return model.NewPriceSeries(ticker, bars)
}

func fullSet() map[string]model.PriceSeries {
	out := make(map[string]model.PriceSeries)
	for i, ticker := range Tickers() {
		out[ticker] = closes(ticker, map[string]float64{
			"2024-01-02": 10 + float64(i),
			"2024-01-03": 20 + float64(i),
		})
	}
	return out
}

func TestTermStructure_JoinAndRatios(t *testing.T) {
	set := fullSet()
	set["^VIX"] = closes("^VIX", map[string]float64{
		"2024-01-02": 12,
		"2024-01-03": 16,
		"2024-01-04": 18, // absent from the other indexes
	})

	tbl, err := TermStructure(set)
	require.NoError(t, err)
	assert.Equal(t, "date", tbl.Columns[0])
	assert.Equal(t, "SKEW", tbl.Columns[5])
	assert.Equal(t, "C/B", tbl.Columns[9])
	assert.Equal(t, "VIX 3M / VIX 6M", tbl.Columns[len(tbl.Columns)-1])

	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "2024-01-02", tbl.Rows[0][0])
	assert.Equal(t, "2024-01-03", tbl.Rows[1][0])

	// ^VIX3M is index 2 -> 12 on the first day
	cb := tbl.Rows[0][tbl.Index("C/B")].(null.Float)
	assert.InDelta(t, 1.0, cb.Float64, 1e-9)
	ninth := tbl.Rows[1][tbl.Index("VIX9D / VIX")].(null.Float)
	assert.InDelta(t, 21.0/16.0, ninth.Float64, 1e-9)
}

func TestTermStructure_MissingSeries(t *testing.T) {
	set := fullSet()
	delete(set, "^VOLI")
	_, err := TermStructure(set)
	assert.True(t, errors.Is(err, ErrMissingSeries))

	set = fullSet()
	set["^SKEW"] = model.PriceSeries{Symbol: "^SKEW"}
	_, err = TermStructure(set)
	assert.ErrorIs(t, err, ErrMissingSeries)
}

func TestTermStructure_ZeroDenominatorIsMissing(t *testing.T) {
	set := fullSet()
	set["^VIX3M"] = closes("^VIX3M", map[string]float64{"2024-01-02": 0, "2024-01-03": 5})
	tbl, err := TermStructure(set)
	require.NoError(t, err)
	assert.False(t, tbl.Rows[0][tbl.Index("C/B")].(null.Float).Valid)
	assert.True(t, tbl.Rows[1][tbl.Index("C/B")].(null.Float).Valid)
}
