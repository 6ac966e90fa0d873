// Package features assembles the per-bar feature panel of a price series:
// calendar fields, trading-day positions, expiration proximity, returns,
// streaks and all-time-high tracking. It is a pure transform without I/O.
package features

import (
	"github.com/guregu/null/v6"

	"MarketSeasons/internal/calculator"
	"MarketSeasons/internal/calendar"
	"MarketSeasons/internal/model"
)

// HorizonCount is the number of multi-horizon return pairs per row.
const HorizonCount = len(calculator.Horizons)

// Returns holds the percentage returns of a row. OO, HH and LL only feed the
// streak counters and are not part of the serialized table.
type Returns struct {
	CC       null.Float               `json:"cc"`
	OC       null.Float               `json:"oc"`
	CO       null.Float               `json:"co"`
	OO       null.Float               `json:"oo"`
	HH       null.Float               `json:"hh"`
	LL       null.Float               `json:"ll"`
	Backward [HorizonCount]null.Float `json:"backward"`
	Forward  [HorizonCount]null.Float `json:"forward"`
}

// Runs holds bullish or bearish streak counters keyed by ratio.
type Runs struct {
	OO int `json:"oo"`
	OC int `json:"oc"`
	HH int `json:"hh"`
	LL int `json:"ll"`
}

// ATH holds all-time-high flags or consecutive all-time-high counters.
type ATH[T bool | int] struct {
	Open  T `json:"open"`
	High  T `json:"high"`
	Close T `json:"close"`
}

// Streaks groups the run-length features of a row.
type Streaks struct {
	Bullish        Runs      `json:"bullish"`
	Bearish        Runs      `json:"bearish"`
	ATH            ATH[bool] `json:"ath"`
	ConsecutiveATH ATH[int]  `json:"consecutive_ath"`
}

// FeatureRow is one bar with every derived feature.
type FeatureRow struct {
	model.PriceBar
	calendar.Attributes
	TradingDays calendar.TradingDays `json:"trading_days"`
	Expirations calendar.Expirations `json:"expirations"`
	Returns     Returns              `json:"returns"`
	Streaks     Streaks              `json:"streaks"`
}

// Compute derives the feature rows of a series. Each column family is
// computed independently; a missing input only blanks the cells depending on it.
func Compute(series model.PriceSeries) []FeatureRow {
	n := series.Len()
	if n == 0 {
		return nil
	}

	attrs := calendar.Index(series)
	days := calendar.CountTradingDays(attrs)
	exps := calendar.LocateExpirations(series)

	opens, highs, lows, closes := series.Opens(), series.Highs(), series.Lows(), series.Closes()
	cc := calculator.Change(closes, 1)
	oc := calculator.SameDay(closes, opens)
	co := calculator.Lagged(opens, closes, 1)
	oo := calculator.Change(opens, 1)
	hh := calculator.Change(highs, 1)
	ll := calculator.Change(lows, 1)
	horizons := calculator.Horizon(closes)

	bullOO, bullOC := calculator.Streak(calculator.Positive(oo)), calculator.Streak(calculator.Positive(oc))
	bullHH, bullLL := calculator.Streak(calculator.Positive(hh)), calculator.Streak(calculator.Positive(ll))
	bearOO, bearOC := calculator.Streak(calculator.Negative(oo)), calculator.Streak(calculator.Negative(oc))
	bearHH, bearLL := calculator.Streak(calculator.Negative(hh)), calculator.Streak(calculator.Negative(ll))

	athOpen := calculator.AllTimeHighs(opens)
	athHigh := calculator.AllTimeHighs(highs)
	athClose := calculator.AllTimeHighs(closes)
	runOpen, runHigh, runClose := calculator.Streak(athOpen), calculator.Streak(athHigh), calculator.Streak(athClose)

	rows := make([]FeatureRow, n)
	for i, bar := range series.Bars {
		r := FeatureRow{
			PriceBar:    bar,
			Attributes:  attrs[i],
			TradingDays: days[i],
			Expirations: exps[i],
			Returns: Returns{
				CC: cc[i], OC: oc[i], CO: co[i],
				OO: oo[i], HH: hh[i], LL: ll[i],
			},
			Streaks: Streaks{
				Bullish:        Runs{OO: bullOO[i], OC: bullOC[i], HH: bullHH[i], LL: bullLL[i]},
				Bearish:        Runs{OO: bearOO[i], OC: bearOC[i], HH: bearHH[i], LL: bearLL[i]},
				ATH:            ATH[bool]{Open: athOpen[i], High: athHigh[i], Close: athClose[i]},
				ConsecutiveATH: ATH[int]{Open: runOpen[i], High: runHigh[i], Close: runClose[i]},
			},
		}
		for h := range calculator.Horizons {
			r.Returns.Backward[h] = horizons.Backward[h][i]
			r.Returns.Forward[h] = horizons.Forward[h][i]
		}
		rows[i] = r
	}
	return rows
}
