package calendar

import (
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketSeasons/internal/model"
)

func day(s string) time.Time {
	d, err := model.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// dailySeries builds a bar for every calendar day in [from, to], skipping the listed dates.
func dailySeries(from, to string, skip ...string) model.PriceSeries {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}
	var bars []model.PriceBar
	for d := day(from); !d.After(day(to)); d = d.AddDate(0, 0, 1) {
		if skipped[d.Format(model.DateLayout)] {
			continue
		}
		bars = append(bars, model.PriceBar{Date: d, Close: null.FloatFrom(100)})
	}
	return model.NewPriceSeries("TEST", bars)
}

// weekdaySeries builds a bar for every Monday to Friday in [from, to].
func weekdaySeries(from, to string) model.PriceSeries {
	var bars []model.PriceBar
	for d := day(from); !d.After(day(to)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		bars = append(bars, model.PriceBar{Date: d, Close: null.FloatFrom(100)})
	}
	return model.NewPriceSeries("TEST", bars)
}

func TestOf(t *testing.T) {
	tests := []struct {
		date string
		want Attributes
	}{
		{"2024-01-01", Attributes{Weekday: "monday", Year: 2024, Month: 1, Week: 1, DayOfYear: 1, Decade: 2020, Semester: 1, Trimester: 1}},
		{"2024-04-30", Attributes{Weekday: "tuesday", Year: 2024, Month: 4, Week: 18, DayOfYear: 121, Decade: 2020, Semester: 1, Trimester: 1}},
		{"2024-05-01", Attributes{Weekday: "wednesday", Year: 2024, Month: 5, Week: 18, DayOfYear: 122, Decade: 2020, Semester: 1, Trimester: 2}},
		{"2019-07-05", Attributes{Weekday: "friday", Year: 2019, Month: 7, Week: 27, DayOfYear: 186, Decade: 2010, Semester: 2, Trimester: 2}},
		{"2021-01-03", Attributes{Weekday: "sunday", Year: 2021, Month: 1, Week: 53, DayOfYear: 3, Decade: 2020, Semester: 1, Trimester: 1}},
		{"2023-12-31", Attributes{Weekday: "sunday", Year: 2023, Month: 12, Week: 52, DayOfYear: 365, Decade: 2020, Semester: 2, Trimester: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			assert.Equal(t, tt.want, Of(day(tt.date)))
		})
	}
}

func TestIndex_RangesAndRowCount(t *testing.T) {
	series := weekdaySeries("2019-11-01", "2021-03-31")
	attrs := Index(series)
	require.Len(t, attrs, series.Len())
	for i, a := range attrs {
		assert.GreaterOrEqual(t, a.Month, 1, "row %d", i)
		assert.LessOrEqual(t, a.Month, 12, "row %d", i)
		assert.Contains(t, []int{1, 2}, a.Semester, "row %d", i)
		assert.Contains(t, []int{1, 2, 3}, a.Trimester, "row %d", i)
	}
}

func TestIndex_Empty(t *testing.T) {
	assert.Empty(t, Index(model.PriceSeries{}))
	assert.Empty(t, CountTradingDays(nil))
	assert.Empty(t, LocateExpirations(model.PriceSeries{}))
}

func TestCountTradingDays_OrdinalPlusRemaining(t *testing.T) {
	series := weekdaySeries("2022-12-20", "2024-02-10")
	attrs := Index(series)
	days := CountTradingDays(attrs)
	require.Len(t, days, len(attrs))

	type key struct{ year, bucket int }
	check := func(name string, keyOf func(Attributes) key, pos func(TradingDays) Position) {
		sizes := map[key]int{}
		for _, a := range attrs {
			sizes[keyOf(a)]++
		}
		for i := range attrs {
			p := pos(days[i])
			k := keyOf(attrs[i])
			assert.Equal(t, sizes[k], p.Ordinal+p.Remaining, "%s row %d", name, i)
			last := i == len(attrs)-1 || keyOf(attrs[i+1]) != k
			if last {
				assert.Zero(t, p.Remaining, "%s last row %d", name, i)
			}
			first := i == 0 || keyOf(attrs[i-1]) != k
			if first {
				assert.Equal(t, 1, p.Ordinal, "%s first row %d", name, i)
			}
		}
	}
	check("year", func(a Attributes) key { return key{a.Year, 0} }, func(d TradingDays) Position { return d.Year })
	check("month", func(a Attributes) key { return key{a.Year, a.Month} }, func(d TradingDays) Position { return d.Month })
	check("trimester", func(a Attributes) key { return key{a.Year, a.Trimester} }, func(d TradingDays) Position { return d.Trimester })
	check("semester", func(a Attributes) key { return key{a.Year, a.Semester} }, func(d TradingDays) Position { return d.Semester })
}

func TestCountTradingDays_CountsPresentRowsOnly(t *testing.T) {
	// January 2024 weekdays minus the 15th: 23 sessions become 22.
	var bars []model.PriceBar
	for _, b := range weekdaySeries("2024-01-01", "2024-01-31").Bars {
		if b.Date.Equal(day("2024-01-15")) {
			continue
		}
		bars = append(bars, b)
	}
	series := model.NewPriceSeries("TEST", bars)
	days := CountTradingDays(Index(series))
	require.Len(t, days, 22)
	assert.Equal(t, Position{Ordinal: 1, Remaining: 21}, days[0].Month)
	assert.Equal(t, Position{Ordinal: 22, Remaining: 0}, days[21].Month)
	// 2024-01-16 follows the gap directly.
	idx := series.Search(day("2024-01-16"))
	assert.Equal(t, 11, days[idx].Month.Ordinal)
}

func TestThirdFriday(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  string
	}{
		{2024, time.January, "2024-01-19"},
		{2024, time.February, "2024-02-16"},
		{2024, time.March, "2024-03-15"},
		{2023, time.December, "2023-12-15"},
		{2021, time.January, "2021-01-15"}, // month starts on a Friday
		{2022, time.April, "2022-04-15"},
		{2020, time.May, "2020-05-15"},
		{2015, time.February, "2015-02-20"}, // month starts on a Sunday
	}
	for _, tt := range tests {
		got := ThirdFriday(tt.year, tt.month)
		assert.Equal(t, tt.want, got.Format(model.DateLayout))
		assert.Equal(t, time.Friday, got.Weekday())
	}
}

func TestThirdFriday_InvalidMonthPanics(t *testing.T) {
	assert.Panics(t, func() { ThirdFriday(2024, 13) })
	assert.Panics(t, func() { ThirdFriday(2024, 0) })
}

func TestAddMonths(t *testing.T) {
	y, m := AddMonths(2024, time.December, 1)
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.January, m)
	y, m = AddMonths(2024, time.January, -1)
	assert.Equal(t, 2023, y)
	assert.Equal(t, time.December, m)
	y, m = AddMonths(2024, time.March, -3)
	assert.Equal(t, 2023, y)
	assert.Equal(t, time.December, m)
	y, m = AddMonths(2024, time.December, 3)
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.March, m)
}

func TestMonthlyExpirations(t *testing.T) {
	next, prev := MonthlyExpirations(day("2024-01-10"))
	assert.Equal(t, "2024-01-19", next.Format(model.DateLayout))
	assert.Equal(t, "2023-12-15", prev.Format(model.DateLayout))

	// On the expiration day itself the current cycle is still "next".
	next, prev = MonthlyExpirations(day("2024-01-19"))
	assert.Equal(t, "2024-01-19", next.Format(model.DateLayout))
	assert.Equal(t, "2023-12-15", prev.Format(model.DateLayout))

	next, prev = MonthlyExpirations(day("2024-12-23"))
	assert.Equal(t, "2025-01-17", next.Format(model.DateLayout))
	assert.Equal(t, "2024-12-20", prev.Format(model.DateLayout))
}

func TestQuarterlyExpirations(t *testing.T) {
	next, prev := QuarterlyExpirations(day("2024-02-05"))
	assert.Equal(t, "2024-03-15", next.Format(model.DateLayout))
	assert.Equal(t, "2023-12-15", prev.Format(model.DateLayout))

	next, prev = QuarterlyExpirations(day("2024-03-18"))
	assert.Equal(t, "2024-06-21", next.Format(model.DateLayout))
	assert.Equal(t, "2024-03-15", prev.Format(model.DateLayout))

	next, prev = QuarterlyExpirations(day("2024-12-27"))
	assert.Equal(t, "2025-03-21", next.Format(model.DateLayout))
	assert.Equal(t, "2024-12-20", prev.Format(model.DateLayout))
}

func TestLocateExpirations_JanuaryScenario(t *testing.T) {
	series := dailySeries("2024-01-02", "2024-01-31")
	exps := LocateExpirations(series)
	require.Len(t, exps, series.Len())

	i := series.Search(day("2024-01-10"))
	require.Equal(t, day("2024-01-10"), series.Bars[i].Date)
	got := exps[i].Monthly
	assert.Equal(t, day("2024-01-19"), got.Next)

	// rows in (2024-01-10, 2024-01-19]
	between := 0
	for _, b := range series.Bars {
		if b.Date.After(day("2024-01-10")) && !b.Date.After(day("2024-01-19")) {
			between++
		}
	}
	assert.Equal(t, null.IntFrom(int64(between)), got.Remaining)
	assert.Equal(t, null.IntFrom(9), got.Remaining)

	// December's expiration precedes the series, so it resolves to row 0.
	assert.Equal(t, null.IntFrom(int64(i)), got.Elapsed)
}

func TestLocateExpirations_ZeroOnExpirationDay(t *testing.T) {
	series := dailySeries("2024-01-02", "2024-01-31")
	exps := LocateExpirations(series)
	i := series.Search(day("2024-01-19"))
	assert.Equal(t, null.IntFrom(0), exps[i].Monthly.Remaining)

	// After the expiration the previous cycle is January's.
	j := series.Search(day("2024-01-22"))
	assert.Equal(t, null.IntFrom(int64(j-i)), exps[j].Monthly.Elapsed)
}

func TestLocateExpirations_BeyondSeriesIsMissing(t *testing.T) {
	series := dailySeries("2024-01-02", "2024-01-31")
	exps := LocateExpirations(series)
	last := exps[len(exps)-1]
	// February's expiration is after the last row.
	assert.Equal(t, day("2024-02-16"), last.Monthly.Next)
	assert.False(t, last.Monthly.Remaining.Valid)
	assert.True(t, last.Monthly.Elapsed.Valid)
	// March's quarterly expiration is after the last row for every row.
	for _, e := range exps {
		assert.False(t, e.Quarterly.Remaining.Valid)
		assert.True(t, e.Quarterly.Elapsed.Valid)
	}
}

func TestLocateExpirations_HolidayOnExpirationResolvesToNextSession(t *testing.T) {
	// 2022-04-15 was Good Friday; the locator lands on the following Monday.
	var bars []model.PriceBar
	for _, b := range weekdaySeries("2022-04-01", "2022-04-29").Bars {
		if b.Date.Equal(day("2022-04-15")) {
			continue
		}
		bars = append(bars, b)
	}
	series := model.NewPriceSeries("TEST", bars)
	exps := LocateExpirations(series)
	i := series.Search(day("2022-04-14"))
	j := series.Search(day("2022-04-18"))
	assert.Equal(t, day("2022-04-15"), exps[i].Monthly.Next)
	assert.Equal(t, null.IntFrom(int64(j-i)), exps[i].Monthly.Remaining)
	assert.Equal(t, null.IntFrom(1), exps[i].Monthly.Remaining)
}
