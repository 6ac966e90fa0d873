package pivot

import (
	"fmt"
	"sort"
	"time"

	"github.com/guregu/null/v6"

	"MarketSeasons/internal/calculator"
	"MarketSeasons/internal/calendar"
	"MarketSeasons/internal/model"
)

// points keeps the bars with a usable close, in ascending date order.
func points(series model.PriceSeries) []point {
	pts := make([]point, 0, series.Len())
	for _, b := range series.Bars {
		if !b.Close.Valid || !finite(b.Close.Float64) {
			continue
		}
		pts = append(pts, point{date: model.Day(b.Date), close: b.Close.Float64})
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].date.Before(pts[j].date) })
	return pts
}

type yearMonth struct {
	year  int
	month time.Month
}

// Monthly computes the first-to-last close return of every (year, month).
// A month with a single observation reports 0.
func Monthly(series model.PriceSeries) *Table {
	pts := points(series)
	if len(pts) == 0 {
		return &Table{Label: "month"}
	}

	first := make(map[yearMonth]float64)
	last := make(map[yearMonth]float64)
	years := make(map[int]int)
	for _, p := range pts {
		y, m, _ := p.date.Date()
		k := yearMonth{y, m}
		if _, ok := first[k]; !ok {
			first[k] = p.close
		}
		last[k] = p.close
		years[y] = y
	}

	cells := make(map[string]map[int]null.Float, len(MonthNames))
	for k, open := range first {
		row := MonthNames[k.month-1]
		if cells[row] == nil {
			cells[row] = make(map[int]null.Float)
		}
		cells[row][k.year] = calculator.Percent(null.FloatFrom(last[k]), null.FloatFrom(open))
	}
	return build("month", append([]string(nil), MonthNames[:]...), cells, years, yearLabel)
}

// SameWeekdayReturns computes each observation's percent change against the
// previous observation falling on the same weekday. The first observation of
// every weekday is missing.
func SameWeekdayReturns(series model.PriceSeries) []null.Float {
	return sameWeekday(points(series))
}

func sameWeekday(pts []point) []null.Float {
	prev := make(map[time.Weekday]float64, 7)
	out := make([]null.Float, len(pts))
	for i, p := range pts {
		wd := p.date.Weekday()
		if c, ok := prev[wd]; ok {
			out[i] = calculator.Percent(null.FloatFrom(p.close), null.FloatFrom(c))
		}
		prev[wd] = p.close
	}
	return out
}

// Weekday averages same-weekday returns per (weekday, ISO-week-year).
func Weekday(series model.PriceSeries) *Table {
	return weekdayPivot(series, func(d time.Time) (int, int) {
		y, _ := d.ISOWeek()
		return y, y
	}, yearLabel)
}

type yearQuarter struct {
	year    int
	quarter int
}

// WeekdayByQuarter averages same-weekday returns per (weekday, calendar quarter).
func WeekdayByQuarter(series model.PriceSeries) *Table {
	return weekdayPivot(series, func(d time.Time) (yearQuarter, int) {
		y, m, _ := d.Date()
		q := calendar.Quarter(m)
		return yearQuarter{y, q}, y*4 + q
	}, func(k yearQuarter) string {
		return fmt.Sprintf("%dQ%d", k.year, k.quarter)
	})
}

// weekdayPivot groups same-weekday returns by weekday and by the column key of
// each observation. column returns the key and its ordering value.
func weekdayPivot[K comparable](series model.PriceSeries, column func(time.Time) (K, int), name func(K) string) *Table {
	pts := points(series)
	if len(pts) == 0 {
		return &Table{Label: "weekday"}
	}
	rets := sameWeekday(pts)

	type cellKey struct {
		weekday string
		col     K
	}
	acc := make(map[cellKey]*mean)
	cols := make(map[K]int)
	for i, p := range pts {
		k, order := column(p.date)
		cols[k] = order
		ck := cellKey{calendar.WeekdayName(p.date), k}
		m, ok := acc[ck]
		if !ok {
			m = &mean{}
			acc[ck] = m
		}
		m.add(rets[i])
	}

	cells := make(map[string]map[K]null.Float, len(Weekdays))
	for ck, m := range acc {
		if cells[ck.weekday] == nil {
			cells[ck.weekday] = make(map[K]null.Float)
		}
		cells[ck.weekday][ck.col] = m.value()
	}
	return build("weekday", append([]string(nil), Weekdays...), cells, cols, name)
}
