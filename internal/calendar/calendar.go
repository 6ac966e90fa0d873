// Package calendar derives calendar and trading-calendar attributes for a
// daily price series. Trading days are the bars present in the series; the
// package never infers sessions from a holiday calendar.
package calendar

import (
	"strings"
	"time"

	"MarketSeasons/internal/model"
)

// Attributes are the calendar fields of a single bar.
type Attributes struct {
	Weekday   string `json:"weekday"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Week      int    `json:"week"`
	DayOfYear int    `json:"day_of_year"`
	Decade    int    `json:"decade"`
	Semester  int    `json:"semester"`
	Trimester int    `json:"trimester"`
}

// WeekdayName returns the lowercase English name of the day.
func WeekdayName(day time.Time) string {
	return strings.ToLower(day.Weekday().String())
}

// Of computes the calendar attributes of one day.
func Of(day time.Time) Attributes {
	year, month, _ := day.Date()
	_, week := day.ISOWeek()
	return Attributes{
		Weekday:   WeekdayName(day),
		Year:      year,
		Month:     int(month),
		Week:      week,
		DayOfYear: day.YearDay(),
		Decade:    year / 10 * 10,
		Semester:  Semester(month),
		Trimester: Trimester(month),
	}
}

// Semester is 1 for January to June and 2 otherwise.
func Semester(month time.Month) int {
	return (int(month)-1)/6 + 1
}

// Trimester buckets the year into three four-month periods numbered 1 to 3.
func Trimester(month time.Month) int {
	return (int(month)-1)/4 + 1
}

// Quarter returns the calendar quarter 1 to 4.
func Quarter(month time.Month) int {
	return (int(month)-1)/3 + 1
}

// Index maps every bar of the series to its calendar attributes.
func Index(series model.PriceSeries) []Attributes {
	attrs := make([]Attributes, series.Len())
	for i, bar := range series.Bars {
		attrs[i] = Of(bar.Date)
	}
	return attrs
}
