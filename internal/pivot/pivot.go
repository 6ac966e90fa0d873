// Package pivot aggregates a price series into seasonality matrices:
// monthly returns by year, and same-weekday returns by ISO-week-year or by
// calendar quarter.
package pivot

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/guregu/null/v6"

	"MarketSeasons/internal/table"
)

// MonthNames are the fixed row labels of the monthly pivot.
var MonthNames = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// Weekdays are the fixed row labels of the weekday pivots.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}

// Table is a matrix of percentages addressed by row and column label.
type Table struct {
	Label   string         `json:"label"`
	Rows    []string       `json:"rows"`
	Columns []string       `json:"columns"`
	Cells   [][]null.Float `json:"cells"`
}

// Empty reports whether the pivot has no columns.
func (p *Table) Empty() bool { return len(p.Columns) == 0 }

// Cell looks up a value by labels. The second result is false for unknown labels.
func (p *Table) Cell(row, col string) (null.Float, bool) {
	ri, ci := indexOf(p.Rows, row), indexOf(p.Columns, col)
	if ri < 0 || ci < 0 {
		return null.Float{}, false
	}
	return p.Cells[ri][ci], true
}

// Table renders the pivot with the label column first.
func (p *Table) Table() *table.Table {
	t := table.New(append([]string{p.Label}, p.Columns...)...)
	for i, row := range p.Rows {
		cells := make([]any, 0, len(p.Columns)+1)
		cells = append(cells, row)
		for _, v := range p.Cells[i] {
			cells = append(cells, v)
		}
		t.Append(cells...)
	}
	return t
}

func indexOf(labels []string, label string) int {
	for i, l := range labels {
		if l == label {
			return i
		}
	}
	return -1
}

// point is one usable (date, close) observation.
type point struct {
	date  time.Time
	close float64
}

// mean accumulates the non-missing values of a cell.
type mean struct {
	sum   float64
	count int
}

func (m *mean) add(v null.Float) {
	if !v.Valid {
		return
	}
	m.sum += v.Float64
	m.count++
}

func (m mean) value() null.Float {
	if m.count == 0 {
		return null.Float{}
	}
	return null.FloatFrom(m.sum / float64(m.count))
}

// build assembles a pivot from sparse cells and the column keys observed.
// Column keys sort ascending by their int ordering key.
func build[K comparable](label string, rows []string, cells map[string]map[K]null.Float, cols map[K]int, name func(K) string) *Table {
	keys := make([]K, 0, len(cols))
	for k := range cols {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return cols[keys[i]] < cols[keys[j]] })

	p := &Table{Label: label, Rows: rows, Columns: make([]string, len(keys)), Cells: make([][]null.Float, len(rows))}
	for j, k := range keys {
		p.Columns[j] = name(k)
	}
	for i, row := range rows {
		p.Cells[i] = make([]null.Float, len(keys))
		for j, k := range keys {
			p.Cells[i][j] = cells[row][k]
		}
	}
	return p
}

func yearLabel(y int) string { return strconv.Itoa(y) }

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
