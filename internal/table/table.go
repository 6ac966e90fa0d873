// Package table is the row/column shape every feature, pivot and raw price
// output is serialized through. Missing cells are null in JSON and empty in CSV.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/guregu/null/v6"

	"MarketSeasons/internal/model"
)

// Table is a column-ordered matrix of cells.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Column is a named column of cells, one per row.
type Column struct {
	Name   string
	Values []any
}

// New creates an empty table with the given header.
func New(columns ...string) *Table {
	return &Table{Columns: columns, Rows: [][]any{}}
}

// Append adds a row. The row must match the header width.
func (t *Table) Append(cells ...any) {
	if len(cells) != len(t.Columns) {
		panic(fmt.Sprintf("table: row has %d cells, header has %d", len(cells), len(t.Columns)))
	}
	t.Rows = append(t.Rows, cells)
}

// Index returns the position of a column or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AddColumn appends a column at the end of the header.
func (t *Table) AddColumn(col Column) error {
	if t.Index(col.Name) >= 0 {
		return fmt.Errorf("table: duplicate column %q", col.Name)
	}
	if len(col.Values) != len(t.Rows) {
		return fmt.Errorf("table: column %q has %d values, table has %d rows", col.Name, len(col.Values), len(t.Rows))
	}
	t.Columns = append(t.Columns, col.Name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], col.Values[i])
	}
	return nil
}

// WriteCSV writes the header and every row as CSV.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, cell := range row {
			record[i] = FormatCell(cell)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FormatCell renders a cell as text; missing and non-finite values are empty.
func FormatCell(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case null.String:
		return v.ValueOrZero()
	case null.Float:
		if !v.Valid {
			return ""
		}
		return formatFloat(v.Float64)
	case null.Int:
		if !v.Valid {
			return ""
		}
		return strconv.FormatInt(v.Int64, 10)
	case float64:
		return formatFloat(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case time.Time:
		return v.Format(model.DateLayout)
	default:
		return fmt.Sprint(v)
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Raw renders the cached bars of a series without derived columns.
func Raw(series model.PriceSeries) *Table {
	t := New("date", "open", "high", "low", "close", "volume")
	for _, b := range series.Bars {
		t.Append(b.Date.Format(model.DateLayout), b.Open, b.High, b.Low, b.Close, b.Volume)
	}
	return t
}
