// Package dataset loads uploaded tabular files into an immutable in-memory Table.
//
// Files are dispatched by extension only (csv, xls, xlsx, json). Every reader
// produces text cells that go through one shared type inference step, so the
// same data stored in different formats loads into identical tables.
package dataset

import (
	"encoding/json"
)

// Column is a named, typed column of cells.
type Column struct {
	Name   string
	DType  DType
	Values []Value
}

// NonNull returns the number of cells that are not missing.
func (c *Column) NonNull() int {
	n := 0
	for _, v := range c.Values {
		if !v.IsNull() {
			n++
		}
	}
	return n
}

// Floats returns the non-null numeric cells in row order.
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if f, ok := v.AsFloat(); ok {
			out = append(out, f)
		}
	}
	return out
}

// Table is a rows × named columns dataset. It is never mutated after loading.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// NewTable builds a table from columns of equal length.
func NewTable(columns []*Column) *Table {
	t := &Table{columns: columns, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		t.index[c.Name] = i
		if i == 0 {
			t.rows = len(c.Values)
		}
	}
	return t
}

// Shape returns the number of rows and columns.
func (t *Table) Shape() (rows, cols int) {
	return t.rows, len(t.columns)
}

// Columns returns the column names in file order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// At returns the cell at row i of column j.
func (t *Table) At(i, j int) Value {
	return t.columns[j].Values[i]
}

// Head returns a table holding the first n rows.
func (t *Table) Head(n int) *Table {
	if n > t.rows {
		n = t.rows
	}
	if n < 0 {
		n = 0
	}
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = &Column{Name: c.Name, DType: c.DType, Values: c.Values[:n:n]}
	}
	return NewTable(cols)
}

// ColumnInfo is one line of the column overview.
type ColumnInfo struct {
	Column       string `json:"column"`
	DType        DType  `json:"dtype"`
	NonNullCount int    `json:"non_null_count"`
}

// ColumnInfo returns name, dtype and non-null count for every column.
func (t *Table) ColumnInfo() []ColumnInfo {
	info := make([]ColumnInfo, len(t.columns))
	for i, c := range t.columns {
		info[i] = ColumnInfo{Column: c.Name, DType: c.DType, NonNullCount: c.NonNull()}
	}
	return info
}

// Row returns row i as plain Go values (nil for missing cells).
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.Values[i].Interface()
	}
	return row
}

// Records returns one map per row.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, t.rows)
	for i := range out {
		rec := make(map[string]any, len(t.columns))
		for _, c := range t.columns {
			rec[c.Name] = c.Values[i].Interface()
		}
		out[i] = rec
	}
	return out
}

type splitTable struct {
	Columns []string  `json:"columns"`
	DTypes  []DType   `json:"dtypes"`
	Data    [][]Value `json:"data"`
}

// MarshalJSON encodes the table in pandas "split" orientation, which keeps
// column order: {"columns": [...], "dtypes": [...], "data": [[...], ...]}.
func (t *Table) MarshalJSON() ([]byte, error) {
	s := splitTable{
		Columns: t.Columns(),
		DTypes:  make([]DType, len(t.columns)),
		Data:    make([][]Value, t.rows),
	}
	for j, c := range t.columns {
		s.DTypes[j] = c.DType
	}
	for i := range s.Data {
		row := make([]Value, len(t.columns))
		for j, c := range t.columns {
			row[j] = c.Values[i]
		}
		s.Data[i] = row
	}
	return json.Marshal(s)
}
