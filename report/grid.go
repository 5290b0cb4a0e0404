// Package report turns datasets and AutoML result tables into what the UI
// and the CLI show: string grids with fixed decimals, and PNG charts.
package report

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/YuminosukeSato/caretstudio/dataset"
	"github.com/YuminosukeSato/caretstudio/experiment"
)

// MetricPlaces is the number of decimals metric values are shown with.
const MetricPlaces = 4

// StatPlaces is the number of decimals descriptive statistics are shown with.
const StatPlaces = 6

// Grid is a table ready for display.
type Grid struct {
	Columns []string
	Rows    [][]string
}

// Empty reports whether the grid has no rows.
func (g Grid) Empty() bool { return len(g.Rows) == 0 }

// FormatFloat rounds f half away from zero to places decimals. NaN and
// infinities are rendered as Go does.
func FormatFloat(f float64, places int32) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return decimal.NewFromFloat(f).StringFixed(places)
}

// FormatCell renders one result-table cell. Numbers get MetricPlaces
// decimals unless they are whole.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatFloat(x, 'f', -1, 64)
		}
		return FormatFloat(x, MetricPlaces)
	case float32:
		return FormatCell(float64(x))
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return x
	case [2]int:
		return fmt.Sprintf("(%d, %d)", x[0], x[1])
	case []any:
		if len(x) == 2 {
			return "(" + FormatCell(x[0]) + ", " + FormatCell(x[1]) + ")"
		}
		return fmt.Sprint(x...)
	default:
		return fmt.Sprint(x)
	}
}

// FromResult formats a result table returned by the AutoML service.
func FromResult(t *experiment.ResultTable) Grid {
	if t == nil {
		return Grid{}
	}
	g := Grid{Columns: append([]string(nil), t.Columns...), Rows: make([][]string, len(t.Rows))}
	for i, row := range t.Rows {
		g.Rows[i] = make([]string, len(row))
		for j, v := range row {
			g.Rows[i][j] = FormatCell(v)
		}
	}
	return g
}

// Leaderboard formats a scoring grid. Unlike FromResult, every number gets
// MetricPlaces decimals, so a perfect score reads 1.0000.
func Leaderboard(t *experiment.ResultTable) Grid {
	g := FromResult(t)
	for i, row := range g.Rows {
		for j := range row {
			if f, ok := t.Rows[i][j].(float64); ok {
				g.Rows[i][j] = FormatFloat(f, MetricPlaces)
			}
		}
	}
	return g
}

// Preview formats the first n rows of a dataset.
func Preview(t *dataset.Table, n int) Grid {
	head := t.Head(n)
	rows, _ := head.Shape()
	g := Grid{Columns: head.Columns(), Rows: make([][]string, rows)}
	for i := range g.Rows {
		g.Rows[i] = make([]string, len(g.Columns))
		for j := range g.Columns {
			g.Rows[i][j] = head.At(i, j).String()
		}
	}
	return g
}

// ColumnInfo formats the column overview: name, dtype, non-null count.
func ColumnInfo(t *dataset.Table) Grid {
	g := Grid{Columns: []string{"Column", "Data Type", "Non-Null Count"}}
	for _, c := range t.ColumnInfo() {
		g.Rows = append(g.Rows, []string{c.Column, string(c.DType), strconv.Itoa(c.NonNullCount)})
	}
	return g
}

// Describe formats summaries the way pandas prints describe(): one row per
// statistic, one column per numeric column.
func Describe(summaries []dataset.Summary) Grid {
	g := Grid{Columns: []string{""}}
	for _, s := range summaries {
		g.Columns = append(g.Columns, s.Column)
	}
	stats := []struct {
		name string
		get  func(dataset.Summary) float64
	}{
		{"count", func(s dataset.Summary) float64 { return float64(s.Count) }},
		{"mean", func(s dataset.Summary) float64 { return s.Mean }},
		{"std", func(s dataset.Summary) float64 { return s.Std }},
		{"min", func(s dataset.Summary) float64 { return s.Min }},
		{"25%", func(s dataset.Summary) float64 { return s.Q25 }},
		{"50%", func(s dataset.Summary) float64 { return s.Q50 }},
		{"75%", func(s dataset.Summary) float64 { return s.Q75 }},
		{"max", func(s dataset.Summary) float64 { return s.Max }},
	}
	for _, st := range stats {
		row := []string{st.name}
		for _, s := range summaries {
			row = append(row, FormatFloat(st.get(s), StatPlaces))
		}
		g.Rows = append(g.Rows, row)
	}
	return g
}

// MetricColumn is the leaderboard column holding m. The service abbreviates
// Precision.
func MetricColumn(m experiment.Metric) string {
	if m == experiment.Precision {
		return "Prec."
	}
	return string(m)
}
