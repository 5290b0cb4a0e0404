package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/YuminosukeSato/caretstudio/dataset"
	"github.com/YuminosukeSato/caretstudio/pkg/errors"
	"github.com/YuminosukeSato/caretstudio/report"
)

var (
	titleColor  = color.New(color.FgGreen, color.Bold)
	headerColor = color.New(color.FgCyan, color.Bold)
)

func inspectCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       runInspect,
		UsageLine: "inspect [-n rows] <dataset>",
		Short:     "print a dataset's preview, column info and statistics",
		Long: `
print a dataset's preview, column info and statistics

	$ caretstudio inspect -n 10 data/churn.xlsx

Accepted formats: ` + strings.Join(dataset.Extensions, ", ") + `
`,
		Flag: *flag.NewFlagSet("inspect", flag.ExitOnError),
	}
	cmd.Flag.IntVar(&previewRows, "n", 5, "number of preview rows")
	return cmd
}

func runInspect(cmd *commander.Command, args []string) error {
	if len(args) != 1 {
		return errors.NewValidationError("dataset", "expected exactly one file", args)
	}
	data, err := dataset.LoadFile(args[0])
	if err != nil {
		return err
	}
	return inspect(os.Stdout, args[0], data, previewRows)
}

func inspect(w io.Writer, name string, data *dataset.Table, n int) error {
	rows, cols := data.Shape()
	if _, err := titleColor.Fprintf(w, "%s (%d, %d)\n\n", name, rows, cols); err != nil {
		return err
	}
	sections := []struct {
		title string
		grid  report.Grid
	}{
		{"Preview", report.Preview(data, n)},
		{"Columns", report.ColumnInfo(data)},
		{"Statistics", report.Describe(data.Describe())},
	}
	for _, s := range sections {
		if err := printGrid(w, s.title, s.grid); err != nil {
			return err
		}
	}
	return nil
}

// printGrid writes g as an aligned text table under title. Grids without
// columns print only the title.
func printGrid(w io.Writer, title string, g report.Grid) error {
	if _, err := titleColor.Fprintln(w, title); err != nil {
		return err
	}
	widths := make([]int, len(g.Columns))
	for i, c := range g.Columns {
		widths[i] = utf8.RuneCountInString(c)
	}
	for _, row := range g.Rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], utf8.RuneCountInString(cell))
			}
		}
	}

	if len(g.Columns) > 0 {
		cells := make([]string, len(g.Columns))
		for i, c := range g.Columns {
			cells[i] = headerColor.Sprint(pad(c, widths[i]))
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " ")); err != nil {
			return err
		}
	}
	for _, row := range g.Rows {
		cells := make([]string, len(widths))
		for i := range widths {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = pad(cell, widths[i])
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
