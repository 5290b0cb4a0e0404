package dataset

import (
	"bytes"
	"io"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/caretstudio/pkg/errors"
)

// readXLSX reads the first worksheet; its first row is the header.
func readXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.NewParseError("xlsx", 0, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "parse xlsx: workbook has no sheets")
	}
	grid, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.NewParseError("xlsx", 0, err)
	}
	return gridToTable("xlsx", grid)
}

// readXLS reads the first worksheet of a legacy BIFF workbook. The xls
// parser panics on some malformed files, so it runs under SafeExecute.
func readXLS(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read xls")
	}

	var grid [][]string
	err = errors.SafeExecute("xls.Read", func() error {
		wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return err
		}
		sheet := wb.GetSheet(0)
		if sheet == nil {
			return errors.Wrap(errors.ErrEmptyData, "workbook has no sheets")
		}
		for i := 0; i <= int(sheet.MaxRow); i++ {
			row := sheet.Row(i)
			if row == nil {
				grid = append(grid, nil)
				continue
			}
			cells := make([]string, row.LastCol())
			for j := row.FirstCol(); j < row.LastCol(); j++ {
				cells[j] = row.Col(j)
			}
			grid = append(grid, cells)
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewParseError("xls", 0, err)
	}
	return gridToTable("xls", grid)
}

// gridToTable treats blank spreadsheet cells as missing and drops trailing
// blank rows.
func gridToTable(format string, grid [][]string) (*Table, error) {
	for len(grid) > 0 && blankRow(grid[len(grid)-1]) {
		grid = grid[:len(grid)-1]
	}
	if len(grid) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "parse %s: no header row", format)
	}

	header := grid[0]
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}

	rows := make([][]cell, 0, len(grid)-1)
	for _, rec := range grid[1:] {
		if len(rec) > len(header) {
			rec = rec[:len(header)]
		}
		row := make([]cell, len(rec))
		for j, s := range rec {
			if s != "" {
				row[j] = textCell(s)
			}
		}
		rows = append(rows, row)
	}
	return buildTable(format, header, rows)
}

func blankRow(rec []string) bool {
	for _, s := range rec {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}
