package dataset

import (
	"encoding/csv"
	"io"

	"github.com/YuminosukeSato/caretstudio/pkg/errors"
)

func readCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Wrap(errors.ErrEmptyData, "parse csv: no header row")
	}
	if err != nil {
		return nil, errors.NewParseError("csv", 1, err)
	}
	header = append([]string(nil), header...)

	var rows [][]cell
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.NewParseError("csv", line, err)
		}
		if len(rec) > len(header) {
			return nil, errors.NewParseError("csv", line,
				errors.Newf("expected %d fields, saw %d", len(header), len(rec)))
		}
		row := make([]cell, len(rec))
		for j, s := range rec {
			row[j] = textCell(s)
		}
		rows = append(rows, row)
	}
	return buildTable("csv", header, rows)
}
