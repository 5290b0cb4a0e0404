package dataset

import (
	"strconv"
	"strings"

	"github.com/YuminosukeSato/caretstudio/pkg/errors"
)

// cell is a raw value as read from a file, before type inference.
type cell struct {
	text  string
	valid bool
}

func textCell(s string) cell { return cell{text: s, valid: true} }

// naValues are the strings pandas treats as missing by default.
var naValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

func isNA(c cell) bool {
	if !c.valid {
		return true
	}
	_, ok := naValues[c.text]
	return ok
}

// buildTable turns a header and raw rows into a typed table. Short rows are
// padded with missing cells.
func buildTable(format string, header []string, rows [][]cell) (*Table, error) {
	if len(header) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "parse %s: no header row", format)
	}
	names := uniqueNames(header)

	cols := make([]*Column, len(names))
	raw := make([]cell, len(rows))
	for j, name := range names {
		for i, r := range rows {
			if j < len(r) {
				raw[i] = r[j]
			} else {
				raw[i] = cell{}
			}
		}
		cols[j] = inferColumn(name, raw)
	}
	return NewTable(cols), nil
}

// uniqueNames mangles duplicate and empty header names the way pandas does:
// "Unnamed: 3" for blanks, "a.1", "a.2" for repeats.
func uniqueNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		if n, dup := seen[name]; dup {
			renamed := name + "." + strconv.Itoa(n)
			for _, taken := seen[renamed]; taken; _, taken = seen[renamed] {
				n++
				renamed = name + "." + strconv.Itoa(n)
			}
			seen[name] = n + 1
			errors.Warn(errors.NewDuplicateColumnWarning(name, renamed))
			name = renamed
		}
		seen[name]++
		names[i] = name
	}
	return names
}

// inferColumn picks the narrowest dtype that fits every non-missing cell:
// int64, then float64, then bool, falling back to object.
func inferColumn(name string, raw []cell) *Column {
	dtype := inferDType(raw)
	values := make([]Value, len(raw))
	for i, c := range raw {
		if isNA(c) {
			continue
		}
		values[i] = parseAs(dtype, c.text)
	}
	return &Column{Name: name, DType: dtype, Values: values}
}

func inferDType(raw []cell) DType {
	isInt, isFloat, isBool := true, true, true
	seen := false
	for _, c := range raw {
		if isNA(c) {
			continue
		}
		seen = true
		s := strings.TrimSpace(c.text)
		if isInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat && !isInt {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			if _, ok := parseBool(s); !ok {
				isBool = false
			}
		}
		if !isInt && !isFloat && !isBool {
			break
		}
	}
	switch {
	case !seen:
		return Object
	case isInt:
		return Int64
	case isFloat:
		return Float64
	case isBool:
		return Bool
	default:
		return Object
	}
}

func parseAs(dtype DType, text string) Value {
	s := strings.TrimSpace(text)
	switch dtype {
	case Int64:
		v, _ := strconv.ParseInt(s, 10, 64)
		return IntValue(v)
	case Float64:
		v, _ := strconv.ParseFloat(s, 64)
		return FloatValue(v)
	case Bool:
		v, _ := parseBool(s)
		return BoolValue(v)
	default:
		return StringValue(text)
	}
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}
