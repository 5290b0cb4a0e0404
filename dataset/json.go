package dataset

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/YuminosukeSato/caretstudio/pkg/errors"
)

// object is a JSON object that remembers key order.
type object struct {
	keys   []string
	values map[string]any
}

// readJSON accepts the two layouts pandas reads by default:
//
//	records: [{"age": 34, "city": "Oslo"}, ...]
//	columns: {"age": {"0": 34, "1": 51}, "city": {"0": "Oslo", "1": "Lima"}}
//
// Numbers keep their literal text so that inference matches the text formats.
func readJSON(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	doc, err := decodeOrdered(dec)
	if err == io.EOF {
		return nil, errors.Wrap(errors.ErrEmptyData, "parse json: empty document")
	}
	if err != nil {
		return nil, errors.NewParseError("json", 0, err)
	}

	switch v := doc.(type) {
	case []any:
		return recordsToTable(v)
	case *object:
		return columnsToTable(v)
	default:
		return nil, errors.NewParseError("json", 0, errors.Newf("expected array or object at top level, got %T", doc))
	}
}

func recordsToTable(records []any) (*Table, error) {
	var header []string
	pos := make(map[string]int)
	for i, rec := range records {
		obj, ok := rec.(*object)
		if !ok {
			return nil, errors.NewParseError("json", 0, errors.Newf("record %d is not an object", i))
		}
		for _, k := range obj.keys {
			if _, ok := pos[k]; !ok {
				pos[k] = len(header)
				header = append(header, k)
			}
		}
	}

	rows := make([][]cell, len(records))
	for i, rec := range records {
		obj := rec.(*object)
		row := make([]cell, len(header))
		for _, k := range obj.keys {
			row[pos[k]] = jsonCell(k, obj.values[k])
		}
		rows[i] = row
	}
	return buildTable("json", header, rows)
}

func columnsToTable(doc *object) (*Table, error) {
	// Row labels in order of first appearance across columns.
	var labels []string
	labelPos := make(map[string]int)
	width := 0
	for _, name := range doc.keys {
		switch col := doc.values[name].(type) {
		case *object:
			for _, label := range col.keys {
				if _, ok := labelPos[label]; !ok {
					labelPos[label] = len(labels)
					labels = append(labels, label)
				}
			}
		case []any:
			if len(col) > width {
				width = len(col)
			}
		default:
			return nil, errors.NewParseError("json", 0, errors.Newf("column %q is neither an object nor an array", name))
		}
	}
	if len(labels) == 0 {
		for i := 0; i < width; i++ {
			labels = append(labels, "")
		}
	}

	rows := make([][]cell, len(labels))
	for i := range rows {
		rows[i] = make([]cell, len(doc.keys))
	}
	for j, name := range doc.keys {
		switch col := doc.values[name].(type) {
		case *object:
			for _, label := range col.keys {
				rows[labelPos[label]][j] = jsonCell(name, col.values[label])
			}
		case []any:
			for i, v := range col {
				if i < len(rows) {
					rows[i][j] = jsonCell(name, v)
				}
			}
		}
	}
	return buildTable("json", doc.keys, rows)
}

func jsonCell(column string, v any) cell {
	switch x := v.(type) {
	case nil:
		return cell{}
	case json.Number:
		return textCell(x.String())
	case string:
		return textCell(x)
	case bool:
		if x {
			return textCell("true")
		}
		return textCell("false")
	default:
		errors.Warn(errors.NewDataConversionWarning(column, "nested", "object", "nested JSON value stored as text"))
		return textCell(encodeNested(v))
	}
}

func encodeNested(v any) string {
	var sb strings.Builder
	writeNested(&sb, v)
	return sb.String()
}

func writeNested(sb *strings.Builder, v any) {
	switch x := v.(type) {
	case *object:
		sb.WriteByte('{')
		for i, k := range x.keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			sb.Write(kb)
			sb.WriteByte(':')
			writeNested(sb, x.values[k])
		}
		sb.WriteByte('}')
	case []any:
		sb.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeNested(sb, e)
		}
		sb.WriteByte(']')
	default:
		b, _ := json.Marshal(x)
		sb.Write(b)
	}
}

// decodeOrdered decodes one JSON value, keeping object key order.
func decodeOrdered(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (v any, err error) {
	defer func() {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
	}()
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := &object{values: make(map[string]any)}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, errors.Newf("object key is %T", keyTok)
			}
			val, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			if _, dup := obj.values[key]; !dup {
				obj.keys = append(obj.keys, key)
			}
			obj.values[key] = val
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			val, err := decodeOrdered(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, errors.Newf("unexpected delimiter %q", delim)
	}
}
