package dataset

import (
	"encoding/json"
	"math"
	"strconv"
)

// DType is the inferred type of a column. Names follow pandas dtypes.
type DType string

const (
	Int64   DType = "int64"
	Float64 DType = "float64"
	Bool    DType = "bool"
	Object  DType = "object"
)

// IsNumeric reports whether the column holds numbers.
func (d DType) IsNumeric() bool {
	return d == Int64 || d == Float64
}

// Kind discriminates the payload held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
)

// Value is a single cell. The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    bool
	s    string
}

// NullValue returns a missing cell.
func NullValue() Value { return Value{} }

// IntValue returns an integer cell.
func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }

// FloatValue returns a floating point cell.
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }

// BoolValue returns a boolean cell.
func BoolValue(v bool) Value { return Value{kind: KindBool, b: v} }

// StringValue returns a text cell.
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

// Kind returns the payload kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the cell is missing.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsFloat returns the numeric payload. Integers are widened.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, bool) {
	return v.i, v.kind == KindInt
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsString returns the text payload.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// Interface returns the payload as a plain Go value, nil for null.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindString:
		return v.s
	default:
		return nil
	}
}

// String renders the cell for display. Null renders as "NaN" like pandas.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindString:
		return v.s
	default:
		return "NaN"
	}
}

// MarshalJSON encodes the payload. Null cells and the non-finite floats JSON
// cannot represent become null, which pandas reads back as NaN.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindFloat && (math.IsNaN(v.f) || math.IsInf(v.f, 0)) {
		return []byte("null"), nil
	}
	return json.Marshal(v.Interface())
}
