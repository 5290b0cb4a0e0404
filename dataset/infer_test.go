package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func cells(texts ...string) []cell {
	out := make([]cell, len(texts))
	for i, s := range texts {
		if s == "<null>" {
			continue
		}
		out[i] = textCell(s)
	}
	return out
}

func TestInferDType(t *testing.T) {
	tests := []struct {
		name string
		raw  []cell
		want DType
	}{
		{"integers", cells("1", "-2", " 3 "), Int64},
		{"integers with missing", cells("1", "<null>", "NA", "3"), Int64},
		{"floats", cells("1", "2.5", "1e3"), Float64},
		{"booleans", cells("true", "False", "TRUE"), Bool},
		{"mixed", cells("1", "two"), Object},
		{"zero one is numeric", cells("0", "1"), Int64},
		{"all missing", cells("<null>", "", "NaN"), Object},
		{"empty", nil, Object},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferDType(tt.raw))
		})
	}
}

func TestInferColumnValues(t *testing.T) {
	col := inferColumn("x", cells("1.5", "null", "2"))

	assert.Equal(t, Float64, col.DType)
	assert.Equal(t, []Value{FloatValue(1.5), NullValue(), FloatValue(2)}, col.Values)
	assert.Equal(t, 2, col.NonNull())
	assert.Equal(t, []float64{1.5, 2}, col.Floats())
}

func TestObjectKeepsOriginalText(t *testing.T) {
	col := inferColumn("city", cells(" Oslo", "Lima "))
	assert.Equal(t, " Oslo", col.Values[0].String())
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "NaN", NullValue().String())
	assert.Equal(t, "True", BoolValue(true).String())
	assert.Equal(t, "0.05", FloatValue(0.05).String())
	assert.Equal(t, "-7", IntValue(-7).String())
	assert.Nil(t, NullValue().Interface())
	assert.True(t, Int64.IsNumeric())
	assert.False(t, Bool.IsNumeric())
}
