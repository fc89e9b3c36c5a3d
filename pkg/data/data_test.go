package data

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringify(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"nil", nil, ""},
		{"string", "hello", "hello"},
		{"true", true, "true"},
		{"false", false, "false"},
		{"int", 42, "42"},
		{"negative int64", int64(-7), "-7"},
		{"uint8", uint8(255), "255"},
		{"integral float", 2.0, "2"},
		{"fraction", 3.25, "3.25"},
		{"float32", float32(0.5), "0.5"},
		{"large float", 1e21, "1e+21"},
		{"tiny float", 1e-7, "1e-07"},
		{"nan", math.NaN(), "NaN"},
		{"infinity", math.Inf(1), "Infinity"},
		{"slice", []any{1, "a", true}, "1,a,true"},
		{"nested slice", []any{1, []any{2, 3}}, "1,2,3"},
		{"slice with nil", []any{1, nil, 3}, "1,,3"},
		{"string slice", []string{"x", "y"}, "x,y"},
		{"typed slice", []int{4, 5}, "4,5"},
		{"array", [2]string{"p", "q"}, "p,q"},
		{"map", map[string]any{"a": 1}, "[object Object]"},
		{"context", Context{"a": 1}, "[object Object]"},
		{"typed map", map[string]int{"a": 1}, "[object Object]"},
		{"stringer", time.Duration(1500) * time.Millisecond, "1.5s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Stringify(tt.value))
		})
	}
}

func TestMerge(t *testing.T) {
	low := Context{"a": 1, "b": 2}
	high := Context{"b": 3, "c": 4}

	merged := Merge(low, high)

	assert.Equal(t, Context{"a": 1, "b": 3, "c": 4}, merged)
	assert.Equal(t, Context{"a": 1, "b": 2}, low, "inputs must not be mutated")
	assert.Equal(t, Context{"b": 3, "c": 4}, high, "inputs must not be mutated")

	assert.Equal(t, Context{}, Merge(nil, nil))
	assert.Equal(t, Context{"x": true}, Merge(nil, Context{"x": true}))
}

func TestContextWith(t *testing.T) {
	base := Context{"a": 1}
	next := base.With("b", 2)

	assert.Equal(t, Context{"a": 1, "b": 2}, next)
	assert.NotContains(t, base, "b")
}

func TestField(t *testing.T) {
	v, ok := Field(map[string]any{"k": "v"}, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	v, ok = Field(map[string]string{"k": "s"}, "k")
	assert.True(t, ok)
	assert.Equal(t, "s", v)

	v, ok = Field(map[string]int{"n": 3}, "n")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = Field(Context{"k": nil}, "missing")
	assert.False(t, ok)

	v, ok = Field(Context{"k": nil}, "k")
	assert.True(t, ok, "present nil values are own keys")
	assert.Nil(t, v)

	_, ok = Field("string", "k")
	assert.False(t, ok)
}

func TestAsSlice(t *testing.T) {
	items, ok := AsSlice([]int{1, 2})
	require.True(t, ok)
	assert.Equal(t, []any{1, 2}, items)

	_, ok = AsSlice("abc")
	assert.False(t, ok)

	_, ok = AsSlice(nil)
	assert.False(t, ok)
}

func TestToContext(t *testing.T) {
	ctx, ok := ToContext(map[string]string{"a": "b"})
	require.True(t, ok)
	assert.Equal(t, Context{"a": "b"}, ctx)

	ctx, ok = ToContext(map[string]int{"n": 1})
	require.True(t, ok)
	assert.Equal(t, Context{"n": 1}, ctx)

	_, ok = ToContext([]any{})
	assert.False(t, ok)
}

func TestParseFloatPrefix(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"1", 1, true},
		{"  2.5", 2.5, true},
		{"12abc", 12, true},
		{".5", 0.5, true},
		{"-3", -3, true},
		{"1e3x", 1000, true},
		{"1e", 1, true},
		{"Infinity", math.Inf(1), true},
		{"abc", 0, false},
		{"", 0, false},
		{"-", 0, false},
		{"true", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseFloatPrefix(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestNumber(t *testing.T) {
	assert.Equal(t, 0.0, Number(""))
	assert.Equal(t, 0.0, Number("   "))
	assert.Equal(t, 4.0, Number(" 4 "))
	assert.Equal(t, -1.5, Number("-1.5"))
	assert.True(t, math.IsNaN(Number("4px")))
	assert.True(t, math.IsNaN(Number("abc")))
}
