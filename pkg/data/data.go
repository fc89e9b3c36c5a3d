// Package data holds the render context type and the value coercions shared
// by path resolution, pipes and structural nodes.
//
// A Context is a plain string-keyed map. Values may be strings, any Go
// number, bools, nil, nested maps with string keys, or slices and arrays of
// any of these. Contexts are never mutated once handed to a render call:
// composition boundaries build a fresh map with Merge.
package data

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

// Context is the data supplied to a render call.
type Context map[string]any

// Merge returns a new context containing the keys of low overlaid by the
// keys of high. Either argument may be nil.
func Merge(low, high Context) Context {
	out := make(Context, len(low)+len(high))
	for k, v := range low {
		out[k] = v
	}
	for k, v := range high {
		out[k] = v
	}

	return out
}

// With returns a copy of c with key set to value.
func (c Context) With(key string, value any) Context {
	return Merge(c, Context{key: value})
}

// Stringify converts a resolved value to the text substituted for a marker.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return FormatNumber(float64(val))
	case float64:
		return FormatNumber(val)
	case []any:
		return joinItems(val)
	case []string:
		return strings.Join(val, ",")
	case Context, map[string]any, map[string]string:
		return "[object Object]"
	case fmt.Stringer:
		return val.String()
	}

	if items, ok := AsSlice(v); ok {
		return joinItems(items)
	}
	if IsMap(v) {
		return "[object Object]"
	}

	return fmt.Sprint(v)
}

func joinItems(items []any) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = Stringify(item)
	}

	return strings.Join(parts, ",")
}

// FormatNumber renders f in its shortest round-tripping form. Integral
// values carry no fraction, so 2.0 renders as "2".
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e21 || abs < 1e-6) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}

	return strconv.FormatFloat(f, 'f', -1, 64)
}

// AsSlice returns v as a []any when v is a slice or array.
func AsSlice(v any) ([]any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case []any:
		return val, true
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}

	return out, true
}

// IsMap reports whether v is a map with string keys.
func IsMap(v any) bool {
	switch v.(type) {
	case Context, map[string]any, map[string]string:
		return true
	case nil:
		return false
	}

	rv := reflect.ValueOf(v)

	return rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String
}

// Field returns the own value stored under key in the string-keyed map v.
func Field(v any, key string) (any, bool) {
	switch m := v.(type) {
	case Context:
		val, ok := m[key]
		return val, ok
	case map[string]any:
		val, ok := m[key]
		return val, ok
	case map[string]string:
		val, ok := m[key]
		return val, ok
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}

	val := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
	if !val.IsValid() {
		return nil, false
	}

	return val.Interface(), true
}

// ToContext converts a string-keyed map to a Context.
func ToContext(v any) (Context, bool) {
	switch m := v.(type) {
	case Context:
		return m, true
	case map[string]any:
		return Context(m), true
	case map[string]string:
		out := make(Context, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, true
	}

	if !IsMap(v) {
		return nil, false
	}

	rv := reflect.ValueOf(v)
	out := make(Context, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}

	return out, true
}

var numberPrefix = regexp.MustCompile(`^[+-]?(Infinity|(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?)`)

// ParseFloatPrefix parses the longest leading decimal literal of s, after
// leading whitespace, the way pipe arguments are coerced. ok is false when s
// has no numeric prefix.
func ParseFloatPrefix(s string) (float64, bool) {
	match := numberPrefix.FindString(strings.TrimLeft(s, " \t\n\r\f\v"))
	if match == "" {
		return 0, false
	}

	unsigned := strings.TrimLeft(match, "+-")
	if unsigned == "Infinity" {
		if strings.HasPrefix(match, "-") {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}

	// Out of range literals come back as ±Inf alongside a range error.
	f, _ := strconv.ParseFloat(match, 64)

	return f, true
}

// Number coerces a pipe value to a number for loose comparisons. Blank
// strings are 0, anything that is not entirely a decimal literal is NaN.
func Number(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	match := numberPrefix.FindString(s)
	if match != s {
		return math.NaN()
	}

	f, _ := ParseFloatPrefix(s)

	return f
}
