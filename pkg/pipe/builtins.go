package pipe

import (
	"bytes"
	"math"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/markup/pkg/data"
	"github.com/conneroisu/markup/pkg/escape"
)

// builtins returns the pipes every registry from New starts with. Operator
// names bypass the alphabetic name rule since they are installed directly.
func builtins() map[string]Func {
	return map[string]Func{
		"lowercase": lowercase,
		"uppercase": uppercase,
		"substr":    substr,
		"title":     title,
		"trim":      trim,
		"escape":    escapePipe,
		"sanitize":  sanitize,
		"markdown":  markdown,
		"default":   defaultValue,
		"truncate":  truncate,
		"==":        compare(func(c int) bool { return c == 0 }),
		"!=":        negate(compare(func(c int) bool { return c == 0 })),
		">":         compare(func(c int) bool { return c > 0 }),
		"<":         compare(func(c int) bool { return c < 0 }),
		">=":        compare(func(c int) bool { return c >= 0 }),
		"<=":        compare(func(c int) bool { return c <= 0 }),
	}
}

func lowercase(value string, _ ...any) (any, error) {
	return strings.ToLower(value), nil
}

func uppercase(value string, _ ...any) (any, error) {
	return strings.ToUpper(value), nil
}

// substr(from, length?) follows the classic substr rules: a negative from
// counts back from the end, a missing length runs to the end.
func substr(value string, args ...any) (any, error) {
	runes := []rune(value)
	size := len(runes)

	start := 0
	if len(args) > 0 {
		start = toInteger(args[0])
	}
	if start < 0 {
		start = max(size+start, 0)
	}
	if start > size {
		start = size
	}

	count := size - start
	if len(args) > 1 {
		count = min(max(toInteger(args[1]), 0), size-start)
	}

	return string(runes[start : start+count]), nil
}

// Casers carry state, so each call gets its own.
func title(value string, _ ...any) (any, error) {
	return cases.Title(language.Und).String(value), nil
}

func trim(value string, _ ...any) (any, error) {
	return strings.TrimSpace(value), nil
}

func escapePipe(value string, _ ...any) (any, error) {
	return escape.HTML(value), nil
}

var (
	ugcPolicyOnce sync.Once
	ugcPolicy     *bluemonday.Policy
)

func sanitize(value string, _ ...any) (any, error) {
	ugcPolicyOnce.Do(func() {
		ugcPolicy = bluemonday.UGCPolicy()
	})

	return ugcPolicy.Sanitize(value), nil
}

var markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

func markdown(value string, _ ...any) (any, error) {
	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(value), &buf); err != nil {
		return nil, err
	}

	return strings.TrimSpace(buf.String()), nil
}

// default(fallback) substitutes fallback for a blank value.
func defaultValue(value string, args ...any) (any, error) {
	if strings.TrimSpace(value) != "" || len(args) == 0 {
		return value, nil
	}

	return args[0], nil
}

// truncate(n, suffix?) keeps the first n runes, appending suffix when
// anything was cut.
func truncate(value string, args ...any) (any, error) {
	if len(args) == 0 {
		return value, nil
	}

	runes := []rune(value)
	n := max(toInteger(args[0]), 0)
	if n >= len(runes) {
		return value, nil
	}

	suffix := ""
	if len(args) > 1 {
		suffix = data.Stringify(args[1])
	}

	return string(runes[:n]) + suffix, nil
}

// compare builds a comparison operator. A numeric or boolean argument
// compares against the value read as a number, a string argument compares
// lexically. A missing argument or NaN operand never satisfies ok.
func compare(ok func(c int) bool) Func {
	return func(value string, args ...any) (any, error) {
		if len(args) == 0 {
			return "false", nil
		}

		c, ordered := order(value, args[0])
		if !ordered {
			return "false", nil
		}

		return formatBool(ok(c)), nil
	}
}

func negate(fn Func) Func {
	return func(value string, args ...any) (any, error) {
		out, err := fn(value, args...)
		if err != nil {
			return nil, err
		}

		return formatBool(out != "true"), nil
	}
}

func order(value string, arg any) (int, bool) {
	var rhs float64
	switch a := arg.(type) {
	case float64:
		rhs = a
	case bool:
		rhs = 0
		if a {
			rhs = 1
		}
	default:
		return strings.Compare(value, data.Stringify(a)), true
	}

	lhs := data.Number(value)
	if math.IsNaN(lhs) || math.IsNaN(rhs) {
		return 0, false
	}

	switch {
	case lhs < rhs:
		return -1, true
	case lhs > rhs:
		return 1, true
	default:
		return 0, true
	}
}

func formatBool(b bool) string {
	if b {
		return "true"
	}

	return "false"
}

// toInteger truncates a pipe argument toward zero. Non-numeric arguments
// count as 0.
func toInteger(arg any) int {
	var f float64
	switch a := arg.(type) {
	case float64:
		f = a
	case int:
		return a
	case bool:
		if a {
			return 1
		}
		return 0
	case string:
		f = data.Number(a)
	default:
		return 0
	}

	switch {
	case math.IsNaN(f):
		return 0
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	}

	return int(f)
}
