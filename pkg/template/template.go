// Package template substitutes {{ path | pipe(args) }} markers in text.
//
// The marker grammar is:
//
//	{{ PATH ( | PIPE ( "(" ARGS ")" )? )? }}
//
// PATH is a dotted sequence of identifiers, each optionally indexed with
// [n] and optionally suffixed with "?" (see package resolve). PIPE names a
// registered pipe; ARGS is a comma-separated list of literals. Whitespace is
// allowed around the delimiters and the bar.
package template

import (
	"regexp"
	"strings"

	"github.com/conneroisu/markup/pkg/data"
	"github.com/conneroisu/markup/pkg/pipe"
	"github.com/conneroisu/markup/pkg/resolve"
)

const (
	startTag = "{{"
	endTag   = "}}"
)

const (
	segmentPattern = `[\w-]+(?:\[-?\d+\])?\??`
	pathPattern    = `(` + segmentPattern + `(?:\.` + segmentPattern + `)*)`
	filterPattern  = `(?:\s*\|\s*([\w<>=!-]+)(?:\(([^(){}|]*)\))?)?`
	markerPattern  = `\{\{\s*` + pathPattern + filterPattern + `\s*\}\}`
)

var (
	marker      = regexp.MustCompile(markerPattern)
	exactMarker = regexp.MustCompile(`^` + markerPattern + `$`)
)

// Marker is one substitution site found in a template string.
type Marker struct {
	Raw     string
	Path    string
	Pipe    string
	Args    string
	HasArgs bool
	Start   int
	End     int
}

// Engine resolves markers against a context and pipes them through a
// registry.
type Engine struct {
	pipes *pipe.Registry
}

// Option configures an Engine.
type Option func(*Engine)

// WithPipes makes the engine use r instead of the default registry.
func WithPipes(r *pipe.Registry) Option {
	return func(e *Engine) {
		e.pipes = r
	}
}

// New creates an engine. Without options it uses pipe.Default().
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.pipes == nil {
		e.pipes = pipe.Default()
	}

	return e
}

var defaultEngine = New()

// Default returns the engine backed by the default pipe registry.
func Default() *Engine {
	return defaultEngine
}

// Pipes returns the registry the engine pipes through.
func (e *Engine) Pipes() *pipe.Registry {
	return e.pipes
}

// Template replaces every marker in raw with its resolved, piped value.
// The first failing marker aborts the whole substitution.
func (e *Engine) Template(raw string, ctx data.Context) (string, error) {
	if !HasMarkers(raw) {
		return raw, nil
	}

	matches := marker.FindAllStringSubmatchIndex(raw, -1)
	if len(matches) == 0 {
		return raw, nil
	}

	var b strings.Builder
	b.Grow(len(raw))

	last := 0
	for _, m := range matches {
		b.WriteString(raw[last:m[0]])

		value, err := e.substitute(raw, m, ctx)
		if err != nil {
			return "", err
		}
		b.WriteString(value)

		last = m[1]
	}
	b.WriteString(raw[last:])

	return b.String(), nil
}

func (e *Engine) substitute(raw string, m []int, ctx data.Context) (string, error) {
	value, err := resolve.Resolve(ctx, raw[m[2]:m[3]])
	if err != nil {
		return "", err
	}

	if m[4] < 0 {
		return value, nil
	}

	args := ""
	if m[6] >= 0 {
		args = raw[m[6]:m[7]]
	}

	return e.pipes.Pipe(value, raw[m[4]:m[5]], args)
}

// Evaluate reports whether raw, which must consist of exactly one marker
// once trimmed, templates to "true". Anything else is false without being
// templated.
func (e *Engine) Evaluate(raw string, ctx data.Context) (bool, error) {
	raw = strings.TrimSpace(raw)
	if !exactMarker.MatchString(raw) {
		return false, nil
	}

	out, err := e.Template(raw, ctx)
	if err != nil {
		return false, err
	}

	return out == "true", nil
}

// HasMarkers is the cheap pre-check run before any pattern matching: a
// string lacking either delimiter cannot hold a marker.
func HasMarkers(raw string) bool {
	return strings.Contains(raw, startTag) && strings.Contains(raw, endTag)
}

// IsMarker reports whether the trimmed raw is exactly one marker.
func IsMarker(raw string) bool {
	return exactMarker.MatchString(strings.TrimSpace(raw))
}

// Markers lists the markers found in raw, in order.
func Markers(raw string) []Marker {
	if !HasMarkers(raw) {
		return nil
	}

	matches := marker.FindAllStringSubmatchIndex(raw, -1)
	out := make([]Marker, 0, len(matches))
	for _, m := range matches {
		mk := Marker{
			Raw:   raw[m[0]:m[1]],
			Path:  raw[m[2]:m[3]],
			Start: m[0],
			End:   m[1],
		}
		if m[4] >= 0 {
			mk.Pipe = raw[m[4]:m[5]]
		}
		if m[6] >= 0 {
			mk.Args = raw[m[6]:m[7]]
			mk.HasArgs = true
		}
		out = append(out, mk)
	}

	return out
}

// Template substitutes markers using the default engine.
func Template(raw string, ctx data.Context) (string, error) {
	return defaultEngine.Template(raw, ctx)
}

// Evaluate evaluates raw using the default engine.
func Evaluate(raw string, ctx data.Context) (bool, error) {
	return defaultEngine.Evaluate(raw, ctx)
}
