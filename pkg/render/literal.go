package render

import (
	"strings"

	"github.com/conneroisu/markup/pkg/data"
	"github.com/conneroisu/markup/pkg/escape"
)

// Literal is a text node. Its text is templated on every render.
type Literal struct {
	Bindings
	source string
	text   string
}

// Text returns a literal whose text is HTML-escaped. Markers survive
// escaping and are still substituted, except those whose pipe or arguments
// contain an escaped character: the comparison pipes (<, >, <=, >=) and
// quoted arguments are left as literal text. Use Raw, or an Expr condition,
// for those.
func Text(s string) *Literal {
	return &Literal{source: s, text: escape.HTML(s)}
}

// Raw returns a literal whose text is emitted without escaping.
func Raw(s string) *Literal {
	return &Literal{source: s, text: s}
}

// Source returns the text as given to the constructor.
func (l *Literal) Source() string {
	return l.source
}

// Blank reports whether the literal holds only whitespace.
func (l *Literal) Blank() bool {
	return strings.TrimSpace(l.source) == ""
}

// With replaces the stored bindings.
func (l *Literal) With(ctx data.Context) *Literal {
	l.SetBindings(ctx)
	return l
}

// Append merges ctx into the stored bindings.
func (l *Literal) Append(ctx data.Context, prioritize bool) *Literal {
	l.AppendBindings(ctx, prioritize)
	return l
}

// Render templates the text.
func (l *Literal) Render(ctx data.Context, opts ...Option) (string, error) {
	o := Resolve(opts...)

	return o.Engine.Template(l.text, l.Merge(ctx, o))
}
