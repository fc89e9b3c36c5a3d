// Package render defines the node tree that turns a data context into
// markup.
//
// Every node implements Node. Nodes are configured while building (With,
// Append, Elif, Else, Empty, Default) and are read-only afterwards, so a
// finished tree may be rendered concurrently and any node may appear in more
// than one place.
//
// Each node may carry stored bindings. At render time they are merged with
// the bindings passed by the caller; the caller's keys win unless the render
// is given PrioritizeStored.
package render

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/conneroisu/markup/pkg/data"
	"github.com/conneroisu/markup/pkg/template"
)

// Node is anything that renders to a string.
type Node interface {
	Render(ctx data.Context, opts ...Option) (string, error)
}

// Binder is a Node whose stored bindings can be set after construction.
type Binder interface {
	Node
	SetBindings(ctx data.Context)
	AppendBindings(ctx data.Context, prioritize bool)
	Stored() data.Context
}

// Option adjusts a single render call.
type Option func(*Options)

// Options is the resolved form of a render call's options.
type Options struct {
	// PrioritizeStored makes the node's stored bindings win over the
	// caller's. It applies to the node being rendered, not its children.
	PrioritizeStored bool

	// Engine templates text. Children inherit it.
	Engine *template.Engine
}

// PrioritizeStored makes stored bindings win for this render.
func PrioritizeStored() Option {
	return func(o *Options) {
		o.PrioritizeStored = true
	}
}

// WithEngine renders text through e instead of template.Default().
func WithEngine(e *template.Engine) Option {
	return func(o *Options) {
		o.Engine = e
	}
}

// Resolve applies opts over the defaults.
func Resolve(opts ...Option) Options {
	o := Options{Engine: template.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Engine == nil {
		o.Engine = template.Default()
	}

	return o
}

// Inherit returns the options a node passes on to its children.
func (o Options) Inherit() []Option {
	return []Option{WithEngine(o.Engine)}
}

// Bindings is embedded by nodes to hold their stored template data.
type Bindings struct {
	stored data.Context
}

// SetBindings replaces the stored bindings.
func (b *Bindings) SetBindings(ctx data.Context) {
	b.stored = data.Merge(nil, ctx)
}

// AppendBindings merges ctx into the stored bindings. With prioritize the
// existing bindings win over ctx.
func (b *Bindings) AppendBindings(ctx data.Context, prioritize bool) {
	if prioritize {
		b.stored = data.Merge(ctx, b.stored)
		return
	}
	b.stored = data.Merge(b.stored, ctx)
}

// Stored returns the stored bindings.
func (b *Bindings) Stored() data.Context {
	return b.stored
}

// Merge combines the stored bindings with the caller's according to o.
func (b *Bindings) Merge(ctx data.Context, o Options) data.Context {
	if o.PrioritizeStored {
		return data.Merge(ctx, b.stored)
	}

	return data.Merge(b.stored, ctx)
}

// Func adapts a function to Node.
type Func func(ctx data.Context, opts ...Option) (string, error)

// Render calls f.
func (f Func) Render(ctx data.Context, opts ...Option) (string, error) {
	return f(ctx, opts...)
}

// Component adapts n to a templ.Component rendering with ctx, so trees can
// be composed into templ views or served with templ.Handler.
func Component(n Node, ctx data.Context, opts ...Option) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		out, err := n.Render(ctx, opts...)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)

		return err
	})
}

// renderAll renders nodes in order and concatenates the output.
func renderAll(nodes []Node, ctx data.Context, opts []Option) (string, error) {
	var out []byte
	for _, n := range nodes {
		s, err := n.Render(ctx, opts...)
		if err != nil {
			return "", err
		}
		out = append(out, s...)
	}

	return string(out), nil
}
