package render

import (
	"sort"

	"github.com/conneroisu/markup/pkg/data"
	markuperrors "github.com/conneroisu/markup/pkg/errors"
	"github.com/conneroisu/markup/pkg/resolve"
)

// Default binding names for the loop index and item.
const (
	DefaultIndexName = "i"
	DefaultItemName  = "item"
)

// Generator builds the node for one item. A nil node renders nothing.
type Generator func(item any, index int, items []any) (Node, error)

// Each renders a node once per item of a sequence.
type Each struct {
	Bindings
	items     []any
	from      string
	tmpl      Node
	gen       Generator
	indexName string
	itemName  string
	empty     Node
}

// NewEach reuses tmpl for every item.
func NewEach(items []any, tmpl Node) *Each {
	return &Each{
		items:     items,
		tmpl:      tmpl,
		indexName: DefaultIndexName,
		itemName:  DefaultItemName,
	}
}

// EachFunc calls gen for every item.
func EachFunc(items []any, gen Generator) *Each {
	return &Each{
		items:     items,
		gen:       gen,
		indexName: DefaultIndexName,
		itemName:  DefaultItemName,
	}
}

// Repeat renders tmpl n times with the items 0..n-1.
func Repeat(n int, tmpl Node) *Each {
	items := make([]any, 0, max(n, 0))
	for i := 0; i < n; i++ {
		items = append(items, i)
	}

	return NewEach(items, tmpl)
}

// EachIn iterates over the entries of m ordered by key. Each item is a
// [key, value] pair, so templates read item[0] and item[1].
func EachIn(m data.Context, tmpl Node) *Each {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]any, 0, len(keys))
	for _, k := range keys {
		items = append(items, []any{k, m[k]})
	}

	return NewEach(items, tmpl)
}

// EachFrom resolves its items from path in the render context. A path that
// misses through an optional segment iterates over nothing.
func EachFrom(path string, tmpl Node) *Each {
	e := NewEach(nil, tmpl)
	e.from = path

	return e
}

// Names overrides the binding names for the index and the item. Empty names
// keep the current ones.
func (e *Each) Names(index, item string) *Each {
	if index != "" {
		e.indexName = index
	}
	if item != "" {
		e.itemName = item
	}

	return e
}

// Empty sets the node rendered when there are no items.
func (e *Each) Empty(node Node) *Each {
	e.empty = node
	return e
}

// With replaces the stored bindings.
func (e *Each) With(ctx data.Context) *Each {
	e.SetBindings(ctx)
	return e
}

// Append merges ctx into the stored bindings.
func (e *Each) Append(ctx data.Context, prioritize bool) *Each {
	e.AppendBindings(ctx, prioritize)
	return e
}

// Render renders every item in order without a separator.
func (e *Each) Render(ctx data.Context, opts ...Option) (string, error) {
	o := Resolve(opts...)
	merged := e.Merge(ctx, o)

	items, err := e.source(merged)
	if err != nil {
		return "", err
	}

	if len(items) == 0 {
		return renderBranch(e.empty, merged, o)
	}

	inherited := o.Inherit()
	var out []byte
	for i, item := range items {
		node := e.tmpl
		if e.gen != nil {
			node, err = e.gen(item, i, items)
			if err != nil {
				return "", err
			}
		}
		if node == nil {
			continue
		}

		s, err := node.Render(data.Merge(merged, data.Context{
			e.indexName: i,
			e.itemName:  item,
		}), inherited...)
		if err != nil {
			return "", err
		}
		out = append(out, s...)
	}

	return string(out), nil
}

func (e *Each) source(ctx data.Context) ([]any, error) {
	if e.from == "" {
		return e.items, nil
	}

	v, found, err := resolve.Lookup(ctx, e.from)
	if err != nil {
		return nil, err
	}
	if !found || v == nil {
		return nil, nil
	}

	if m, ok := data.ToContext(v); ok {
		return EachIn(m, nil).items, nil
	}

	items, ok := data.AsSlice(v)
	if !ok {
		return nil, markuperrors.NotAnArray(e.from)
	}

	return items, nil
}
