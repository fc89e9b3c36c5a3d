// Package html builds HTML elements on top of the render tree.
//
// Elements are render.Nodes: attribute values and children are templated
// against the render context, so an element tree is written once and
// rendered with different data:
//
//	page := html.New("div", html.Selector("#greeting.card"),
//		html.Attributes(html.Attr("title", "{{name}}")),
//		html.Content("Hello {{name}}!"))
//	out, err := page.Render(data.Context{"name": "Ada"})
//
// Construction errors are kept on the element and returned by Render and
// Err, which keeps nested construction expressions readable.
package html

import (
	"strings"

	"github.com/conneroisu/markup/pkg/data"
	"github.com/conneroisu/markup/pkg/render"
)

// Element is a nestable or void HTML element.
type Element struct {
	render.Bindings
	tag      string
	void     bool
	attrs    []Attribute
	children *render.Group
	err      error
}

// New creates a nestable element, <tag>children</tag>.
func New(tag string, args ...Arg) *Element {
	return newElement(tag, false, args)
}

// Void creates an element without children or closing tag, <tag>.
func Void(tag string, args ...Arg) *Element {
	return newElement(tag, true, args)
}

func newElement(tag string, void bool, args []Arg) *Element {
	e := &Element{
		tag:      strings.ToLower(strings.TrimSpace(tag)),
		void:     void,
		children: render.NewGroup(),
	}
	e.err = e.apply(args)

	return e
}

// Err returns the construction error, if any.
func (e *Element) Err() error {
	return e.err
}

// Tag returns the lower-cased tag name.
func (e *Element) Tag() string {
	return e.tag
}

// IsVoid reports whether the element has no closing tag.
func (e *Element) IsVoid() bool {
	return e.void
}

// ID returns the id attribute, or "".
func (e *Element) ID() string {
	a, ok := e.Attr("id")
	if !ok {
		return ""
	}

	return a.value
}

// Classes returns the class list.
func (e *Element) Classes() []string {
	a, ok := e.Attr("class")
	if !ok {
		return nil
	}

	return strings.Fields(a.value)
}

// Attr returns the attribute called name.
func (e *Element) Attr(name string) (Attribute, bool) {
	for _, a := range e.attrs {
		if a.name == name {
			return a, true
		}
	}

	return Attribute{}, false
}

// Attributes returns the attributes in render order.
func (e *Element) Attributes() []Attribute {
	return e.attrs
}

// Children returns the element's children.
func (e *Element) Children() []render.Node {
	return e.children.Members()
}

// SetID sets the id attribute.
func (e *Element) SetID(id string) *Element {
	return e.SetAttr(Attr("id", id))
}

// SetClasses replaces the class attribute. No classes leaves it untouched.
func (e *Element) SetClasses(classes ...string) *Element {
	if len(classes) == 0 {
		return e
	}

	return e.SetAttr(Attr("class", strings.Join(classes, " ")))
}

// SetAttr sets a, replacing an attribute of the same name in place.
func (e *Element) SetAttr(a Attribute) *Element {
	for i := range e.attrs {
		if e.attrs[i].name == a.name {
			e.attrs[i] = a
			return e
		}
	}
	e.attrs = append(e.attrs, a)

	return e
}

// AddChild appends a child. Void elements ignore children.
func (e *Element) AddChild(n render.Node) *Element {
	if !e.void {
		e.children.Add(n)
	}

	return e
}

// With replaces the stored bindings.
func (e *Element) With(ctx data.Context) *Element {
	e.SetBindings(ctx)
	return e
}

// Append merges ctx into the stored bindings.
func (e *Element) Append(ctx data.Context, prioritize bool) *Element {
	e.AppendBindings(ctx, prioritize)
	return e
}

// Render serializes the element.
func (e *Element) Render(ctx data.Context, opts ...render.Option) (string, error) {
	if e.err != nil {
		return "", e.err
	}

	o := render.Resolve(opts...)
	merged := e.Merge(ctx, o)

	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(e.tag)
	for _, a := range e.attrs {
		if err := a.render(&b, merged, o); err != nil {
			return "", err
		}
	}
	b.WriteByte('>')

	if e.void {
		return b.String(), nil
	}

	children, err := e.children.Render(merged, o.Inherit()...)
	if err != nil {
		return "", err
	}
	b.WriteString(children)
	b.WriteString("</")
	b.WriteString(e.tag)
	b.WriteByte('>')

	return b.String(), nil
}
