package document

import (
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/markup/pkg/data"
	markuperrors "github.com/conneroisu/markup/pkg/errors"
	"github.com/conneroisu/markup/pkg/html"
	"github.com/conneroisu/markup/pkg/render"
	"github.com/conneroisu/markup/pkg/template"
)

type nodeSpec struct {
	Kind     string         `yaml:"kind"`
	With     map[string]any `yaml:"with"`
	Text     *string        `yaml:"text"`
	Children []yaml.Node    `yaml:"children"`

	Tag      string    `yaml:"tag"`
	Selector string    `yaml:"selector"`
	Attrs    yaml.Node `yaml:"attrs"`

	If   yaml.Node    `yaml:"if"`
	Then yaml.Node    `yaml:"then"`
	Elif []branchSpec `yaml:"elif"`
	Else yaml.Node    `yaml:"else"`

	Items    yaml.Node `yaml:"items"`
	From     string    `yaml:"from"`
	Template yaml.Node `yaml:"template"`
	Index    string    `yaml:"index"`
	Item     string    `yaml:"item"`
	Empty    yaml.Node `yaml:"empty"`

	Value   yaml.Node    `yaml:"value"`
	Cases   []branchSpec `yaml:"cases"`
	Default yaml.Node    `yaml:"default"`
}

type branchSpec struct {
	If    yaml.Node `yaml:"if"`
	Value yaml.Node `yaml:"value"`
	Then  yaml.Node `yaml:"then"`
}

func present(n *yaml.Node) bool {
	return n != nil && n.Kind != 0 && n.ShortTag() != "!!null"
}

func documentError(n *yaml.Node, format string, args ...any) error {
	return markuperrors.NewDocumentError(fmt.Sprintf(format, args...), nil).
		WithContext("line", n.Line).
		WithContext("column", n.Column)
}

func (l *Loader) node(n *yaml.Node) (render.Node, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return l.node(n.Alias)
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return render.Raw(""), nil
		}
		return render.Text(n.Value), nil
	case yaml.SequenceNode:
		return l.group(n.Content)
	case yaml.MappingNode:
		return l.mapping(n)
	default:
		return nil, documentError(n, "unexpected yaml node")
	}
}

// optional builds n when it is present.
func (l *Loader) optional(n *yaml.Node) (render.Node, error) {
	if !present(n) {
		return nil, nil
	}

	return l.node(n)
}

func (l *Loader) group(items []*yaml.Node) (*render.Group, error) {
	g := render.NewGroup()
	for _, item := range items {
		child, err := l.node(item)
		if err != nil {
			return nil, err
		}
		g.Add(child)
	}

	return g, nil
}

func (l *Loader) mapping(n *yaml.Node) (render.Node, error) {
	var spec nodeSpec
	if err := n.Decode(&spec); err != nil {
		return nil, markuperrors.NewDocumentError("invalid node", err).WithContext("line", n.Line)
	}

	kind := spec.Kind
	if kind == "" {
		kind = inferKind(spec)
	}

	var (
		built render.Binder
		err   error
	)
	switch kind {
	case KindText, KindRaw:
		built, err = l.literal(n, kind, spec)
	case KindGroup:
		built, err = l.group(nodes(spec.Children))
	case KindIf:
		built, err = l.conditional(n, spec)
	case KindEach:
		built, err = l.each(n, spec)
	case KindSwitch:
		built, err = l.dispatch(n, spec)
	case KindElement:
		built, err = l.element(n, spec)
	case "":
		return nil, documentError(n, "node has no kind")
	default:
		return nil, documentError(n, "unknown node kind %q", kind)
	}
	if err != nil {
		return nil, err
	}

	if len(spec.With) > 0 {
		built.SetBindings(data.Context(spec.With))
	}

	return built, nil
}

func inferKind(spec nodeSpec) string {
	switch {
	case spec.Tag != "":
		return KindElement
	case spec.Children != nil:
		return KindGroup
	case spec.Text != nil:
		return KindText
	default:
		return ""
	}
}

func nodes(in []yaml.Node) []*yaml.Node {
	out := make([]*yaml.Node, len(in))
	for i := range in {
		out[i] = &in[i]
	}

	return out
}

func (l *Loader) literal(n *yaml.Node, kind string, spec nodeSpec) (*render.Literal, error) {
	if spec.Text == nil {
		return nil, documentError(n, "%s node needs text", kind)
	}
	if kind == KindRaw {
		return render.Raw(*spec.Text), nil
	}

	return render.Text(*spec.Text), nil
}

func condition(n *yaml.Node) (render.Condition, error) {
	if !present(n) || n.Kind != yaml.ScalarNode {
		return render.Condition{}, documentError(n, "condition must be a boolean or a marker")
	}
	if n.ShortTag() == "!!bool" {
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return render.Condition{}, documentError(n, "invalid boolean %q", n.Value)
		}
		return render.Bool(b), nil
	}

	return render.Expr(n.Value), nil
}

func (l *Loader) conditional(n *yaml.Node, spec nodeSpec) (*render.If, error) {
	cond, err := condition(&spec.If)
	if err != nil {
		return nil, err
	}
	then, err := l.optional(&spec.Then)
	if err != nil {
		return nil, err
	}

	node := render.NewIf(cond, then)
	for i := range spec.Elif {
		b := &spec.Elif[i]
		cond, err := condition(&b.If)
		if err != nil {
			return nil, err
		}
		branch, err := l.optional(&b.Then)
		if err != nil {
			return nil, err
		}
		node.Elif(cond, branch)
	}

	otherwise, err := l.optional(&spec.Else)
	if err != nil {
		return nil, err
	}
	if otherwise != nil {
		node.Else(otherwise)
	}

	return node, nil
}

func (l *Loader) each(n *yaml.Node, spec nodeSpec) (*render.Each, error) {
	if !present(&spec.Template) {
		return nil, documentError(n, "each node needs a template")
	}
	if spec.From != "" && present(&spec.Items) {
		return nil, documentError(n, "each node takes items or from, not both")
	}

	tmpl, err := l.node(&spec.Template)
	if err != nil {
		return nil, err
	}

	var node *render.Each
	if spec.From != "" {
		node = render.EachFrom(spec.From, tmpl)
	} else {
		var items []any
		if present(&spec.Items) {
			if err := spec.Items.Decode(&items); err != nil {
				return nil, markuperrors.NewDocumentError("each items must be a list", err).WithContext("line", spec.Items.Line)
			}
		}
		node = render.NewEach(items, tmpl)
	}
	node.Names(l.indexName, l.itemName)
	node.Names(spec.Index, spec.Item)

	empty, err := l.optional(&spec.Empty)
	if err != nil {
		return nil, err
	}
	if empty != nil {
		node.Empty(empty)
	}

	return node, nil
}

func (l *Loader) element(n *yaml.Node, spec nodeSpec) (*html.Element, error) {
	if spec.Tag == "" {
		return nil, documentError(n, "element node needs a tag")
	}

	var args []html.Arg
	if spec.Selector != "" {
		args = append(args, html.Selector(spec.Selector))
	}

	if present(&spec.Attrs) {
		attrs, err := attributes(&spec.Attrs)
		if err != nil {
			return nil, err
		}
		args = append(args, html.Attributes(attrs...))
	}

	for _, c := range nodes(spec.Children) {
		child, err := l.node(c)
		if err != nil {
			return nil, err
		}
		args = append(args, html.Child(child))
	}

	e, err := l.builder.Element(spec.Tag, args...)
	if err != nil {
		var me *markuperrors.MarkupError
		if errors.As(err, &me) {
			return nil, me.WithContext("line", n.Line)
		}
		return nil, err
	}

	return e, nil
}

// attributes reads an ordered mapping of attributes. A null or true value
// is a flag, false leaves the attribute out and a mapping with if/then/else
// is conditional.
func attributes(n *yaml.Node) ([]html.Attribute, error) {
	if n.Kind != yaml.MappingNode {
		return nil, documentError(n, "attrs must be a mapping")
	}

	attrs := make([]html.Attribute, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		name, value := n.Content[i].Value, n.Content[i+1]

		switch {
		case value.Kind == yaml.MappingNode:
			var c struct {
				If   yaml.Node `yaml:"if"`
				Then string    `yaml:"then"`
				Else *string   `yaml:"else"`
			}
			if err := value.Decode(&c); err != nil {
				return nil, markuperrors.NewDocumentError("invalid conditional attribute "+name, err)
			}
			cond, err := condition(&c.If)
			if err != nil {
				return nil, err
			}
			if c.Else != nil {
				attrs = append(attrs, html.AttrIf(name, cond, c.Then, *c.Else))
			} else {
				attrs = append(attrs, html.AttrIf(name, cond, c.Then))
			}
		case value.Kind != yaml.ScalarNode:
			return nil, documentError(value, "attribute %s must be a scalar", name)
		case value.ShortTag() == "!!null" || (value.ShortTag() == "!!bool" && value.Value == "true"):
			attrs = append(attrs, html.Flag(name))
		case value.ShortTag() == "!!bool":
			continue
		default:
			attrs = append(attrs, html.Attr(name, value.Value))
		}
	}

	return attrs, nil
}

func (l *Loader) dispatch(n *yaml.Node, spec nodeSpec) (render.Binder, error) {
	v := &spec.Value
	if !present(v) || v.Kind != yaml.ScalarNode {
		return nil, documentError(n, "switch value must be a string or a number")
	}

	fallback, err := l.optional(&spec.Default)
	if err != nil {
		return nil, err
	}

	switch v.ShortTag() {
	case "!!int", "!!float":
		value, err := number(v)
		if err != nil {
			return nil, err
		}
		var cases []render.Case[float64]
		for i := range spec.Cases {
			c := &spec.Cases[i]
			if c.Value.ShortTag() != "!!int" && c.Value.ShortTag() != "!!float" {
				continue
			}
			cv, err := number(&c.Value)
			if err != nil {
				return nil, err
			}
			branch, err := l.optional(&c.Then)
			if err != nil {
				return nil, err
			}
			cases = append(cases, render.NewCase(cv, branch))
		}
		return render.NewSwitch(value, cases...).Default(fallback), nil

	case "!!str":
		var cases []render.Case[string]
		for i := range spec.Cases {
			c := &spec.Cases[i]
			if c.Value.ShortTag() != "!!str" {
				continue
			}
			branch, err := l.optional(&c.Then)
			if err != nil {
				return nil, err
			}
			cases = append(cases, render.NewCase(c.Value.Value, branch))
		}
		if template.HasMarkers(v.Value) {
			return &templatedSwitch{expr: v.Value, cases: cases, fallback: fallback}, nil
		}
		return render.NewSwitch(v.Value, cases...).Default(fallback), nil

	default:
		return nil, documentError(v, "switch value must be a string or a number")
	}
}

func number(n *yaml.Node) (float64, error) {
	var f float64
	if err := n.Decode(&f); err != nil {
		return 0, documentError(n, "invalid number %q", n.Value)
	}

	return f, nil
}

// templatedSwitch dispatches on a string templated from the render context.
type templatedSwitch struct {
	render.Bindings
	expr     string
	cases    []render.Case[string]
	fallback render.Node
}

func (s *templatedSwitch) Render(ctx data.Context, opts ...render.Option) (string, error) {
	o := render.Resolve(opts...)
	merged := s.Merge(ctx, o)

	value, err := o.Engine.Template(s.expr, merged)
	if err != nil {
		return "", err
	}

	return render.NewSwitch(value, s.cases...).Default(s.fallback).Render(merged, o.Inherit()...)
}
