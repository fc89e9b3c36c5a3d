package html

import (
	"strings"

	"github.com/conneroisu/markup/pkg/data"
	"github.com/conneroisu/markup/pkg/escape"
	"github.com/conneroisu/markup/pkg/render"
)

// Attribute is a single HTML attribute. Values are templated against the
// element's render context and escaped.
type Attribute struct {
	name      string
	value     string
	flag      bool
	when      *render.Condition
	otherwise *string
}

// Attr returns a name="value" attribute.
func Attr(name, value string) Attribute {
	return Attribute{name: strings.TrimSpace(name), value: value}
}

// Flag returns a valueless attribute such as "disabled".
func Flag(name string) Attribute {
	return Attribute{name: strings.TrimSpace(name), flag: true}
}

// AttrIf returns an attribute valued then when cond holds. When it does not,
// the first otherwise value is used, or the attribute is left out.
func AttrIf(name string, cond render.Condition, then string, otherwise ...string) Attribute {
	a := Attr(name, then)
	a.when = &cond
	if len(otherwise) > 0 {
		a.otherwise = &otherwise[0]
	}

	return a
}

// Name returns the attribute name.
func (a Attribute) Name() string {
	return a.name
}

// Value returns the unrendered value, empty for a flag.
func (a Attribute) Value() string {
	return a.value
}

// IsFlag reports whether the attribute has no value.
func (a Attribute) IsFlag() bool {
	return a.flag
}

// render writes the attribute with its leading space. Nothing is written
// when a conditional attribute without an else value does not hold.
func (a Attribute) render(b *strings.Builder, ctx data.Context, o render.Options) error {
	value := a.value
	if a.when != nil {
		ok, err := a.when.Holds(ctx, o.Engine)
		if err != nil {
			return err
		}
		if !ok {
			if a.otherwise == nil {
				return nil
			}
			value = *a.otherwise
		}
	}

	b.WriteByte(' ')
	b.WriteString(a.name)
	if a.flag {
		return nil
	}

	out, err := o.Engine.Template(value, ctx)
	if err != nil {
		return err
	}
	b.WriteString(`="`)
	b.WriteString(escape.HTML(out))
	b.WriteByte('"')

	return nil
}
