package html

import (
	"regexp"
	"strings"

	markuperrors "github.com/conneroisu/markup/pkg/errors"
	"github.com/conneroisu/markup/pkg/render"
)

// selectorPattern accepts an optional leading #id followed by any number of
// .class parts, e.g. "#book.col.col-xs-5".
var selectorPattern = regexp.MustCompile(`^(#[A-Za-z_-][\w-]*)?(\.[A-Za-z_-][\w-]*)*$`)

type argKind int

const (
	argSelector argKind = iota + 1
	argAttributes
	argChild
)

// Arg is one element construction argument: a selector, a set of
// attributes, or a child.
type Arg struct {
	kind     argKind
	selector string
	attrs    []Attribute
	child    render.Node
}

// Selector sets the id and classes from an identifier string such as
// "#main.wide.dark". It must come first.
func Selector(s string) Arg {
	return Arg{kind: argSelector, selector: s}
}

// Attributes sets element attributes. It may appear once, before any child.
func Attributes(attrs ...Attribute) Arg {
	return Arg{kind: argAttributes, attrs: attrs}
}

// Child appends a child node.
func Child(n render.Node) Arg {
	return Arg{kind: argChild, child: n}
}

// Content appends escaped, templated text.
func Content(text string) Arg {
	return Child(render.Text(text))
}

// IsSelector reports whether s is a valid identifier string.
func IsSelector(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && selectorPattern.MatchString(s)
}

// parseSelector splits an identifier string into its id and classes.
func parseSelector(s string) (id string, classes []string) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if strings.HasPrefix(parts[0], "#") {
		id = parts[0][1:]
	}

	return id, parts[1:]
}

func (e *Element) apply(args []Arg) error {
	var (
		seenAttrs bool
		seenChild bool
	)

	for i, arg := range args {
		switch arg.kind {
		case argSelector:
			if i != 0 {
				return markuperrors.NewElementError(markuperrors.ErrCodeElementArguments, "Selector must be the first argument.")
			}
			if !IsSelector(arg.selector) {
				return markuperrors.NewElementError(markuperrors.ErrCodeElementArguments, "Invalid identifier string: "+arg.selector+".").
					WithContext("selector", arg.selector)
			}
			id, classes := parseSelector(arg.selector)
			if id != "" {
				e.SetAttr(Attr("id", id))
			}
			e.SetClasses(classes...)

		case argAttributes:
			if seenAttrs {
				return markuperrors.NewElementError(markuperrors.ErrCodeElementArguments, "Attributes field has been declared twice.")
			}
			if seenChild {
				return markuperrors.NewElementError(markuperrors.ErrCodeElementArguments, "Attributes must come before children.")
			}
			seenAttrs = true
			for _, a := range arg.attrs {
				e.SetAttr(a)
			}

		case argChild:
			if e.void {
				return markuperrors.NewElementError(markuperrors.ErrCodeElementArguments, "Void elements cannot have children.").
					WithContext("tag", e.tag)
			}
			seenChild = true
			e.children.Add(arg.child)

		default:
			return markuperrors.NewElementError(markuperrors.ErrCodeElementArguments, "Unknown element argument.")
		}
	}

	return nil
}
