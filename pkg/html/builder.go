package html

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	markuperrors "github.com/conneroisu/markup/pkg/errors"
	"github.com/conneroisu/markup/pkg/render"
)

var (
	validTagName         = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]*(-[a-zA-Z]+)*$`)
	validCompositionName = regexp.MustCompile(`^[a-zA-Z]+$`)
)

// Kind tells a tag factory which element to build.
type Kind int

const (
	// Nested elements have children and a closing tag.
	Nested Kind = iota
	// Empty elements are void: no children, no closing tag.
	Empty
)

func (k Kind) String() string {
	switch k {
	case Nested:
		return "nested"
	case Empty:
		return "empty"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Composition builds a node from arbitrary arguments.
type Composition func(args ...any) (render.Node, error)

type definition struct {
	tag     string
	kind    Kind
	compose Composition
}

// Builder is a registry of tag factories and compositions, looked up by
// name. Definitions made inside Scope are removed when it returns.
type Builder struct {
	mu     sync.RWMutex
	layers []map[string]definition
}

// NewBuilder returns a builder with the standard HTML tags defined.
func NewBuilder() *Builder {
	b := NewEmptyBuilder()
	for _, tag := range NestedTags {
		if _, err := b.Create(tag, Nested); err != nil {
			panic(err)
		}
	}
	for _, tag := range VoidTags {
		if _, err := b.Create(tag, Empty); err != nil {
			panic(err)
		}
	}

	return b
}

// NewEmptyBuilder returns a builder with nothing defined.
func NewEmptyBuilder() *Builder {
	return &Builder{layers: []map[string]definition{{}}}
}

// Create defines a factory for tag and returns the trimmed tag name. The
// factory is registered under the camelCase form of the tag, so "my-tag" is
// built as "myTag".
func (b *Builder) Create(tag string, kind Kind) (string, error) {
	tag = strings.TrimSpace(tag)
	if !validTagName.MatchString(tag) {
		return "", markuperrors.NewElementError(markuperrors.ErrCodeInvalidTagName,
			"Tag names should start with a letter and only contain letters, numbers, and dashes between two characters (yes: the-tag-name, no: the---tag---name).").
			WithContext("tag", tag)
	}
	if kind != Nested && kind != Empty {
		return "", markuperrors.NewElementError(markuperrors.ErrCodeElementArguments, "ElementType does not exist: "+kind.String())
	}

	return tag, b.define(CamelCase(tag), definition{tag: tag, kind: kind})
}

// Compose defines a composition under name.
func (b *Builder) Compose(name string, fn Composition) error {
	name = strings.TrimSpace(name)
	if !validCompositionName.MatchString(name) {
		return markuperrors.NewElementError(markuperrors.ErrCodeInvalidComposition,
			"Composition names should only contain letters.").
			WithContext("name", name)
	}
	if fn == nil {
		return markuperrors.NewElementError(markuperrors.ErrCodeInvalidComposition, "Composition "+name+" has no function.")
	}

	return b.define(name, definition{compose: fn})
}

// Destroy removes the innermost definition of name, which may be given in
// kebab-case. It reports whether anything was removed.
func (b *Builder) Destroy(name string) bool {
	name = CamelCase(strings.TrimSpace(name))

	b.mu.Lock()
	defer b.mu.Unlock()

	for i := len(b.layers) - 1; i >= 0; i-- {
		if _, ok := b.layers[i][name]; ok {
			delete(b.layers[i], name)
			return true
		}
	}

	return false
}

// Has reports whether name is defined.
func (b *Builder) Has(name string) bool {
	_, ok := b.lookup(name)
	return ok
}

// IsVoid reports whether name is a defined void tag.
func (b *Builder) IsVoid(name string) bool {
	def, ok := b.lookup(name)
	return ok && def.compose == nil && def.kind == Empty
}

// Names returns every defined name, sorted.
func (b *Builder) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, layer := range b.layers {
		for name := range layer {
			seen[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Element builds the tag defined under name.
func (b *Builder) Element(name string, args ...Arg) (*Element, error) {
	def, ok := b.lookup(name)
	if !ok {
		return nil, unknownDefinition(name)
	}
	if def.compose != nil {
		return nil, markuperrors.NewElementError(markuperrors.ErrCodeElementArguments, name+" is a composition, not a tag.")
	}

	e := newElement(def.tag, def.kind == Empty, args)

	return e, e.Err()
}

// Build dispatches to whatever is defined under name. Tag factories accept
// only Arg values.
func (b *Builder) Build(name string, args ...any) (render.Node, error) {
	def, ok := b.lookup(name)
	if !ok {
		return nil, unknownDefinition(name)
	}
	if def.compose != nil {
		return def.compose(args...)
	}

	elemArgs := make([]Arg, len(args))
	for i, a := range args {
		arg, ok := a.(Arg)
		if !ok {
			return nil, markuperrors.NewElementError(markuperrors.ErrCodeElementArguments,
				fmt.Sprintf("Argument %d of %s is a %T, not an element argument.", i, name, a))
		}
		elemArgs[i] = arg
	}

	return b.Element(name, elemArgs...)
}

// Scope runs fn with a fresh definition layer on top of the builder. Every
// definition fn makes is dropped when it returns.
func (b *Builder) Scope(fn func(*Builder) error) error {
	b.mu.Lock()
	b.layers = append(b.layers, map[string]definition{})
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.layers = b.layers[:len(b.layers)-1]
		b.mu.Unlock()
	}()

	return fn(b)
}

func (b *Builder) define(name string, def definition) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, layer := range b.layers {
		if _, ok := layer[name]; ok {
			return markuperrors.NewElementError(markuperrors.ErrCodeDuplicateDefinition,
				fmt.Sprintf("You cannot define %s because it already exists. Please call Destroy(%q) before redefining.", name, name))
		}
	}
	b.layers[len(b.layers)-1][name] = def

	return nil
}

func (b *Builder) lookup(name string) (definition, bool) {
	name = CamelCase(strings.TrimSpace(name))

	b.mu.RLock()
	defer b.mu.RUnlock()

	for i := len(b.layers) - 1; i >= 0; i-- {
		if def, ok := b.layers[i][name]; ok {
			return def, true
		}
	}

	return definition{}, false
}

func unknownDefinition(name string) error {
	return markuperrors.NewElementError(markuperrors.ErrCodeUnknownDefinition, "Nothing is defined as "+name+".").
		WithContext("name", name)
}

// CamelCase converts a kebab-case name to camelCase.
func CamelCase(name string) string {
	if !strings.Contains(name, "-") {
		return name
	}

	parts := strings.Split(name, "-")
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}

	return b.String()
}
