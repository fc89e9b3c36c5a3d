// Package document decodes YAML or JSON descriptions of a node tree.
//
// A document is a single node. A node is either a scalar, read as escaped
// text, a sequence, read as a group, or a mapping with a kind:
//
//	kind: element
//	tag: ul
//	selector: "#list"
//	with: {title: Items}
//	children:
//	  - kind: each
//	    from: items
//	    template: {kind: element, tag: li, children: ["{{item}}"]}
//	    empty: "Nothing here"
//
// Supported kinds are text, raw, group, if, each, switch and element. When
// kind is omitted it is inferred from tag (element), children (group) or
// text (text). Every kind accepts a with mapping of stored bindings.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/conneroisu/markup/pkg/data"
	markuperrors "github.com/conneroisu/markup/pkg/errors"
	"github.com/conneroisu/markup/pkg/html"
	"github.com/conneroisu/markup/pkg/render"
)

// Node kinds.
const (
	KindText    = "text"
	KindRaw     = "raw"
	KindGroup   = "group"
	KindIf      = "if"
	KindEach    = "each"
	KindSwitch  = "switch"
	KindElement = "element"
)

// Loader turns documents into render trees. Element tags are resolved
// through its builder, so custom tags and compositions defined there are
// usable from documents.
type Loader struct {
	builder   *html.Builder
	indexName string
	itemName  string
}

// Option configures a Loader.
type Option func(*Loader)

// WithBuilder resolves element tags through b.
func WithBuilder(b *html.Builder) Option {
	return func(l *Loader) {
		l.builder = b
	}
}

// WithNames sets the binding names each nodes use when a document does not
// name them. Empty names keep the render package defaults.
func WithNames(index, item string) Option {
	return func(l *Loader) {
		l.indexName = index
		l.itemName = item
	}
}

// NewLoader creates a loader. Without options it uses html.NewBuilder().
func NewLoader(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.builder == nil {
		l.builder = html.NewBuilder()
	}

	return l
}

// Builder returns the builder element tags are resolved through.
func (l *Loader) Builder() *html.Builder {
	return l.builder
}

// Load decodes a single document from r.
func (l *Loader) Load(r io.Reader) (render.Node, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, markuperrors.NewDocumentError("document is empty", nil)
		}
		return nil, markuperrors.NewDocumentError("invalid document", err)
	}

	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil, markuperrors.NewDocumentError("document is empty", nil)
		}
		return l.node(root.Content[0])
	}

	return l.node(&root)
}

// Parse decodes a document held in memory.
func (l *Loader) Parse(src []byte) (render.Node, error) {
	return l.Load(bytes.NewReader(src))
}

// LoadFile decodes the document stored at path.
func (l *Loader) LoadFile(path string) (render.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document %s: %w", path, err)
	}
	defer f.Close()

	n, err := l.Load(f)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", path, err)
	}

	return n, nil
}

// Load decodes a document with a default loader.
func Load(r io.Reader) (render.Node, error) {
	return NewLoader().Load(r)
}

// LoadFile decodes a document file with a default loader.
func LoadFile(path string) (render.Node, error) {
	return NewLoader().LoadFile(path)
}

// LoadData decodes a YAML or JSON mapping into a context.
func LoadData(r io.Reader) (data.Context, error) {
	var ctx map[string]any
	if err := yaml.NewDecoder(r).Decode(&ctx); err != nil {
		if errors.Is(err, io.EOF) {
			return data.Context{}, nil
		}
		return nil, markuperrors.NewDocumentError("invalid data", err)
	}
	if ctx == nil {
		return data.Context{}, nil
	}

	return data.Context(ctx), nil
}

// LoadDataFile decodes the data file at path.
func LoadDataFile(path string) (data.Context, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data %s: %w", path, err)
	}
	defer f.Close()

	ctx, err := LoadData(f)
	if err != nil {
		return nil, fmt.Errorf("load data %s: %w", path, err)
	}

	return ctx, nil
}

// IsDocumentFile reports whether path has a document extension.
func IsDocumentFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
