// Package renderer loads pages from disk and renders them.
//
// A page is either a plain text template, rendered as an unescaped literal,
// or a YAML/JSON document describing a node tree. Both render against an
// optional data file.
package renderer

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/conneroisu/markup/internal/logging"
	"github.com/conneroisu/markup/pkg/data"
	"github.com/conneroisu/markup/pkg/document"
	"github.com/conneroisu/markup/pkg/render"
	"github.com/conneroisu/markup/pkg/template"
)

// Page kinds.
const (
	KindAuto     = "auto"
	KindText     = "text"
	KindDocument = "document"
)

// Page names a source file and the data it renders with.
type Page struct {
	Path     string
	DataPath string
	Kind     string
}

// ResolveKind picks the page kind, inferring it from the extension for
// KindAuto or an empty kind.
func (p Page) ResolveKind() (string, error) {
	switch p.Kind {
	case "", KindAuto:
		if document.IsDocumentFile(p.Path) {
			return KindDocument, nil
		}
		return KindText, nil
	case KindText, KindDocument:
		return p.Kind, nil
	default:
		return "", fmt.Errorf("unknown page kind %q (supported: auto, text, document)", p.Kind)
	}
}

// Renderer renders pages with one loader, engine and option set.
type Renderer struct {
	loader *document.Loader
	engine *template.Engine
	opts   []render.Option
	logger logging.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLoader resolves documents through l.
func WithLoader(l *document.Loader) Option {
	return func(r *Renderer) { r.loader = l }
}

// WithEngine renders markers with e.
func WithEngine(e *template.Engine) Option {
	return func(r *Renderer) { r.engine = e }
}

// WithRenderOptions passes opts to every render.
func WithRenderOptions(opts ...render.Option) Option {
	return func(r *Renderer) { r.opts = append(r.opts, opts...) }
}

// WithLogger logs through l.
func WithLogger(l logging.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// New creates a renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	if r.loader == nil {
		r.loader = document.NewLoader()
	}
	if r.engine == nil {
		r.engine = template.Default()
	}
	if r.logger == nil {
		r.logger = logging.Nop()
	}
	r.logger = r.logger.WithComponent("renderer")

	return r
}

// Engine returns the engine markers render with.
func (r *Renderer) Engine() *template.Engine {
	return r.engine
}

// Load reads the page source and its data.
func (r *Renderer) Load(p Page) (render.Node, data.Context, error) {
	kind, err := p.ResolveKind()
	if err != nil {
		return nil, nil, err
	}

	var node render.Node
	if kind == KindDocument {
		node, err = r.loader.LoadFile(p.Path)
	} else {
		node, err = loadText(p.Path)
	}
	if err != nil {
		return nil, nil, err
	}

	ctx := data.Context{}
	if p.DataPath != "" {
		ctx, err = document.LoadDataFile(p.DataPath)
		if err != nil {
			return nil, nil, err
		}
	}

	return node, ctx, nil
}

func loadText(path string) (render.Node, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}

	return render.Raw(string(src)), nil
}

// Options returns the render options for one render, with extra appended.
func (r *Renderer) Options(extra ...render.Option) []render.Option {
	opts := make([]render.Option, 0, len(r.opts)+len(extra)+1)
	opts = append(opts, render.WithEngine(r.engine))
	opts = append(opts, r.opts...)

	return append(opts, extra...)
}

// Render loads and renders p.
func (r *Renderer) Render(ctx context.Context, p Page, extra ...render.Option) (string, error) {
	op := logging.StartOperation(r.logger, "render")

	node, values, err := r.Load(p)
	if err != nil {
		op.EndWithError(ctx, err)
		return "", err
	}

	out, err := node.Render(values, r.Options(extra...)...)
	if err != nil {
		op.EndWithError(ctx, err)
		return "", fmt.Errorf("render %s: %w", p.Path, err)
	}
	op.End(ctx, "file", p.Path, "bytes", len(out))

	return out, nil
}

// Report describes the markers of a page.
type Report struct {
	Path         string            `json:"path" yaml:"path"`
	Kind         string            `json:"kind" yaml:"kind"`
	Markers      []template.Marker `json:"markers" yaml:"markers"`
	UnknownPipes []string          `json:"unknown_pipes,omitempty" yaml:"unknown_pipes,omitempty"`
}

// OK reports whether every marker names a known pipe.
func (rep *Report) OK() bool {
	return len(rep.UnknownPipes) == 0
}

// Check lists the markers in p and the pipes they name that the engine
// does not know. Documents are also parsed so structural errors surface.
func (r *Renderer) Check(p Page) (*Report, error) {
	kind, err := p.ResolveKind()
	if err != nil {
		return nil, err
	}

	src, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.Path, err)
	}
	if kind == KindDocument {
		if _, err := r.loader.Parse(src); err != nil {
			return nil, fmt.Errorf("check %s: %w", p.Path, err)
		}
	}

	rep := &Report{Path: p.Path, Kind: kind, Markers: template.Markers(string(src))}
	unknown := make(map[string]bool)
	for _, m := range rep.Markers {
		if m.Pipe != "" && !r.engine.Pipes().Has(strings.TrimSpace(m.Pipe)) {
			unknown[m.Pipe] = true
		}
	}
	for name := range unknown {
		rep.UnknownPipes = append(rep.UnknownPipes, name)
	}
	sort.Strings(rep.UnknownPipes)

	return rep, nil
}
