// Package pipe implements the named registry of value transforms applied by
// markers such as {{ name | uppercase }}.
//
// Implementations live in one table and aliases in a second name-to-name
// table. An alias stores the name it was created from, so resolving it always
// reaches the current implementation, and removing a name removes every alias
// chained onto it.
package pipe

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/conneroisu/markup/pkg/data"
	markuperrors "github.com/conneroisu/markup/pkg/errors"
)

// Func transforms a resolved marker value. args are the literal marker
// arguments, already coerced to float64, bool or string. The returned value
// is stringified before substitution.
type Func func(value string, args ...any) (any, error)

// Wrapper decorates an existing implementation. prev is the implementation
// being replaced or copied.
type Wrapper func(prev Func, value string, args ...any) (any, error)

var validName = regexp.MustCompile(`^[a-zA-Z]+$`)

// Registry maps pipe names to implementations. It is safe for concurrent use.
type Registry struct {
	pipes   map[string]Func
	aliases map[string]string
	mutex   sync.RWMutex
}

// New returns a registry holding the built-in pipes.
func New() *Registry {
	r := NewEmpty()
	for name, fn := range builtins() {
		r.pipes[name] = fn
	}

	return r
}

// NewEmpty returns a registry with no pipes installed.
func NewEmpty() *Registry {
	return &Registry{
		pipes:   make(map[string]Func),
		aliases: make(map[string]string),
	}
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	c := NewEmpty()
	for name, fn := range r.pipes {
		c.pipes[name] = fn
	}
	for name, target := range r.aliases {
		c.aliases[name] = target
	}

	return c
}

// Register installs fn under name.
func (r *Registry) Register(name string, fn Func) error {
	name = strings.TrimSpace(name)
	if !validName.MatchString(name) {
		return markuperrors.InvalidName(name)
	}
	if fn == nil {
		return markuperrors.NilPipe(name)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.exists(name) {
		return markuperrors.DuplicateName(name)
	}
	r.pipes[name] = fn

	return nil
}

// Deregister removes name, whether an implementation or an alias, together
// with every alias that reaches it through a chain of aliases. It reports
// whether name was registered.
func (r *Registry) Deregister(name string) bool {
	name = strings.TrimSpace(name)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.exists(name) {
		return false
	}
	delete(r.pipes, name)
	delete(r.aliases, name)

	removed := map[string]bool{name: true}
	for changed := true; changed; {
		changed = false
		for alias, target := range r.aliases {
			if removed[target] {
				delete(r.aliases, alias)
				removed[alias] = true
				changed = true
			}
		}
	}

	return true
}

// Alias makes newName resolve to whatever existing resolves to, now and
// after later updates.
func (r *Registry) Alias(existing, newName string) error {
	existing = strings.TrimSpace(existing)
	newName = strings.TrimSpace(newName)

	if existing == newName {
		return markuperrors.SelfAlias(newName)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.exists(existing) {
		return markuperrors.UnknownPipeToCopyOrAlias(existing)
	}
	if err := r.checkNewName(newName); err != nil {
		return err
	}
	r.aliases[newName] = existing

	return nil
}

// Update replaces the implementation name resolves to with wrapper bound to
// the previous implementation. Aliases of name observe the change.
func (r *Registry) Update(name string, wrapper Wrapper) error {
	name = strings.TrimSpace(name)
	if wrapper == nil {
		return markuperrors.NilPipe(name)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	canonical, ok := r.canonical(name)
	if !ok {
		return markuperrors.UnknownPipeToUpdate(name)
	}
	r.pipes[canonical] = bind(wrapper, r.pipes[canonical])

	return nil
}

// Copy registers newName from name. With asAlias the copy is an alias;
// otherwise it is an independent registration of name's current
// implementation, decorated by wrapper when one is given.
func (r *Registry) Copy(name, newName string, asAlias bool, wrapper Wrapper) error {
	name = strings.TrimSpace(name)
	newName = strings.TrimSpace(newName)

	if asAlias && wrapper != nil {
		return markuperrors.ConflictingOptions(name)
	}
	if asAlias {
		return r.Alias(name, newName)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	canonical, ok := r.canonical(name)
	if !ok {
		return markuperrors.UnknownPipeToCopyOrAlias(name)
	}
	if err := r.checkNewName(newName); err != nil {
		return err
	}

	fn := r.pipes[canonical]
	if wrapper != nil {
		fn = bind(wrapper, fn)
	}
	r.pipes[newName] = fn

	return nil
}

// Pipe applies the pipe name to value with the raw, comma-separated marker
// arguments. An empty name returns value unchanged.
func (r *Registry) Pipe(value, name, rawArgs string) (string, error) {
	if name == "" {
		return value, nil
	}

	return r.Call(value, name, ParseArgs(rawArgs)...)
}

// Call applies the pipe name to value with already typed arguments.
func (r *Registry) Call(value, name string, args ...any) (string, error) {
	name = strings.TrimSpace(name)

	fn, ok := r.Lookup(name)
	if !ok {
		return "", markuperrors.UnknownFilter(name)
	}

	out, err := fn(value, args...)
	if err != nil {
		return "", err
	}

	return data.Stringify(out), nil
}

// Lookup returns the implementation name currently resolves to.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	canonical, ok := r.canonical(name)
	if !ok {
		return nil, false
	}

	return r.pipes[canonical], true
}

// Has reports whether name is registered as an implementation or alias.
func (r *Registry) Has(name string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.exists(strings.TrimSpace(name))
}

// Target returns the name an alias points at.
func (r *Registry) Target(alias string) (string, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	target, ok := r.aliases[alias]

	return target, ok
}

// Names returns every registered name, implementations and aliases, sorted.
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.pipes)+len(r.aliases))
	for name := range r.pipes {
		names = append(names, name)
	}
	for name := range r.aliases {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

func (r *Registry) exists(name string) bool {
	if _, ok := r.pipes[name]; ok {
		return true
	}
	_, ok := r.aliases[name]

	return ok
}

func (r *Registry) checkNewName(name string) error {
	if !validName.MatchString(name) {
		return markuperrors.InvalidName(name)
	}
	if r.exists(name) {
		return markuperrors.DuplicateName(name)
	}

	return nil
}

// canonical follows the alias chain from name to an implementation.
func (r *Registry) canonical(name string) (string, bool) {
	for hops := 0; hops <= len(r.aliases); hops++ {
		if _, ok := r.pipes[name]; ok {
			return name, true
		}
		target, ok := r.aliases[name]
		if !ok {
			return "", false
		}
		name = target
	}

	return "", false
}

func bind(wrapper Wrapper, prev Func) Func {
	return func(value string, args ...any) (any, error) {
		return wrapper(prev, value, args...)
	}
}

var argSeparator = regexp.MustCompile(`\s*,\s*`)

// ParseArgs splits raw marker arguments on commas and coerces each one: a
// numeric prefix becomes a float64, exactly "true" or "false" becomes a bool,
// anything else stays a string.
func ParseArgs(raw string) []any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := argSeparator.Split(raw, -1)
	args := make([]any, len(parts))
	for i, part := range parts {
		args[i] = coerceArg(part)
	}

	return args
}

func coerceArg(s string) any {
	if f, ok := data.ParseFloatPrefix(s); ok {
		return f
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}

	return s
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide registry, created on first use with the
// built-in pipes installed.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New()
	})

	return defaultRegistry
}

// Register installs fn in the default registry.
func Register(name string, fn Func) error { return Default().Register(name, fn) }

// Deregister removes name from the default registry.
func Deregister(name string) bool { return Default().Deregister(name) }

// Alias aliases existing as newName in the default registry.
func Alias(existing, newName string) error { return Default().Alias(existing, newName) }

// Update wraps name in the default registry.
func Update(name string, wrapper Wrapper) error { return Default().Update(name, wrapper) }

// Copy copies name to newName in the default registry.
func Copy(name, newName string, asAlias bool, wrapper Wrapper) error {
	return Default().Copy(name, newName, asAlias, wrapper)
}

// Pipe applies name from the default registry.
func Pipe(value, name, rawArgs string) (string, error) { return Default().Pipe(value, name, rawArgs) }

// Names lists the default registry.
func Names() []string { return Default().Names() }
