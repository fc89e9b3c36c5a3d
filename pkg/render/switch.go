package render

import (
	"github.com/conneroisu/markup/pkg/data"
)

// Scrutinee is the set of value types a Switch dispatches on.
type Scrutinee interface {
	~string | ~int | ~int64 | ~float64
}

// Case pairs a value with the branch rendered when it matches.
type Case[T Scrutinee] struct {
	Value  T
	Branch Node
}

// NewCase creates a case.
func NewCase[T Scrutinee](value T, branch Node) Case[T] {
	return Case[T]{Value: value, Branch: branch}
}

// Switch renders the branch of the first case equal to its value.
type Switch[T Scrutinee] struct {
	Bindings
	value    T
	cases    []Case[T]
	fallback Node
}

// NewSwitch creates a switch over value. Cases are tried in order.
func NewSwitch[T Scrutinee](value T, cases ...Case[T]) *Switch[T] {
	return &Switch[T]{value: value, cases: cases}
}

// Case appends a case.
func (s *Switch[T]) Case(value T, branch Node) *Switch[T] {
	s.cases = append(s.cases, NewCase(value, branch))
	return s
}

// Default sets the branch rendered when no case matches.
func (s *Switch[T]) Default(branch Node) *Switch[T] {
	s.fallback = branch
	return s
}

// With replaces the stored bindings.
func (s *Switch[T]) With(ctx data.Context) *Switch[T] {
	s.SetBindings(ctx)
	return s
}

// Append merges ctx into the stored bindings.
func (s *Switch[T]) Append(ctx data.Context, prioritize bool) *Switch[T] {
	s.AppendBindings(ctx, prioritize)
	return s
}

// Render renders the first matching case, the default, or "".
func (s *Switch[T]) Render(ctx data.Context, opts ...Option) (string, error) {
	o := Resolve(opts...)
	merged := s.Merge(ctx, o)

	for _, c := range s.cases {
		if c.Value == s.value {
			return renderBranch(c.Branch, merged, o)
		}
	}

	return renderBranch(s.fallback, merged, o)
}
