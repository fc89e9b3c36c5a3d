package render

import (
	"github.com/conneroisu/markup/pkg/data"
)

// Group renders its members in order without a separator.
type Group struct {
	Bindings
	members []Node
}

// NewGroup creates a group. Blank text members and nil members are dropped.
func NewGroup(members ...Node) *Group {
	g := &Group{members: make([]Node, 0, len(members))}
	for _, m := range members {
		g.Add(m)
	}

	return g
}

// Add appends a member unless it is nil or blank text.
func (g *Group) Add(member Node) *Group {
	if member == nil {
		return g
	}
	if l, ok := member.(*Literal); ok && l.Blank() {
		return g
	}
	g.members = append(g.members, member)

	return g
}

// Members returns the group's members.
func (g *Group) Members() []Node {
	return g.members
}

// With replaces the stored bindings.
func (g *Group) With(ctx data.Context) *Group {
	g.SetBindings(ctx)
	return g
}

// Append merges ctx into the stored bindings.
func (g *Group) Append(ctx data.Context, prioritize bool) *Group {
	g.AppendBindings(ctx, prioritize)
	return g
}

// Render concatenates the members' output.
func (g *Group) Render(ctx data.Context, opts ...Option) (string, error) {
	o := Resolve(opts...)

	return renderAll(g.members, g.Merge(ctx, o), o.Inherit())
}
