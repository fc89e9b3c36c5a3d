package render

import (
	"github.com/conneroisu/markup/pkg/data"
	"github.com/conneroisu/markup/pkg/template"
)

// Condition is either a literal boolean or an expression evaluated with
// template.Engine.Evaluate at render time.
type Condition struct {
	literal bool
	expr    string
	isExpr  bool
}

// Bool returns a literal condition.
func Bool(b bool) Condition {
	return Condition{literal: b}
}

// Expr returns a condition that holds when expr is a single marker
// templating to "true".
func Expr(expr string) Condition {
	return Condition{expr: expr, isExpr: true}
}

// Literal reports whether the condition is a literal boolean.
func (c Condition) Literal() bool {
	return !c.isExpr
}

// String returns the expression, or "true"/"false" for a literal.
func (c Condition) String() string {
	if c.isExpr {
		return c.expr
	}
	if c.literal {
		return "true"
	}

	return "false"
}

// Holds evaluates the condition against ctx.
func (c Condition) Holds(ctx data.Context, e *template.Engine) (bool, error) {
	if !c.isExpr {
		return c.literal, nil
	}
	if e == nil {
		e = template.Default()
	}

	return e.Evaluate(c.expr, ctx)
}

// settled reports whether the condition is known to hold before render.
func (c Condition) settled() bool {
	return !c.isExpr && c.literal
}

type clause struct {
	cond   Condition
	branch Node
}

// If renders the first branch whose condition holds.
type If struct {
	Bindings
	clauses  []clause
	fallback Node
	settled  bool
}

// NewIf creates a conditional with a primary branch.
func NewIf(cond Condition, branch Node) *If {
	return &If{
		clauses: []clause{{cond: cond, branch: branch}},
		settled: cond.settled(),
	}
}

// Elif adds a branch tried when every earlier condition fails. It is ignored
// once an earlier literal condition is already true.
func (n *If) Elif(cond Condition, branch Node) *If {
	if n.settled {
		return n
	}
	n.clauses = append(n.clauses, clause{cond: cond, branch: branch})
	n.settled = cond.settled()

	return n
}

// Else sets the branch rendered when no condition holds.
func (n *If) Else(branch Node) *If {
	n.fallback = branch
	return n
}

// With replaces the stored bindings.
func (n *If) With(ctx data.Context) *If {
	n.SetBindings(ctx)
	return n
}

// Append merges ctx into the stored bindings.
func (n *If) Append(ctx data.Context, prioritize bool) *If {
	n.AppendBindings(ctx, prioritize)
	return n
}

// Branches returns the number of conditional branches, the primary included.
func (n *If) Branches() int {
	return len(n.clauses)
}

// Render renders the selected branch, or "" when nothing matches and no
// else branch is set.
func (n *If) Render(ctx data.Context, opts ...Option) (string, error) {
	o := Resolve(opts...)
	merged := n.Merge(ctx, o)

	for _, c := range n.clauses {
		ok, err := c.cond.Holds(merged, o.Engine)
		if err != nil {
			return "", err
		}
		if ok {
			return renderBranch(c.branch, merged, o)
		}
	}

	return renderBranch(n.fallback, merged, o)
}

func renderBranch(branch Node, ctx data.Context, o Options) (string, error) {
	if branch == nil {
		return "", nil
	}

	return branch.Render(ctx, o.Inherit()...)
}
