package typecheck

import (
	"fmt"

	"github.com/tallylang/tally/internal/ast"
	"github.com/tallylang/tally/internal/diag"
)

// checkCausality is the temporal-causality pass, run separately from type
// checking: no expression evaluated at step t may reference an index
// strictly greater than t. A future reference is a rejection, never a
// warning; the recurrence would otherwise be unsolvable in a single
// forward pass.
//
// The pass covers every expression the runtime evaluates per step:
// recurrences, plain definitions, initial values, constraint expressions,
// policy triggers and policy action values.
func (c *checker) checkCausality(m *ast.Model) {
	for _, v := range m.Vars {
		path := "vars." + v.Name
		c.causalityWalk(v.Recurrence, path+".recurrence")
		c.causalityWalk(v.Definition, path+".definition")
		for i, init := range v.Initial {
			c.causalityWalk(init.Value, fmt.Sprintf("%s.initial[%d]", path, i))
		}
	}
	for _, cons := range m.Constraints {
		c.causalityWalk(cons.Expr, "constraints."+cons.Name+".expr")
	}
	for _, pol := range m.Policies {
		path := "policies." + pol.Name
		c.causalityWalk(pol.Trigger, path+".trigger")
		for i, act := range pol.Actions {
			c.causalityWalk(act.Value, fmt.Sprintf("%s.actions[%d].value", path, i))
		}
	}
}

func (c *checker) causalityWalk(e *ast.Expr, path string) {
	if e == nil {
		return
	}
	e.Walk(func(n *ast.Expr) bool {
		if n.Kind != ast.ExprRef || n.Index == nil {
			return true
		}
		switch n.Index.Kind {
		case ast.IndexOffset:
			if n.Index.Offset > 0 {
				c.errf(diag.CodeCausality, path,
					"%s%s references %d step(s) into the future", n.Name, n.Index, n.Index.Offset)
			}
		case ast.IndexAbsolute:
			if n.Index.Abs < 0 {
				c.errf(diag.CodeCausality, path,
					"%s%s references a negative step", n.Name, n.Index)
			}
		}
		return true
	})
}
