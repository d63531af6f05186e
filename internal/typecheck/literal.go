package typecheck

import (
	"fmt"

	"github.com/tallylang/tally/internal/ast"
	"github.com/tallylang/tally/internal/dims"
)

// LiteralValue evaluates a literal expression into a runtime value,
// applying the unit's magnitude scale (quarters→months, %→ratio).
// Bare numeric literals evaluate as dimensionless; callers that accepted
// them in check mode coerce the dimension from context.
func LiteralValue(e *ast.Expr) (dims.Value, error) {
	if e == nil || e.Kind != ast.ExprLiteral {
		return dims.Value{}, fmt.Errorf("not a literal expression")
	}
	if e.Bool != nil {
		return dims.Boolean(*e.Bool), nil
	}
	if e.Num == nil {
		return dims.Value{}, fmt.Errorf("literal has neither number nor boolean")
	}
	if e.Unit == "" {
		return dims.Fraction(*e.Num), nil
	}
	d, scale, err := ParseUnit(e.Unit)
	if err != nil {
		return dims.Value{}, err
	}
	return dims.Quantity(*e.Num*scale, d), nil
}
