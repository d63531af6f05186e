package engine

import (
	"math"

	"github.com/tallylang/tally/internal/ast"
	"github.com/tallylang/tally/internal/dims"
	"github.com/tallylang/tally/internal/typecheck"
)

// evalState is the simulation state σ of one run: parameter bindings for
// the current step plus the variable series. Owned by exactly one run
// goroutine; never shared.
type evalState struct {
	params map[string]dims.Value
	series map[string]*dims.TimeSeries
}

// eval evaluates an expression at step t. The checker has already proven
// the expression well-typed, so dimension failures here are runtime
// errors (they can only arise from numeric conditions like a zero
// divisor), not diagnostics.
func (st *evalState) eval(e *ast.Expr, t, replicate int) (dims.Value, error) {
	switch e.Kind {
	case ast.ExprLiteral:
		v, err := typecheck.LiteralValue(e)
		if err != nil {
			return dims.Value{}, runtimeErr(t, replicate, "%v", err)
		}
		return v, nil

	case ast.ExprRef:
		return st.evalRef(e, t, replicate)

	case ast.ExprBinary:
		return st.evalBinary(e, t, replicate)

	case ast.ExprUnary:
		v, err := st.eval(e.Operand, t, replicate)
		if err != nil {
			return dims.Value{}, err
		}
		switch e.Op {
		case "-":
			v.Num = -v.Num
			return v, nil
		case "!":
			return dims.Boolean(!v.Bool), nil
		}
		return dims.Value{}, runtimeErr(t, replicate, "unknown unary operator %q", e.Op)

	case ast.ExprCall:
		return st.evalCall(e, t, replicate)

	default:
		return dims.Value{}, runtimeErr(t, replicate, "unknown expression kind %q", e.Kind)
	}
}

func (st *evalState) evalRef(e *ast.Expr, t, replicate int) (dims.Value, error) {
	if v, ok := st.params[e.Name]; ok {
		return v, nil
	}
	s, ok := st.series[e.Name]
	if !ok {
		return dims.Value{}, runtimeErr(t, replicate, "unknown identifier %q", e.Name)
	}
	step := t
	if e.Index != nil {
		step = e.Index.Resolve(t)
	}
	if step < 0 {
		return dims.Value{}, runtimeErr(t, replicate,
			"%s%s reaches before the first step", e.Name, e.Index)
	}
	v, err := s.At(step)
	if err != nil {
		return dims.Value{}, runtimeErr(t, replicate, "%s: %v", e.Name, err)
	}
	return v, nil
}

// evalBinary mirrors the checker's bidirectional literal rule: a bare
// numeric literal on one side of an additive or comparison operator
// adopts the other side's dimension. The checker guaranteed such
// literals appear only where adoption is possible.
func (st *evalState) evalBinary(e *ast.Expr, t, replicate int) (dims.Value, error) {
	switch e.Op {
	case "&&", "||":
		l, err := st.eval(e.Left, t, replicate)
		if err != nil {
			return dims.Value{}, err
		}
		if e.Op == "&&" && !l.Bool {
			return dims.Boolean(false), nil
		}
		if e.Op == "||" && l.Bool {
			return dims.Boolean(true), nil
		}
		r, err := st.eval(e.Right, t, replicate)
		if err != nil {
			return dims.Value{}, err
		}
		return dims.Boolean(r.Bool), nil
	}

	l, r, err := st.evalOperands(e, t, replicate)
	if err != nil {
		return dims.Value{}, err
	}

	var v dims.Value
	switch e.Op {
	case "+":
		v, err = l.Add(r)
	case "-":
		v, err = l.Sub(r)
	case "*":
		v, err = l.Mul(r)
	case "/":
		v, err = l.Div(r)
	case "<", "<=", ">", ">=", "==", "!=":
		v, err = l.Compare(e.Op, r)
	default:
		return dims.Value{}, runtimeErr(t, replicate, "unknown operator %q", e.Op)
	}
	if err != nil {
		return dims.Value{}, runtimeErr(t, replicate, "%v", err)
	}
	return v, nil
}

// evalOperands evaluates both sides, giving a bare literal the other
// side's dimension for dimension-preserving operators.
func (st *evalState) evalOperands(e *ast.Expr, t, replicate int) (dims.Value, dims.Value, error) {
	adopting := e.Op != "*" && e.Op != "/"
	switch {
	case adopting && bareLiteral(e.Left):
		r, err := st.eval(e.Right, t, replicate)
		if err != nil {
			return dims.Value{}, dims.Value{}, err
		}
		return dims.Quantity(*e.Left.Num, r.Dimension()), r, nil
	case adopting && bareLiteral(e.Right):
		l, err := st.eval(e.Left, t, replicate)
		if err != nil {
			return dims.Value{}, dims.Value{}, err
		}
		return l, dims.Quantity(*e.Right.Num, l.Dimension()), nil
	default:
		l, err := st.eval(e.Left, t, replicate)
		if err != nil {
			return dims.Value{}, dims.Value{}, err
		}
		r, err := st.eval(e.Right, t, replicate)
		if err != nil {
			return dims.Value{}, dims.Value{}, err
		}
		return l, r, nil
	}
}

func bareLiteral(e *ast.Expr) bool {
	return e != nil && e.Kind == ast.ExprLiteral && e.Num != nil && e.Unit == ""
}

// evalIn evaluates e in a position with a known expected dimension. A
// bare numeric literal adopts it, matching the checker's checking
// direction; everything else evaluates normally.
func (st *evalState) evalIn(e *ast.Expr, want dims.Dimension, t, replicate int) (dims.Value, error) {
	if bareLiteral(e) {
		return dims.Quantity(*e.Num, want), nil
	}
	return st.eval(e, t, replicate)
}

func (st *evalState) evalCall(e *ast.Expr, t, replicate int) (dims.Value, error) {
	switch e.Fn {
	case "abs":
		v, err := st.eval(e.Args[0], t, replicate)
		if err != nil {
			return dims.Value{}, err
		}
		v.Num = math.Abs(v.Num)
		return v, nil
	case "min", "max":
		// The first argument fixes the dimension; later bare literals
		// adopt it, as the checker typed them.
		v, err := st.eval(e.Args[0], t, replicate)
		if err != nil {
			return dims.Value{}, err
		}
		for _, arg := range e.Args[1:] {
			a, err := st.evalIn(arg, v.Dimension(), t, replicate)
			if err != nil {
				return dims.Value{}, err
			}
			if !a.Dimension().Equal(v.Dimension()) {
				return dims.Value{}, runtimeErr(t, replicate,
					"%s arguments mix dimensions %s and %s", e.Fn, v.Dimension(), a.Dimension())
			}
			if (e.Fn == "min" && a.Num < v.Num) || (e.Fn == "max" && a.Num > v.Num) {
				v = a
			}
		}
		return v, nil
	default:
		// Distribution constructors never reach step evaluation; they are
		// bound to parameters at init.
		return dims.Value{}, runtimeErr(t, replicate, "unknown function %q", e.Fn)
	}
}
