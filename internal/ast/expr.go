package ast

import "fmt"

// ExprKind tags the expression union.
type ExprKind string

const (
	ExprLiteral ExprKind = "literal"
	ExprRef     ExprKind = "ref"
	ExprBinary  ExprKind = "binary"
	ExprUnary   ExprKind = "unary"
	ExprCall    ExprKind = "call"
)

// Expr is a structured expression node. Exactly the fields for its Kind
// are populated; parsers must not overload fields across kinds.
type Expr struct {
	Kind ExprKind `json:"kind" yaml:"kind"`

	// ExprLiteral: a number with a unit marker, or a boolean.
	// Unit markers follow the documented contract (see ParseUnit in
	// internal/typecheck): "USD", "months", "per_month", "ratio", "%",
	// "count:Customer", "capacity:Server". An empty unit on a numeric
	// literal is ambiguous and only legal where the checker can infer the
	// expected dimension from context.
	Num  *float64 `json:"num,omitempty" yaml:"num,omitempty"`
	Unit string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Bool *bool    `json:"bool,omitempty" yaml:"bool,omitempty"`

	// ExprRef: an identifier reference, optionally time-indexed.
	Name  string     `json:"name,omitempty" yaml:"name,omitempty"`
	Index *TimeIndex `json:"index,omitempty" yaml:"index,omitempty"`

	// ExprBinary: Op is one of + - * / < <= > >= == != && ||.
	Op    string `json:"op,omitempty" yaml:"op,omitempty"`
	Left  *Expr  `json:"left,omitempty" yaml:"left,omitempty"`
	Right *Expr  `json:"right,omitempty" yaml:"right,omitempty"`

	// ExprUnary: Op is "-" or "!".
	Operand *Expr `json:"operand,omitempty" yaml:"operand,omitempty"`

	// ExprCall: distribution constructors (Normal, Beta, LogNormal,
	// Uniform, Triangular, Pareto, Mixture) and builtins (min, max, abs).
	Fn   string  `json:"fn,omitempty" yaml:"fn,omitempty"`
	Args []*Expr `json:"args,omitempty" yaml:"args,omitempty"`
}

// TimeIndexKind distinguishes the three index shapes the grammar allows.
type TimeIndexKind string

const (
	// IndexCurrent is [t].
	IndexCurrent TimeIndexKind = "current"
	// IndexOffset is [t+k]; negative k looks backward. Positive k is a
	// causality violation, diagnosed at compile time.
	IndexOffset TimeIndexKind = "offset"
	// IndexAbsolute is a fixed step such as [0].
	IndexAbsolute TimeIndexKind = "absolute"
)

// TimeIndex addresses one step of a time-indexed identifier.
type TimeIndex struct {
	Kind   TimeIndexKind `json:"kind" yaml:"kind"`
	Offset int           `json:"offset,omitempty" yaml:"offset,omitempty"`
	Abs    int           `json:"abs,omitempty" yaml:"abs,omitempty"`
}

// Resolve maps the index to a concrete step given the current step t.
func (ix *TimeIndex) Resolve(t int) int {
	switch ix.Kind {
	case IndexCurrent:
		return t
	case IndexOffset:
		return t + ix.Offset
	case IndexAbsolute:
		return ix.Abs
	default:
		return t
	}
}

func (ix *TimeIndex) String() string {
	switch ix.Kind {
	case IndexCurrent:
		return "[t]"
	case IndexOffset:
		if ix.Offset >= 0 {
			return fmt.Sprintf("[t+%d]", ix.Offset)
		}
		return fmt.Sprintf("[t%d]", ix.Offset)
	case IndexAbsolute:
		return fmt.Sprintf("[%d]", ix.Abs)
	default:
		return "[?]"
	}
}

// Walk visits e and all children in depth-first order. The visitor returns
// false to prune a subtree.
func (e *Expr) Walk(visit func(*Expr) bool) {
	if e == nil || !visit(e) {
		return
	}
	e.Left.Walk(visit)
	e.Right.Walk(visit)
	e.Operand.Walk(visit)
	for _, a := range e.Args {
		a.Walk(visit)
	}
}

// Refs returns the distinct identifier names referenced by the expression,
// in first-appearance order.
func (e *Expr) Refs() []string {
	var out []string
	seen := make(map[string]bool)
	e.Walk(func(n *Expr) bool {
		if n.Kind == ExprRef && !seen[n.Name] {
			seen[n.Name] = true
			out = append(out, n.Name)
		}
		return true
	})
	return out
}

// Lit builds a numeric literal with a unit marker. Test/builder helper.
func Lit(num float64, unit string) *Expr {
	return &Expr{Kind: ExprLiteral, Num: &num, Unit: unit}
}

// BoolLit builds a boolean literal.
func BoolLit(b bool) *Expr {
	return &Expr{Kind: ExprLiteral, Bool: &b}
}

// Ref builds an unindexed identifier reference.
func Ref(name string) *Expr {
	return &Expr{Kind: ExprRef, Name: name}
}

// RefAt builds a reference indexed at [t+offset].
func RefAt(name string, offset int) *Expr {
	if offset == 0 {
		return &Expr{Kind: ExprRef, Name: name, Index: &TimeIndex{Kind: IndexCurrent}}
	}
	return &Expr{Kind: ExprRef, Name: name, Index: &TimeIndex{Kind: IndexOffset, Offset: offset}}
}

// RefAbs builds a reference indexed at a fixed step.
func RefAbs(name string, step int) *Expr {
	return &Expr{Kind: ExprRef, Name: name, Index: &TimeIndex{Kind: IndexAbsolute, Abs: step}}
}

// Bin builds a binary expression.
func Bin(op string, l, r *Expr) *Expr {
	return &Expr{Kind: ExprBinary, Op: op, Left: l, Right: r}
}

// Call builds a call expression.
func Call(fn string, args ...*Expr) *Expr {
	return &Expr{Kind: ExprCall, Fn: fn, Args: args}
}
