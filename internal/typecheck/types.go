package typecheck

import (
	"fmt"

	"github.com/tallylang/tally/internal/dims"
)

// TypeKind tags the type union of the language.
type TypeKind int

const (
	// TypeScalar is a dimensioned number.
	TypeScalar TypeKind = iota
	// TypeBool is the boolean type.
	TypeBool
	// TypeDistribution is Distribution<T> for a scalar element type.
	TypeDistribution
	// TypeSeries is a time-indexed scalar; indexing yields the element.
	TypeSeries
)

// Type is the inferred type of an identifier or expression.
type Type struct {
	Kind TypeKind
	Dim  dims.Dimension // element dimension for Series and Distribution
}

// Scalar builds a scalar type.
func Scalar(d dims.Dimension) Type { return Type{Kind: TypeScalar, Dim: d} }

// Boolean is the boolean type.
func Boolean() Type { return Type{Kind: TypeBool} }

// DistributionOf builds Distribution<T> over a scalar dimension.
func DistributionOf(d dims.Dimension) Type { return Type{Kind: TypeDistribution, Dim: d} }

// SeriesOf builds a time series of the given element dimension.
func SeriesOf(d dims.Dimension) Type { return Type{Kind: TypeSeries, Dim: d} }

// Elem returns the scalar obtained by sampling a distribution or indexing
// a series; scalars return themselves.
func (t Type) Elem() Type {
	switch t.Kind {
	case TypeDistribution, TypeSeries:
		return Scalar(t.Dim)
	default:
		return t
	}
}

// Equal is structural type equality (nominal over dimension tags).
func (t Type) Equal(o Type) bool {
	return t.Kind == o.Kind && t.Dim.Equal(o.Dim)
}

func (t Type) String() string {
	switch t.Kind {
	case TypeScalar:
		return t.Dim.String()
	case TypeBool:
		return "Boolean"
	case TypeDistribution:
		return fmt.Sprintf("Distribution<%s>", t.Dim)
	case TypeSeries:
		return fmt.Sprintf("Series<%s>", t.Dim)
	default:
		return "invalid"
	}
}

// Env is the append-only identifier→type environment (Γ). It is built
// incrementally during checking and discarded after compilation; the
// runtime never sees it.
type Env struct {
	types map[string]Type
	order []string
}

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return &Env{types: make(map[string]Type)}
}

// Bind adds a binding. Rebinding an identifier is a programming error in
// the checker, not a user diagnostic, so it fails loudly.
func (e *Env) Bind(name string, t Type) error {
	if _, ok := e.types[name]; ok {
		return fmt.Errorf("identifier %q already bound", name)
	}
	e.types[name] = t
	e.order = append(e.order, name)
	return nil
}

// Lookup resolves an identifier.
func (e *Env) Lookup(name string) (Type, bool) {
	t, ok := e.types[name]
	return t, ok
}

// Names returns bound identifiers in binding order.
func (e *Env) Names() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}
