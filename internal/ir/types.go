// Package ir defines the compiled artifact, the durable contract between
// the compiler and any runtime, and the generator that produces it from a
// checked, provenance-validated model.
//
// The artifact is a dependency-sorted list of typed nodes plus two
// content hashes: model_hash identifies the model's semantics and
// assumption_hash identifies its provenance records. Hashing goes through
// RFC 8785 canonical JSON, so the hashes are pure functions of meaning,
// never of source formatting or declaration order of independent nodes.
package ir

import (
	"github.com/tallylang/tally/internal/ast"
)

// SchemaVersion is the artifact schema this generator emits. Consumers
// accept any artifact whose version satisfies the same major.
const SchemaVersion = "1.0.0"

// NodeKind distinguishes the two kinds of model nodes.
type NodeKind string

const (
	KindParam NodeKind = "param"
	KindVar   NodeKind = "var"
)

// Node is one typed, provenance-annotated entry of the artifact.
// Expression trees are carried verbatim: the runtime evaluates them
// directly and never sees source syntax.
type Node struct {
	ID        string   `json:"id"`
	Kind      NodeKind `json:"kind"`
	Type      string   `json:"type"`      // e.g. "Series<Currency<USD>>"
	Dimension string   `json:"dimension"` // element dimension, e.g. "Currency<USD>"

	// Param nodes: the bound value (literal or distribution constructor).
	Value *ast.Expr `json:"value,omitempty"`

	// Var nodes: exactly one of Definition/Recurrence drives steps t > 0;
	// Initial seeds early steps.
	Definition *ast.Expr           `json:"definition,omitempty"`
	Recurrence *ast.Expr           `json:"recurrence,omitempty"`
	Initial    []*ast.InitialValue `json:"initial,omitempty"`

	// Provenance is carried on param nodes for audit; it contributes to
	// assumption_hash, never to model_hash.
	Provenance *ast.Provenance `json:"provenance,omitempty"`

	// Deps are the same-step identifier dependencies, sorted. Lagged
	// references read already-completed steps and are not dependencies.
	Deps []string `json:"deps"`
}

// ConstraintNode is a compiled constraint, evaluated in declaration order.
type ConstraintNode struct {
	Name     string         `json:"name"`
	Expr     *ast.Expr      `json:"expr"`
	Severity string         `json:"severity"`
	Scope    *ast.TimeScope `json:"scope,omitempty"`
	Slack    bool           `json:"slack,omitempty"`
}

// PolicyNode is a compiled policy; array position is the declaration
// index used for execution-order tie-breaking.
type PolicyNode struct {
	Name    string        `json:"name"`
	Trigger *ast.Expr     `json:"trigger"`
	Actions []*ast.Action `json:"actions"`
}

// Correlation is the validated correlation matrix over the model's
// stochastic parameters. Order is lexicographic over parameter names so
// the matrix, and with it model_hash, stays independent of declaration
// order. Undeclared pairs are zero. The runtime consumes it read-only.
type Correlation struct {
	Order  []string    `json:"order"`
	Matrix [][]float64 `json:"matrix"`
}

// Artifact is the IR file format.
type Artifact struct {
	SchemaVersion  string            `json:"schema_version"`
	ModelName      string            `json:"model_name"`
	ModelHash      string            `json:"model_hash"`
	AssumptionHash string            `json:"assumption_hash"`
	Nodes          []*Node           `json:"nodes"`
	Constraints    []*ConstraintNode `json:"constraints"`
	Policies       []*PolicyNode     `json:"policies"`
	Correlation    *Correlation      `json:"correlation,omitempty"`
	Completeness   float64           `json:"completeness"`
}

// NodeByID returns the node with the given id, or nil.
func (a *Artifact) NodeByID(id string) *Node {
	for _, n := range a.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
