package ir

import (
	"fmt"
	"sort"

	"github.com/tallylang/tally/internal/ast"
	"github.com/tallylang/tally/internal/diag"
	"github.com/tallylang/tally/internal/provenance"
	"github.com/tallylang/tally/internal/stats"
	"github.com/tallylang/tally/internal/typecheck"
)

// Generate compiles a checked, provenance-validated model into the IR
// artifact. The dependency sort is inherently sequential, so unlike the
// type checker it fails on the first structural error (a cycle); the
// correlation matrix is validated in full before hashing.
func Generate(rep *provenance.Report) (*Artifact, error) {
	tm := rep.Typed
	m := tm.Model

	nodes, err := buildNodes(tm)
	if err != nil {
		return nil, err
	}
	nodes, err = sortNodes(nodes)
	if err != nil {
		return nil, err
	}

	corr, err := buildCorrelation(tm)
	if err != nil {
		return nil, err
	}

	a := &Artifact{
		SchemaVersion: SchemaVersion,
		ModelName:     m.Name,
		Nodes:         nodes,
		Constraints:   buildConstraints(m),
		Policies:      buildPolicies(m),
		Correlation:   corr,
		Completeness:  rep.Completeness,
	}

	if a.ModelHash, err = modelHash(a); err != nil {
		return nil, err
	}
	if a.AssumptionHash, err = assumptionHash(rep.Records()); err != nil {
		return nil, err
	}
	return a, nil
}

// modelHash hashes the model's semantics: nodes keyed by id (RFC 8785
// sorts object keys, so the hash is independent of declaration order of
// independent nodes), constraints, policies and the correlation matrix.
// Provenance is excluded; it belongs to assumption_hash.
func modelHash(a *Artifact) (string, error) {
	byID := make(map[string]*Node, len(a.Nodes))
	for _, n := range a.Nodes {
		sans := *n
		sans.Provenance = nil
		byID[n.ID] = &sans
	}
	payload := map[string]any{
		"name":        a.ModelName,
		"nodes":       byID,
		"constraints": a.Constraints,
		"policies":    a.Policies,
	}
	if a.Correlation != nil {
		payload["correlation"] = a.Correlation
	}
	return hashCanonical(DomainModel, payload)
}

// assumptionHash hashes the provenance records keyed by parameter name.
func assumptionHash(recs []provenance.ParamRecord) (string, error) {
	byParam := make(map[string]ast.Provenance, len(recs))
	for _, r := range recs {
		byParam[r.Param] = r.Provenance
	}
	return hashCanonical(DomainAssumptions, byParam)
}

func buildNodes(tm *typecheck.TypedModel) ([]*Node, error) {
	var nodes []*Node
	for _, p := range tm.Model.Params {
		t, ok := tm.TypeOf(p.Name)
		if !ok {
			return nil, fmt.Errorf("parameter %q has no inferred type", p.Name)
		}
		nodes = append(nodes, &Node{
			ID:         p.Name,
			Kind:       KindParam,
			Type:       t.String(),
			Dimension:  t.Dim.String(),
			Value:      p.Value,
			Provenance: p.Provenance,
			Deps:       sameStepDeps(p.Value),
		})
	}
	for _, v := range tm.Model.Vars {
		t, ok := tm.TypeOf(v.Name)
		if !ok {
			return nil, fmt.Errorf("variable %q has no inferred type", v.Name)
		}
		deps := sameStepDeps(v.Definition, v.Recurrence)
		for _, init := range v.Initial {
			deps = mergeDeps(deps, sameStepDeps(init.Value))
		}
		nodes = append(nodes, &Node{
			ID:         v.Name,
			Kind:       KindVar,
			Type:       t.String(),
			Dimension:  t.Dim.String(),
			Definition: v.Definition,
			Recurrence: v.Recurrence,
			Initial:    v.Initial,
			Deps:       deps,
		})
	}
	return nodes, nil
}

// sameStepDeps extracts the identifiers an expression reads at the step
// being evaluated. A lagged reference (x[t-k], k > 0) reads a completed
// step and orders nothing; an absolute reference is conservatively
// treated as same-step, since at that one step it is.
func sameStepDeps(exprs ...*ast.Expr) []string {
	seen := make(map[string]bool)
	var deps []string
	for _, e := range exprs {
		e.Walk(func(n *ast.Expr) bool {
			if n.Kind != ast.ExprRef {
				return true
			}
			ix := n.Index
			lagged := ix != nil && ix.Kind == ast.IndexOffset && ix.Offset < 0
			if !lagged && !seen[n.Name] {
				seen[n.Name] = true
				deps = append(deps, n.Name)
			}
			return true
		})
	}
	sort.Strings(deps)
	return deps
}

func mergeDeps(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := append([]string(nil), a...)
	for _, d := range a {
		seen[d] = true
	}
	for _, d := range b {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}

// sortNodes orders nodes so every same-step dependency precedes its
// dependents, breaking ties by declaration order. A cycle aborts with
// the offending path.
func sortNodes(nodes []*Node) ([]*Node, error) {
	decl := make(map[string]int, len(nodes))
	byID := make(map[string]*Node, len(nodes))
	for i, n := range nodes {
		decl[n.ID] = i
		byID[n.ID] = n
	}

	if cycle := findCycle(nodes); cycle != nil {
		return nil, diag.New(diag.CodeDependencyCycle, "",
			"dependency cycle: %s", cyclePath(cycle, decl))
	}

	// Kahn's algorithm; the ready set is scanned for the smallest
	// declaration index so the order is total and reproducible.
	indegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		for _, d := range n.Deps {
			if _, ok := byID[d]; !ok {
				continue // undefined refs were diagnosed by the checker
			}
			indegree[n.ID]++
			dependents[d] = append(dependents[d], n.ID)
		}
	}

	out := make([]*Node, 0, len(nodes))
	done := make(map[string]bool, len(nodes))
	for len(out) < len(nodes) {
		next := ""
		for _, n := range nodes {
			if done[n.ID] || indegree[n.ID] > 0 {
				continue
			}
			if next == "" || decl[n.ID] < decl[next] {
				next = n.ID
			}
		}
		if next == "" {
			return nil, diag.New(diag.CodeDependencyCycle, "",
				"dependency graph is not a DAG")
		}
		done[next] = true
		out = append(out, byID[next])
		for _, d := range dependents[next] {
			indegree[d]--
		}
	}
	return out, nil
}

func buildConstraints(m *ast.Model) []*ConstraintNode {
	out := make([]*ConstraintNode, 0, len(m.Constraints))
	for _, c := range m.Constraints {
		out = append(out, &ConstraintNode{
			Name:     c.Name,
			Expr:     c.Expr,
			Severity: c.Severity,
			Scope:    c.Scope,
			Slack:    c.Slack,
		})
	}
	return out
}

func buildPolicies(m *ast.Model) []*PolicyNode {
	out := make([]*PolicyNode, 0, len(m.Policies))
	for _, p := range m.Policies {
		out = append(out, &PolicyNode{Name: p.Name, Trigger: p.Trigger, Actions: p.Actions})
	}
	return out
}

// buildCorrelation assembles the matrix over all distribution-typed
// parameters. Order is lexicographic rather than declaration order so
// that model_hash stays independent of how the source arranges its
// parameters. Undeclared pairs stay zero. Returns nil when the model
// declares no correlations at all.
func buildCorrelation(tm *typecheck.TypedModel) (*Correlation, error) {
	var order []string
	for _, p := range tm.Model.Params {
		if t, ok := tm.TypeOf(p.Name); ok && t.Kind == typecheck.TypeDistribution {
			order = append(order, p.Name)
		}
	}
	sort.Strings(order)
	index := make(map[string]int, len(order))
	for i, name := range order {
		index[name] = i
	}

	declared := false
	n := len(order)
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		matrix[i][i] = 1
	}

	for _, p := range tm.Model.Params {
		if p.Provenance == nil {
			continue
		}
		for _, c := range p.Provenance.Correlated {
			i, ok := index[p.Name]
			if !ok {
				return nil, diag.New(diag.CodeInvalidCorrelation,
					"params."+p.Name+".provenance",
					"correlated_with requires %q to be a stochastic parameter", p.Name)
			}
			j, ok := index[c.With]
			if !ok {
				return nil, diag.New(diag.CodeInvalidCorrelation,
					"params."+p.Name+".provenance",
					"correlated_with target %q is not a stochastic parameter", c.With)
			}
			if i == j {
				return nil, diag.New(diag.CodeInvalidCorrelation,
					"params."+p.Name+".provenance",
					"parameter %q cannot be correlated with itself", p.Name)
			}
			if c.Coefficient < -1 || c.Coefficient > 1 {
				return nil, diag.New(diag.CodeInvalidCorrelation,
					"params."+p.Name+".provenance",
					"correlation coefficient %v outside [-1,1]", c.Coefficient)
			}
			if prev := matrix[i][j]; prev != 0 && prev != c.Coefficient {
				return nil, diag.New(diag.CodeInvalidCorrelation,
					"params."+p.Name+".provenance",
					"conflicting coefficients for (%s, %s): %v and %v",
					p.Name, c.With, prev, c.Coefficient)
			}
			matrix[i][j] = c.Coefficient
			matrix[j][i] = c.Coefficient
			declared = true
		}
	}
	if !declared {
		return nil, nil
	}

	if _, err := stats.Cholesky(matrix); err != nil {
		return nil, diag.New(diag.CodeInvalidCorrelation, "", "%v", err)
	}
	return &Correlation{Order: order, Matrix: matrix}, nil
}
