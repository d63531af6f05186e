// Package testutil provides deterministic model builders shared by tests
// across the compiler and runtime packages.
package testutil

import (
	"github.com/tallylang/tally/internal/ast"
)

// FloatPtr returns a pointer to f. Provenance confidence fields take
// pointers so absence is distinguishable from zero.
func FloatPtr(f float64) *float64 { return &f }

// IntPtr returns a pointer to i.
func IntPtr(i int) *int { return &i }

// Prov builds a complete provenance record.
func Prov(source, method string, confidence float64) *ast.Provenance {
	return &ast.Provenance{Source: source, Method: method, Confidence: FloatPtr(confidence)}
}

// GrowthModel is the canonical end-to-end fixture: monthly recurring
// revenue starting at $10,000 compounding 10% per step, with a fatal cap
// at $1,000,000.
//
//	mrr[0] = $10,000
//	mrr[t] = mrr[t-1] * growth
//	constraint mrr_cap: mrr < $1,000,000 (fatal)
func GrowthModel() *ast.Model {
	return &ast.Model{
		Name: "growth",
		Params: []*ast.Parameter{
			{
				Name:       "growth",
				Value:      ast.Lit(1.10, "ratio"),
				Provenance: Prov("finance/plan-2026", "fitted", 0.8),
			},
		},
		Vars: []*ast.Variable{
			{
				Name:       "mrr",
				Initial:    []*ast.InitialValue{{Step: 0, Value: ast.Lit(10000, "USD")}},
				Recurrence: ast.Bin("*", ast.RefAt("mrr", -1), ast.Ref("growth")),
			},
		},
		Constraints: []*ast.Constraint{
			{
				Name:     "mrr_cap",
				Expr:     ast.Bin("<", ast.RefAt("mrr", 0), ast.Lit(1_000_000, "USD")),
				Severity: ast.SeverityFatal,
			},
		},
	}
}

// ChurnModel exercises stochastic parameters, correlation declarations,
// a warning constraint and a policy.
func ChurnModel() *ast.Model {
	return &ast.Model{
		Name: "churn",
		Params: []*ast.Parameter{
			{
				Name:       "churn",
				Value:      ast.Call("Beta", ast.Lit(2, "ratio"), ast.Lit(8, "ratio")),
				Provenance: Prov("warehouse/churn-q2", "fitted", 0.9),
			},
			{
				Name:  "acquisition",
				Value: ast.Call("Normal", ast.Lit(120, "count:Customer"), ast.Lit(15, "count:Customer")),
				Provenance: &ast.Provenance{
					Source:     "marketing/funnel",
					Method:     "observed",
					Confidence: FloatPtr(0.7),
					Correlated: []ast.Correlation{{With: "churn", Coefficient: -0.4}},
				},
			},
			{
				Name:       "arpu",
				Value:      ast.Lit(30, "USD"),
				Provenance: Prov("billing/export", "observed", 0.95),
			},
		},
		Vars: []*ast.Variable{
			{
				Name:    "customers",
				Initial: []*ast.InitialValue{{Step: 0, Value: ast.Lit(1000, "count:Customer")}},
				Recurrence: ast.Bin("+",
					ast.Bin("*", ast.RefAt("customers", -1),
						ast.Bin("-", ast.Lit(1, "ratio"), ast.Ref("churn"))),
					ast.Ref("acquisition")),
			},
			{
				Name: "revenue",
				Definition: ast.Bin("*",
					ast.Bin("/", ast.Ref("arpu"), ast.Lit(1, "count:Customer")),
					ast.RefAt("customers", 0)),
			},
		},
		Constraints: []*ast.Constraint{
			{
				Name:     "customer_floor",
				Expr:     ast.Bin(">", ast.RefAt("customers", 0), ast.Lit(0, "count:Customer")),
				Severity: ast.SeverityWarning,
			},
		},
		Policies: []*ast.Policy{
			{
				Name:    "price_bump",
				Trigger: ast.Bin(">", ast.RefAt("customers", 0), ast.Lit(5000, "count:Customer")),
				Actions: []*ast.Action{
					{Target: "revenue", Value: ast.Bin("*", ast.Ref("revenue"), ast.Lit(1.05, "ratio"))},
				},
			},
		},
	}
}
