package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallylang/tally/internal/ast"
	"github.com/tallylang/tally/internal/diag"
	"github.com/tallylang/tally/internal/provenance"
	"github.com/tallylang/tally/internal/testutil"
	"github.com/tallylang/tally/internal/typecheck"
)

func compile(t *testing.T, m *ast.Model) (*Artifact, error) {
	t.Helper()
	tm, diags := typecheck.Check(m, nil)
	require.False(t, diags.HasBlocking(), "fixture should type-check: %v", diags.ErrOrNil())
	return Generate(provenance.Validate(tm))
}

func mustCompile(t *testing.T, m *ast.Model) *Artifact {
	t.Helper()
	a, err := compile(t, m)
	require.NoError(t, err)
	return a
}

func nodeIDs(a *Artifact) []string {
	ids := make([]string, len(a.Nodes))
	for i, n := range a.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func TestGenerateOrdersByDependency(t *testing.T) {
	a := mustCompile(t, testutil.ChurnModel())

	assert.Equal(t, []string{"churn", "acquisition", "arpu", "customers", "revenue"}, nodeIDs(a))

	customers := a.NodeByID("customers")
	require.NotNil(t, customers)
	// The lagged self-reference orders nothing; only same-step reads do.
	assert.Equal(t, []string{"acquisition", "churn"}, customers.Deps)

	revenue := a.NodeByID("revenue")
	require.NotNil(t, revenue)
	assert.Equal(t, []string{"arpu", "customers"}, revenue.Deps)
}

func TestGenerateTypesNodes(t *testing.T) {
	a := mustCompile(t, testutil.GrowthModel())

	growth := a.NodeByID("growth")
	require.NotNil(t, growth)
	assert.Equal(t, KindParam, growth.Kind)
	assert.Equal(t, "1", growth.Dimension)

	mrr := a.NodeByID("mrr")
	require.NotNil(t, mrr)
	assert.Equal(t, KindVar, mrr.Kind)
	assert.Equal(t, "Series<Currency<USD>>", mrr.Type)
	assert.Equal(t, "Currency<USD>", mrr.Dimension)
}

func TestModelHashIgnoresDeclarationOrder(t *testing.T) {
	a := mustCompile(t, testutil.ChurnModel())

	reordered := testutil.ChurnModel()
	reordered.Params = []*ast.Parameter{
		reordered.Params[2], reordered.Params[0], reordered.Params[1],
	}
	b := mustCompile(t, reordered)

	assert.Equal(t, a.ModelHash, b.ModelHash)
	assert.Equal(t, a.AssumptionHash, b.AssumptionHash)
	// The nodes array itself still reflects declaration-order ties.
	assert.Equal(t, []string{"arpu", "churn", "acquisition", "customers", "revenue"}, nodeIDs(b))
}

func TestModelHashSeesSemanticChange(t *testing.T) {
	a := mustCompile(t, testutil.GrowthModel())

	changed := testutil.GrowthModel()
	changed.Params[0].Value = ast.Lit(1.15, "ratio")
	b := mustCompile(t, changed)

	assert.NotEqual(t, a.ModelHash, b.ModelHash)
}

func TestAssumptionHashIsolatedFromModelHash(t *testing.T) {
	a := mustCompile(t, testutil.GrowthModel())

	changed := testutil.GrowthModel()
	changed.Params[0].Provenance = testutil.Prov("finance/plan-2027", "expert_estimate", 0.4)
	b := mustCompile(t, changed)

	assert.Equal(t, a.ModelHash, b.ModelHash)
	assert.NotEqual(t, a.AssumptionHash, b.AssumptionHash)
}

func TestGenerateRejectsCycle(t *testing.T) {
	m := &ast.Model{
		Name: "cyclic",
		Vars: []*ast.Variable{
			{
				Name:       "a",
				Initial:    []*ast.InitialValue{{Step: 0, Value: ast.Lit(0, "USD")}},
				Definition: ast.Bin("+", ast.RefAt("b", 0), ast.Lit(1, "USD")),
			},
			{
				Name:       "b",
				Initial:    []*ast.InitialValue{{Step: 0, Value: ast.Lit(0, "USD")}},
				Definition: ast.Bin("+", ast.RefAt("a", 0), ast.Lit(1, "USD")),
			},
		},
	}
	tm, _ := typecheck.Check(m, nil)
	_, err := Generate(provenance.Validate(tm))

	require.Error(t, err)
	d, ok := err.(diag.Diagnostic)
	require.True(t, ok, "want a structured diagnostic, got %T", err)
	assert.Equal(t, diag.CodeDependencyCycle, d.Code)
	assert.Contains(t, d.Msg, "a -> b -> a")
}

func TestGenerateRejectsSelfLoop(t *testing.T) {
	m := &ast.Model{
		Name: "selfloop",
		Vars: []*ast.Variable{
			{
				Name:       "x",
				Initial:    []*ast.InitialValue{{Step: 0, Value: ast.Lit(1, "USD")}},
				Definition: ast.Bin("+", ast.RefAt("x", 0), ast.Lit(1, "USD")),
			},
		},
	}
	tm, _ := typecheck.Check(m, nil)
	_, err := Generate(provenance.Validate(tm))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "x -> x")
}

func TestCorrelationMatrixBuilt(t *testing.T) {
	a := mustCompile(t, testutil.ChurnModel())

	require.NotNil(t, a.Correlation)
	assert.Equal(t, []string{"acquisition", "churn"}, a.Correlation.Order)
	assert.Equal(t, [][]float64{{1, -0.4}, {-0.4, 1}}, a.Correlation.Matrix)
}

func TestCorrelationOmittedWhenUndeclared(t *testing.T) {
	a := mustCompile(t, testutil.GrowthModel())
	assert.Nil(t, a.Correlation)
}

func TestCorrelationRejectsUnknownTarget(t *testing.T) {
	m := testutil.ChurnModel()
	m.Params[1].Provenance.Correlated = []ast.Correlation{{With: "nope", Coefficient: 0.2}}

	_, err := compile(t, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(diag.CodeInvalidCorrelation))
}

func TestCorrelationRejectsNonStochasticSource(t *testing.T) {
	m := testutil.ChurnModel()
	// arpu is a plain literal; correlating it is meaningless.
	m.Params[2].Provenance.Correlated = []ast.Correlation{{With: "churn", Coefficient: 0.2}}

	_, err := compile(t, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stochastic")
}

func TestCorrelationRejectsConflictingCoefficients(t *testing.T) {
	m := testutil.ChurnModel()
	m.Params[0].Provenance.Correlated = []ast.Correlation{{With: "acquisition", Coefficient: 0.9}}

	_, err := compile(t, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicting")
}

func TestCorrelationRejectsIndefiniteMatrix(t *testing.T) {
	m := testutil.ChurnModel()
	m.Params = append(m.Params, &ast.Parameter{
		Name:       "expansion",
		Value:      ast.Call("Beta", ast.Lit(3, "ratio"), ast.Lit(5, "ratio")),
		Provenance: testutil.Prov("warehouse/expansion", "fitted", 0.6),
	})
	// churn↔acquisition is already -0.4; these two edges make the matrix
	// indefinite.
	m.Params[0].Provenance.Correlated = []ast.Correlation{{With: "expansion", Coefficient: 0.95}}
	m.Params[1].Provenance.Correlated = append(m.Params[1].Provenance.Correlated,
		ast.Correlation{With: "expansion", Coefficient: 0.95})

	_, err := compile(t, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive semi-definite")
}

func TestEncodeValidatesRoundTrip(t *testing.T) {
	a := mustCompile(t, testutil.ChurnModel())

	raw, err := a.Encode()
	require.NoError(t, err)

	back, err := ValidateJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, a.ModelHash, back.ModelHash)
	assert.Equal(t, a.AssumptionHash, back.AssumptionHash)
	assert.Equal(t, nodeIDs(a), nodeIDs(back))
}

func TestValidateJSONRejectsMalformedHash(t *testing.T) {
	_, err := ValidateJSON([]byte(`{
		"schema_version": "1.0.0",
		"model_name": "x",
		"model_hash": "not-a-hash",
		"assumption_hash": "` + HashWithDomain(DomainAssumptions, nil) + `",
		"nodes": [], "constraints": [], "policies": [], "completeness": 1
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
}

func TestSchemaVersionCompatibility(t *testing.T) {
	assert.NoError(t, CheckSchemaVersion("1.0.0"))
	assert.NoError(t, CheckSchemaVersion("1.9.4"))
	assert.Error(t, CheckSchemaVersion("2.0.0"))
	assert.Error(t, CheckSchemaVersion("garbage"))
}

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte(`{"a":1}`)
	assert.NotEqual(t,
		HashWithDomain(DomainModel, data),
		HashWithDomain(DomainAssumptions, data))
}
