//go:build property
// +build property

// Property-based tests for the hash-stability contract. Run with:
//
//	go test -tags property ./internal/ir
package ir_test

import (
	"math/rand/v2"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tallylang/tally/internal/ast"
	"github.com/tallylang/tally/internal/ir"
	"github.com/tallylang/tally/internal/provenance"
	"github.com/tallylang/tally/internal/testutil"
	"github.com/tallylang/tally/internal/typecheck"
)

func generate(t *testing.T, m *ast.Model) *ir.Artifact {
	t.Helper()
	tm, diags := typecheck.Check(m, nil)
	if diags.HasBlocking() {
		t.Fatalf("model does not compile: %v", diags)
	}
	art, err := ir.Generate(provenance.Validate(tm))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return art
}

func TestModelHashIgnoresDeclarationOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	base := generate(t, testutil.ChurnModel())

	properties.Property("any param/var permutation hashes identically", prop.ForAll(
		func(seed uint64) bool {
			m := testutil.ChurnModel()
			rng := rand.New(rand.NewPCG(seed, 0))
			rng.Shuffle(len(m.Params), func(i, j int) {
				m.Params[i], m.Params[j] = m.Params[j], m.Params[i]
			})
			rng.Shuffle(len(m.Vars), func(i, j int) {
				m.Vars[i], m.Vars[j] = m.Vars[j], m.Vars[i]
			})
			art := generate(t, m)
			return art.ModelHash == base.ModelHash && art.AssumptionHash == base.AssumptionHash
		},
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

func TestModelHashSeesEveryValueChange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	base := generate(t, testutil.GrowthModel())

	properties.Property("changing the growth rate changes model_hash", prop.ForAll(
		func(growth float64) bool {
			m := testutil.GrowthModel()
			m.Params[0].Value = ast.Lit(growth, "ratio")
			art := generate(t, m)
			changed := growth != 1.10
			return (art.ModelHash != base.ModelHash) == changed &&
				art.AssumptionHash == base.AssumptionHash
		},
		gen.Float64Range(0.5, 2.0),
	))

	properties.Property("changing provenance changes assumption_hash only", prop.ForAll(
		func(confidence float64) bool {
			m := testutil.GrowthModel()
			m.Params[0].Provenance = testutil.Prov("finance/plan-2026", "fitted", confidence)
			art := generate(t, m)
			changed := confidence != 0.8
			return (art.AssumptionHash != base.AssumptionHash) == changed &&
				art.ModelHash == base.ModelHash
		},
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

func TestEncodeIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("Encode is a pure function of the artifact", prop.ForAll(
		func(seed uint64) bool {
			m := testutil.ChurnModel()
			rng := rand.New(rand.NewPCG(seed, 1))
			rng.Shuffle(len(m.Params), func(i, j int) {
				m.Params[i], m.Params[j] = m.Params[j], m.Params[i]
			})
			art := generate(t, m)
			a, err1 := art.Encode()
			b, err2 := art.Encode()
			if err1 != nil || err2 != nil {
				return false
			}
			return string(a) == string(b)
		},
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
