//go:build property
// +build property

// Property-based tests for the sampling primitives. Run with:
//
//	go test -tags property ./internal/stats
package stats_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tallylang/tally/internal/dims"
	"github.com/tallylang/tally/internal/stats"
)

func TestInvNormRoundtrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("NormCDF(InvNorm(p)) ≈ p", prop.ForAll(
		func(p float64) bool {
			z, err := stats.InvNorm(p)
			if err != nil {
				return false
			}
			got := stats.NormCDF(z)
			return got-p < 1e-10 && p-got < 1e-10
		},
		gen.Float64Range(1e-9, 1-1e-9),
	))

	properties.TestingRun(t)
}

func genDistribution() gopter.Gen {
	normal := gen.Float64Range(0.1, 100).Map(func(sigma float64) *dims.Distribution {
		return &dims.Distribution{Kind: dims.DistNormal, Params: []float64{10, sigma}}
	})
	uniform := gen.Float64Range(0.1, 100).Map(func(width float64) *dims.Distribution {
		return &dims.Distribution{Kind: dims.DistUniform, Params: []float64{-5, -5 + width}}
	})
	beta := gen.Float64Range(0.5, 20).Map(func(a float64) *dims.Distribution {
		return &dims.Distribution{Kind: dims.DistBeta, Params: []float64{a, 3}}
	})
	pareto := gen.Float64Range(1.1, 10).Map(func(shape float64) *dims.Distribution {
		return &dims.Distribution{Kind: dims.DistPareto, Params: []float64{2, shape}}
	})
	return gen.OneGenOf(normal, uniform, beta, pareto)
}

func TestQuantileIsMonotone(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("u1 <= u2 implies Quantile(u1) <= Quantile(u2)", prop.ForAll(
		func(d *dims.Distribution, u1, u2 float64) bool {
			if u1 > u2 {
				u1, u2 = u2, u1
			}
			q1, err1 := stats.Quantile(d, u1)
			q2, err2 := stats.Quantile(d, u2)
			if err1 != nil || err2 != nil {
				return false
			}
			return q1 <= q2
		},
		genDistribution(),
		gen.Float64Range(0.001, 0.999),
		gen.Float64Range(0.001, 0.999),
	))

	properties.TestingRun(t)
}

func TestPercentileWithinSampleRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("percentiles stay inside [min, max]", prop.ForAll(
		func(samples []float64, p float64) bool {
			if len(samples) == 0 {
				return true
			}
			got, err := stats.Percentile(samples, p)
			if err != nil {
				return false
			}
			lo, hi := samples[0], samples[0]
			for _, s := range samples {
				if s < lo {
					lo = s
				}
				if s > hi {
					hi = s
				}
			}
			return got >= lo && got <= hi
		},
		gen.SliceOf(gen.Float64Range(-1e6, 1e6)),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}
