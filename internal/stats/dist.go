package stats

import (
	"fmt"
	"math"

	"github.com/tallylang/tally/internal/dims"
)

// Quantile is the inverse CDF of d at probability u ∈ (0, 1). It is the
// single sampling primitive: both independent draws and copula draws go
// through it, so the marginal of a correlated variable is exactly the
// declared distribution.
//
// A Mixture is inverted by composition: u selects the component by
// cumulative weight and the residual mass within the component's band is
// rescaled to a fresh (0, 1) probability. The map is measure-preserving
// even though it is not the mixture's true quantile function.
func Quantile(d *dims.Distribution, u float64) (float64, error) {
	if !(u > 0 && u < 1) {
		return 0, fmt.Errorf("quantile input %v outside (0, 1) for %s", u, d)
	}
	p := d.Params
	switch d.Kind {
	case dims.DistNormal:
		z, err := InvNorm(u)
		if err != nil {
			return 0, err
		}
		return p[0] + p[1]*z, nil
	case dims.DistLogNormal:
		z, err := InvNorm(u)
		if err != nil {
			return 0, err
		}
		return math.Exp(p[0] + p[1]*z), nil
	case dims.DistUniform:
		return p[0] + (p[1]-p[0])*u, nil
	case dims.DistTriangular:
		lo, mode, hi := p[0], p[1], p[2]
		if hi == lo {
			return lo, nil
		}
		pivot := (mode - lo) / (hi - lo)
		if u < pivot {
			return lo + math.Sqrt(u*(hi-lo)*(mode-lo)), nil
		}
		return hi - math.Sqrt((1-u)*(hi-lo)*(hi-mode)), nil
	case dims.DistBeta:
		return betaQuantile(p[0], p[1], u)
	case dims.DistPareto:
		scale, shape := p[0], p[1]
		return scale * math.Pow(1-u, -1/shape), nil
	case dims.DistMixture:
		total := 0.0
		for _, c := range d.Components {
			total += c.Weight
		}
		cum := 0.0
		for i, c := range d.Components {
			w := c.Weight / total
			if u < cum+w || i == len(d.Components)-1 {
				inner := (u - cum) / w
				inner = math.Min(math.Max(inner, math.SmallestNonzeroFloat64), 1-1e-16)
				return Quantile(c.Dist, inner)
			}
			cum += w
		}
		return 0, fmt.Errorf("mixture has no components")
	default:
		return 0, fmt.Errorf("unknown distribution kind %v", d.Kind)
	}
}

// Central is the value a deterministic run binds for d: the mean for
// Normal, the midpoint for Uniform, the median exp(μ) for LogNormal, the
// mode for Triangular, α/(α+β) for Beta, the median for Pareto, and the
// weighted mean of component centrals for Mixture.
func Central(d *dims.Distribution) (float64, error) {
	p := d.Params
	switch d.Kind {
	case dims.DistNormal:
		return p[0], nil
	case dims.DistUniform:
		return (p[0] + p[1]) / 2, nil
	case dims.DistLogNormal:
		return math.Exp(p[0]), nil
	case dims.DistTriangular:
		return p[1], nil
	case dims.DistBeta:
		return p[0] / (p[0] + p[1]), nil
	case dims.DistPareto:
		return p[0] * math.Pow(2, 1/p[1]), nil
	case dims.DistMixture:
		total, sum := 0.0, 0.0
		for _, c := range d.Components {
			cv, err := Central(c.Dist)
			if err != nil {
				return 0, err
			}
			sum += c.Weight * cv
			total += c.Weight
		}
		return sum / total, nil
	default:
		return 0, fmt.Errorf("unknown distribution kind %v", d.Kind)
	}
}
