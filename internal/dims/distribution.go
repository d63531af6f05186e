package dims

import (
	"fmt"
	"strings"
)

// DistKind identifies one of the closed set of distribution families.
// The set is fixed by the language; adding a family is a language change,
// so every switch over DistKind must be exhaustive.
type DistKind int

const (
	DistBeta DistKind = iota
	DistNormal
	DistLogNormal
	DistUniform
	DistTriangular
	DistPareto
	DistMixture
)

var distKindNames = map[DistKind]string{
	DistBeta:       "Beta",
	DistNormal:     "Normal",
	DistLogNormal:  "LogNormal",
	DistUniform:    "Uniform",
	DistTriangular: "Triangular",
	DistPareto:     "Pareto",
	DistMixture:    "Mixture",
}

func (k DistKind) String() string {
	if n, ok := distKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("DistKind(%d)", int(k))
}

// DistKindFromName resolves a constructor name ("Normal", "Beta", ...).
func DistKindFromName(name string) (DistKind, bool) {
	for k, n := range distKindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Weighted is one component of a mixture.
type Weighted struct {
	Weight float64
	Dist   *Distribution
}

// Distribution is a declared stochastic input. Params hold the family's
// numeric parameters in constructor order:
//
//	Beta(alpha, beta)  LogNormal(mu, sigma)  Normal(mean, stddev)
//	Uniform(low, high)  Triangular(low, mode, high)  Pareto(scale, shape)
//
// Dim is the dimension of samples drawn from the distribution.
type Distribution struct {
	Kind       DistKind
	Params     []float64
	Components []Weighted // Mixture only
	Dim        Dimension
}

// Validate checks family-specific parameter constraints. These are the
// runtime-facing checks; the type checker validates parameter dimensions.
func (d *Distribution) Validate() error {
	switch d.Kind {
	case DistBeta:
		if len(d.Params) != 2 || d.Params[0] <= 0 || d.Params[1] <= 0 {
			return fmt.Errorf("Beta requires alpha > 0 and beta > 0")
		}
	case DistNormal:
		if len(d.Params) != 2 || d.Params[1] < 0 {
			return fmt.Errorf("Normal requires (mean, stddev) with stddev >= 0")
		}
	case DistLogNormal:
		if len(d.Params) != 2 || d.Params[1] < 0 {
			return fmt.Errorf("LogNormal requires (mu, sigma) with sigma >= 0")
		}
	case DistUniform:
		if len(d.Params) != 2 || d.Params[0] > d.Params[1] {
			return fmt.Errorf("Uniform requires low <= high")
		}
	case DistTriangular:
		if len(d.Params) != 3 || d.Params[0] > d.Params[1] || d.Params[1] > d.Params[2] {
			return fmt.Errorf("Triangular requires low <= mode <= high")
		}
	case DistPareto:
		if len(d.Params) != 2 || d.Params[0] <= 0 || d.Params[1] <= 0 {
			return fmt.Errorf("Pareto requires scale > 0 and shape > 0")
		}
	case DistMixture:
		if len(d.Components) == 0 {
			return fmt.Errorf("Mixture requires at least one component")
		}
		total := 0.0
		for i, c := range d.Components {
			if c.Weight < 0 {
				return fmt.Errorf("Mixture component %d has negative weight", i)
			}
			if c.Dist == nil {
				return fmt.Errorf("Mixture component %d has no distribution", i)
			}
			if err := c.Dist.Validate(); err != nil {
				return fmt.Errorf("Mixture component %d: %w", i, err)
			}
			if !c.Dist.Dim.Equal(d.Dim) {
				return fmt.Errorf("Mixture component %d dimension %s differs from mixture dimension %s", i, c.Dist.Dim, d.Dim)
			}
			total += c.Weight
		}
		if total <= 0 {
			return fmt.Errorf("Mixture weights must sum to a positive value")
		}
	default:
		return fmt.Errorf("unknown distribution kind %d", int(d.Kind))
	}
	return nil
}

func (d *Distribution) String() string {
	if d == nil {
		return "<nil distribution>"
	}
	if d.Kind == DistMixture {
		parts := make([]string, len(d.Components))
		for i, c := range d.Components {
			parts[i] = fmt.Sprintf("%g: %s", c.Weight, c.Dist)
		}
		return fmt.Sprintf("Mixture(%s)", strings.Join(parts, ", "))
	}
	params := make([]string, len(d.Params))
	for i, p := range d.Params {
		params[i] = fmt.Sprintf("%g", p)
	}
	return fmt.Sprintf("%s(%s)", d.Kind, strings.Join(params, ", "))
}
