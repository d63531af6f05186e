package typecheck

import (
	"fmt"

	"github.com/tallylang/tally/internal/ast"
	"github.com/tallylang/tally/internal/diag"
	"github.com/tallylang/tally/internal/dims"
)

// synthDistribution types a distribution constructor call and returns
// Distribution<T>, with T inferred from the parameter types per family:
//
//	Normal(mean, stddev)        T = dim(mean), stddev checked against it
//	Uniform(low, high)          T = dim(low), high checked against it
//	Triangular(low, mode, high) T = dim(low), rest checked against it
//	Pareto(scale, shape)        T = dim(scale), shape dimensionless
//	Beta(alpha, beta)           T = Fraction, both parameters dimensionless
//	LogNormal(mu, sigma)        T = Fraction, both parameters dimensionless
//	Mixture(w1, d1, w2, d2, …)  T = common component type, weights dimensionless
//
// Distribution parameters must be constant: literals, arithmetic over
// literals, or references to (non-distribution) parameters. References to
// variables would make the marginal itself time-dependent, which the
// sampler does not support.
func (c *checker) synthDistribution(e *ast.Expr, path string) (Type, bool) {
	kind, _ := dims.DistKindFromName(e.Fn)

	if kind != dims.DistMixture {
		for i, arg := range e.Args {
			c.checkDistArgConstant(arg, fmt.Sprintf("%s.args[%d]", path, i))
		}
	}

	switch kind {
	case dims.DistBeta, dims.DistLogNormal:
		if !c.requireArgCount(e, 2, path) {
			return Type{}, false
		}
		ok1 := c.check(e.Args[0], Scalar(dims.Dimensionless()), path+".args[0]")
		ok2 := c.check(e.Args[1], Scalar(dims.Dimensionless()), path+".args[1]")
		if !ok1 || !ok2 {
			return Type{}, false
		}
		return DistributionOf(dims.Dimensionless()), true

	case dims.DistNormal, dims.DistUniform:
		if !c.requireArgCount(e, 2, path) {
			return Type{}, false
		}
		return c.synthLeadingArgFamily(e, path)

	case dims.DistTriangular:
		if !c.requireArgCount(e, 3, path) {
			return Type{}, false
		}
		return c.synthLeadingArgFamily(e, path)

	case dims.DistPareto:
		if !c.requireArgCount(e, 2, path) {
			return Type{}, false
		}
		t, ok := c.synth(e.Args[0], path+".args[0]")
		if !ok || t.Kind != TypeScalar {
			return Type{}, false
		}
		if !c.check(e.Args[1], Scalar(dims.Dimensionless()), path+".args[1]") {
			return Type{}, false
		}
		return DistributionOf(t.Dim), true

	case dims.DistMixture:
		return c.synthMixture(e, path)

	default:
		c.errf(diag.CodeTypeMismatch, path, "unknown distribution %q", e.Fn)
		return Type{}, false
	}
}

// synthLeadingArgFamily handles families where the first parameter fixes T
// and every subsequent parameter shares it.
func (c *checker) synthLeadingArgFamily(e *ast.Expr, path string) (Type, bool) {
	t, ok := c.synth(e.Args[0], path+".args[0]")
	if !ok {
		return Type{}, false
	}
	if t.Kind != TypeScalar {
		c.errf(diag.CodeTypeMismatch, path+".args[0]", "%s parameter must be scalar, got %s", e.Fn, t)
		return Type{}, false
	}
	for i := 1; i < len(e.Args); i++ {
		if !c.check(e.Args[i], t, fmt.Sprintf("%s.args[%d]", path, i)) {
			return Type{}, false
		}
	}
	return DistributionOf(t.Dim), true
}

// synthMixture types Mixture(w1, d1, w2, d2, …): alternating dimensionless
// weights and component constructors sharing one element type.
func (c *checker) synthMixture(e *ast.Expr, path string) (Type, bool) {
	if len(e.Args) == 0 || len(e.Args)%2 != 0 {
		c.errf(diag.CodeTypeMismatch, path, "Mixture requires alternating (weight, distribution) pairs")
		return Type{}, false
	}
	var elem *Type
	for i := 0; i < len(e.Args); i += 2 {
		wpath := fmt.Sprintf("%s.args[%d]", path, i)
		dpath := fmt.Sprintf("%s.args[%d]", path, i+1)
		c.checkDistArgConstant(e.Args[i], wpath)
		if !c.check(e.Args[i], Scalar(dims.Dimensionless()), wpath) {
			return Type{}, false
		}
		comp := e.Args[i+1]
		if comp == nil || comp.Kind != ast.ExprCall {
			c.errf(diag.CodeTypeMismatch, dpath, "Mixture component must be a distribution constructor")
			return Type{}, false
		}
		if k, isDist := dims.DistKindFromName(comp.Fn); !isDist || k == dims.DistMixture {
			c.errf(diag.CodeTypeMismatch, dpath, "Mixture component must be a non-mixture distribution constructor")
			return Type{}, false
		}
		t, ok := c.synthDistribution(comp, dpath)
		if !ok {
			return Type{}, false
		}
		if elem == nil {
			et := Scalar(t.Dim)
			elem = &et
		} else if !elem.Dim.Equal(t.Dim) {
			c.errf(diag.CodeDimensionMismatch, dpath,
				"Mixture components disagree on dimension: %s vs %s", elem.Dim, t.Dim)
			return Type{}, false
		}
	}
	return DistributionOf(elem.Dim), true
}

func (c *checker) requireArgCount(e *ast.Expr, n int, path string) bool {
	if len(e.Args) != n {
		c.errf(diag.CodeTypeMismatch, path, "%s requires exactly %d parameters, got %d", e.Fn, n, len(e.Args))
		return false
	}
	return true
}

// checkDistArgConstant rejects references to anything but parameters
// inside distribution arguments.
func (c *checker) checkDistArgConstant(arg *ast.Expr, path string) {
	if arg == nil {
		return
	}
	for _, name := range arg.Refs() {
		if !c.params[name] {
			c.errf(diag.CodeTypeMismatch, path,
				"distribution parameters must be constant; %q is not a parameter", name)
			continue
		}
		if t, ok := c.env.Lookup(name); ok && t.Kind == TypeDistribution {
			c.errf(diag.CodeTypeMismatch, path,
				"distribution parameters cannot reference the stochastic parameter %q", name)
		}
	}
}
