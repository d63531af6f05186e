// Package stats implements the numeric machinery behind stochastic runs:
// inverse CDFs for the distribution families, Cholesky factorization of
// correlation matrices, Gaussian-copula sampling and order-independent
// ensemble summaries.
//
// Everything here operates on raw float64s; dimensions are attached and
// enforced one layer up, in the engine.
package stats

import (
	"fmt"
	"math"
)

// NormCDF is the standard normal CDF Φ.
func NormCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// Acklam's rational approximation to the inverse standard normal CDF,
// refined with one Halley step against erfc. Relative error after
// refinement is below 1e-15 across (0, 1).
var (
	invNormA = [6]float64{
		-3.969683028665376e+01, 2.209460984245205e+02,
		-2.759285104469687e+02, 1.383577518672690e+02,
		-3.066479806614716e+01, 2.506628277459239e+00,
	}
	invNormB = [5]float64{
		-5.447609879822406e+01, 1.615858368580409e+02,
		-1.556989798598866e+02, 6.680131188771972e+01,
		-1.328068155288572e+01,
	}
	invNormC = [6]float64{
		-7.784894002430293e-03, -3.223964580411365e-01,
		-2.400758277161838e+00, -2.549732539343734e+00,
		4.374664141464968e+00, 2.938163982698783e+00,
	}
	invNormD = [4]float64{
		7.784695709041462e-03, 3.224671290700398e-01,
		2.445134137142996e+00, 3.754408661907416e+00,
	}
)

// InvNorm is the inverse standard normal CDF Φ⁻¹. It errors on inputs
// outside (0, 1) so callers can surface them as runtime errors rather
// than silently producing infinities.
func InvNorm(p float64) (float64, error) {
	if !(p > 0 && p < 1) {
		return 0, fmt.Errorf("inverse normal CDF input %v outside (0, 1)", p)
	}
	const low, high = 0.02425, 1 - 0.02425

	var x float64
	switch {
	case p < low:
		q := math.Sqrt(-2 * math.Log(p))
		x = (((((invNormC[0]*q+invNormC[1])*q+invNormC[2])*q+invNormC[3])*q+invNormC[4])*q + invNormC[5]) /
			((((invNormD[0]*q+invNormD[1])*q+invNormD[2])*q+invNormD[3])*q + 1)
	case p > high:
		q := math.Sqrt(-2 * math.Log(1-p))
		x = -(((((invNormC[0]*q+invNormC[1])*q+invNormC[2])*q+invNormC[3])*q+invNormC[4])*q + invNormC[5]) /
			((((invNormD[0]*q+invNormD[1])*q+invNormD[2])*q+invNormD[3])*q + 1)
	default:
		q := p - 0.5
		r := q * q
		x = (((((invNormA[0]*r+invNormA[1])*r+invNormA[2])*r+invNormA[3])*r+invNormA[4])*r + invNormA[5]) * q /
			(((((invNormB[0]*r+invNormB[1])*r+invNormB[2])*r+invNormB[3])*r+invNormB[4])*r + 1)
	}

	// Halley refinement.
	e := NormCDF(x) - p
	u := e * math.Sqrt(2*math.Pi) * math.Exp(x*x/2)
	x -= u / (1 + x*u/2)
	return x, nil
}
