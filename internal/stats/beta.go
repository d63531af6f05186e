package stats

import (
	"fmt"
	"math"
)

// regIncBeta is the regularized incomplete beta function I_x(a, b),
// evaluated with the Lentz continued fraction. Used only for the Beta
// quantile; parameters are already validated positive.
func regIncBeta(a, b, x float64) float64 {
	switch {
	case x <= 0:
		return 0
	case x >= 1:
		return 1
	}
	lbeta, _ := math.Lgamma(a + b)
	lga, _ := math.Lgamma(a)
	lgb, _ := math.Lgamma(b)
	front := math.Exp(lbeta - lga - lgb + a*math.Log(x) + b*math.Log(1-x))

	// The continued fraction converges fastest on x < (a+1)/(a+b+2);
	// use the symmetry I_x(a,b) = 1 - I_{1-x}(b,a) otherwise.
	if x >= (a+1)/(a+b+2) {
		return 1 - regIncBeta(b, a, 1-x)
	}
	return front * betaCF(a, b, x) / a
}

func betaCF(a, b, x float64) float64 {
	const tiny = 1e-30
	c, d := 1.0, 1.0-(a+b)*x/(a+1)
	if math.Abs(d) < tiny {
		d = tiny
	}
	d = 1 / d
	f := d
	for m := 1; m <= 200; m++ {
		fm := float64(m)
		// Even step.
		num := fm * (b - fm) * x / ((a + 2*fm - 1) * (a + 2*fm))
		d = 1 + num*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + num/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		f *= d * c
		// Odd step.
		num = -(a + fm) * (a + b + fm) * x / ((a + 2*fm) * (a + 2*fm + 1))
		d = 1 + num*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + num/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		delta := d * c
		f *= delta
		if math.Abs(delta-1) < 1e-15 {
			return f
		}
	}
	return f
}

// betaQuantile inverts I_x(a, b) = p by bisection with Newton
// acceleration. The CDF is strictly increasing on (0, 1), so bisection
// alone would converge; Newton steps are kept only when they stay
// inside the current bracket.
func betaQuantile(a, b, p float64) (float64, error) {
	if !(p > 0 && p < 1) {
		return 0, fmt.Errorf("Beta quantile input %v outside (0, 1)", p)
	}
	lo, hi := 0.0, 1.0
	x := a / (a + b)
	lbeta, _ := math.Lgamma(a + b)
	lga, _ := math.Lgamma(a)
	lgb, _ := math.Lgamma(b)
	for i := 0; i < 200; i++ {
		f := regIncBeta(a, b, x) - p
		if f > 0 {
			hi = x
		} else {
			lo = x
		}
		if hi-lo < 1e-14 {
			break
		}
		// Density at x, guarded against under/overflow near the edges.
		pdf := math.Exp(lbeta - lga - lgb + (a-1)*math.Log(x) + (b-1)*math.Log(1-x))
		next := x - f/pdf
		if !(next > lo && next < hi) || math.IsNaN(next) {
			next = (lo + hi) / 2
		}
		if math.Abs(next-x) < 1e-15 {
			x = next
			break
		}
		x = next
	}
	return x, nil
}
