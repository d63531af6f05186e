//go:build property
// +build property

// Property-based tests for the dimension algebra. Run with:
//
//	go test -tags property ./internal/dims
package dims_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tallylang/tally/internal/dims"
)

// genAtomic picks one atomic dimension. Exponents beyond ±1 are
// unrepresentable, so products of distinct bases are the whole space.
func genAtomic() gopter.Gen {
	return gen.OneConstOf(
		dims.Currency("USD"),
		dims.Currency("EUR"),
		dims.Duration(),
		dims.Count("Customer"),
		dims.Capacity("Server"),
		dims.Dimensionless(),
	)
}

func TestMulDivRoundtrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("d*e/e == d whenever d*e is representable", prop.ForAll(
		func(d, e dims.Dimension) bool {
			prod, err := d.Mul(e)
			if err != nil {
				return true // unrepresentable, nothing to check
			}
			back, err := prod.Div(e)
			if err != nil {
				return false
			}
			return back.Equal(d)
		},
		genAtomic(),
		genAtomic(),
	))

	properties.Property("multiplication is commutative", prop.ForAll(
		func(d, e dims.Dimension) bool {
			ab, errAB := d.Mul(e)
			ba, errBA := e.Mul(d)
			if (errAB != nil) != (errBA != nil) {
				return false
			}
			if errAB != nil {
				return true
			}
			return ab.Equal(ba)
		},
		genAtomic(),
		genAtomic(),
	))

	properties.TestingRun(t)
}

func TestStringParseRoundtrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("ParseDimension(d.String()) == d", prop.ForAll(
		func(d, e dims.Dimension) bool {
			composed, err := d.Div(e)
			if err != nil {
				return true
			}
			parsed, err := dims.ParseDimension(composed.String())
			if err != nil {
				return false
			}
			return parsed.Equal(composed)
		},
		genAtomic(),
		genAtomic(),
	))

	properties.TestingRun(t)
}

func TestValueArithmeticPreservesDimensions(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("v*w has dimension dim(v)*dim(w)", prop.ForAll(
		func(d, e dims.Dimension, x, y float64) bool {
			v := dims.Quantity(x, d)
			w := dims.Quantity(y, e)
			prod, err := v.Mul(w)
			wantDim, dimErr := d.Mul(e)
			if (err != nil) != (dimErr != nil) {
				return false
			}
			if err != nil {
				return true
			}
			return prod.Dimension().Equal(wantDim) && prod.Num == x*y
		},
		genAtomic(),
		genAtomic(),
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(-1e6, 1e6),
	))

	properties.Property("v+w requires and preserves a shared dimension", prop.ForAll(
		func(d, e dims.Dimension, x, y float64) bool {
			v := dims.Quantity(x, d)
			w := dims.Quantity(y, e)
			sum, err := v.Add(w)
			if !d.Equal(e) {
				return err != nil
			}
			if err != nil {
				return false
			}
			return sum.Dimension().Equal(d) && sum.Num == x+y
		},
		genAtomic(),
		genAtomic(),
		gen.Float64Range(-1e6, 1e6),
		gen.Float64Range(-1e6, 1e6),
	))

	properties.TestingRun(t)
}
