package dims

import (
	"fmt"
	"math"
)

// Kind tags the closed value union of the language.
type Kind int

const (
	KindNumber Kind = iota // dimensioned scalar (Fraction, Currency, Rate, ...)
	KindBool
	KindDistribution
	KindTimeSeries
	KindCohortSeries
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindDistribution:
		return "distribution"
	case KindTimeSeries:
		return "time_series"
	case KindCohortSeries:
		return "cohort_series"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is the closed tagged union every stage of the pipeline manipulates.
// Values are immutable once produced; operations return new values.
//
// Scalars carry their dimension directly, so the named surface-level tags
// (Fraction, Currency, Duration, Rate, Capacity, Count) are views over
// KindNumber distinguished by dimension shape. Count and Capacity scalars
// are integral; constructors enforce this.
type Value struct {
	Kind   Kind
	Num    float64
	Dim    Dimension
	Bool   bool
	Dist   *Distribution
	Series *TimeSeries
	Cohort *CohortSeries
}

// Fraction constructs a dimensionless scalar.
func Fraction(x float64) Value {
	return Value{Kind: KindNumber, Num: x, Dim: Dimensionless()}
}

// Money constructs a currency-dimensioned scalar.
func Money(x float64, code string) Value {
	return Value{Kind: KindNumber, Num: x, Dim: Currency(code)}
}

// Months constructs a duration scalar. Durations are normalized to months
// internally; "quarter" and "year" literals scale on construction.
func Months(x float64) Value {
	return Value{Kind: KindNumber, Num: x, Dim: Duration()}
}

// PerMonth constructs a rate scalar (1/Duration).
func PerMonth(x float64) Value {
	return Value{Kind: KindNumber, Num: x, Dim: Rate()}
}

// Entities constructs a Count scalar. n must be integral.
func Entities(n float64, entity string) (Value, error) {
	if n != math.Trunc(n) {
		return Value{}, fmt.Errorf("count of %s must be integral, got %v", entity, n)
	}
	return Value{Kind: KindNumber, Num: n, Dim: Count(entity)}, nil
}

// Resources constructs a Capacity scalar. n must be integral.
func Resources(n float64, resource string) (Value, error) {
	if n != math.Trunc(n) {
		return Value{}, fmt.Errorf("capacity of %s must be integral, got %v", resource, n)
	}
	return Value{Kind: KindNumber, Num: n, Dim: Capacity(resource)}, nil
}

// Boolean constructs a boolean value.
func Boolean(b bool) Value {
	return Value{Kind: KindBool, Bool: b}
}

// Quantity constructs a scalar with an explicit dimension.
func Quantity(x float64, d Dimension) Value {
	return Value{Kind: KindNumber, Num: x, Dim: d}
}

// Dimension returns the value's dimension. Booleans, series and
// distributions report their element dimension where one exists.
func (v Value) Dimension() Dimension {
	switch v.Kind {
	case KindNumber:
		return v.Dim
	case KindDistribution:
		if v.Dist != nil {
			return v.Dist.Dim
		}
	case KindTimeSeries:
		if v.Series != nil {
			return v.Series.Dim
		}
	case KindCohortSeries:
		if v.Cohort != nil {
			return v.Cohort.Dim
		}
	}
	return Dimensionless()
}

// Add returns v + o. Both operands must be scalars of identical dimension.
func (v Value) Add(o Value) (Value, error) {
	if err := checkScalarPair("+", v, o); err != nil {
		return Value{}, err
	}
	return Value{Kind: KindNumber, Num: v.Num + o.Num, Dim: v.Dim}, nil
}

// Sub returns v - o. Both operands must be scalars of identical dimension.
func (v Value) Sub(o Value) (Value, error) {
	if err := checkScalarPair("-", v, o); err != nil {
		return Value{}, err
	}
	return Value{Kind: KindNumber, Num: v.Num - o.Num, Dim: v.Dim}, nil
}

// Mul returns v * o with multiplicatively composed dimensions.
func (v Value) Mul(o Value) (Value, error) {
	if v.Kind != KindNumber || o.Kind != KindNumber {
		return Value{}, fmt.Errorf("operator * requires scalar operands, got %s and %s", v.Kind, o.Kind)
	}
	d, err := v.Dim.Mul(o.Dim)
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindNumber, Num: v.Num * o.Num, Dim: d}, nil
}

// Div returns v / o with divisively composed dimensions.
// Division by zero is a runtime error, not a NaN.
func (v Value) Div(o Value) (Value, error) {
	if v.Kind != KindNumber || o.Kind != KindNumber {
		return Value{}, fmt.Errorf("operator / requires scalar operands, got %s and %s", v.Kind, o.Kind)
	}
	if o.Num == 0 {
		return Value{}, fmt.Errorf("division by zero")
	}
	d, err := v.Dim.Div(o.Dim)
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindNumber, Num: v.Num / o.Num, Dim: d}, nil
}

// Compare evaluates a comparison operator over two scalars of identical
// dimension and returns a boolean value.
func (v Value) Compare(op string, o Value) (Value, error) {
	if err := checkScalarPair(op, v, o); err != nil {
		return Value{}, err
	}
	var b bool
	switch op {
	case "<":
		b = v.Num < o.Num
	case "<=":
		b = v.Num <= o.Num
	case ">":
		b = v.Num > o.Num
	case ">=":
		b = v.Num >= o.Num
	case "==":
		b = v.Num == o.Num
	case "!=":
		b = v.Num != o.Num
	default:
		return Value{}, fmt.Errorf("unknown comparison operator %q", op)
	}
	return Boolean(b), nil
}

func checkScalarPair(op string, a, b Value) error {
	if a.Kind != KindNumber || b.Kind != KindNumber {
		return fmt.Errorf("operator %s requires scalar operands, got %s and %s", op, a.Kind, b.Kind)
	}
	if !a.Dim.Equal(b.Dim) {
		return fmt.Errorf("operator %s requires identical dimensions: %s vs %s", op, a.Dim, b.Dim)
	}
	return nil
}

func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		if v.Dim.IsDimensionless() {
			return fmt.Sprintf("%g", v.Num)
		}
		return fmt.Sprintf("%g %s", v.Num, v.Dim)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindDistribution:
		return v.Dist.String()
	case KindTimeSeries:
		return fmt.Sprintf("series[%d] %s", v.Series.Len(), v.Series.Dim)
	case KindCohortSeries:
		return fmt.Sprintf("cohorts[%d] %s", len(v.Cohort.Cells), v.Cohort.Dim)
	default:
		return "invalid"
	}
}
