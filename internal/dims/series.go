package dims

import "fmt"

// TimeSeries maps discrete step indices 0..T to scalar values sharing a
// single dimension. The backing slice is append-only during a run; indices
// beyond the last written step are absent, not zero.
type TimeSeries struct {
	Dim    Dimension
	values []float64
	set    []bool
}

// NewTimeSeries creates an empty series with the given element dimension
// and capacity hint.
func NewTimeSeries(dim Dimension, horizon int) *TimeSeries {
	return &TimeSeries{
		Dim:    dim,
		values: make([]float64, 0, horizon+1),
		set:    make([]bool, 0, horizon+1),
	}
}

// Set writes step t. Steps may be written out of order (initial conditions
// land before the recurrence fills the gaps) but never rewritten.
func (s *TimeSeries) Set(t int, num float64) error {
	if t < 0 {
		return fmt.Errorf("time index %d is negative", t)
	}
	for len(s.values) <= t {
		s.values = append(s.values, 0)
		s.set = append(s.set, false)
	}
	if s.set[t] {
		return fmt.Errorf("time index %d already written", t)
	}
	s.values[t] = num
	s.set[t] = true
	return nil
}

// Override rewrites an already-written step. Normal evaluation is
// write-once; only policy actions, which by contract overwrite the
// current step after it has been evaluated, may use this.
func (s *TimeSeries) Override(t int, num float64) error {
	if !s.Has(t) {
		return fmt.Errorf("time index %d not yet evaluated", t)
	}
	s.values[t] = num
	return nil
}

// Truncate discards steps >= t. Used when a fatal constraint stops a run
// and the violating step's values are dropped from the partial results.
func (s *TimeSeries) Truncate(t int) {
	if t < 0 || t >= len(s.values) {
		return
	}
	s.values = s.values[:t]
	s.set = s.set[:t]
}

// At returns the value at step t.
func (s *TimeSeries) At(t int) (Value, error) {
	if t < 0 || t >= len(s.values) || !s.set[t] {
		return Value{}, fmt.Errorf("time index %d not yet evaluated", t)
	}
	return Value{Kind: KindNumber, Num: s.values[t], Dim: s.Dim}, nil
}

// Has reports whether step t has been written.
func (s *TimeSeries) Has(t int) bool {
	return t >= 0 && t < len(s.values) && s.set[t]
}

// Len returns the number of allocated steps (written or not).
func (s *TimeSeries) Len() int { return len(s.values) }

// Floats returns the written prefix of the series as a plain slice.
// Used when serializing run artifacts.
func (s *TimeSeries) Floats() []float64 {
	out := make([]float64, 0, len(s.values))
	for i, v := range s.values {
		if !s.set[i] {
			break
		}
		out = append(out, v)
	}
	return out
}

// CohortKey addresses one cell of a cohort series: the step at which the
// cohort started and its age in steps.
type CohortKey struct {
	Start int
	Age   int
}

// CohortSeries maps (start, age) cells to scalar values of one dimension.
type CohortSeries struct {
	Dim   Dimension
	Cells map[CohortKey]float64
}

// NewCohortSeries creates an empty cohort series.
func NewCohortSeries(dim Dimension) *CohortSeries {
	return &CohortSeries{Dim: dim, Cells: make(map[CohortKey]float64)}
}

// Set writes one cohort cell. Cells are write-once.
func (c *CohortSeries) Set(start, age int, num float64) error {
	k := CohortKey{Start: start, Age: age}
	if _, ok := c.Cells[k]; ok {
		return fmt.Errorf("cohort cell (start=%d, age=%d) already written", start, age)
	}
	c.Cells[k] = num
	return nil
}

// At returns the value at (start, age).
func (c *CohortSeries) At(start, age int) (Value, error) {
	v, ok := c.Cells[CohortKey{Start: start, Age: age}]
	if !ok {
		return Value{}, fmt.Errorf("cohort cell (start=%d, age=%d) not present", start, age)
	}
	return Value{Kind: KindNumber, Num: v, Dim: c.Dim}, nil
}
