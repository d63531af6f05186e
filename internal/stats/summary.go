package stats

import (
	"fmt"
	"math"
	"sort"
)

// Summary is the order-independent aggregate of one variable's samples
// across Monte Carlo replicates. JSON field order matters for the
// canonical run artifact, so fields are tagged explicitly.
type Summary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P10    float64 `json:"p10"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
}

// Summarize reduces a multiset of per-replicate values. The input slice
// is copied before sorting, so callers may pass shared buffers; the
// result depends only on the multiset, never on arrival order.
func Summarize(samples []float64) (Summary, error) {
	if len(samples) == 0 {
		return Summary{}, fmt.Errorf("cannot summarize zero samples")
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, s := range sorted {
		sum += s
	}
	med := percentileSorted(sorted, 0.50)
	return Summary{
		Mean:   sum / float64(len(sorted)),
		Median: med,
		P10:    percentileSorted(sorted, 0.10),
		P50:    med,
		P90:    percentileSorted(sorted, 0.90),
	}, nil
}

// Percentile returns the p-quantile (p ∈ [0, 1]) of the multiset using
// linear interpolation between closest ranks.
func Percentile(samples []float64, p float64) (float64, error) {
	if len(samples) == 0 {
		return 0, fmt.Errorf("cannot take a percentile of zero samples")
	}
	if p < 0 || p > 1 {
		return 0, fmt.Errorf("percentile %v outside [0, 1]", p)
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p), nil
}

func percentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
