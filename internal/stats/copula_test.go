package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallylang/tally/internal/dims"
)

func TestCholeskyIdentity(t *testing.T) {
	l, err := Cholesky([][]float64{{1, 0}, {0, 1}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, l)
}

func TestCholeskyReconstructs(t *testing.T) {
	c := [][]float64{
		{1, -0.4, 0.2},
		{-0.4, 1, 0.1},
		{0.2, 0.1, 1},
	}
	l, err := Cholesky(c)
	require.NoError(t, err)
	for i := range c {
		for j := range c {
			got := 0.0
			for k := range c {
				got += l[i][k] * l[j][k]
			}
			assert.InDelta(t, c[i][j], got, 1e-12, "(%d,%d)", i, j)
		}
	}
}

func TestCholeskyAcceptsSemiDefinite(t *testing.T) {
	// Perfect correlation is rank-deficient but still valid.
	l, err := Cholesky([][]float64{{1, 1}, {1, 1}})
	require.NoError(t, err)
	assert.InDelta(t, 1, l[1][0], 1e-12)
	assert.Equal(t, 0.0, l[1][1])
}

func TestCholeskyRejectsIndefinite(t *testing.T) {
	// |r| > 1 between two of three variables is inconsistent.
	_, err := Cholesky([][]float64{
		{1, 0.9, -0.9},
		{0.9, 1, 0.9},
		{-0.9, 0.9, 1},
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "positive semi-definite")
}

func TestCholeskyRejectsIndefiniteWithZeroPivot(t *testing.T) {
	// The second pivot is exactly zero, yet the column below it carries a
	// nonzero residual: indefinite, not rank-deficient.
	_, err := Cholesky([][]float64{
		{1, 1, 0},
		{1, 1, 0.5},
		{0, 0.5, 1},
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "positive semi-definite")
}

func TestCholeskyRejectsNonSquare(t *testing.T) {
	_, err := Cholesky([][]float64{{1, 0}, {0}})
	require.Error(t, err)
}

func TestCopulaPreservesCorrelation(t *testing.T) {
	const n = 20000
	target := -0.4
	cop, err := NewCopula(
		[][]float64{{1, target}, {target, 1}},
		[]*dims.Distribution{
			dist(dims.DistNormal, 0, 1),
			dist(dims.DistNormal, 120, 15),
		},
	)
	require.NoError(t, err)

	rng := ReplicateRand(42, 0)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := cop.Draw(rng)
		require.NoError(t, err)
		xs[i], ys[i] = v[0], v[1]
	}
	assert.InDelta(t, target, pearson(xs, ys), 0.02)
}

func TestCopulaMarginalsSurviveCorrelation(t *testing.T) {
	const n = 20000
	cop, err := NewCopula(
		[][]float64{{1, 0.6}, {0.6, 1}},
		[]*dims.Distribution{
			dist(dims.DistBeta, 2, 8),
			dist(dims.DistUniform, 0, 1),
		},
	)
	require.NoError(t, err)

	rng := ReplicateRand(7, 3)
	sum := 0.0
	for i := 0; i < n; i++ {
		v, err := cop.Draw(rng)
		require.NoError(t, err)
		require.True(t, v[0] > 0 && v[0] < 1, "Beta sample out of support: %v", v[0])
		sum += v[0]
	}
	// Beta(2,8) mean is 0.2 regardless of the copula.
	assert.InDelta(t, 0.2, sum/n, 0.01)
}

func TestDrawOneMatchesDistribution(t *testing.T) {
	const n = 20000
	d := dist(dims.DistNormal, 50, 10)
	rng := ReplicateRand(1, 1)
	sum, sumSq := 0.0, 0.0
	for i := 0; i < n; i++ {
		v, err := DrawOne(d, rng)
		require.NoError(t, err)
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	assert.InDelta(t, 50, mean, 0.5)
	assert.InDelta(t, 10, math.Sqrt(sumSq/n-mean*mean), 0.5)
}

func TestReplicateRandIsDeterministicAndIndependent(t *testing.T) {
	a1 := ReplicateRand(99, 4).Uint64()
	a2 := ReplicateRand(99, 4).Uint64()
	b := ReplicateRand(99, 5).Uint64()
	c := ReplicateRand(100, 4).Uint64()

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1, b)
	assert.NotEqual(t, a1, c)
}

func pearson(x, y []float64) float64 {
	n := float64(len(x))
	var sx, sy, sxx, syy, sxy float64
	for i := range x {
		sx += x[i]
		sy += y[i]
		sxx += x[i] * x[i]
		syy += y[i] * y[i]
		sxy += x[i] * y[i]
	}
	cov := sxy/n - sx/n*sy/n
	return cov / math.Sqrt((sxx/n-sx/n*sx/n)*(syy/n-sy/n*sy/n))
}
