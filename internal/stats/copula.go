package stats

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand/v2"

	"github.com/tallylang/tally/internal/dims"
)

// Copula draws correlated samples under a Gaussian copula: independent
// standard normals are mixed through the Cholesky factor of the
// correlation matrix, mapped to uniforms through Φ, and pushed through
// each variable's own inverse CDF. Rank correlation survives the
// monotone marginal transforms.
//
// A Copula is immutable after construction and safe to share across
// replicate goroutines; all mutable randomness lives in the caller's
// *rand.Rand.
type Copula struct {
	l     [][]float64
	dists []*dims.Distribution
}

// NewCopula factors the correlation matrix and binds the marginal
// distributions, in matrix order.
func NewCopula(corr [][]float64, dists []*dims.Distribution) (*Copula, error) {
	l, err := Cholesky(corr)
	if err != nil {
		return nil, err
	}
	return &Copula{l: l, dists: dists}, nil
}

// Draw produces one correlated sample vector, one entry per bound
// distribution, advancing rng by exactly len(dists) normal draws.
func (c *Copula) Draw(rng *rand.Rand) ([]float64, error) {
	n := len(c.dists)
	z := make([]float64, n)
	for i := range z {
		z[i] = rng.NormFloat64()
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		x := 0.0
		for k := 0; k <= i; k++ {
			x += c.l[i][k] * z[k]
		}
		u := clampProb(NormCDF(x))
		v, err := Quantile(c.dists[i], u)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// DrawOne samples a single uncorrelated distribution through the same
// inverse-CDF path the copula uses.
func DrawOne(d *dims.Distribution, rng *rand.Rand) (float64, error) {
	u := clampProb(NormCDF(rng.NormFloat64()))
	return Quantile(d, u)
}

// clampProb keeps a probability strictly inside (0, 1); Φ underflows to
// exactly 0 or 1 for |x| ≳ 38, which would poison the inverse CDFs.
func clampProb(u float64) float64 {
	return math.Min(math.Max(u, math.SmallestNonzeroFloat64), 1-1e-16)
}

// ReplicateRand derives the PRNG for Monte Carlo replicate i from the
// base seed. The derivation hashes (seed, i) so replicates are pairwise
// independent and individually re-runnable: replaying replicate i needs
// only the base seed and i, never the preceding replicates' draws.
func ReplicateRand(seed uint64, replicate int) *rand.Rand {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], seed)
	binary.BigEndian.PutUint64(buf[8:], uint64(replicate))
	sum := sha256.Sum256(buf[:])
	return rand.New(rand.NewPCG(
		binary.BigEndian.Uint64(sum[:8]),
		binary.BigEndian.Uint64(sum[8:16]),
	))
}
