package stats

import (
	"fmt"
	"math"
)

// Cholesky computes the lower-triangular factor L of a symmetric
// positive semi-definite matrix, C = L·Lᵗ. Correlation matrices with a
// perfectly correlated pair are semi-definite rather than definite, so
// a pivot that is merely zero (within tolerance) is accepted and its
// column zeroed; a genuinely negative pivot means the declared
// correlations are inconsistent and is an error.
func Cholesky(c [][]float64) ([][]float64, error) {
	n := len(c)
	for i, row := range c {
		if len(row) != n {
			return nil, fmt.Errorf("matrix is not square: row %d has %d entries, want %d", i, len(row), n)
		}
	}
	const tol = 1e-10
	l := make([][]float64, n)
	for i := range l {
		l[i] = make([]float64, n)
	}
	for j := 0; j < n; j++ {
		sum := c[j][j]
		for k := 0; k < j; k++ {
			sum -= l[j][k] * l[j][k]
		}
		switch {
		case sum < -tol:
			return nil, fmt.Errorf("correlation matrix is not positive semi-definite (pivot %d is %v)", j, sum)
		case sum < tol:
			// A zero pivot is only consistent when the residual of every
			// entry below it is zero too; a nonzero residual there means
			// the matrix is indefinite, not merely semi-definite.
			for i := j + 1; i < n; i++ {
				s := c[i][j]
				for k := 0; k < j; k++ {
					s -= l[i][k] * l[j][k]
				}
				if math.Abs(s) > tol {
					return nil, fmt.Errorf(
						"correlation matrix is not positive semi-definite (column %d residual %v)", j, s)
				}
			}
			l[j][j] = 0
			continue
		}
		l[j][j] = math.Sqrt(sum)
		for i := j + 1; i < n; i++ {
			s := c[i][j]
			for k := 0; k < j; k++ {
				s -= l[i][k] * l[j][k]
			}
			l[i][j] = s / l[j][j]
		}
	}
	return l, nil
}
