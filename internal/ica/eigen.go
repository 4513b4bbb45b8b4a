package ica

import (
	"math"

	"github.com/katiepod/DEXICA/internal/matrix"
)

// jacobiEigen computes the full eigendecomposition of a symmetric matrix by
// the cyclic Jacobi rotation method. It returns the eigenvalues and a matrix
// whose columns are the corresponding eigenvectors. The input is not mutated.
//
// Array counts in a compendium are small relative to gene counts, so the
// O(n³) sweeps are cheap compared to the gene-space passes elsewhere.
func jacobiEigen(sym *matrix.Dense) ([]float64, *matrix.Dense) {
	n := sym.Rows()
	a := sym.Clone().Data()

	vecs, _ := matrix.NewDense(n, n)
	v := vecs.Data()
	for i := 0; i < n; i++ {
		v[i*n+i] = 1
	}

	const maxSweeps = 100
	for sweep := 0; sweep < maxSweeps; sweep++ {
		var off, diag float64
		for p := 0; p < n; p++ {
			diag += a[p*n+p] * a[p*n+p]
			for q := p + 1; q < n; q++ {
				off += a[p*n+q] * a[p*n+q]
			}
		}
		// Converged relative to the diagonal mass.
		if off <= 1e-20*(diag+1e-300) {
			break
		}

		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				apq := a[p*n+q]
				if math.Abs(apq) < 1e-18 {
					continue
				}
				// Rotation angle zeroing a[p][q].
				theta := (a[q*n+q] - a[p*n+p]) / (2 * apq)
				t := 1 / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				if theta < 0 {
					t = -t
				}
				c := 1 / math.Sqrt(t*t+1)
				s := t * c

				for i := 0; i < n; i++ {
					aip := a[i*n+p]
					aiq := a[i*n+q]
					a[i*n+p] = c*aip - s*aiq
					a[i*n+q] = s*aip + c*aiq
				}
				for i := 0; i < n; i++ {
					api := a[p*n+i]
					aqi := a[q*n+i]
					a[p*n+i] = c*api - s*aqi
					a[q*n+i] = s*api + c*aqi
				}
				for i := 0; i < n; i++ {
					vip := v[i*n+p]
					viq := v[i*n+q]
					v[i*n+p] = c*vip - s*viq
					v[i*n+q] = s*vip + c*viq
				}
			}
		}
	}

	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		vals[i] = a[i*n+i]
	}
	return vals, vecs
}

// orderDescending sorts eigenvalues in decreasing order and permutes the
// eigenvector columns to match, in place.
func orderDescending(vals []float64, vecs *matrix.Dense) {
	n := len(vals)
	v := vecs.Data()
	// Selection sort keeps the column swaps explicit and deterministic.
	for i := 0; i < n-1; i++ {
		best := i
		for j := i + 1; j < n; j++ {
			if vals[j] > vals[best] {
				best = j
			}
		}
		if best == i {
			continue
		}
		vals[i], vals[best] = vals[best], vals[i]
		for r := 0; r < n; r++ {
			v[r*n+i], v[r*n+best] = v[r*n+best], v[r*n+i]
		}
	}
}
