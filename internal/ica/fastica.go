// Package ica implements the FastICA kernel used by the prediction stage:
// whitening of the array-space covariance followed by fixed-point estimation
// of an orthogonal unmixing matrix, with deflation and parallel (symmetric
// decorrelation) variants and logcosh/exp contrast functions.
//
// Randomness is strictly caller-supplied: the only stochastic input is the
// *rand.Rand used to draw the initial unmixing matrix, so two runs with the
// same data, parameters, and seed produce identical results.
package ica

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/katiepod/DEXICA/internal/matrix"
)

// Algorithm names accepted by Params.Alg.
const (
	AlgParallel  = "parallel"
	AlgDeflation = "deflation"
)

// Contrast function names accepted by Params.Fun.
const (
	FunLogcosh = "logcosh"
	FunExp     = "exp"
)

var (
	// ErrNoConvergence is returned when the fixed-point iteration does not
	// reach tolerance within MaxIt iterations.
	ErrNoConvergence = errors.New("ica: did not converge within maxit iterations")

	// ErrBadParams is returned for out-of-range kernel parameters.
	ErrBadParams = errors.New("ica: invalid kernel parameters")

	// ErrDegenerate is returned when the input covariance is rank-deficient
	// below the requested component count.
	ErrDegenerate = errors.New("ica: covariance is degenerate for requested components")
)

// Params are the recognized kernel parameters. They mirror the sweep's grid
// axes one to one; unknown options do not exist at this boundary.
type Params struct {
	NComp int
	Alg   string
	Fun   string
	Alpha float64
	MaxIt int
	Tol   float64
}

func (p Params) validate(rows, cols int) error {
	if p.NComp < 1 || p.NComp > cols || p.NComp > rows {
		return fmt.Errorf("n.comp %d for %dx%d input: %w", p.NComp, rows, cols, ErrBadParams)
	}
	if p.Alg != AlgParallel && p.Alg != AlgDeflation {
		return fmt.Errorf("alg.typ %q: %w", p.Alg, ErrBadParams)
	}
	if p.Fun != FunLogcosh && p.Fun != FunExp {
		return fmt.Errorf("fun %q: %w", p.Fun, ErrBadParams)
	}
	if p.Alpha < 1 || p.Alpha > 2 {
		return fmt.Errorf("alpha %g not in [1,2]: %w", p.Alpha, ErrBadParams)
	}
	if p.MaxIt < 1 {
		return fmt.Errorf("maxit %d: %w", p.MaxIt, ErrBadParams)
	}
	if p.Tol <= 0 {
		return fmt.Errorf("tol %g: %w", p.Tol, ErrBadParams)
	}
	return nil
}

// Predict decomposes x (genes × arrays) into a source matrix S
// (genes × NComp) and a mixing matrix A (NComp × arrays) such that the
// centered input is approximately S·A. The input is not mutated.
func Predict(x *matrix.Dense, p Params, rng *rand.Rand) (s, a *matrix.Dense, err error) {
	g, m := x.Rows(), x.Cols()
	if err := p.validate(g, m); err != nil {
		return nil, nil, err
	}
	k := p.NComp

	// Center columns on a working copy.
	xc := x.Clone()
	centerColumns(xc)

	// Whiten: eigendecompose the m×m column covariance, project onto the
	// top-k eigenvectors, and rescale so the projected columns have unit
	// variance.
	cov := columnCovariance(xc)
	vals, vecs := jacobiEigen(cov)
	orderDescending(vals, vecs)
	for i := 0; i < k; i++ {
		if vals[i] < 1e-12 {
			return nil, nil, fmt.Errorf("eigenvalue %d is %g: %w", i+1, vals[i], ErrDegenerate)
		}
	}
	z := whiten(xc, vals, vecs, k) // g×k, (1/(g-1)) zᵀz ≈ I

	w, err := estimateUnmixing(z, p, rng)
	if err != nil {
		return nil, nil, err
	}

	// S = Z·Wᵀ; each source column has unit variance since Z is white and
	// the rows of W are orthonormal.
	s, err = z.Mul(w.Transpose())
	if err != nil {
		return nil, nil, err
	}
	s.RowNames = append([]string(nil), x.RowNames...)
	s.ColNames = componentNames(k)

	// A = (SᵀS)⁻¹ Sᵀ Xc, the least-squares mixing matrix.
	a, err = mixingMatrix(s, xc)
	if err != nil {
		return nil, nil, err
	}
	a.RowNames = componentNames(k)
	a.ColNames = append([]string(nil), x.ColNames...)
	return s, a, nil
}

func componentNames(k int) []string {
	names := make([]string, k)
	for i := range names {
		names[i] = fmt.Sprintf("IC%d", i+1)
	}
	return names
}

func centerColumns(m *matrix.Dense) {
	rows, cols := m.Rows(), m.Cols()
	data := m.Data()
	for j := 0; j < cols; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			sum += data[i*cols+j]
		}
		mu := sum / float64(rows)
		for i := 0; i < rows; i++ {
			data[i*cols+j] -= mu
		}
	}
}

// columnCovariance returns (1/(n-1)) XᵀX for a column-centered X.
func columnCovariance(x *matrix.Dense) *matrix.Dense {
	n, m := x.Rows(), x.Cols()
	data := x.Data()
	cov, _ := matrix.NewDense(m, m)
	cd := cov.Data()
	for i := 0; i < n; i++ {
		row := data[i*m : (i+1)*m]
		for a := 0; a < m; a++ {
			va := row[a]
			if va == 0 {
				continue
			}
			for b := a; b < m; b++ {
				cd[a*m+b] += va * row[b]
			}
		}
	}
	norm := 1.0 / float64(n-1)
	for a := 0; a < m; a++ {
		for b := a; b < m; b++ {
			v := cd[a*m+b] * norm
			cd[a*m+b] = v
			cd[b*m+a] = v
		}
	}
	return cov
}

// whiten projects the centered data onto the top-k eigenvectors and scales
// each projection by 1/sqrt(eigenvalue).
func whiten(xc *matrix.Dense, vals []float64, vecs *matrix.Dense, k int) *matrix.Dense {
	n, m := xc.Rows(), xc.Cols()
	xd := xc.Data()
	vd := vecs.Data()
	z, _ := matrix.NewDense(n, k)
	zd := z.Data()
	inv := make([]float64, k)
	for j := 0; j < k; j++ {
		inv[j] = 1 / math.Sqrt(vals[j])
	}
	for i := 0; i < n; i++ {
		row := xd[i*m : (i+1)*m]
		for j := 0; j < k; j++ {
			var dot float64
			for t := 0; t < m; t++ {
				dot += row[t] * vd[t*m+j]
			}
			zd[i*k+j] = dot * inv[j]
		}
	}
	return z
}
