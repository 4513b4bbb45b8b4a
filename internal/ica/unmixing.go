package ica

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/katiepod/DEXICA/internal/matrix"
)

// contrast returns g and g' for the configured contrast function.
func contrast(p Params) (g, gPrime func(float64) float64) {
	switch p.Fun {
	case FunExp:
		g = func(u float64) float64 { return u * math.Exp(-u*u/2) }
		gPrime = func(u float64) float64 { return (1 - u*u) * math.Exp(-u*u/2) }
	default: // logcosh
		a := p.Alpha
		g = func(u float64) float64 { return math.Tanh(a * u) }
		gPrime = func(u float64) float64 {
			t := math.Tanh(a * u)
			return a * (1 - t*t)
		}
	}
	return g, gPrime
}

// estimateUnmixing runs the configured fixed-point algorithm over the
// whitened data z (n×k) and returns the orthogonal unmixing matrix W (k×k,
// one component per row).
func estimateUnmixing(z *matrix.Dense, p Params, rng *rand.Rand) (*matrix.Dense, error) {
	if p.Alg == AlgDeflation {
		return deflation(z, p, rng)
	}
	return parallel(z, p, rng)
}

// fixedPointUpdate computes w⁺ = E[z·g(wᵀz)] − E[g'(wᵀz)]·w for one row w.
func fixedPointUpdate(z *matrix.Dense, w []float64, g, gPrime func(float64) float64) []float64 {
	n, k := z.Rows(), z.Cols()
	zd := z.Data()
	next := make([]float64, k)
	var meanGP float64
	for i := 0; i < n; i++ {
		row := zd[i*k : (i+1)*k]
		var u float64
		for j, wj := range w {
			u += wj * row[j]
		}
		gu := g(u)
		for j := range next {
			next[j] += row[j] * gu
		}
		meanGP += gPrime(u)
	}
	fn := float64(n)
	meanGP /= fn
	for j := range next {
		next[j] = next[j]/fn - meanGP*w[j]
	}
	return next
}

func deflation(z *matrix.Dense, p Params, rng *rand.Rand) (*matrix.Dense, error) {
	k := z.Cols()
	g, gp := contrast(p)
	w, _ := matrix.NewDense(k, k)
	wd := w.Data()

	for comp := 0; comp < k; comp++ {
		wi := randomUnit(k, rng)
		converged := false
		for it := 0; it < p.MaxIt; it++ {
			next := fixedPointUpdate(z, wi, g, gp)
			// Gram-Schmidt against already-extracted components.
			for prev := 0; prev < comp; prev++ {
				pr := wd[prev*k : (prev+1)*k]
				var dot float64
				for j := range next {
					dot += next[j] * pr[j]
				}
				for j := range next {
					next[j] -= dot * pr[j]
				}
			}
			if norm(next) == 0 {
				return nil, fmt.Errorf("component %d collapsed during deflation: %w", comp+1, ErrDegenerate)
			}
			scaleToUnit(next)

			var dot float64
			for j := range next {
				dot += next[j] * wi[j]
			}
			wi = next
			if math.Abs(math.Abs(dot)-1) < p.Tol {
				converged = true
				break
			}
		}
		if !converged {
			return nil, fmt.Errorf("component %d: %w", comp+1, ErrNoConvergence)
		}
		copy(wd[comp*k:(comp+1)*k], wi)
	}
	return w, nil
}

func parallel(z *matrix.Dense, p Params, rng *rand.Rand) (*matrix.Dense, error) {
	k := z.Cols()
	g, gp := contrast(p)

	w, _ := matrix.NewDense(k, k)
	wd := w.Data()
	for i := 0; i < k; i++ {
		copy(wd[i*k:(i+1)*k], randomUnit(k, rng))
	}
	if err := symmetricDecorrelate(w); err != nil {
		return nil, err
	}

	for it := 0; it < p.MaxIt; it++ {
		next, _ := matrix.NewDense(k, k)
		nd := next.Data()
		for i := 0; i < k; i++ {
			copy(nd[i*k:(i+1)*k], fixedPointUpdate(z, wd[i*k:(i+1)*k], g, gp))
		}
		if err := symmetricDecorrelate(next); err != nil {
			return nil, err
		}

		// Convergence: every new row must be (anti)parallel to its
		// predecessor within tolerance.
		worst := 0.0
		for i := 0; i < k; i++ {
			var dot float64
			for j := 0; j < k; j++ {
				dot += nd[i*k+j] * wd[i*k+j]
			}
			if d := math.Abs(math.Abs(dot) - 1); d > worst {
				worst = d
			}
		}
		copy(wd, nd)
		if worst < p.Tol {
			return w, nil
		}
	}
	return nil, ErrNoConvergence
}

// symmetricDecorrelate replaces W with (W·Wᵀ)^(-1/2)·W in place.
func symmetricDecorrelate(w *matrix.Dense) error {
	k := w.Rows()
	wd := w.Data()

	wwt, _ := matrix.NewDense(k, k)
	cd := wwt.Data()
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			var dot float64
			for t := 0; t < k; t++ {
				dot += wd[i*k+t] * wd[j*k+t]
			}
			cd[i*k+j] = dot
			cd[j*k+i] = dot
		}
	}

	vals, vecs := jacobiEigen(wwt)
	vd := vecs.Data()
	for _, v := range vals {
		if v < 1e-12 {
			return fmt.Errorf("unmixing rows collapsed: %w", ErrDegenerate)
		}
	}

	// (WWᵀ)^(-1/2) = E diag(1/sqrt(λ)) Eᵀ, applied to W.
	out := make([]float64, k*k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			var sum float64
			for t := 0; t < k; t++ {
				var inner float64
				for s := 0; s < k; s++ {
					inner += vd[i*k+s] / math.Sqrt(vals[s]) * vd[t*k+s]
				}
				sum += inner * wd[t*k+j]
			}
			out[i*k+j] = sum
		}
	}
	copy(wd, out)
	return nil
}

// mixingMatrix solves A = (SᵀS)⁻¹·Sᵀ·X via the k×k normal equations.
func mixingMatrix(s, x *matrix.Dense) (*matrix.Dense, error) {
	st := s.Transpose()
	sts, err := st.Mul(s)
	if err != nil {
		return nil, err
	}
	stx, err := st.Mul(x)
	if err != nil {
		return nil, err
	}
	inv, err := invertSmall(sts)
	if err != nil {
		return nil, err
	}
	return inv.Mul(stx)
}

// invertSmall inverts a small square matrix by Gauss-Jordan elimination with
// partial pivoting. Component counts keep k modest, so O(k³) is fine.
func invertSmall(m *matrix.Dense) (*matrix.Dense, error) {
	k := m.Rows()
	a := m.Clone().Data()
	inv, _ := matrix.NewDense(k, k)
	id := inv.Data()
	for i := 0; i < k; i++ {
		id[i*k+i] = 1
	}

	for col := 0; col < k; col++ {
		pivot := col
		for r := col + 1; r < k; r++ {
			if math.Abs(a[r*k+col]) > math.Abs(a[pivot*k+col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot*k+col]) < 1e-12 {
			return nil, fmt.Errorf("singular %dx%d system: %w", k, k, ErrDegenerate)
		}
		if pivot != col {
			swapRows(a, k, pivot, col)
			swapRows(id, k, pivot, col)
		}
		p := a[col*k+col]
		for j := 0; j < k; j++ {
			a[col*k+j] /= p
			id[col*k+j] /= p
		}
		for r := 0; r < k; r++ {
			if r == col {
				continue
			}
			f := a[r*k+col]
			if f == 0 {
				continue
			}
			for j := 0; j < k; j++ {
				a[r*k+j] -= f * a[col*k+j]
				id[r*k+j] -= f * id[col*k+j]
			}
		}
	}
	return inv, nil
}

func swapRows(data []float64, cols, a, b int) {
	for j := 0; j < cols; j++ {
		data[a*cols+j], data[b*cols+j] = data[b*cols+j], data[a*cols+j]
	}
}

func randomUnit(k int, rng *rand.Rand) []float64 {
	w := make([]float64, k)
	for {
		for j := range w {
			w[j] = rng.NormFloat64()
		}
		if norm(w) > 0 {
			break
		}
	}
	scaleToUnit(w)
	return w
}

func norm(xs []float64) float64 {
	var ss float64
	for _, x := range xs {
		ss += x * x
	}
	return math.Sqrt(ss)
}

func scaleToUnit(xs []float64) {
	n := norm(xs)
	for j := range xs {
		xs[j] /= n
	}
}
