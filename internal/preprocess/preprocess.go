// Package preprocess implements the compendium preprocessing transform:
// column centering, column scaling, and optional row normalization. The
// transform never mutates its input; the pipeline always works on a copy.
package preprocess

import (
	"math"

	"github.com/katiepod/DEXICA/internal/matrix"
)

// Options selects which transforms to apply, in the fixed order
// row-normalize, then center, then scale.
type Options struct {
	CenterCols bool
	ScaleCols  bool
	RowNorm    bool
}

// Run applies the selected transforms to a copy of m and returns the copy.
func Run(m *matrix.Dense, opts Options) *matrix.Dense {
	out := m.Clone()
	if opts.RowNorm {
		normalizeRows(out)
	}
	if opts.CenterCols || opts.ScaleCols {
		adjustColumns(out, opts.CenterCols, opts.ScaleCols)
	}
	return out
}

// normalizeRows standardizes each row to mean 0, standard deviation 1.
// Constant rows are left centered but unscaled.
func normalizeRows(m *matrix.Dense) {
	cols := m.Cols()
	for i := 0; i < m.Rows(); i++ {
		row, _ := m.Row(i)
		mu := mean(row)
		sd := stddev(row, mu)
		for j := 0; j < cols; j++ {
			row[j] -= mu
			if sd > 0 {
				row[j] /= sd
			}
		}
	}
}

// adjustColumns centers and/or scales each column in place.
func adjustColumns(m *matrix.Dense, center, scale bool) {
	rows, cols := m.Rows(), m.Cols()
	data := m.Data()
	for j := 0; j < cols; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			sum += data[i*cols+j]
		}
		mu := sum / float64(rows)

		var ss float64
		for i := 0; i < rows; i++ {
			d := data[i*cols+j] - mu
			ss += d * d
		}
		sd := 0.0
		if rows > 1 {
			sd = math.Sqrt(ss / float64(rows-1))
		}

		for i := 0; i < rows; i++ {
			v := data[i*cols+j]
			if center {
				v -= mu
			}
			if scale && sd > 0 {
				// Scaling without centering still divides by the sd
				// about the mean, matching the usual scale() contract.
				v /= sd
			}
			data[i*cols+j] = v
		}
	}
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddev(xs []float64, mu float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mu
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
