// Package matrix provides the labeled, dense, row-major float64 matrices the
// sweep operates on: expression compendia (genes × arrays) and binary
// annotation matrices (genes × terms).
package matrix

import (
	"errors"
	"fmt"
)

var (
	// ErrBadShape is returned when a requested shape has a non-positive dimension.
	ErrBadShape = errors.New("matrix: invalid shape")

	// ErrOutOfRange indicates a row or column index outside valid bounds.
	ErrOutOfRange = errors.New("matrix: index out of range")

	// ErrDimensionMismatch indicates incompatible dimensions between operands.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrBadLabels is returned when row/column label counts do not match the shape.
	ErrBadLabels = errors.New("matrix: label count does not match shape")
)

// Dense is a row-major dense matrix with optional row and column labels.
// The flat buffer uses the index formula i*cols + j.
type Dense struct {
	rows, cols int
	data       []float64

	RowNames []string
	ColNames []string
}

// NewDense allocates a zeroed rows×cols matrix.
func NewDense(rows, cols int) (*Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("NewDense(%d,%d): %w", rows, cols, ErrBadShape)
	}
	return &Dense{
		rows: rows,
		cols: cols,
		data: make([]float64, rows*cols),
	}, nil
}

// NewDenseData wraps an existing row-major buffer. The buffer is owned by the
// returned matrix; callers must not retain it.
func NewDenseData(rows, cols int, data []float64) (*Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("NewDenseData(%d,%d): %w", rows, cols, ErrBadShape)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("NewDenseData(%d,%d): buffer length %d: %w", rows, cols, len(data), ErrDimensionMismatch)
	}
	return &Dense{rows: rows, cols: cols, data: data}, nil
}

// Rows returns the row count.
func (m *Dense) Rows() int { return m.rows }

// Cols returns the column count.
func (m *Dense) Cols() int { return m.cols }

// At returns the element at (i, j).
func (m *Dense) At(i, j int) (float64, error) {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		return 0, fmt.Errorf("Dense.At(%d,%d): %w", i, j, ErrOutOfRange)
	}
	return m.data[i*m.cols+j], nil
}

// Set stores v at (i, j).
func (m *Dense) Set(i, j int, v float64) error {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		return fmt.Errorf("Dense.Set(%d,%d): %w", i, j, ErrOutOfRange)
	}
	m.data[i*m.cols+j] = v
	return nil
}

// Row returns row i of the underlying buffer without copying. Mutations
// through the returned slice are visible in the matrix.
func (m *Dense) Row(i int) ([]float64, error) {
	if i < 0 || i >= m.rows {
		return nil, fmt.Errorf("Dense.Row(%d): %w", i, ErrOutOfRange)
	}
	return m.data[i*m.cols : (i+1)*m.cols], nil
}

// Col copies column j into a fresh slice.
func (m *Dense) Col(j int) ([]float64, error) {
	if j < 0 || j >= m.cols {
		return nil, fmt.Errorf("Dense.Col(%d): %w", j, ErrOutOfRange)
	}
	out := make([]float64, m.rows)
	for i := 0; i < m.rows; i++ {
		out[i] = m.data[i*m.cols+j]
	}
	return out, nil
}

// Data exposes the flat row-major buffer for hot numeric loops.
func (m *Dense) Data() []float64 { return m.data }

// Clone returns a deep copy, labels included.
func (m *Dense) Clone() *Dense {
	out := &Dense{rows: m.rows, cols: m.cols, data: make([]float64, len(m.data))}
	copy(out.data, m.data)
	if m.RowNames != nil {
		out.RowNames = append([]string(nil), m.RowNames...)
	}
	if m.ColNames != nil {
		out.ColNames = append([]string(nil), m.ColNames...)
	}
	return out
}

// SetLabels attaches row and column names. Either argument may be nil to
// leave the corresponding labels unset.
func (m *Dense) SetLabels(rowNames, colNames []string) error {
	if rowNames != nil && len(rowNames) != m.rows {
		return fmt.Errorf("SetLabels: %d row names for %d rows: %w", len(rowNames), m.rows, ErrBadLabels)
	}
	if colNames != nil && len(colNames) != m.cols {
		return fmt.Errorf("SetLabels: %d col names for %d cols: %w", len(colNames), m.cols, ErrBadLabels)
	}
	if rowNames != nil {
		m.RowNames = rowNames
	}
	if colNames != nil {
		m.ColNames = colNames
	}
	return nil
}

// RowIndex builds a name→row lookup. Rows without names are skipped.
func (m *Dense) RowIndex() map[string]int {
	idx := make(map[string]int, len(m.RowNames))
	for i, name := range m.RowNames {
		idx[name] = i
	}
	return idx
}

// Mul computes m × other into a new matrix.
func (m *Dense) Mul(other *Dense) (*Dense, error) {
	if m.cols != other.rows {
		return nil, fmt.Errorf("Dense.Mul: %dx%d × %dx%d: %w", m.rows, m.cols, other.rows, other.cols, ErrDimensionMismatch)
	}
	out, _ := NewDense(m.rows, other.cols)
	for i := 0; i < m.rows; i++ {
		mi := m.data[i*m.cols : (i+1)*m.cols]
		oi := out.data[i*other.cols : (i+1)*other.cols]
		for k, a := range mi {
			if a == 0 {
				continue
			}
			ok := other.data[k*other.cols : (k+1)*other.cols]
			for j, b := range ok {
				oi[j] += a * b
			}
		}
	}
	return out, nil
}

// Transpose returns a new matrix with rows and columns swapped. Labels swap
// with their axis.
func (m *Dense) Transpose() *Dense {
	out, _ := NewDense(m.cols, m.rows)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			out.data[j*m.rows+i] = m.data[i*m.cols+j]
		}
	}
	out.RowNames = m.ColNames
	out.ColNames = m.RowNames
	return out
}
