package matrix

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ErrBadFile is returned when a matrix file is structurally invalid
// (ragged rows, non-numeric cells, missing header).
var ErrBadFile = errors.New("matrix: malformed matrix file")

// delimiterFor picks the field delimiter from the file extension:
// comma for .csv, tab for everything else (.tsv, .txt).
func delimiterFor(path string) rune {
	if filepath.Ext(path) == ".csv" {
		return ','
	}
	return '\t'
}

// ReadFile loads a labeled matrix from a delimited text file. The first row
// holds column names, the first column of every following row holds the row
// name, and all remaining cells must parse as float64.
func ReadFile(path string) (*Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open matrix file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delimiterFor(path)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) < 2 || len(records[0]) < 2 {
		return nil, fmt.Errorf("%s: need a header row and at least one data row: %w", path, ErrBadFile)
	}

	// The header may or may not carry a leading cell above the row-name
	// column; both layouts occur in the wild. Normalize on data width.
	cols := len(records[1]) - 1
	colNames := records[0]
	if len(colNames) == cols+1 {
		colNames = colNames[1:]
	}
	if len(colNames) != cols {
		return nil, fmt.Errorf("%s: header has %d names for %d columns: %w", path, len(colNames), cols, ErrBadFile)
	}

	rows := len(records) - 1
	m, err := NewDense(rows, cols)
	if err != nil {
		return nil, err
	}
	rowNames := make([]string, rows)
	for i, rec := range records[1:] {
		if len(rec) != cols+1 {
			return nil, fmt.Errorf("%s row %d: %d fields, want %d: %w", path, i+2, len(rec), cols+1, ErrBadFile)
		}
		rowNames[i] = rec[0]
		for j, cell := range rec[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d col %d: %q is not numeric: %w", path, i+2, j+1, cell, ErrBadFile)
			}
			m.data[i*cols+j] = v
		}
	}
	m.RowNames = rowNames
	m.ColNames = append([]string(nil), colNames...)
	return m, nil
}

// WriteFile writes a labeled matrix in the layout ReadFile expects.
func WriteFile(path string, m *Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create matrix file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = delimiterFor(path)

	header := make([]string, 0, m.cols+1)
	header = append(header, "")
	for j := 0; j < m.cols; j++ {
		name := ""
		if m.ColNames != nil {
			name = m.ColNames[j]
		}
		header = append(header, name)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	rec := make([]string, m.cols+1)
	for i := 0; i < m.rows; i++ {
		rec[0] = ""
		if m.RowNames != nil {
			rec[0] = m.RowNames[i]
		}
		for j := 0; j < m.cols; j++ {
			rec[j+1] = strconv.FormatFloat(m.data[i*m.cols+j], 'g', -1, 64)
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
