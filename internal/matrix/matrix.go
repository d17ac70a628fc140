// Package matrix implements the rectangular-grid arithmetic exposed by the
// matrix API: elementwise add and subtract, and standard matrix
// multiplication. Operations are pure; inputs are never modified.
package matrix

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrDimensionMismatch is returned when operand shapes are incompatible with
// the requested operation.
var ErrDimensionMismatch = errors.New("matrix dimension mismatch")

// Grid is a rectangular numeric matrix, rows-major.
type Grid [][]float64

// Validate checks that g is non-empty and rectangular.
func (g Grid) Validate() error {
	if len(g) == 0 || len(g[0]) == 0 {
		return fmt.Errorf("matrix must have at least one row and column")
	}
	cols := len(g[0])
	for i, row := range g {
		if len(row) != cols {
			return fmt.Errorf("matrix is ragged: row %d has %d columns, want %d", i, len(row), cols)
		}
	}
	return nil
}

// Dims returns the row and column counts. Call Validate first; a ragged grid
// reports the dimensions of its first row.
func (g Grid) Dims() (rows, cols int) {
	if len(g) == 0 {
		return 0, 0
	}
	return len(g), len(g[0])
}

// dense converts a validated Grid to a gonum matrix.
func (g Grid) dense() *mat.Dense {
	rows, cols := g.Dims()
	data := make([]float64, 0, rows*cols)
	for _, row := range g {
		data = append(data, row...)
	}
	return mat.NewDense(rows, cols, data)
}

// fromDense converts a gonum matrix back to a Grid.
func fromDense(m *mat.Dense) Grid {
	rows, cols := m.Dims()
	g := make(Grid, rows)
	for i := 0; i < rows; i++ {
		g[i] = make([]float64, cols)
		copy(g[i], m.RawRowView(i))
	}
	return g
}

func validatePair(a, b Grid) error {
	if err := a.Validate(); err != nil {
		return err
	}
	return b.Validate()
}

// Add returns the elementwise sum a + b. The operands must have identical
// dimensions.
func Add(a, b Grid) (Grid, error) {
	if err := validatePair(a, b); err != nil {
		return nil, err
	}
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return nil, fmt.Errorf("%w: %dx%d + %dx%d", ErrDimensionMismatch, ar, ac, br, bc)
	}
	var out mat.Dense
	out.Add(a.dense(), b.dense())
	return fromDense(&out), nil
}

// Subtract returns the elementwise difference a - b. The operands must have
// identical dimensions.
func Subtract(a, b Grid) (Grid, error) {
	if err := validatePair(a, b); err != nil {
		return nil, err
	}
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return nil, fmt.Errorf("%w: %dx%d - %dx%d", ErrDimensionMismatch, ar, ac, br, bc)
	}
	var out mat.Dense
	out.Sub(a.dense(), b.dense())
	return fromDense(&out), nil
}

// Multiply returns the matrix product a x b. a's column count must equal b's
// row count; the result is (a rows) x (b cols).
func Multiply(a, b Grid) (Grid, error) {
	if err := validatePair(a, b); err != nil {
		return nil, err
	}
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != br {
		return nil, fmt.Errorf("%w: %dx%d * %dx%d", ErrDimensionMismatch, ar, ac, br, bc)
	}
	var out mat.Dense
	out.Mul(a.dense(), b.dense())
	return fromDense(&out), nil
}
