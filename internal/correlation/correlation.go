// Package correlation computes Pearson correlation matrices over the
// measurement columns of a dataset.
package correlation

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	apperrors "pcareport/internal/errors"
)

// Use selects which observations enter each coefficient.
type Use string

const (
	// Pairwise uses, for each pair, the rows where both values are present.
	Pairwise Use = "pairwise"
	// Complete uses only the rows where every variable is present.
	Complete Use = "complete"
)

// Options controls how the matrix is computed.
type Options struct {
	ExcludeDiagonal bool // diagonal is NaN instead of 1
	Use             Use
}

// Source is a table of measurements with NaN for missing values.
type Source interface {
	Measurements() []string
	Matrix() *mat.Dense
}

// Matrix is a symmetric correlation matrix.
type Matrix struct {
	Variables []string
	Values    *mat.SymDense
	// N is the smallest number of observations behind any coefficient.
	N      int
	counts *mat.SymDense
}

// Pair is one off-diagonal coefficient.
type Pair struct {
	X string  `json:"x"`
	Y string  `json:"y"`
	R float64 `json:"r"`
	N int     `json:"n"`
}

// Row is one row of the wide correlation table.
type Row struct {
	Term   string
	Values []float64
}

// Compute returns the Pearson correlation matrix of every measurement in src.
func Compute(src Source, opts Options) (*Matrix, error) {
	names := src.Measurements()
	data := src.Matrix()
	rows, cols := data.Dims()
	if cols < 2 {
		return nil, apperrors.NewValidationError("correlation needs at least two variables")
	}

	use := opts.Use
	if use == "" {
		use = Pairwise
	}

	var (
		values *mat.SymDense
		counts *mat.SymDense
		err    error
	)
	switch use {
	case Pairwise:
		values, counts = pairwise(data)
	case Complete:
		values, counts, err = complete(data)
		if err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown correlation use %q", use))
	}

	n := rows
	for i := 0; i < cols; i++ {
		for j := i + 1; j < cols; j++ {
			if c := int(counts.At(i, j)); c < n {
				n = c
			}
		}
	}
	if n < 2 {
		return nil, apperrors.NewComputationError("correlation needs at least two complete observations per pair", nil).
			WithContext("use", string(use))
	}

	for i := 0; i < cols; i++ {
		if opts.ExcludeDiagonal {
			values.SetSym(i, i, math.NaN())
		} else {
			values.SetSym(i, i, 1)
		}
	}

	return &Matrix{
		Variables: append([]string(nil), names...),
		Values:    values,
		N:         n,
		counts:    counts,
	}, nil
}

func pairwise(data *mat.Dense) (*mat.SymDense, *mat.SymDense) {
	rows, cols := data.Dims()
	values := mat.NewSymDense(cols, nil)
	counts := mat.NewSymDense(cols, nil)

	columns := make([][]float64, cols)
	for j := range columns {
		columns[j] = mat.Col(nil, j, data)
	}

	x := make([]float64, 0, rows)
	y := make([]float64, 0, rows)
	for i := 0; i < cols; i++ {
		for j := i + 1; j < cols; j++ {
			x, y = x[:0], y[:0]
			for r := 0; r < rows; r++ {
				a, b := columns[i][r], columns[j][r]
				if math.IsNaN(a) || math.IsNaN(b) {
					continue
				}
				x = append(x, a)
				y = append(y, b)
			}
			r := math.NaN()
			if len(x) > 1 {
				r = stat.Correlation(x, y, nil)
			}
			values.SetSym(i, j, r)
			counts.SetSym(i, j, float64(len(x)))
		}
		counts.SetSym(i, i, float64(countPresent(columns[i])))
	}
	return values, counts
}

func complete(data *mat.Dense) (*mat.SymDense, *mat.SymDense, error) {
	rows, cols := data.Dims()
	var keep [][]float64
	for r := 0; r < rows; r++ {
		row := mat.Row(nil, r, data)
		if countPresent(row) == cols {
			keep = append(keep, row)
		}
	}

	counts := mat.NewSymDense(cols, nil)
	for i := 0; i < cols; i++ {
		for j := i; j < cols; j++ {
			counts.SetSym(i, j, float64(len(keep)))
		}
	}
	if len(keep) < 2 {
		return mat.NewSymDense(cols, nil), counts, nil
	}

	obs := mat.NewDense(len(keep), cols, nil)
	for r, row := range keep {
		obs.SetRow(r, row)
	}
	values := mat.NewSymDense(cols, nil)
	stat.CorrelationMatrix(values, obs, nil)
	return values, counts, nil
}

func countPresent(values []float64) int {
	n := 0
	for _, v := range values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Size returns the number of variables.
func (m *Matrix) Size() int { return len(m.Variables) }

// At returns the coefficient between variables i and j.
func (m *Matrix) At(i, j int) float64 { return m.Values.At(i, j) }

// Lookup returns the coefficient between two named variables.
func (m *Matrix) Lookup(x, y string) (float64, error) {
	i, j := m.index(x), m.index(y)
	if i < 0 {
		return 0, apperrors.NewNotFoundError(fmt.Sprintf("variable %q", x))
	}
	if j < 0 {
		return 0, apperrors.NewNotFoundError(fmt.Sprintf("variable %q", y))
	}
	return m.At(i, j), nil
}

func (m *Matrix) index(name string) int {
	for i, v := range m.Variables {
		if v == name {
			return i
		}
	}
	return -1
}

// Table returns the matrix in wide form: one row per term with one value per variable.
func (m *Matrix) Table() []Row {
	rows := make([]Row, m.Size())
	for i, term := range m.Variables {
		values := make([]float64, m.Size())
		for j := range values {
			values[j] = m.At(i, j)
		}
		rows[i] = Row{Term: term, Values: values}
	}
	return rows
}

// Pairs returns every off-diagonal coefficient once, ordered by decreasing |r|.
// Undefined coefficients sort last.
func (m *Matrix) Pairs() []Pair {
	var pairs []Pair
	for i := 0; i < m.Size(); i++ {
		for j := i + 1; j < m.Size(); j++ {
			pairs = append(pairs, Pair{
				X: m.Variables[i],
				Y: m.Variables[j],
				R: m.At(i, j),
				N: int(m.counts.At(i, j)),
			})
		}
	}
	sort.SliceStable(pairs, func(a, b int) bool {
		ra, rb := pairs[a].R, pairs[b].R
		if math.IsNaN(rb) {
			return !math.IsNaN(ra)
		}
		if math.IsNaN(ra) {
			return false
		}
		return math.Abs(ra) > math.Abs(rb)
	})
	return pairs
}

// Strongest returns the n pairs with the largest |r|.
func (m *Matrix) Strongest(n int) []Pair {
	pairs := m.Pairs()
	n = max(n, 0)
	if n < len(pairs) {
		pairs = pairs[:n]
	}
	return pairs
}

// Strength describes the magnitude of a coefficient in words.
func Strength(r float64) string {
	switch a := math.Abs(r); {
	case math.IsNaN(r):
		return "undefined"
	case a >= 0.8:
		return "very strong"
	case a >= 0.6:
		return "strong"
	case a >= 0.4:
		return "moderate"
	case a >= 0.2:
		return "weak"
	default:
		return "negligible"
	}
}
