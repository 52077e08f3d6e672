package correlation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	apperrors "pcareport/internal/errors"
)

type table struct {
	names []string
	data  *mat.Dense
}

func (t table) Measurements() []string { return t.names }
func (t table) Matrix() *mat.Dense { return mat.DenseCopyOf(t.data) }

func newTable(names []string, rows ...[]float64) table {
	m := mat.NewDense(len(rows), len(names), nil)
	for i, r := range rows {
		m.SetRow(i, r)
	}
	return table{names: names, data: m}
}

var nan = math.NaN()

func sample() table {
	return newTable([]string{"a", "b", "c", "d"},
		[]float64{1, 2, -1, 4},
		[]float64{2, 4, -2, 1},
		[]float64{3, 6, -3, 5},
		[]float64{4, 8, -4, 2},
		[]float64{5, 10, -5, 3},
	)
}

func TestComputeSymmetricUnitDiagonal(t *testing.T) {
	m, err := Compute(sample(), Options{})
	require.NoError(t, err)

	require.Equal(t, 4, m.Size())
	for i := 0; i < m.Size(); i++ {
		assert.Equal(t, 1.0, m.At(i, i))
		for j := 0; j < m.Size(); j++ {
			assert.Equal(t, m.At(i, j), m.At(j, i))
			assert.LessOrEqual(t, math.Abs(m.At(i, j)), 1+1e-12)
		}
	}

	ab, err := m.Lookup("a", "b")
	require.NoError(t, err)
	assert.InDelta(t, 1, ab, 1e-12)

	ac, err := m.Lookup("c", "a")
	require.NoError(t, err)
	assert.InDelta(t, -1, ac, 1e-12)

	assert.Equal(t, 5, m.N)
}

func TestComputeExcludeDiagonal(t *testing.T) {
	m, err := Compute(sample(), Options{ExcludeDiagonal: true})
	require.NoError(t, err)

	for i := 0; i < m.Size(); i++ {
		assert.True(t, math.IsNaN(m.At(i, i)))
	}
	assert.InDelta(t, 1, m.At(0, 1), 1e-12)
}

func TestComputeMissingValues(t *testing.T) {
	src := newTable([]string{"x", "y", "z"},
		[]float64{1, 1, 3},
		[]float64{2, 3, nan},
		[]float64{3, 2, 1},
		[]float64{4, 5, 2},
		[]float64{nan, 4, 6},
		[]float64{6, 7, 5},
	)

	pw, err := Compute(src, Options{Use: Pairwise})
	require.NoError(t, err)

	want := stat.Correlation([]float64{1, 2, 3, 4, 6}, []float64{1, 3, 2, 5, 7}, nil)
	assert.InDelta(t, want, pw.At(0, 1), 1e-12)
	assert.Equal(t, 4, pw.N)

	cc, err := Compute(src, Options{Use: Complete})
	require.NoError(t, err)

	want = stat.Correlation([]float64{1, 3, 4, 6}, []float64{1, 2, 5, 7}, nil)
	assert.InDelta(t, want, cc.At(0, 1), 1e-12)
	assert.Equal(t, 4, cc.N)
}

func TestComputeErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     table
		opts    Options
		errType apperrors.ErrorType
	}{
		{
			name:    "single variable",
			src:     newTable([]string{"x"}, []float64{1}, []float64{2}),
			errType: apperrors.ErrTypeValidation,
		},
		{
			name:    "unknown use",
			src:     sample(),
			opts:    Options{Use: "kendall"},
			errType: apperrors.ErrTypeValidation,
		},
		{
			name: "no complete observations",
			src: newTable([]string{"x", "y"},
				[]float64{1, nan},
				[]float64{nan, 2},
				[]float64{3, nan},
			),
			opts:    Options{Use: Complete},
			errType: apperrors.ErrTypeComputation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.src, tt.opts)
			require.Error(t, err)
			assert.Equal(t, tt.errType, apperrors.TypeOf(err))
		})
	}
}

func TestPairs(t *testing.T) {
	m, err := Compute(sample(), Options{})
	require.NoError(t, err)

	pairs := m.Pairs()
	require.Len(t, pairs, 6)
	for i := 1; i < len(pairs); i++ {
		assert.GreaterOrEqual(t, math.Abs(pairs[i-1].R), math.Abs(pairs[i].R))
	}
	for _, p := range pairs {
		assert.NotEqual(t, p.X, p.Y)
		assert.Equal(t, 5, p.N)
	}

	top := m.Strongest(3)
	require.Len(t, top, 3)
	assert.InDelta(t, 1, math.Abs(top[0].R), 1e-12)
	assert.Len(t, m.Strongest(10), 6)
	assert.Empty(t, m.Strongest(0))
	assert.Empty(t, m.Strongest(-1))
}

func TestTable(t *testing.T) {
	m, err := Compute(sample(), Options{})
	require.NoError(t, err)

	rows := m.Table()
	require.Len(t, rows, 4)
	assert.Equal(t, "c", rows[2].Term)
	assert.InDelta(t, -1, rows[2].Values[0], 1e-12)
	assert.Equal(t, 1.0, rows[2].Values[2])
}

func TestStrength(t *testing.T) {
	tests := []struct {
		r    float64
		want string
	}{
		{0.95, "very strong"},
		{-0.7, "strong"},
		{0.45, "moderate"},
		{-0.25, "weak"},
		{0.05, "negligible"},
		{nan, "undefined"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Strength(tt.r))
	}
}
