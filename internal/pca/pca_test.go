package pca

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	apperrors "pcareport/internal/errors"
	"pcareport/internal/recipe"
)

func fitted(t *testing.T, k int) *recipe.Prepped {
	t.Helper()
	data := mat.NewDense(8, 4, []float64{
		39.1, 18.7, 181, 3750,
		39.5, 17.4, 186, 3800,
		40.3, 18.0, 195, 3250,
		46.5, 17.9, 192, 3500,
		50.0, 19.5, 196, 3900,
		46.1, 13.2, 211, 4500,
		50.0, 16.3, 230, 5700,
		48.7, 14.1, 210, 4450,
	})
	groups := []string{"Adelie", "Adelie", "Adelie", "Chinstrap", "Chinstrap", "Gentoo", "Gentoo", "Gentoo"}
	f, err := recipe.NewFrame([]string{"bill_length", "bill_depth", "flipper_length", "body_mass"}, groups, data)
	require.NoError(t, err)

	r, err := recipe.Standard(recipe.MissingDrop, true, k)
	require.NoError(t, err)
	prepped, err := r.Prep(context.Background(), f)
	require.NoError(t, err)
	return prepped
}

func TestTidy(t *testing.T) {
	res, err := Tidy(fitted(t, 0))
	require.NoError(t, err)

	assert.Len(t, res.Loadings, 16)
	assert.Equal(t, Loading{Term: "bill_length", Component: "PC1", Value: res.Wide.Values.At(0, 0)}, res.Loadings[0])
	assert.Equal(t, []string{"PC1", "PC2", "PC3", "PC4"}, res.Wide.Components)
	assert.Equal(t, 8, res.Scores.Rows())
}

func TestTidyWithoutPCA(t *testing.T) {
	f, err := recipe.NewFrame([]string{"a"}, nil, mat.NewDense(2, 1, []float64{1, 2}))
	require.NoError(t, err)
	prepped, err := recipe.New().Center().Prep(context.Background(), f)
	require.NoError(t, err)

	_, err = Tidy(prepped)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestLoadingsOrthonormal(t *testing.T) {
	for _, k := range []int{0, 2} {
		res, err := Tidy(fitted(t, k))
		require.NoError(t, err)
		assert.Less(t, Orthonormality(res.Wide), 1e-10)
	}
}

func TestVariancePercentSumsTo100(t *testing.T) {
	res, err := Tidy(fitted(t, 2))
	require.NoError(t, err)

	require.Len(t, res.Variance, 4, "variance covers every component even when fewer are retained")
	assert.InDelta(t, 100, res.Variance.TotalPercent(), 1e-9)
	assert.InDelta(t, 100, res.Variance[3].CumulativePercent, 1e-9)
	assert.InDelta(t, 4, res.Variance[0].Variance+res.Variance[1].Variance+res.Variance[2].Variance+res.Variance[3].Variance, 1e-9)

	for i, row := range res.Variance {
		assert.InDelta(t, math.Sqrt(row.Variance), row.StdDev, 1e-12)
		if i > 0 {
			assert.GreaterOrEqual(t, res.Variance[i-1].Percent, row.Percent)
		}
	}

	assert.Equal(t, res.Variance[0].Percent, res.Variance.Percent("PC1"))
	assert.True(t, math.IsNaN(res.Variance.Percent("PC9")))
	assert.Equal(t, 1, res.Variance.ComponentsFor(0))
	assert.Equal(t, 4, res.Variance.ComponentsFor(100))
}

func TestLoadingsRoundTrip(t *testing.T) {
	res, err := Tidy(fitted(t, 3))
	require.NoError(t, err)

	long := res.Wide.Longer()
	assert.Equal(t, res.Loadings, long)

	wide, err := long.Wider()
	require.NoError(t, err)
	assert.Equal(t, res.Wide.Terms, wide.Terms)
	assert.Equal(t, res.Wide.Components, wide.Components)
	assert.True(t, mat.Equal(res.Wide.Values, wide.Values))
}

func TestWiderShuffledInput(t *testing.T) {
	long := Loadings{
		{Term: "b", Component: "PC2", Value: 4},
		{Term: "a", Component: "PC1", Value: 1},
		{Term: "a", Component: "PC2", Value: 3},
		{Term: "b", Component: "PC1", Value: 2},
	}
	wide, err := long.Wider()
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a"}, wide.Terms)
	assert.Equal(t, []string{"PC2", "PC1"}, wide.Components)
	assert.ElementsMatch(t, long, wide.Longer())

	pc1, err := wide.Column("PC1")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 1}, pc1)

	_, err = wide.Column("PC3")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestWiderRejectsIncompleteInput(t *testing.T) {
	tests := []struct {
		name string
		long Loadings
	}{
		{name: "empty", long: nil},
		{name: "missing cell", long: Loadings{
			{Term: "a", Component: "PC1", Value: 1},
			{Term: "b", Component: "PC1", Value: 2},
			{Term: "a", Component: "PC2", Value: 3},
		}},
		{name: "duplicate cell", long: Loadings{
			{Term: "a", Component: "PC1", Value: 1},
			{Term: "a", Component: "PC1", Value: 2},
			{Term: "b", Component: "PC1", Value: 2},
			{Term: "b", Component: "PC2", Value: 2},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.long.Wider()
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
		})
	}
}

func TestTopTerms(t *testing.T) {
	long := Loadings{
		{Term: "a", Component: "PC1", Value: 0.1},
		{Term: "b", Component: "PC1", Value: -0.8},
		{Term: "c", Component: "PC1", Value: 0.5},
		{Term: "a", Component: "PC2", Value: 0.9},
	}

	top := long.TopTerms("PC1", 2)
	require.Len(t, top, 2)
	assert.Equal(t, "b", top[0].Term)
	assert.Equal(t, "c", top[1].Term)
	assert.Len(t, long.TopTerms("PC1", 10), 3)
	assert.Len(t, long.Component("PC2"), 1)
}

func TestGroupSummaries(t *testing.T) {
	res, err := Tidy(fitted(t, 2))
	require.NoError(t, err)

	summaries := res.Scores.GroupSummaries()
	require.Len(t, summaries, 3)
	assert.Equal(t, "Adelie", summaries[0].Group)
	assert.Equal(t, 3, summaries[0].Count)
	assert.Equal(t, 2, summaries[1].Count)
	assert.Len(t, summaries[2].Mean, 2)

	// Centered scores: group centroids weighted by size average to zero.
	for j := 0; j < 2; j++ {
		sum := 0.0
		for _, g := range summaries {
			sum += float64(g.Count) * g.Mean[j]
		}
		assert.InDelta(t, 0, sum, 1e-9)
	}

	sep := res.Scores.Separation(0)
	assert.GreaterOrEqual(t, sep, 0.0)
	assert.LessOrEqual(t, sep, 1.0)

	j, err := res.Scores.Index("PC2")
	require.NoError(t, err)
	assert.Equal(t, 1, j)
	_, err = res.Scores.Index("PC7")
	assert.Error(t, err)
}

func TestGroupSummarySingleMember(t *testing.T) {
	s := &Scores{
		Groups:     []string{"a", "b", "b"},
		Components: []string{"PC1"},
		Data:       mat.NewDense(3, 1, []float64{1, 2, 4}),
	}
	summaries := s.GroupSummaries()
	require.Len(t, summaries, 2)
	assert.True(t, math.IsNaN(summaries[0].StdDev[0]))
	assert.InDelta(t, 3, summaries[1].Mean[0], 1e-12)
	assert.InDelta(t, math.Sqrt2, summaries[1].StdDev[0], 1e-12)
}
