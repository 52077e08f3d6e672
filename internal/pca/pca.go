// Package pca turns a fitted principal component rotation into tidy tables:
// long and wide loadings, variance explained, and per-specimen scores with
// group summaries.
package pca

import (
	apperrors "pcareport/internal/errors"
	"pcareport/internal/recipe"
)

// Result gathers every tidy output of one fitted recipe.
type Result struct {
	Loadings Loadings
	Wide     *WideLoadings
	Variance VarianceTable
	Scores   *Scores
}

// Tidy extracts loadings, variance and scores from a prepped recipe.
func Tidy(prepped *recipe.Prepped) (*Result, error) {
	fit, ok := prepped.PCA()
	if !ok {
		return nil, apperrors.NewValidationError("recipe has no pca step")
	}

	long := LoadingsOf(fit)
	wide, err := long.Wider()
	if err != nil {
		return nil, err
	}
	scores, err := ScoresOf(prepped.Juice())
	if err != nil {
		return nil, err
	}

	return &Result{
		Loadings: long,
		Wide:     wide,
		Variance: VarianceOf(fit),
		Scores:   scores,
	}, nil
}
