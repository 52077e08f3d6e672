package pca

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"pcareport/internal/recipe"
)

// VarianceRow describes the variance explained by one component.
type VarianceRow struct {
	Component         string  `json:"component"`
	Variance          float64 `json:"variance"`
	StdDev            float64 `json:"std_dev"`
	Percent           float64 `json:"percent"`
	CumulativePercent float64 `json:"cumulative_percent"`
}

// VarianceTable covers every component of the decomposition.
type VarianceTable []VarianceRow

// VarianceOf builds the variance table from the eigenvalues of a fitted rotation.
func VarianceOf(fit *recipe.PCAFit) VarianceTable {
	total := floats.Sum(fit.Variances)
	out := make(VarianceTable, len(fit.Variances))
	cumulative := 0.0
	for i, v := range fit.Variances {
		// Eigenvalues of a rank deficient input can come back as tiny negatives.
		if v < 0 {
			v = 0
		}
		pct := 0.0
		if total > 0 {
			pct = 100 * v / total
		}
		cumulative += pct
		out[i] = VarianceRow{
			Component:         recipe.ComponentName(i + 1),
			Variance:          v,
			StdDev:            math.Sqrt(v),
			Percent:           pct,
			CumulativePercent: cumulative,
		}
	}
	return out
}

// TotalPercent returns the sum of Percent over every row.
func (v VarianceTable) TotalPercent() float64 {
	sum := 0.0
	for _, row := range v {
		sum += row.Percent
	}
	return sum
}

// ComponentsFor returns how many leading components reach the cumulative
// percentage threshold, or len(v) when none do.
func (v VarianceTable) ComponentsFor(threshold float64) int {
	for i, row := range v {
		if row.CumulativePercent >= threshold-1e-9 {
			return i + 1
		}
	}
	return len(v)
}

// Percent returns the percent variance of a component, or NaN if unknown.
func (v VarianceTable) Percent(component string) float64 {
	for _, row := range v {
		if row.Component == component {
			return row.Percent
		}
	}
	return math.NaN()
}
