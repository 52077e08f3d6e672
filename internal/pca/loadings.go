package pca

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	apperrors "pcareport/internal/errors"
	"pcareport/internal/recipe"
)

// Loading is one cell of the long loadings table.
type Loading struct {
	Term      string  `json:"term"`
	Component string  `json:"component"`
	Value     float64 `json:"value"`
}

// Loadings is the long form: one row per (term, component).
type Loadings []Loading

// WideLoadings is the wide form: one row per term, one column per component.
type WideLoadings struct {
	Terms      []string
	Components []string
	Values     *mat.Dense
}

// LoadingsOf returns the long loadings of a fitted rotation, component by component.
func LoadingsOf(fit *recipe.PCAFit) Loadings {
	terms := fit.Terms
	components := fit.ComponentNames()
	out := make(Loadings, 0, len(terms)*len(components))
	for j, c := range components {
		for i, term := range terms {
			out = append(out, Loading{Term: term, Component: c, Value: fit.Loadings.At(i, j)})
		}
	}
	return out
}

// Wider pivots to one row per term. Terms and components keep their first-seen
// order. Every (term, component) cell must appear exactly once.
func (l Loadings) Wider() (*WideLoadings, error) {
	if len(l) == 0 {
		return nil, apperrors.NewValidationError("no loadings to pivot")
	}

	termIdx := make(map[string]int)
	compIdx := make(map[string]int)
	var terms, components []string
	for _, row := range l {
		if _, ok := termIdx[row.Term]; !ok {
			termIdx[row.Term] = len(terms)
			terms = append(terms, row.Term)
		}
		if _, ok := compIdx[row.Component]; !ok {
			compIdx[row.Component] = len(components)
			components = append(components, row.Component)
		}
	}

	if len(l) != len(terms)*len(components) {
		return nil, apperrors.NewValidationError(fmt.Sprintf(
			"loadings have %d rows, expected %d terms × %d components", len(l), len(terms), len(components)))
	}

	values := mat.NewDense(len(terms), len(components), nil)
	seen := make([]bool, len(terms)*len(components))
	for _, row := range l {
		i, j := termIdx[row.Term], compIdx[row.Component]
		if seen[i*len(components)+j] {
			return nil, apperrors.NewValidationError(fmt.Sprintf("duplicate loading for %s on %s", row.Term, row.Component))
		}
		seen[i*len(components)+j] = true
		values.Set(i, j, row.Value)
	}

	return &WideLoadings{Terms: terms, Components: components, Values: values}, nil
}

// Component returns the rows of one component, in table order.
func (l Loadings) Component(component string) Loadings {
	var out Loadings
	for _, row := range l {
		if row.Component == component {
			out = append(out, row)
		}
	}
	return out
}

// TopTerms returns the n rows of a component with the largest |value|.
func (l Loadings) TopTerms(component string, n int) Loadings {
	rows := l.Component(component)
	sort.SliceStable(rows, func(a, b int) bool {
		return math.Abs(rows[a].Value) > math.Abs(rows[b].Value)
	})
	if n >= 0 && n < len(rows) {
		rows = rows[:n]
	}
	return rows
}

// Longer pivots back to the long form, component by component.
func (w *WideLoadings) Longer() Loadings {
	out := make(Loadings, 0, len(w.Terms)*len(w.Components))
	for j, c := range w.Components {
		for i, term := range w.Terms {
			out = append(out, Loading{Term: term, Component: c, Value: w.Values.At(i, j)})
		}
	}
	return out
}

// Column returns the loading vector of a component.
func (w *WideLoadings) Column(component string) ([]float64, error) {
	for j, c := range w.Components {
		if c == component {
			return mat.Col(nil, j, w.Values), nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("component %q", component))
}

// Orthonormality returns the largest absolute deviation of VᵀV from the
// identity, where V holds the loading vectors as columns.
func Orthonormality(w *WideLoadings) float64 {
	var vtv mat.Dense
	vtv.Mul(w.Values.T(), w.Values)
	r, c := vtv.Dims()
	worst := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if d := math.Abs(vtv.At(i, j) - want); d > worst {
				worst = d
			}
		}
	}
	return worst
}
