package pca

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	apperrors "pcareport/internal/errors"
	"pcareport/internal/recipe"
)

// Scores holds every specimen's coordinates on the retained components.
type Scores struct {
	Groups     []string
	Components []string
	Data       *mat.Dense
}

// GroupSummary is the centroid and spread of one group on every component.
type GroupSummary struct {
	Group  string    `json:"group"`
	Count  int       `json:"count"`
	Mean   []float64 `json:"mean"`
	StdDev []float64 `json:"std_dev"`
}

// ScoresOf wraps the juiced output of a recipe that ends in a PCA step.
func ScoresOf(f *recipe.Frame) (*Scores, error) {
	rows, _ := f.Dims()
	groups := f.Groups
	if groups == nil {
		groups = make([]string, rows)
	}
	if len(groups) != rows {
		return nil, apperrors.NewValidationError("scores need one group label per row")
	}
	return &Scores{
		Groups:     append([]string(nil), groups...),
		Components: append([]string(nil), f.Names...),
		Data:       mat.DenseCopyOf(f.Data),
	}, nil
}

// Rows returns the number of specimens.
func (s *Scores) Rows() int {
	r, _ := s.Data.Dims()
	return r
}

// Index returns the column of a component.
func (s *Scores) Index(component string) (int, error) {
	for j, c := range s.Components {
		if c == component {
			return j, nil
		}
	}
	return -1, apperrors.NewNotFoundError(fmt.Sprintf("component %q", component))
}

// Column returns the scores of one component.
func (s *Scores) Column(j int) []float64 { return mat.Col(nil, j, s.Data) }

// Levels returns the sorted distinct group labels.
func (s *Scores) Levels() []string {
	seen := make(map[string]struct{})
	var levels []string
	for _, g := range s.Groups {
		if _, ok := seen[g]; !ok {
			seen[g] = struct{}{}
			levels = append(levels, g)
		}
	}
	sort.Strings(levels)
	return levels
}

// GroupSummaries returns one summary per group level, in level order.
// StdDev is NaN for groups with a single member.
func (s *Scores) GroupSummaries() []GroupSummary {
	_, cols := s.Data.Dims()
	var out []GroupSummary
	for _, level := range s.Levels() {
		var idx []int
		for i, g := range s.Groups {
			if g == level {
				idx = append(idx, i)
			}
		}
		gs := GroupSummary{
			Group:  level,
			Count:  len(idx),
			Mean:   make([]float64, cols),
			StdDev: make([]float64, cols),
		}
		values := make([]float64, len(idx))
		for j := 0; j < cols; j++ {
			for k, i := range idx {
				values[k] = s.Data.At(i, j)
			}
			gs.Mean[j], gs.StdDev[j] = stat.MeanStdDev(values, nil)
			if len(values) < 2 {
				gs.StdDev[j] = math.NaN()
			}
		}
		out = append(out, gs)
	}
	return out
}

// Separation returns the share of a component's variance explained by group
// membership (between-group over total sum of squares, in [0, 1]).
func (s *Scores) Separation(j int) float64 {
	col := s.Column(j)
	grand := stat.Mean(col, nil)
	total := 0.0
	for _, v := range col {
		total += (v - grand) * (v - grand)
	}
	if total == 0 {
		return 0
	}
	between := 0.0
	for _, g := range s.GroupSummaries() {
		d := g.Mean[j] - grand
		between += float64(g.Count) * d * d
	}
	return between / total
}
