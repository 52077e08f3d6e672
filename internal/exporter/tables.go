package exporter

import (
	"pcareport/internal/correlation"
	"pcareport/internal/dataset"
	"pcareport/internal/pca"
	"pcareport/internal/recipe"
)

// Table is a named, fully formatted table ready for export.
type Table struct {
	Name    string     `json:"name"`
	Title   string     `json:"title"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// DescribeTable lists the descriptive statistics of every measurement.
func DescribeTable(d dataset.Description) Table {
	t := Table{
		Name:    "describe",
		Title:   "Measurement summary",
		Headers: []string{"column", "count", "missing", "mean", "sd", "min", "q1", "median", "q3", "max"},
	}
	for _, c := range d.Columns {
		t.Rows = append(t.Rows, []string{
			c.Column, formatInt(c.Count), formatInt(c.Missing),
			formatFloat(c.Mean), formatFloat(c.StdDev), formatFloat(c.Min), formatFloat(c.Q1),
			formatFloat(c.Median), formatFloat(c.Q3), formatFloat(c.Max),
		})
	}
	return t
}

// GroupMeansTable lists the count and measurement means of every group.
func GroupMeansTable(d dataset.Description, measurements []string) Table {
	t := Table{
		Name:    "group_means",
		Title:   "Group means",
		Headers: append([]string{"group", "n"}, measurements...),
	}
	for _, g := range d.Groups {
		row := []string{g.Group, formatInt(g.Count)}
		for _, m := range measurements {
			row = append(row, formatFloat(g.Means[m]))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// MissingTable lists the missing value count of every analysed column.
func MissingTable(counts map[string]int, columns []string) Table {
	t := Table{
		Name:    "missing",
		Title:   "Missing values",
		Headers: []string{"column", "missing"},
	}
	for _, c := range columns {
		t.Rows = append(t.Rows, []string{c, formatInt(counts[c])})
	}
	return t
}

// CorrelationTable is the wide correlation matrix with a leading term column.
func CorrelationTable(m *correlation.Matrix) Table {
	t := Table{
		Name:    "correlation",
		Title:   "Correlation matrix",
		Headers: append([]string{"term"}, m.Variables...),
	}
	for _, row := range m.Table() {
		cells := []string{row.Term}
		for _, v := range row.Values {
			cells = append(cells, formatFloat(v))
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// CorrelationPairsTable lists every variable pair by decreasing |r|.
func CorrelationPairsTable(m *correlation.Matrix) Table {
	t := Table{
		Name:    "correlation_pairs",
		Title:   "Correlation pairs",
		Headers: []string{"x", "y", "r", "n", "strength"},
	}
	for _, p := range m.Pairs() {
		t.Rows = append(t.Rows, []string{p.X, p.Y, formatFloat(p.R), formatInt(p.N), correlation.Strength(p.R)})
	}
	return t
}

// RecipeTable lists the fitted preprocessing steps in order.
func RecipeTable(steps []recipe.StepSummary) Table {
	t := Table{
		Name:    "recipe",
		Title:   "Preprocessing steps",
		Headers: []string{"number", "step", "summary"},
	}
	for i, s := range steps {
		t.Rows = append(t.Rows, []string{formatInt(i + 1), s.Step, s.Summary})
	}
	return t
}

// LoadingsTable is the long loadings table.
func LoadingsTable(l pca.Loadings) Table {
	t := Table{
		Name:    "loadings",
		Title:   "Loadings (long)",
		Headers: []string{"terms", "value", "component"},
	}
	for _, row := range l {
		t.Rows = append(t.Rows, []string{row.Term, formatFloat(row.Value), row.Component})
	}
	return t
}

// WideLoadingsTable is the loadings matrix with one column per component.
func WideLoadingsTable(w *pca.WideLoadings) Table {
	t := Table{
		Name:    "loadings_wide",
		Title:   "Loadings (wide)",
		Headers: append([]string{"terms"}, w.Components...),
	}
	for i, term := range w.Terms {
		row := []string{term}
		for j := range w.Components {
			row = append(row, formatFloat(w.Values.At(i, j)))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// VarianceTable lists the variance explained per component.
func VarianceTable(v pca.VarianceTable) Table {
	t := Table{
		Name:    "variance",
		Title:   "Variance explained",
		Headers: []string{"component", "variance", "sd", "percent", "cumulative_percent"},
	}
	for _, row := range v {
		t.Rows = append(t.Rows, []string{
			row.Component, formatFloat(row.Variance), formatFloat(row.StdDev),
			formatFloat(row.Percent), formatFloat(row.CumulativePercent),
		})
	}
	return t
}

// GroupScoresTable lists the centroid and spread of every group on every component.
func GroupScoresTable(s *pca.Scores) Table {
	t := Table{
		Name:    "group_scores",
		Title:   "Group centroids on principal components",
		Headers: []string{"group", "n", "component", "mean", "sd"},
	}
	for _, g := range s.GroupSummaries() {
		for j, c := range s.Components {
			t.Rows = append(t.Rows, []string{g.Group, formatInt(g.Count), c, formatFloat(g.Mean[j]), formatFloat(g.StdDev[j])})
		}
	}
	return t
}

// ScoresTable lists every specimen's scores.
func ScoresTable(s *pca.Scores) Table {
	t := Table{
		Name:    "scores",
		Title:   "Principal component scores",
		Headers: append([]string{"row", "group"}, s.Components...),
	}
	for i := 0; i < s.Rows(); i++ {
		row := []string{formatInt(i + 1), s.Groups[i]}
		for j := range s.Components {
			row = append(row, formatFloat(s.Data.At(i, j)))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
