package dataset

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ColumnSummary holds the descriptive statistics of one measurement.
type ColumnSummary struct {
	Column  string  `json:"column"`
	Count   int     `json:"count"`
	Missing int     `json:"missing"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"std_dev"`
	Min     float64 `json:"min"`
	Q1      float64 `json:"q1"`
	Median  float64 `json:"median"`
	Q3      float64 `json:"q3"`
	Max     float64 `json:"max"`
}

// GroupSummary holds the per-group count and measurement means.
type GroupSummary struct {
	Group string             `json:"group"`
	Count int                `json:"count"`
	Means map[string]float64 `json:"means"`
}

// Description summarises a dataset before any preprocessing.
type Description struct {
	Rows    int             `json:"rows"`
	Columns []ColumnSummary `json:"columns"`
	Groups  []GroupSummary  `json:"groups"`
}

// Describe computes column and group summaries, ignoring missing values.
func (d *Dataset) Describe() Description {
	desc := Description{Rows: d.Rows()}

	for _, name := range d.measurements {
		desc.Columns = append(desc.Columns, summarise(name, d.frame.Col(name).Float()))
	}

	groups := d.Groups()
	for _, level := range d.Levels() {
		gs := GroupSummary{Group: level, Means: make(map[string]float64, len(d.measurements))}
		for _, g := range groups {
			if g == level {
				gs.Count++
			}
		}
		for _, name := range d.measurements {
			values := d.frame.Col(name).Float()
			var present []float64
			for i, g := range groups {
				if g == level && !math.IsNaN(values[i]) {
					present = append(present, values[i])
				}
			}
			if len(present) == 0 {
				gs.Means[name] = math.NaN()
				continue
			}
			gs.Means[name] = stat.Mean(present, nil)
		}
		desc.Groups = append(desc.Groups, gs)
	}

	return desc
}

func summarise(name string, values []float64) ColumnSummary {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}

	s := ColumnSummary{
		Column:  name,
		Count:   len(present),
		Missing: len(values) - len(present),
	}
	if len(present) == 0 {
		nan := math.NaN()
		s.Mean, s.StdDev, s.Min, s.Q1, s.Median, s.Q3, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}

	sort.Float64s(present)
	s.Mean = stat.Mean(present, nil)
	s.StdDev = math.NaN()
	if len(present) > 1 {
		s.StdDev = stat.StdDev(present, nil)
	}
	s.Min = floats.Min(present)
	s.Max = floats.Max(present)
	s.Q1 = stat.Quantile(0.25, stat.LinInterp, present, nil)
	s.Median = stat.Quantile(0.5, stat.LinInterp, present, nil)
	s.Q3 = stat.Quantile(0.75, stat.LinInterp, present, nil)
	return s
}
