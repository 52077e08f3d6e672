package exporter

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"pcareport/internal/correlation"
	apperrors "pcareport/internal/errors"
	"pcareport/internal/pca"
)

// Summary is the machine-readable digest of one analysis run.
type Summary struct {
	RunID        string              `json:"run_id"`
	Input        string              `json:"input"`
	GroupColumn  string              `json:"group_column"`
	Measurements []string            `json:"measurements"`
	Groups       []string            `json:"groups"`
	RowsLoaded   int                 `json:"rows_loaded"`
	RowsAnalysed int                 `json:"rows_analysed"`
	RowsDropped  int                 `json:"rows_dropped"`
	Strongest    []correlation.Pair  `json:"strongest_correlations"`
	Variance     pca.VarianceTable   `json:"variance"`
	TopTerms     map[string][]string `json:"top_terms"`
	GroupScores  []GroupScore        `json:"group_scores"`
	Figures      map[string]string   `json:"figures"`
}

// WriteSummary writes the summary as indented JSON.
func WriteSummary(path string, s Summary) error {
	data, err := json.MarshalIndent(sanitize(s), "", "  ")
	if err != nil {
		return apperrors.NewStorageError("marshal summary", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("create summary directory", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return apperrors.NewStorageError("write summary", err).WithContext("path", path)
	}
	return nil
}

// sanitize drops undefined correlations, which JSON cannot encode.
func sanitize(s Summary) Summary {
	out := s
	out.Strongest = make([]correlation.Pair, 0, len(s.Strongest))
	for _, p := range s.Strongest {
		if math.IsNaN(p.R) {
			continue
		}
		out.Strongest = append(out.Strongest, p)
	}
	return out
}

// GroupScore is a group centroid on every component. StdDev entries are null
// for single-member groups.
type GroupScore struct {
	Group  string     `json:"group"`
	Count  int        `json:"count"`
	Mean   []float64  `json:"mean"`
	StdDev []*float64 `json:"std_dev"`
}

// GroupScoresOf converts group summaries for JSON output.
func GroupScoresOf(groups []pca.GroupSummary) []GroupScore {
	out := make([]GroupScore, len(groups))
	for i, g := range groups {
		sd := make([]*float64, len(g.StdDev))
		for j := range g.StdDev {
			if !math.IsNaN(g.StdDev[j]) {
				v := g.StdDev[j]
				sd[j] = &v
			}
		}
		out[i] = GroupScore{Group: g.Group, Count: g.Count, Mean: g.Mean, StdDev: sd}
	}
	return out
}
