package analysis

import (
	"log/slog"

	"pcareport/internal/config"
	"pcareport/internal/correlation"
	"pcareport/internal/dataset"
	"pcareport/internal/exporter"
	"pcareport/internal/infrastructure"
	"pcareport/internal/pca"
	"pcareport/internal/plots"
	"pcareport/internal/recipe"
)

// State is shared by the stages of one run. Each stage reads what earlier
// stages produced and adds its own results.
type State struct {
	RunID     string
	Config    *config.Config
	Paths     *config.Paths
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry
	Manifest  *Manifest

	Dataset     *dataset.Dataset
	Complete    *dataset.Dataset
	Labelled    *dataset.Dataset
	Dropped     int
	Description dataset.Description
	Missing     map[string]int
	Correlation *correlation.Matrix
	Prepped     *recipe.Prepped
	Result      *pca.Result
	Figures     []plots.Figure
	Tables      []exporter.Table

	metadata map[string]interface{}
}

// NewState creates the state for one run.
func NewState(runID string, cfg *config.Config, paths *config.Paths, logger *slog.Logger, tel *infrastructure.Telemetry) *State {
	if logger == nil {
		logger = slog.Default()
	}
	return &State{
		RunID:     runID,
		Config:    cfg,
		Paths:     paths,
		Logger:    logger,
		Telemetry: tel,
		Manifest:  NewManifest(runID, cfg),
	}
}

// Note attaches a value to the manifest entry of the running stage.
func (s *State) Note(key string, value interface{}) {
	if s.metadata == nil {
		s.metadata = make(map[string]interface{})
	}
	s.metadata[key] = value
}

func (s *State) takeMetadata() map[string]interface{} {
	m := s.metadata
	s.metadata = nil
	return m
}

// artifact records a produced file in the manifest.
func (s *State) artifact(stage, kind, path string) error {
	return s.Manifest.AddArtifact(stage, kind, path, s.Paths.Rel(path))
}
