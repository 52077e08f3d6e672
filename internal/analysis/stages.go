package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"pcareport/internal/config"
	"pcareport/internal/correlation"
	"pcareport/internal/dataset"
	apperrors "pcareport/internal/errors"
	"pcareport/internal/exporter"
	"pcareport/internal/pca"
	"pcareport/internal/plots"
	"pcareport/internal/recipe"
	"pcareport/internal/report"
)

// orthonormalTolerance bounds the deviation of VᵀV from the identity.
const orthonormalTolerance = 1e-8

// DefaultStages returns the full analysis in execution order.
func DefaultStages() []Stage {
	return []Stage{
		NewStage(StageLoad, "Load dataset", loadStage),
		NewStage(StageDescribe, "Describe measurements", describeStage),
		NewStage(StageCorrelate, "Correlation matrix", correlateStage),
		NewStage(StagePrep, "Preprocess and rotate", prepStage),
		NewStage(StageTidy, "Tidy PCA outputs", tidyStage),
		NewStage(StageRender, "Render figures", renderStage),
		NewStage(StageExport, "Export tables", exportStage),
		NewStage(StageReport, "Write report", reportStage),
	}
}

// Run executes the full analysis described by the state's config and writes
// every output under its paths.
func Run(ctx context.Context, state *State) error {
	return NewRunner(DefaultStages()...).Run(ctx, state)
}

func loadStage(ctx context.Context, s *State) error {
	cfg := s.Config.Analysis
	if cfg.InputFile == "" {
		return apperrors.NewConfigError("no input file configured", nil)
	}

	ds, err := dataset.Load(ctx, cfg.InputFile, dataset.Options{
		GroupColumn:   cfg.GroupColumn,
		Measurements:  cfg.Measurements,
		MissingTokens: cfg.MissingTokens,
		Sheet:         cfg.Sheet,
	})
	if err != nil {
		return err
	}
	if err := s.Manifest.SetInput(cfg.InputFile); err != nil {
		return apperrors.NewStorageError("checksum input file", err)
	}

	s.Dataset = ds
	if s.Telemetry != nil {
		s.Telemetry.Metrics.RowsLoaded.Add(ctx, int64(ds.Rows()))
	}
	s.Note("rows", ds.Rows())
	s.Note("measurements", len(ds.Measurements()))
	return nil
}

func describeStage(ctx context.Context, s *State) error {
	s.Description = s.Dataset.Describe()
	s.Missing = s.Dataset.MissingCounts()

	dropMissing := s.Config.Analysis.Missing == recipe.MissingDrop
	complete, dropped, err := s.Dataset.DropMissing()
	switch {
	case err != nil && dropMissing:
		return err
	case err != nil:
		// Imputation still has rows to work with; only the pairs plot is lost.
		s.Logger.WarnContext(ctx, "No complete rows, pairs plot skipped",
			slog.String("missing", s.Config.Analysis.Missing))
		complete = nil
	}
	s.Complete = complete
	s.Dropped = dropped

	if !dropMissing {
		labelled, unlabelled, err := s.Dataset.DropUnlabelled()
		if err != nil {
			return err
		}
		s.Labelled = labelled
		s.Dropped = unlabelled
	}

	if s.Telemetry != nil {
		s.Telemetry.Metrics.RowsDropped.Add(ctx, int64(s.Dropped))
	}

	s.Logger.InfoContext(ctx, "Described dataset",
		slog.Int("rows", s.Dataset.Rows()),
		slog.Int("complete_rows", s.Dataset.Rows()-dropped),
		slog.Int("dropped_rows", s.Dropped),
		slog.Any("levels", s.Dataset.Levels()))
	s.Note("complete_rows", s.Dataset.Rows()-dropped)
	s.Note("dropped_rows", s.Dropped)
	return nil
}

// analysed returns the dataset the decomposition and correlation run on:
// complete rows when missing values are dropped, every labelled row otherwise.
func (s *State) analysed() *dataset.Dataset {
	if s.Config.Analysis.Missing == recipe.MissingDrop {
		return s.Complete
	}
	return s.Labelled
}

func correlateStage(ctx context.Context, s *State) error {
	m, err := correlation.Compute(s.analysed(), correlation.Options{
		Use: correlation.Use(s.Config.Analysis.Correlation),
	})
	if err != nil {
		return err
	}
	s.Correlation = m

	if top := m.Strongest(1); len(top) > 0 {
		s.Logger.InfoContext(ctx, "Computed correlation matrix",
			slog.Int("variables", m.Size()),
			slog.Int("observations", m.N),
			slog.String("strongest", fmt.Sprintf("%s~%s", top[0].X, top[0].Y)),
			slog.Float64("r", top[0].R))
	}
	s.Note("observations", m.N)
	return nil
}

func prepStage(ctx context.Context, s *State) error {
	cfg := s.Config.Analysis
	r, err := recipe.Standard(cfg.Missing, cfg.Scale, cfg.Components, recipe.WithLogger(s.Logger))
	if err != nil {
		return err
	}

	frame, err := recipe.FrameOf(s.analysed())
	if err != nil {
		return err
	}
	prepped, err := r.Prep(ctx, frame)
	if err != nil {
		return err
	}
	s.Prepped = prepped

	rows, cols := prepped.Juice().Dims()
	s.Note("rows", rows)
	s.Note("components", cols)
	return nil
}

func tidyStage(ctx context.Context, s *State) error {
	res, err := pca.Tidy(s.Prepped)
	if err != nil {
		return err
	}

	if dev := pca.Orthonormality(res.Wide); dev > orthonormalTolerance {
		return apperrors.NewComputationError("loading vectors are not orthonormal", nil).
			WithContext("deviation", dev)
	}
	s.Result = res

	s.Logger.InfoContext(ctx, "Principal components extracted",
		slog.Int("components", len(res.Wide.Components)),
		slog.Float64("pc1_percent", res.Variance[0].Percent),
		slog.Int("components_for_90_percent", res.Variance.ComponentsFor(90)))
	return nil
}

func renderOptions(cfg config.RenderConfig) (plots.Options, error) {
	opts := plots.Options{
		Format:            cfg.Format,
		Width:             cfg.Width,
		Height:            cfg.Height,
		LoadingComponents: cfg.LoadingComponents,
		ArrowScale:        cfg.ArrowScale,
		Parallelism:       cfg.Parallelism,
	}
	for _, pair := range cfg.Biplots {
		a, b, err := config.ParsePCPair(pair)
		if err != nil {
			return opts, apperrors.NewConfigError("invalid biplot", err)
		}
		opts.Biplots = append(opts.Biplots, [2]int{a, b})
	}
	return opts, nil
}

func pairsTable(ds *dataset.Dataset) plots.Table {
	if ds == nil {
		return plots.Table{}
	}
	t := plots.Table{Names: ds.Measurements(), Groups: ds.Groups()}
	for _, name := range t.Names {
		col, _ := ds.Column(name)
		t.Columns = append(t.Columns, col)
	}
	return t
}

func renderStage(ctx context.Context, s *State) error {
	opts, err := renderOptions(s.Config.Render)
	if err != nil {
		return err
	}
	r, err := plots.NewRenderer(s.Paths.FiguresDir, opts, s.Logger)
	if err != nil {
		return err
	}

	figures, err := r.Render(ctx, plots.Input{
		Table:       pairsTable(s.Complete),
		Correlation: s.Correlation,
		Result:      s.Result,
	})
	if err != nil {
		return err
	}
	s.Figures = figures

	for _, f := range figures {
		if err := s.artifact(StageRender, "figure", f.Path); err != nil {
			return err
		}
	}
	if s.Telemetry != nil {
		s.Telemetry.Metrics.FiguresRendered.Add(ctx, int64(len(figures)))
	}
	s.Note("figures", len(figures))
	return nil
}

func (s *State) tables() []exporter.Table {
	steps := s.Prepped.Summaries()
	return []exporter.Table{
		exporter.DescribeTable(s.Description),
		exporter.GroupMeansTable(s.Description, s.Dataset.Measurements()),
		exporter.MissingTable(s.Missing, append([]string{s.Dataset.GroupColumn()}, s.Dataset.Measurements()...)),
		exporter.CorrelationTable(s.Correlation),
		exporter.CorrelationPairsTable(s.Correlation),
		exporter.RecipeTable(steps),
		exporter.LoadingsTable(s.Result.Loadings),
		exporter.WideLoadingsTable(s.Result.Wide),
		exporter.VarianceTable(s.Result.Variance),
		exporter.GroupScoresTable(s.Result.Scores),
		exporter.ScoresTable(s.Result.Scores),
	}
}

func (s *State) summary() exporter.Summary {
	top := make(map[string][]string)
	for _, c := range s.Result.Wide.Components {
		for _, l := range s.Result.Loadings.TopTerms(c, 2) {
			top[c] = append(top[c], l.Term)
		}
	}
	figures := make(map[string]string, len(s.Figures))
	for _, f := range s.Figures {
		figures[f.Name] = s.Paths.Rel(f.Path)
	}
	return exporter.Summary{
		RunID:        s.RunID,
		Input:        s.Config.Analysis.InputFile,
		GroupColumn:  s.Dataset.GroupColumn(),
		Measurements: s.Dataset.Measurements(),
		Groups:       s.Dataset.Levels(),
		RowsLoaded:   s.Dataset.Rows(),
		RowsAnalysed: s.Result.Scores.Rows(),
		RowsDropped:  s.Dropped,
		Strongest:    s.Correlation.Strongest(3),
		Variance:     s.Result.Variance,
		TopTerms:     top,
		GroupScores:  exporter.GroupScoresOf(s.Result.Scores.GroupSummaries()),
		Figures:      figures,
	}
}

func exportStage(ctx context.Context, s *State) error {
	s.Tables = s.tables()

	written, err := exporter.NewExporter(s.Paths, true, s.Logger).Export(ctx, s.Tables)
	if err != nil {
		return err
	}
	for _, path := range written {
		kind := "table"
		if filepath.Ext(path) == ".xlsx" {
			kind = "workbook"
		}
		if err := s.artifact(StageExport, kind, path); err != nil {
			return err
		}
	}

	if err := exporter.WriteSummary(s.Paths.SummaryFile, s.summary()); err != nil {
		return err
	}
	if err := s.artifact(StageExport, "summary", s.Paths.SummaryFile); err != nil {
		return err
	}
	s.Note("tables", len(s.Tables))
	return nil
}

func reportStage(ctx context.Context, s *State) error {
	figures := make([]plots.Figure, len(s.Figures))
	for i, f := range s.Figures {
		f.Path = s.Paths.Rel(f.Path)
		figures[i] = f
	}

	err := report.Write(s.Paths.ReportFile, report.Data{
		RunID:           s.RunID,
		Generated:       time.Now(),
		Input:           filepath.Base(s.Config.Analysis.InputFile),
		GroupColumn:     s.Dataset.GroupColumn(),
		Measurements:    s.Dataset.Measurements(),
		Levels:          s.Dataset.Levels(),
		RowsLoaded:      s.Dataset.Rows(),
		RowsDropped:     s.Dropped,
		MissingStrategy: s.Config.Analysis.Missing,
		Description:     s.Description,
		Missing:         s.Missing,
		Correlation:     s.Correlation,
		Steps:           s.Prepped.Summaries(),
		Result:          s.Result,
		Figures:         figures,
	})
	if err != nil {
		return err
	}

	s.Logger.InfoContext(ctx, "Report written", slog.String("path", s.Paths.ReportFile))
	return s.artifact(StageReport, "report", s.Paths.ReportFile)
}
