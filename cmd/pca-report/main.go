package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"pcareport/internal/analysis"
	"pcareport/internal/config"
	"pcareport/internal/infrastructure"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file (defaults to configs/pca-report.yaml when present)")
	input := flag.String("input", "", "input dataset (.csv, .tsv or .xlsx)")
	outDir := flag.String("out", "", "output directory for figures, tables and the report")
	group := flag.String("group", "", "name of the grouping column")
	measurements := flag.String("measurements", "", "comma-separated measurement columns (defaults to every numeric column)")
	components := flag.Int("components", -1, "principal components to retain (0 keeps all)")
	missing := flag.String("missing", "", "missing value strategy: drop, mean or median")
	format := flag.String("format", "", "figure format: png or svg")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn or error")
	verify := flag.Bool("verify", false, "verify the artifacts recorded in the output manifest and exit")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if *input != "" {
		cfg.Analysis.InputFile = *input
	}
	if *outDir != "" {
		cfg.Paths.OutputDir = *outDir
	}
	if *group != "" {
		cfg.Analysis.GroupColumn = *group
	}
	if *measurements != "" {
		cfg.Analysis.Measurements = splitList(*measurements)
	}
	if *components >= 0 {
		cfg.Analysis.Components = *components
	}
	if *missing != "" {
		cfg.Analysis.Missing = *missing
	}
	if *format != "" {
		cfg.Render.Format = *format
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	paths, err := config.NewPaths(cfg.Paths.OutputDir)
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}
	if *verify {
		os.Exit(verifyManifest(paths))
	}
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create output directories", "error", err)
		os.Exit(1)
	}

	if !filepath.IsAbs(cfg.Logging.FilePath) {
		cfg.Logging.FilePath = filepath.Join(paths.LogsDir, filepath.Base(cfg.Logging.FilePath))
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	paths.LogPathResolution(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, paths, logger)
	stop()
	infrastructure.CloseLogFile()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, paths *config.Paths, logger *slog.Logger) int {
	tel, err := infrastructure.InitializeTelemetry(ctx, cfg.Telemetry, paths, logger)
	if err != nil {
		logger.Error("Failed to initialize telemetry", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", "error", err)
		}
	}()

	runID := infrastructure.GenerateRunID()
	ctx = infrastructure.WithRunID(ctx, runID)
	logger.InfoContext(ctx, "Starting analysis",
		"input", cfg.Analysis.InputFile,
		"output", paths.OutputDir,
		"missing", cfg.Analysis.Missing,
		"components", cfg.Analysis.Components)

	state := analysis.NewState(runID, cfg, paths, logger, tel)
	start := time.Now()
	if err := analysis.Run(ctx, state); err != nil {
		logger.ErrorContext(ctx, "Analysis failed", "error", err, "manifest", paths.ManifestFile)
		return 1
	}

	logger.InfoContext(ctx, "Analysis completed",
		"duration", time.Since(start).String(),
		"report", paths.ReportFile,
		"figures", len(state.Figures),
		"tables", len(state.Tables))

	printSummary(state)
	return 0
}

func printSummary(state *analysis.State) {
	fmt.Printf("\nAnalysed %d of %d specimens across %d groups\n",
		state.Result.Scores.Rows(), state.Dataset.Rows(), len(state.Dataset.Levels()))
	for _, row := range state.Result.Variance {
		fmt.Printf("  %-5s %6.2f%%  (cumulative %6.2f%%)\n", row.Component, row.Percent, row.CumulativePercent)
	}
	fmt.Printf("Report: %s\n", state.Paths.ReportFile)
}

func verifyManifest(paths *config.Paths) int {
	m, err := analysis.LoadManifest(paths.ManifestFile)
	if err != nil {
		slog.Error("Failed to load manifest", "path", paths.ManifestFile, "error", err)
		return 1
	}
	changed, err := m.Verify(paths.OutputDir)
	if err != nil {
		slog.Error("Failed to verify artifacts", "error", err)
		return 1
	}
	if len(changed) > 0 {
		slog.Error("Artifacts changed since the run", "run_id", m.RunID, "paths", changed)
		return 1
	}
	slog.Info("All artifacts verified", "run_id", m.RunID, "artifacts", len(m.Artifacts))
	return 0
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
