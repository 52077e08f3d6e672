package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains every location the report writes to.
// All paths are absolute and rooted at the configured output directory.
type Paths struct {
	OutputDir  string
	FiguresDir string
	TablesDir  string
	LogsDir    string

	ReportFile   string
	WorkbookFile string
	SummaryFile  string
	ManifestFile string
	TraceFile    string
	MetricsFile  string
}

// NewPaths resolves the output layout under outputDir.
func NewPaths(outputDir string) (*Paths, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("output directory is empty")
	}
	root, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	logsDir := filepath.Join(root, "logs")
	tablesDir := filepath.Join(root, "tables")

	return &Paths{
		OutputDir:  root,
		FiguresDir: filepath.Join(root, "figures"),
		TablesDir:  tablesDir,
		LogsDir:    logsDir,

		ReportFile:   filepath.Join(root, "report.md"),
		WorkbookFile: filepath.Join(tablesDir, "tables.xlsx"),
		SummaryFile:  filepath.Join(tablesDir, "summary.json"),
		ManifestFile: filepath.Join(root, "manifest.json"),
		TraceFile:    filepath.Join(logsDir, "trace.json"),
		MetricsFile:  filepath.Join(logsDir, "metrics.prom"),
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.OutputDir,
		p.FiguresDir,
		p.TablesDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// TablePath returns the path for a table CSV file
func (p *Paths) TablePath(name string) string {
	return filepath.Join(p.TablesDir, name+".csv")
}

// Rel returns path relative to the output directory, for links inside the report.
func (p *Paths) Rel(path string) string {
	rel, err := filepath.Rel(p.OutputDir, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved output layout
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("output", p.OutputDir),
			slog.String("figures", p.FiguresDir),
			slog.String("tables", p.TablesDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("files",
			slog.String("report", p.ReportFile),
			slog.String("workbook", p.WorkbookFile),
			slog.String("manifest", p.ManifestFile),
		))
}
