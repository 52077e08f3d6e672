package exporter

import (
	"context"
	"log/slog"

	"pcareport/internal/config"
)

// Exporter writes the derived tables of a run as CSV files and one workbook.
type Exporter struct {
	paths  *config.Paths
	csv    *CSVWriter
	bom    bool
	logger *slog.Logger
}

// NewExporter creates an exporter writing under paths. bom adds a UTF-8 BOM
// to every CSV file.
func NewExporter(paths *config.Paths, bom bool, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		paths:  paths,
		csv:    NewCSVWriter(paths),
		bom:    bom,
		logger: logger,
	}
}

// Export writes every table and returns the paths written, CSV files first
// and the workbook last.
func (e *Exporter) Export(ctx context.Context, tables []Table) ([]string, error) {
	var written []string
	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		path, err := e.csv.WriteTable(t, e.bom)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if err := WriteWorkbook(e.paths.WorkbookFile, tables); err != nil {
		return written, err
	}
	written = append(written, e.paths.WorkbookFile)

	e.logger.InfoContext(ctx, "Exported tables",
		slog.Int("tables", len(tables)),
		slog.String("workbook", e.paths.WorkbookFile))
	return written, nil
}
