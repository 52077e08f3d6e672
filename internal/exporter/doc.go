// Package exporter writes the derived tables of an analysis run.
//
// Every table is written as a CSV file under the tables directory (optionally
// with a UTF-8 BOM for Excel), all tables are collected into one XLSX
// workbook with a sheet per table, and a JSON summary records the headline
// numbers of the run.
//
// Example usage:
//
//	e := exporter.NewExporter(paths, true, logger)
//	written, err := e.Export(ctx, []exporter.Table{
//	    exporter.VarianceTable(result.Variance),
//	    exporter.LoadingsTable(result.Loadings),
//	})
package exporter
