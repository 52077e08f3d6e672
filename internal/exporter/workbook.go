package exporter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	apperrors "pcareport/internal/errors"
)

const maxSheetName = 31

// WriteWorkbook writes every table to its own sheet of one XLSX file.
// Numeric cells are stored as numbers.
func WriteWorkbook(path string, tables []Table) error {
	if len(tables) == 0 {
		return apperrors.NewValidationError("workbook needs at least one table")
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return apperrors.NewStorageError("create header style", err)
	}

	seen := make(map[string]bool)
	for i, t := range tables {
		sheet := sheetName(t.Name, i, seen)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return apperrors.NewStorageError("rename sheet", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("create sheet %q", sheet), err)
		}

		if err := writeSheet(f, sheet, t, header); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("create workbook directory", err)
	}
	if err := f.SaveAs(path); err != nil {
		return apperrors.NewStorageError("save workbook", err).WithContext("path", path)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t Table, headerStyle int) error {
	headers := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return apperrors.NewStorageError("write header row", err)
	}
	if len(t.Headers) > 0 {
		last, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
		if err != nil {
			return apperrors.NewStorageError("header range", err)
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return apperrors.NewStorageError("style header row", err)
		}
	}

	for r, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for c, v := range row {
			if n, ok := parseCell(v); ok {
				cells[c] = n
			} else {
				cells[c] = v
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return apperrors.NewStorageError("row address", err)
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("write row %d of %s", r+1, t.Name), err)
		}
	}
	return nil
}

func sheetName(name string, i int, seen map[string]bool) string {
	if name == "" {
		name = fmt.Sprintf("table%d", i+1)
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	base := name
	for n := 2; seen[name]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		if len(base)+len(suffix) > maxSheetName {
			name = base[:maxSheetName-len(suffix)] + suffix
		} else {
			name = base + suffix
		}
	}
	seen[name] = true
	return name
}
