package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"

	apperrors "pcareport/internal/errors"
)

// Load reads a CSV, TSV or XLSX file into a dataset.
func Load(ctx context.Context, path string, opts Options) (*Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("input file %s", path))
		}
		return nil, apperrors.NewStorageError("stat input file", err)
	}

	var (
		ds  *Dataset
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		ds, err = readDelimitedFile(path, ',', opts)
	case ".tsv", ".tab":
		ds, err = readDelimitedFile(path, '\t', opts)
	case ".xlsx", ".xlsm":
		ds, err = ReadXLSX(path, opts)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported input format %q", ext)).
			WithContext("path", path)
	}
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Loaded dataset",
		slog.String("path", path),
		slog.Int("rows", ds.Rows()),
		slog.String("group_column", ds.GroupColumn()),
		slog.Any("measurements", ds.Measurements()))

	return ds, nil
}

func readDelimitedFile(path string, delimiter rune, opts Options) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError("open input file", err)
	}
	defer file.Close()

	return ReadDelimited(file, delimiter, opts)
}

// ReadCSV reads comma separated records with a header row.
func ReadCSV(r io.Reader, opts Options) (*Dataset, error) {
	return ReadDelimited(r, ',', opts)
}

// ReadDelimited reads delimiter separated records with a header row.
func ReadDelimited(r io.Reader, delimiter rune, opts Options) (*Dataset, error) {
	if opts.GroupColumn == "" {
		return nil, apperrors.NewValidationError("group column is required")
	}

	df := dataframe.ReadCSV(r, append(loadOptions(opts), dataframe.WithDelimiter(delimiter))...)
	if df.Err != nil {
		return nil, apperrors.NewParsingError("read delimited records", df.Err)
	}
	if err := checkHeader(df.Names(), opts); err != nil {
		return nil, err
	}
	if df.Nrow() == 0 {
		return nil, apperrors.NewValidationError("dataset needs a header row and at least one data row")
	}

	return fromFrame(df, opts)
}

// ReadXLSX reads the configured sheet (or the first sheet) of a workbook.
// The header is the first row with any non-empty cell.
func ReadXLSX(path string, opts Options) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError("open workbook", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewValidationError("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("read sheet %q", sheet), err)
	}

	start := 0
	for start < len(rows) && isBlank(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("sheet %q is empty", sheet))
	}

	// excelize drops trailing empty cells, so pad every row to the header width.
	width := len(rows[start])
	records := make([][]string, 0, len(rows)-start)
	for _, row := range rows[start:] {
		if isBlank(row) {
			continue
		}
		record := make([]string, width)
		copy(record, row)
		records = append(records, record)
	}

	return FromRecords(trimRecords(records), opts)
}

func trimRecords(records [][]string) [][]string {
	for _, record := range records {
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
	}
	return records
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
