package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/mat"

	"pcareport/internal/config"
	"pcareport/internal/correlation"
	"pcareport/internal/pca"
)

func setupTestEnv(t *testing.T) *config.Paths {
	t.Helper()
	paths, err := config.NewPaths(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	return paths
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	paths := setupTestEnv(t)
	writer := NewCSVWriter(paths)

	tests := []struct {
		name     string
		filePath string
		options  WriteOptions
		validate func(t *testing.T, content []byte)
	}{
		{
			name:     "basic write with headers",
			filePath: "test_basic.csv",
			options: WriteOptions{
				Headers: []string{"terms", "value", "component"},
				Records: [][]string{
					{"bill_length_mm", "0.45", "PC1"},
					{"bill_depth_mm", "-0.4", "PC1"},
				},
			},
			validate: func(t *testing.T, content []byte) {
				lines := strings.Split(strings.TrimSpace(string(content)), "\n")
				assert.Len(t, lines, 3)
				assert.Equal(t, "terms,value,component", lines[0])
				assert.Equal(t, "bill_depth_mm,-0.4,PC1", lines[2])
			},
		},
		{
			name:     "write with BOM prefix",
			filePath: "test_bom.csv",
			options: WriteOptions{
				Headers:   []string{"component", "percent"},
				Records:   [][]string{{"PC1", "68.6"}},
				BOMPrefix: true,
			},
			validate: func(t *testing.T, content []byte) {
				assert.True(t, bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}))
				lines := strings.Split(strings.TrimSpace(string(content[3:])), "\n")
				assert.Equal(t, "component,percent", lines[0])
			},
		},
		{
			name:     "quotes fields with commas",
			filePath: "nested/test_quotes.csv",
			options: WriteOptions{
				Records: [][]string{{"1", "removed 2 of 344 rows, keeping 342"}},
			},
			validate: func(t *testing.T, content []byte) {
				records, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
				require.NoError(t, err)
				assert.Equal(t, [][]string{{"1", "removed 2 of 344 rows, keeping 342"}}, records)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := writer.WriteCSV(tt.filePath, tt.options)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(paths.TablesDir, tt.filePath), path)

			content, err := os.ReadFile(path)
			require.NoError(t, err)
			tt.validate(t, content)
		})
	}
}

func TestCSVWriter_AbsolutePath(t *testing.T) {
	paths := setupTestEnv(t)
	target := filepath.Join(t.TempDir(), "elsewhere.csv")

	path, err := NewCSVWriter(paths).WriteCSV(target, WriteOptions{Records: [][]string{{"a"}}})
	require.NoError(t, err)
	assert.Equal(t, target, path)
	assert.FileExists(t, target)
}

func sampleTables() []Table {
	wide := &pca.WideLoadings{
		Terms:      []string{"bill_length_mm", "bill_depth_mm"},
		Components: []string{"PC1", "PC2"},
		Values:     mat.NewDense(2, 2, []float64{0.7071, 0.7071, -0.7071, 0.7071}),
	}
	return []Table{
		LoadingsTable(wide.Longer()),
		WideLoadingsTable(wide),
		VarianceTable(pca.VarianceTable{
			{Component: "PC1", Variance: 1.5, StdDev: 1.2247, Percent: 75, CumulativePercent: 75},
			{Component: "PC2", Variance: 0.5, StdDev: 0.7071, Percent: 25, CumulativePercent: 100},
		}),
	}
}

func TestExporter_Export(t *testing.T) {
	paths := setupTestEnv(t)

	written, err := NewExporter(paths, true, nil).Export(context.Background(), sampleTables())
	require.NoError(t, err)

	require.Len(t, written, 4)
	assert.Equal(t, filepath.Join(paths.TablesDir, "loadings.csv"), written[0])
	assert.Equal(t, paths.WorkbookFile, written[3])

	f, err := excelize.OpenFile(paths.WorkbookFile)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"loadings", "loadings_wide", "variance"}, f.GetSheetList())

	rows, err := f.GetRows("loadings_wide")
	require.NoError(t, err)
	assert.Equal(t, []string{"terms", "PC1", "PC2"}, rows[0])
	assert.Equal(t, "bill_depth_mm", rows[2][0])

	percent, err := f.GetCellValue("variance", "D2")
	require.NoError(t, err)
	assert.Equal(t, "75", percent)
}

func TestExporter_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExporter(setupTestEnv(t), false, nil).Export(ctx, sampleTables())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteWorkbook_Empty(t *testing.T) {
	err := WriteWorkbook(filepath.Join(t.TempDir(), "x.xlsx"), nil)
	assert.Error(t, err)
}

func TestSheetName(t *testing.T) {
	seen := make(map[string]bool)
	assert.Equal(t, "scores", sheetName("scores", 0, seen))
	assert.Equal(t, "scores_2", sheetName("scores", 1, seen))
	assert.Equal(t, "table3", sheetName("", 2, seen))

	long := strings.Repeat("x", 40)
	first := sheetName(long, 3, seen)
	second := sheetName(long, 4, seen)
	assert.Len(t, first, maxSheetName)
	assert.Len(t, second, maxSheetName)
	assert.NotEqual(t, first, second)
}

func TestWriteSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables", "summary.json")
	nan := math.NaN()

	err := WriteSummary(path, Summary{
		RunID:        "run-1",
		Measurements: []string{"a", "b"},
		Strongest: []correlation.Pair{
			{X: "a", Y: "b", R: 0.9, N: 10},
			{X: "a", Y: "c", R: nan, N: 1},
		},
		GroupScores: GroupScoresOf([]pca.GroupSummary{
			{Group: "g", Count: 1, Mean: []float64{0.5}, StdDev: []float64{nan}},
		}),
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Len(t, decoded["strongest_correlations"], 1)

	groups := decoded["group_scores"].([]interface{})
	sd := groups[0].(map[string]interface{})["std_dev"].([]interface{})
	assert.Nil(t, sd[0])
}
