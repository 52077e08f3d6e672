package dataset

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "pcareport/internal/errors"
)

var penguinMeasurements = []string{"bill_length_mm", "bill_depth_mm", "flipper_length_mm", "body_mass_g"}

func loadSample(t *testing.T) *Dataset {
	t.Helper()
	ds, err := Load(context.Background(), filepath.Join("testdata", "penguins_sample.csv"), Options{
		GroupColumn:  "species",
		Measurements: penguinMeasurements,
	})
	require.NoError(t, err)
	return ds
}

func TestLoadCSV(t *testing.T) {
	ds := loadSample(t)

	assert.Equal(t, 22, ds.Rows())
	assert.Equal(t, "species", ds.GroupColumn())
	assert.Equal(t, penguinMeasurements, ds.Measurements())
	assert.Equal(t, []string{"Adelie", "Chinstrap", "Gentoo"}, ds.Levels())

	bill, err := ds.Column("bill_length_mm")
	require.NoError(t, err)
	assert.InDelta(t, 39.1, bill[0], 1e-9)
	assert.True(t, math.IsNaN(bill[3]))

	mass, err := ds.Column("body_mass_g")
	require.NoError(t, err)
	assert.Equal(t, 3750.0, mass[0])

	_, err = ds.Column("island")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNotFound))
}

func TestLoadDetectsNumericColumns(t *testing.T) {
	ds, err := Load(context.Background(), filepath.Join("testdata", "penguins_sample.csv"), Options{
		GroupColumn: "species",
	})
	require.NoError(t, err)

	assert.Equal(t, append(append([]string{}, penguinMeasurements...), "year"), ds.Measurements())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	sample := filepath.Join("testdata", "penguins_sample.csv")

	unsupported := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(unsupported, []byte("{}"), 0644))

	tests := []struct {
		name    string
		path    string
		opts    Options
		errType apperrors.ErrorType
	}{
		{
			name:    "missing file",
			path:    filepath.Join(dir, "absent.csv"),
			opts:    Options{GroupColumn: "species"},
			errType: apperrors.ErrTypeNotFound,
		},
		{
			name:    "unsupported extension",
			path:    unsupported,
			opts:    Options{GroupColumn: "species"},
			errType: apperrors.ErrTypeValidation,
		},
		{
			name:    "unknown group column",
			path:    sample,
			opts:    Options{GroupColumn: "genus"},
			errType: apperrors.ErrTypeNotFound,
		},
		{
			name:    "unknown measurement",
			path:    sample,
			opts:    Options{GroupColumn: "species", Measurements: []string{"wing_span"}},
			errType: apperrors.ErrTypeNotFound,
		},
		{
			name:    "non-numeric measurement",
			path:    sample,
			opts:    Options{GroupColumn: "species", Measurements: []string{"island"}},
			errType: apperrors.ErrTypeValidation,
		},
		{
			name:    "group used as measurement",
			path:    sample,
			opts:    Options{GroupColumn: "species", Measurements: []string{"species"}},
			errType: apperrors.ErrTypeValidation,
		},
		{
			name:    "no group column configured",
			path:    sample,
			opts:    Options{},
			errType: apperrors.ErrTypeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), tt.path, tt.opts)
			require.Error(t, err)
			assert.Equal(t, tt.errType, apperrors.TypeOf(err))
		})
	}
}

func TestReadDelimitedTSV(t *testing.T) {
	input := "group\tx\ty\na\t1\t2.5\nb\t3\tNA\n"

	ds, err := ReadDelimited(strings.NewReader(input), '\t', Options{GroupColumn: "group"})
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Rows())
	assert.Equal(t, []string{"x", "y"}, ds.Measurements())
	assert.Equal(t, map[string]int{"group": 0, "x": 0, "y": 1}, ds.MissingCounts())
}

func TestReadCSVCustomMissingTokens(t *testing.T) {
	input := "group,x\na,1\nb,-999\n"

	ds, err := ReadCSV(strings.NewReader(input), Options{GroupColumn: "group", MissingTokens: []string{"-999"}})
	require.NoError(t, err)

	x, err := ds.Column("x")
	require.NoError(t, err)
	assert.Equal(t, 1.0, x[0])
	assert.True(t, math.IsNaN(x[1]))
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "specimens.xlsx")

	f := excelize.NewFile()
	sheet := "Specimens"
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	require.NoError(t, f.DeleteSheet("Sheet1"))

	rows := [][]interface{}{
		{"species", "bill_length_mm", "body_mass_g"},
		{"Adelie", 39.1, 3750},
		{"Gentoo", 46.1, 4500},
		{"Gentoo", 50.0},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+3)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	ds, err := Load(context.Background(), path, Options{GroupColumn: "species"})
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Rows())
	assert.Equal(t, []string{"bill_length_mm", "body_mass_g"}, ds.Measurements())
	assert.Equal(t, []string{"Adelie", "Gentoo"}, ds.Levels())

	mass, err := ds.Column("body_mass_g")
	require.NoError(t, err)
	assert.Equal(t, 4500.0, mass[1])
	assert.True(t, math.IsNaN(mass[2]), "short rows are padded with missing cells")

	_, err = ReadXLSX(path, Options{GroupColumn: "species", Sheet: "Absent"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

func TestMatrix(t *testing.T) {
	ds := loadSample(t)
	m := ds.Matrix()

	r, c := m.Dims()
	assert.Equal(t, 22, r)
	assert.Equal(t, 4, c)
	assert.Equal(t, 181.0, m.At(0, 2))
	assert.True(t, math.IsNaN(m.At(3, 0)))
}

func TestMissingCounts(t *testing.T) {
	ds := loadSample(t)

	counts := ds.MissingCounts()
	assert.Equal(t, 0, counts["species"])
	for _, name := range penguinMeasurements {
		assert.Equal(t, 2, counts[name], name)
	}
	_, hasSex := counts["sex"]
	assert.False(t, hasSex, "only analysed columns are counted")
}

func TestDropMissing(t *testing.T) {
	ds := loadSample(t)

	complete, dropped, err := ds.DropMissing()
	require.NoError(t, err)

	assert.Equal(t, 2, dropped)
	assert.Equal(t, 20, complete.Rows())
	assert.LessOrEqual(t, complete.Rows(), ds.Rows())
	assert.Equal(t, ds.Rows()-len(ds.CompleteRows()), dropped)

	// Every complete row of the input survives in order.
	before := ds.Matrix()
	after := complete.Matrix()
	for k, i := range ds.CompleteRows() {
		for j := range penguinMeasurements {
			assert.Equal(t, before.At(i, j), after.At(k, j))
		}
		assert.Equal(t, ds.Groups()[i], complete.Groups()[k])
	}

	// The unanalysed sex column does not cause a drop.
	assert.Equal(t, "Gentoo", complete.Groups()[19])

	again, droppedAgain, err := complete.DropMissing()
	require.NoError(t, err)
	assert.Zero(t, droppedAgain)
	assert.Same(t, complete, again)
}

func TestDropMissingMissingGroup(t *testing.T) {
	input := "group,x\na,1\nNA,2\nb,3\n"
	ds, err := ReadCSV(strings.NewReader(input), Options{GroupColumn: "group"})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "", "b"}, ds.Groups())

	complete, dropped, err := ds.DropMissing()
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, []string{"a", "b"}, complete.Groups())
}

func TestDropUnlabelled(t *testing.T) {
	input := "group,x,y\na,1,NA\nNA,2,3\nb,NA,4\n"
	ds, err := ReadCSV(strings.NewReader(input), Options{GroupColumn: "group"})
	require.NoError(t, err)

	labelled, dropped, err := ds.DropUnlabelled()
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, []string{"a", "b"}, labelled.Groups())
	assert.Equal(t, map[string]int{"group": 0, "x": 1, "y": 1}, labelled.MissingCounts())
	assert.Equal(t, ds.Levels(), labelled.Levels())

	again, droppedAgain, err := labelled.DropUnlabelled()
	require.NoError(t, err)
	assert.Zero(t, droppedAgain)
	assert.Same(t, labelled, again)

	none, err := ReadCSV(strings.NewReader("group,x\nNA,1\nNA,2\n"), Options{GroupColumn: "group"})
	require.NoError(t, err)
	_, _, err = none.DropUnlabelled()
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestDescribeSingleValue(t *testing.T) {
	input := "group,x,y\na,1,NA\nb,2,5\n"
	ds, err := ReadCSV(strings.NewReader(input), Options{GroupColumn: "group"})
	require.NoError(t, err)

	desc := ds.Describe()
	require.Len(t, desc.Columns, 2)
	assert.Greater(t, desc.Columns[0].StdDev, 0.0)
	assert.Equal(t, 1, desc.Columns[1].Count)
	assert.Equal(t, 5.0, desc.Columns[1].Mean)
	assert.True(t, math.IsNaN(desc.Columns[1].StdDev))
}

func TestDropMissingNothingLeft(t *testing.T) {
	input := "group,x,y\na,1,NA\nb,NA,2\n"
	ds, err := ReadCSV(strings.NewReader(input), Options{GroupColumn: "group"})
	require.NoError(t, err)

	_, _, err = ds.DropMissing()
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestDescribe(t *testing.T) {
	ds := loadSample(t)
	desc := ds.Describe()

	assert.Equal(t, 22, desc.Rows)
	require.Len(t, desc.Columns, 4)

	flipper := desc.Columns[2]
	assert.Equal(t, "flipper_length_mm", flipper.Column)
	assert.Equal(t, 20, flipper.Count)
	assert.Equal(t, 2, flipper.Missing)
	assert.Equal(t, 174.0, flipper.Min)
	assert.Equal(t, 230.0, flipper.Max)
	assert.LessOrEqual(t, flipper.Q1, flipper.Median)
	assert.LessOrEqual(t, flipper.Median, flipper.Q3)
	assert.Greater(t, flipper.StdDev, 0.0)

	require.Len(t, desc.Groups, 3)
	gentoo := desc.Groups[2]
	assert.Equal(t, "Gentoo", gentoo.Group)
	assert.Equal(t, 8, gentoo.Count)
	assert.InDelta(t, (4500+5700+4450+5700+5400+4550+4875)/7.0, gentoo.Means["body_mass_g"], 1e-9)
}
