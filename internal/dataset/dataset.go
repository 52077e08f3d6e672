package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"

	apperrors "pcareport/internal/errors"
)

// DefaultMissingTokens are the cell values treated as missing.
var DefaultMissingTokens = []string{"NA", "NaN", ""}

// Options selects the grouping and measurement columns of a dataset.
type Options struct {
	GroupColumn   string
	Measurements  []string // empty means every numeric column except the group column
	MissingTokens []string
	Sheet         string // XLSX only; empty means the first sheet
}

// Dataset is an immutable table with one row per specimen, one categorical
// grouping column and a set of continuous measurement columns. Missing
// measurements are NaN.
type Dataset struct {
	frame        dataframe.DataFrame
	group        string
	measurements []string
}

// FromRecords builds a dataset from string records whose first row is the header.
func FromRecords(records [][]string, opts Options) (*Dataset, error) {
	if len(records) < 2 {
		return nil, apperrors.NewValidationError("dataset needs a header row and at least one data row")
	}
	if err := checkHeader(records[0], opts); err != nil {
		return nil, err
	}

	df := dataframe.LoadRecords(records, loadOptions(opts)...)
	if df.Err != nil {
		return nil, apperrors.NewParsingError("load records", df.Err)
	}

	return fromFrame(df, opts)
}

func loadOptions(opts Options) []dataframe.LoadOption {
	tokens := opts.MissingTokens
	if len(tokens) == 0 {
		tokens = DefaultMissingTokens
	}
	return []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(tokens),
		dataframe.WithTypes(map[string]series.Type{opts.GroupColumn: series.String}),
	}
}

func checkHeader(header []string, opts Options) error {
	if opts.GroupColumn == "" {
		return apperrors.NewValidationError("group column is required")
	}
	if indexOf(header, opts.GroupColumn) < 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("group column %q", opts.GroupColumn))
	}
	for _, name := range opts.Measurements {
		if name == opts.GroupColumn {
			return apperrors.NewValidationError(fmt.Sprintf("column %q cannot be both group and measurement", name))
		}
		if indexOf(header, name) < 0 {
			return apperrors.NewNotFoundError(fmt.Sprintf("measurement column %q", name))
		}
	}
	return nil
}

func fromFrame(df dataframe.DataFrame, opts Options) (*Dataset, error) {
	measurements := opts.Measurements
	if len(measurements) == 0 {
		for _, name := range df.Names() {
			if name == opts.GroupColumn {
				continue
			}
			if isNumeric(df.Col(name).Type()) {
				measurements = append(measurements, name)
			}
		}
		if len(measurements) == 0 {
			return nil, apperrors.NewValidationError("dataset has no numeric measurement columns")
		}
	}

	for _, name := range measurements {
		col := df.Col(name)
		if col.Err != nil {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("measurement column %q", name))
		}
		if !isNumeric(col.Type()) && !allMissing(col) {
			return nil, apperrors.NewValidationError(fmt.Sprintf("measurement column %q is not numeric", name)).
				WithContext("type", string(col.Type()))
		}
		// Normalise integer columns to float so every measurement reads the same way.
		df = df.Mutate(series.New(col.Float(), series.Float, name))
		if df.Err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("convert column %q", name), df.Err)
		}
	}

	return &Dataset{
		frame:        df,
		group:        opts.GroupColumn,
		measurements: append([]string(nil), measurements...),
	}, nil
}

func isNumeric(t series.Type) bool {
	return t == series.Float || t == series.Int
}

func allMissing(s series.Series) bool {
	for _, na := range s.IsNaN() {
		if !na {
			return false
		}
	}
	return true
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// Rows returns the number of specimens.
func (d *Dataset) Rows() int { return d.frame.Nrow() }

// GroupColumn returns the name of the grouping column.
func (d *Dataset) GroupColumn() string { return d.group }

// Measurements returns the measurement column names in dataset order.
func (d *Dataset) Measurements() []string {
	return append([]string(nil), d.measurements...)
}

// Groups returns the group label of every row. Missing labels are "".
func (d *Dataset) Groups() []string {
	col := d.frame.Col(d.group)
	labels := col.Records()
	for i, na := range col.IsNaN() {
		if na {
			labels[i] = ""
		}
	}
	return labels
}

// Levels returns the sorted distinct non-missing group labels.
func (d *Dataset) Levels() []string {
	seen := make(map[string]struct{})
	var levels []string
	for _, g := range d.Groups() {
		if strings.TrimSpace(g) == "" {
			continue
		}
		if _, ok := seen[g]; !ok {
			seen[g] = struct{}{}
			levels = append(levels, g)
		}
	}
	sort.Strings(levels)
	return levels
}

// Column returns a measurement column with NaN for missing values.
func (d *Dataset) Column(name string) ([]float64, error) {
	if indexOf(d.measurements, name) < 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("measurement column %q", name))
	}
	return d.frame.Col(name).Float(), nil
}

// Matrix returns the rows × measurements matrix. Missing values are NaN.
func (d *Dataset) Matrix() *mat.Dense {
	rows, cols := d.Rows(), len(d.measurements)
	m := mat.NewDense(rows, cols, nil)
	for j, name := range d.measurements {
		m.SetCol(j, d.frame.Col(name).Float())
	}
	return m
}

// MissingCounts returns the number of missing values per analysed column,
// including the group column.
func (d *Dataset) MissingCounts() map[string]int {
	counts := make(map[string]int, len(d.measurements)+1)
	for _, g := range d.Groups() {
		if g == "" {
			counts[d.group]++
		}
	}
	if _, ok := counts[d.group]; !ok {
		counts[d.group] = 0
	}
	for _, name := range d.measurements {
		n := 0
		for _, v := range d.frame.Col(name).Float() {
			if math.IsNaN(v) {
				n++
			}
		}
		counts[name] = n
	}
	return counts
}

// CompleteRows returns the indexes of rows with a group label and every measurement.
func (d *Dataset) CompleteRows() []int {
	groups := d.Groups()
	cols := make([][]float64, len(d.measurements))
	for j, name := range d.measurements {
		cols[j] = d.frame.Col(name).Float()
	}

	var idx []int
	for i := 0; i < d.Rows(); i++ {
		if strings.TrimSpace(groups[i]) == "" {
			continue
		}
		complete := true
		for _, col := range cols {
			if math.IsNaN(col[i]) {
				complete = false
				break
			}
		}
		if complete {
			idx = append(idx, i)
		}
	}
	return idx
}

// DropMissing returns a dataset holding only complete rows, in their original
// order, and the number of rows removed. Columns that are not analysed do not
// affect completeness.
func (d *Dataset) DropMissing() (*Dataset, int, error) {
	return d.keep(d.CompleteRows(), "no complete rows remain after dropping missing values")
}

// LabelledRows returns the indexes of rows with a group label.
func (d *Dataset) LabelledRows() []int {
	var idx []int
	for i, g := range d.Groups() {
		if strings.TrimSpace(g) != "" {
			idx = append(idx, i)
		}
	}
	return idx
}

// DropUnlabelled returns a dataset without the rows missing a group label and
// the number of rows removed. Missing measurements are kept.
func (d *Dataset) DropUnlabelled() (*Dataset, int, error) {
	return d.keep(d.LabelledRows(), "no rows have a group label")
}

func (d *Dataset) keep(idx []int, emptyMsg string) (*Dataset, int, error) {
	dropped := d.Rows() - len(idx)
	if dropped == 0 {
		return d, 0, nil
	}
	if len(idx) == 0 {
		return nil, dropped, apperrors.NewValidationError(emptyMsg)
	}

	sub := d.frame.Subset(idx)
	if sub.Err != nil {
		return nil, 0, apperrors.NewComputationError("subset rows", sub.Err)
	}

	return &Dataset{
		frame:        sub,
		group:        d.group,
		measurements: d.Measurements(),
	}, dropped, nil
}
