package recipe

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	apperrors "pcareport/internal/errors"
)

// Frame is the numeric table a recipe operates on. Groups carries the label
// of every row so that row-dropping steps keep labels aligned with data.
type Frame struct {
	Names  []string
	Groups []string
	Data   *mat.Dense
}

// Source is anything that can provide named measurements and row labels.
type Source interface {
	Measurements() []string
	Groups() []string
	Matrix() *mat.Dense
}

// NewFrame validates that names and groups match the data dimensions.
func NewFrame(names, groups []string, data *mat.Dense) (*Frame, error) {
	if data == nil || data.IsEmpty() {
		return nil, apperrors.NewValidationError("frame has no data")
	}
	rows, cols := data.Dims()
	if len(names) != cols {
		return nil, apperrors.NewValidationError(fmt.Sprintf("frame has %d columns but %d names", cols, len(names)))
	}
	if groups != nil && len(groups) != rows {
		return nil, apperrors.NewValidationError(fmt.Sprintf("frame has %d rows but %d group labels", rows, len(groups)))
	}
	return &Frame{Names: names, Groups: groups, Data: data}, nil
}

// FrameOf copies the measurements of src into a frame.
func FrameOf(src Source) (*Frame, error) {
	return NewFrame(src.Measurements(), src.Groups(), src.Matrix())
}

// Dims returns the number of rows and columns.
func (f *Frame) Dims() (int, int) { return f.Data.Dims() }

// Copy returns a deep copy.
func (f *Frame) Copy() *Frame {
	out := &Frame{
		Names: append([]string(nil), f.Names...),
		Data:  mat.DenseCopyOf(f.Data),
	}
	if f.Groups != nil {
		out.Groups = append([]string(nil), f.Groups...)
	}
	return out
}

// Column returns a copy of column j.
func (f *Frame) Column(j int) []float64 { return mat.Col(nil, j, f.Data) }

// HasMissing reports whether any value is NaN.
func (f *Frame) HasMissing() bool {
	rows, cols := f.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if math.IsNaN(f.Data.At(i, j)) {
				return true
			}
		}
	}
	return false
}

func (f *Frame) checkNames(names []string) error {
	if len(names) != len(f.Names) {
		return apperrors.NewValidationError(fmt.Sprintf("frame has %d columns, recipe was fitted on %d", len(f.Names), len(names)))
	}
	for i := range names {
		if names[i] != f.Names[i] {
			return apperrors.NewValidationError(fmt.Sprintf("column %d is %q, recipe was fitted on %q", i, f.Names[i], names[i]))
		}
	}
	return nil
}

func (f *Frame) subsetRows(idx []int) *Frame {
	_, cols := f.Dims()
	out := &Frame{Names: append([]string(nil), f.Names...)}
	if len(idx) == 0 {
		out.Data = &mat.Dense{}
	} else {
		out.Data = mat.NewDense(len(idx), cols, nil)
	}
	if f.Groups != nil {
		out.Groups = make([]string, len(idx))
	}
	for k, i := range idx {
		out.Data.SetRow(k, mat.Row(nil, i, f.Data))
		if f.Groups != nil {
			out.Groups[k] = f.Groups[i]
		}
	}
	return out
}
