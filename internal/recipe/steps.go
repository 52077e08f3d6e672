package recipe

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	apperrors "pcareport/internal/errors"
)

// Step is an unfitted preprocessing step.
type Step interface {
	Name() string
	Fit(f *Frame) (Fitted, error)
}

// Fitted is a step whose parameters were estimated on training data.
type Fitted interface {
	Name() string
	Transform(f *Frame) (*Frame, error)
	// Summary describes the fitted parameters in one line.
	Summary() string
}

// Step names.
const (
	StepDropMissing  = "drop_missing"
	StepImputeMean   = "impute_mean"
	StepImputeMedian = "impute_median"
	StepCenter       = "center"
	StepScale        = "scale"
	StepPCA          = "pca"
)

type dropMissingStep struct{}

func (dropMissingStep) Name() string { return StepDropMissing }

func (s dropMissingStep) Fit(f *Frame) (Fitted, error) {
	rows, _ := f.Dims()
	return &fittedDropMissing{trainRows: rows, dropped: rows - len(completeRows(f))}, nil
}

// fittedDropMissing records what it removed from the training frame;
// Transform leaves it unchanged.
type fittedDropMissing struct {
	trainRows int
	dropped   int
}

func (*fittedDropMissing) Name() string { return StepDropMissing }

func completeRows(f *Frame) []int {
	rows, cols := f.Dims()
	idx := make([]int, 0, rows)
	for i := 0; i < rows; i++ {
		complete := true
		for j := 0; j < cols; j++ {
			if math.IsNaN(f.Data.At(i, j)) {
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

func (d *fittedDropMissing) Transform(f *Frame) (*Frame, error) {
	idx := completeRows(f)
	if len(idx) == 0 {
		return nil, apperrors.NewComputationError("no complete rows remain after dropping missing values", nil)
	}
	if rows, _ := f.Dims(); len(idx) == rows {
		return f.Copy(), nil
	}
	return f.subsetRows(idx), nil
}

func (d *fittedDropMissing) Summary() string {
	return fmt.Sprintf("removed %d of %d rows with missing values", d.dropped, d.trainRows)
}

type imputeStep struct {
	name   string
	label  string
	center func(sorted []float64) float64
}

func (s imputeStep) Name() string { return s.name }

func (s imputeStep) Fit(f *Frame) (Fitted, error) {
	rows, cols := f.Dims()
	values := make([]float64, cols)
	filled := 0
	for j := 0; j < cols; j++ {
		present := presentValues(f.Column(j))
		if len(present) == 0 {
			return nil, apperrors.NewComputationError(fmt.Sprintf("cannot impute %q: every value is missing", f.Names[j]), nil)
		}
		filled += rows - len(present)
		sort.Float64s(present)
		values[j] = s.center(present)
	}
	return &fittedImpute{name: s.name, label: s.label, names: f.Names, values: values, filled: filled}, nil
}

// fittedImpute holds the fill values and how many training values it filled.
type fittedImpute struct {
	name   string
	label  string
	names  []string
	values []float64
	filled int
}

func (i *fittedImpute) Name() string { return i.name }

func (i *fittedImpute) Transform(f *Frame) (*Frame, error) {
	if err := f.checkNames(i.names); err != nil {
		return nil, err
	}
	out := f.Copy()
	rows, cols := out.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if math.IsNaN(out.Data.At(r, c)) {
				out.Data.Set(r, c, i.values[c])
			}
		}
	}
	return out, nil
}

func (i *fittedImpute) Summary() string {
	return fmt.Sprintf("filled %d missing values with the column %s (%s)", i.filled, i.label, formatParams(i.names, i.values))
}

type centerStep struct{}

func (centerStep) Name() string { return StepCenter }

func (centerStep) Fit(f *Frame) (Fitted, error) {
	_, cols := f.Dims()
	means := make([]float64, cols)
	for j := 0; j < cols; j++ {
		present := presentValues(f.Column(j))
		if len(present) == 0 {
			return nil, apperrors.NewComputationError(fmt.Sprintf("cannot center %q: every value is missing", f.Names[j]), nil)
		}
		means[j] = stat.Mean(present, nil)
	}
	return &fittedCenter{names: f.Names, means: means}, nil
}

type fittedCenter struct {
	names []string
	means []float64
}

func (*fittedCenter) Name() string { return StepCenter }

func (c *fittedCenter) Transform(f *Frame) (*Frame, error) {
	if err := f.checkNames(c.names); err != nil {
		return nil, err
	}
	out := f.Copy()
	out.Data.Apply(func(_, j int, v float64) float64 { return v - c.means[j] }, out.Data)
	return out, nil
}

func (c *fittedCenter) Summary() string {
	return "subtracted column means (" + formatParams(c.names, c.means) + ")"
}

type scaleStep struct{}

func (scaleStep) Name() string { return StepScale }

func (scaleStep) Fit(f *Frame) (Fitted, error) {
	_, cols := f.Dims()
	sds := make([]float64, cols)
	for j := 0; j < cols; j++ {
		present := presentValues(f.Column(j))
		if len(present) < 2 {
			return nil, apperrors.NewComputationError(fmt.Sprintf("cannot scale %q: fewer than two values", f.Names[j]), nil)
		}
		sd := stat.StdDev(present, nil)
		if sd == 0 || math.IsNaN(sd) {
			return nil, apperrors.NewComputationError(fmt.Sprintf("cannot scale %q: standard deviation is zero", f.Names[j]), nil).
				WithContext("column", f.Names[j])
		}
		sds[j] = sd
	}
	return &fittedScale{names: f.Names, sds: sds}, nil
}

type fittedScale struct {
	names []string
	sds   []float64
}

func (*fittedScale) Name() string { return StepScale }

func (s *fittedScale) Transform(f *Frame) (*Frame, error) {
	if err := f.checkNames(s.names); err != nil {
		return nil, err
	}
	out := f.Copy()
	out.Data.Apply(func(_, j int, v float64) float64 { return v / s.sds[j] }, out.Data)
	return out, nil
}

func (s *fittedScale) Summary() string {
	return "divided by column standard deviations (" + formatParams(s.names, s.sds) + ")"
}

type pcaStep struct {
	components int
}

func (pcaStep) Name() string { return StepPCA }

func (s pcaStep) Fit(f *Frame) (Fitted, error) {
	rows, cols := f.Dims()
	if f.HasMissing() {
		return nil, apperrors.NewComputationError("pca input has missing values; drop or impute them first", nil)
	}
	if rows < 2 {
		return nil, apperrors.NewComputationError("pca needs at least two rows", nil)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(f.Data, nil); !ok {
		return nil, apperrors.NewComputationError("principal component decomposition failed", nil)
	}

	var vectors mat.Dense
	pc.VectorsTo(&vectors)
	variances := pc.VarsTo(nil)

	_, available := vectors.Dims()
	k := s.components
	if k <= 0 || k > available {
		k = available
	}
	if k > cols {
		k = cols
	}

	normaliseSigns(&vectors)

	loadings := mat.DenseCopyOf(vectors.Slice(0, cols, 0, k))
	return &PCAFit{
		Terms:     append([]string(nil), f.Names...),
		Loadings:  loadings,
		Variances: variances,
		k:         k,
	}, nil
}

// normaliseSigns flips each vector so that its largest-magnitude entry is positive.
func normaliseSigns(v *mat.Dense) {
	rows, cols := v.Dims()
	for j := 0; j < cols; j++ {
		best := 0
		for i := 1; i < rows; i++ {
			if math.Abs(v.At(i, j)) > math.Abs(v.At(best, j)) {
				best = i
			}
		}
		if v.At(best, j) < 0 {
			for i := 0; i < rows; i++ {
				v.Set(i, j, -v.At(i, j))
			}
		}
	}
}

// PCAFit is the fitted rotation. Loadings is terms × components; column j is
// the unit loading vector of component j+1. Variances covers every component
// of the decomposition, not only the retained ones.
type PCAFit struct {
	Terms     []string
	Loadings  *mat.Dense
	Variances []float64
	k         int
}

// Name implements Fitted.
func (*PCAFit) Name() string { return StepPCA }

// Components returns the number of retained components.
func (p *PCAFit) Components() int { return p.k }

// ComponentNames returns PC1..PCk.
func (p *PCAFit) ComponentNames() []string {
	names := make([]string, p.k)
	for i := range names {
		names[i] = ComponentName(i + 1)
	}
	return names
}

// Transform projects f onto the retained components.
func (p *PCAFit) Transform(f *Frame) (*Frame, error) {
	if err := f.checkNames(p.Terms); err != nil {
		return nil, err
	}
	if f.HasMissing() {
		return nil, apperrors.NewComputationError("cannot project rows with missing values", nil)
	}
	rows, _ := f.Dims()
	scores := mat.NewDense(rows, p.k, nil)
	scores.Mul(f.Data, p.Loadings)

	out := &Frame{Names: p.ComponentNames(), Data: scores}
	if f.Groups != nil {
		out.Groups = append([]string(nil), f.Groups...)
	}
	return out, nil
}

// Summary implements Fitted.
func (p *PCAFit) Summary() string {
	return fmt.Sprintf("rotated %d terms onto %d principal components", len(p.Terms), p.k)
}

// ComponentName returns the conventional label of the i-th (1-based) component.
func ComponentName(i int) string { return fmt.Sprintf("PC%d", i) }

func presentValues(values []float64) []float64 {
	out := values[:0:0]
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func median(sorted []float64) float64 {
	n := len(sorted)
	return (sorted[(n-1)/2] + sorted[n/2]) / 2
}

func mean(sorted []float64) float64 {
	return stat.Mean(sorted, nil)
}

func formatParams(names []string, values []float64) string {
	parts := make([]string, len(names))
	for i := range names {
		parts[i] = fmt.Sprintf("%s=%.4g", names[i], values[i])
	}
	return strings.Join(parts, ", ")
}
