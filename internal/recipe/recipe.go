// Package recipe implements the fixed preprocessing pipeline applied before
// principal component analysis: missing value handling, centering, scaling
// and the rotation itself.
//
// A Recipe is declared once and fitted with Prep. Every step is estimated on
// the output of the step before it, and the fitted result can then be applied
// to new data with Bake or read back for the training data with Juice.
package recipe

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "pcareport/internal/errors"
)

// Missing value strategies.
const (
	MissingDrop   = "drop"
	MissingMean   = "mean"
	MissingMedian = "median"
)

// Recipe is an ordered list of unfitted steps.
type Recipe struct {
	steps  []Step
	logger *slog.Logger
}

// Option configures a recipe.
type Option func(*Recipe)

// WithLogger sets the logger used while fitting.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recipe) { r.logger = logger }
}

// New creates an empty recipe.
func New(opts ...Option) *Recipe {
	r := &Recipe{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Standard builds the usual recipe: missing value handling, center,
// optional scale and a PCA keeping k components (0 keeps all).
func Standard(missing string, scale bool, k int, opts ...Option) (*Recipe, error) {
	r := New(opts...)
	switch missing {
	case MissingDrop, "":
		r.DropMissing()
	case MissingMean:
		r.ImputeMean()
	case MissingMedian:
		r.ImputeMedian()
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown missing value strategy %q", missing))
	}
	r.Center()
	if scale {
		r.Scale()
	}
	r.PCA(k)
	return r, nil
}

// Add appends a step.
func (r *Recipe) Add(step Step) *Recipe {
	r.steps = append(r.steps, step)
	return r
}

// DropMissing removes rows with any missing value.
func (r *Recipe) DropMissing() *Recipe { return r.Add(dropMissingStep{}) }

// ImputeMean replaces missing values with the training column mean.
func (r *Recipe) ImputeMean() *Recipe {
	return r.Add(imputeStep{name: StepImputeMean, label: "mean", center: mean})
}

// ImputeMedian replaces missing values with the training column median.
func (r *Recipe) ImputeMedian() *Recipe {
	return r.Add(imputeStep{name: StepImputeMedian, label: "median", center: median})
}

// Center subtracts the training column means.
func (r *Recipe) Center() *Recipe { return r.Add(centerStep{}) }

// Scale divides by the training column standard deviations.
func (r *Recipe) Scale() *Recipe { return r.Add(scaleStep{}) }

// PCA rotates onto the first k principal components. k <= 0 keeps all.
func (r *Recipe) PCA(k int) *Recipe { return r.Add(pcaStep{components: k}) }

// Steps returns the names of the declared steps.
func (r *Recipe) Steps() []string {
	names := make([]string, len(r.steps))
	for i, s := range r.steps {
		names[i] = s.Name()
	}
	return names
}

func (r *Recipe) validate() error {
	if len(r.steps) == 0 {
		return apperrors.NewValidationError("recipe has no steps")
	}
	for i, s := range r.steps {
		if s.Name() == StepPCA && i != len(r.steps)-1 {
			return apperrors.NewValidationError("pca must be the last step of a recipe").
				WithContext("position", i+1)
		}
	}
	return nil
}

// Prep fits every step in order, each on the output of the previous one.
func (r *Recipe) Prep(ctx context.Context, f *Frame) (*Prepped, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, apperrors.NewValidationError("recipe needs a training frame")
	}

	prepped := &Prepped{names: append([]string(nil), f.Names...)}
	current := f.Copy()
	for _, step := range r.steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fitted, err := step.Fit(current)
		if err != nil {
			return nil, fmt.Errorf("fit %s: %w", step.Name(), err)
		}
		current, err = fitted.Transform(current)
		if err != nil {
			return nil, fmt.Errorf("apply %s: %w", step.Name(), err)
		}

		rows, cols := current.Dims()
		r.logger.DebugContext(ctx, "Fitted recipe step",
			slog.String("step", step.Name()),
			slog.String("summary", fitted.Summary()),
			slog.Int("rows", rows),
			slog.Int("columns", cols))

		prepped.steps = append(prepped.steps, fitted)
		prepped.summaries = append(prepped.summaries, StepSummary{Step: step.Name(), Summary: fitted.Summary()})
		if p, ok := fitted.(*PCAFit); ok {
			prepped.pca = p
		}
	}
	prepped.juiced = current
	return prepped, nil
}

// Prepped is a fitted recipe.
type Prepped struct {
	names     []string
	steps     []Fitted
	summaries []StepSummary
	juiced    *Frame
	pca       *PCAFit
}

// StepSummary describes one fitted step.
type StepSummary struct {
	Step    string `json:"step"`
	Summary string `json:"summary"`
}

// Bake applies the fitted steps to new data.
func (p *Prepped) Bake(f *Frame) (*Frame, error) {
	if f == nil {
		return nil, apperrors.NewValidationError("bake needs a frame")
	}
	if err := f.checkNames(p.names); err != nil {
		return nil, err
	}
	current := f
	for _, step := range p.steps {
		next, err := step.Transform(current)
		if err != nil {
			return nil, fmt.Errorf("apply %s: %w", step.Name(), err)
		}
		current = next
	}
	return current, nil
}

// Juice returns the training data after every step.
func (p *Prepped) Juice() *Frame { return p.juiced.Copy() }

// PCA returns the fitted rotation, if the recipe has one.
func (p *Prepped) PCA() (*PCAFit, bool) { return p.pca, p.pca != nil }

// Summaries describes every step as it was fitted on the training data.
func (p *Prepped) Summaries() []StepSummary {
	return append([]StepSummary(nil), p.summaries...)
}
