package plots

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot/vg"

	"pcareport/internal/correlation"
	apperrors "pcareport/internal/errors"
	"pcareport/internal/pca"
)

// Figure is one rendered image.
type Figure struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Path    string `json:"path"`
	Caption string `json:"caption,omitempty"`
}

// Options controls figure size and content.
type Options struct {
	Format            string
	Width             float64 // inches
	Height            float64 // inches
	Biplots           [][2]int
	LoadingComponents int
	ArrowScale        float64
	Parallelism       int
}

// Input holds every analysis result a figure may draw from. It must not be
// modified while rendering.
type Input struct {
	Table       Table
	Correlation *correlation.Matrix
	Result      *pca.Result
}

// Renderer writes figures into one directory.
type Renderer struct {
	dir    string
	opts   Options
	logger *slog.Logger
}

// NewRenderer creates a renderer writing into dir.
func NewRenderer(dir string, opts Options, logger *slog.Logger) (*Renderer, error) {
	if err := checkFormat(opts.Format); err != nil {
		return nil, err
	}
	if opts.Width < MinFigureSize || opts.Height < MinFigureSize {
		return nil, apperrors.NewValidationError(fmt.Sprintf("figure width and height must be at least %g inches", MinFigureSize))
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{dir: dir, opts: opts, logger: logger}, nil
}

type job struct {
	figure Figure
	draw   func(path string) error
}

// Render draws every figure and returns them in a stable order. The first
// failure cancels figures that have not started yet.
func (r *Renderer) Render(ctx context.Context, in Input) ([]Figure, error) {
	jobs := r.jobs(in)

	var (
		mu      sync.Mutex
		figures []Figure
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Parallelism)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(r.dir, j.figure.Name+"."+r.opts.Format)
			if err := j.draw(path); err != nil {
				return fmt.Errorf("render %s: %w", j.figure.Name, err)
			}
			r.logger.DebugContext(ctx, "Rendered figure",
				slog.String("figure", j.figure.Name),
				slog.String("path", path))

			f := j.figure
			f.Path = path
			mu.Lock()
			figures = append(figures, f)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	order := make(map[string]int, len(jobs))
	for i, j := range jobs {
		order[j.figure.Name] = i
	}
	sort.Slice(figures, func(a, b int) bool { return order[figures[a].Name] < order[figures[b].Name] })
	return figures, nil
}

func (r *Renderer) size() (vg.Length, vg.Length) {
	return vg.Length(r.opts.Width) * vg.Inch, vg.Length(r.opts.Height) * vg.Inch
}

func (r *Renderer) jobs(in Input) []job {
	w, h := r.size()
	format := r.opts.Format
	var jobs []job

	// The pairs matrix needs complete rows; without them only the heatmap is drawn.
	if in.Correlation != nil && len(in.Table.Names) > 1 && len(in.Table.Groups) > 0 {
		jobs = append(jobs, job{
			figure: Figure{Name: "pairs", Title: "Pairs plot", Caption: "Scatter plots by group below the diagonal, distributions on the diagonal, correlation coefficients above."},
			draw: func(path string) error {
				grid, err := PairsMatrix(in.Table, in.Correlation)
				if err != nil {
					return err
				}
				side := gridLength(max(w, h), len(grid))
				return saveGrid(grid, path, format, side, side)
			},
		})
	}
	if in.Correlation != nil {
		jobs = append(jobs, job{
			figure: Figure{Name: "correlation", Title: "Correlation heatmap"},
			draw: func(path string) error {
				p, err := CorrelationHeatmap(in.Correlation)
				if err != nil {
					return err
				}
				return savePlot(p, path, format, w, h)
			},
		})
	}

	if in.Result == nil {
		return jobs
	}

	jobs = append(jobs, job{
		figure: Figure{Name: "scree", Title: "Variance explained"},
		draw: func(path string) error {
			return saveScree(in.Result.Variance, path, format, int(r.opts.Width*100), int(r.opts.Height*100))
		},
	})
	jobs = append(jobs, job{
		figure: Figure{Name: "loadings", Title: "Loadings"},
		draw: func(path string) error {
			grid, err := LoadingBars(in.Result, r.opts.LoadingComponents)
			if err != nil {
				return err
			}
			return saveGrid(grid, path, format, gridLength(w*1.5, len(grid[0])), h)
		},
	})

	for _, pair := range r.opts.Biplots {
		a, b := pair[0], pair[1]
		// Pairs beyond the retained components have nothing to draw.
		if k := len(in.Result.Scores.Components); a > k || b > k {
			r.logger.Info("Skipping biplot beyond retained components",
				slog.Int("a", a), slog.Int("b", b), slog.Int("components", k))
			continue
		}
		jobs = append(jobs, job{
			figure: Figure{
				Name:  fmt.Sprintf("biplot_pc%d_pc%d", a, b),
				Title: fmt.Sprintf("Biplot PC%d vs PC%d", a, b),
			},
			draw: func(path string) error {
				p, err := Biplot(in.Result, a, b, r.opts.ArrowScale)
				if err != nil {
					return err
				}
				return savePlot(p, path, format, w, h)
			},
		})
	}
	return jobs
}
