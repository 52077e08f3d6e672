package plots

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"pcareport/internal/correlation"
	apperrors "pcareport/internal/errors"
)

const histogramBins = 12

// PairsMatrix builds the pairs grid: scatter plots coloured by group below the
// diagonal, a histogram per variable on the diagonal and the correlation
// coefficient above it.
func PairsMatrix(t Table, corr *correlation.Matrix) ([][]*plot.Plot, error) {
	n := len(t.Names)
	if n < 2 {
		return nil, apperrors.NewValidationError("pairs matrix needs at least two variables")
	}
	if len(t.Columns) != n {
		return nil, apperrors.NewValidationError("pairs matrix needs one column per name")
	}

	style := newGroupStyle(t.Levels())
	grid := make([][]*plot.Plot, n)
	for i := 0; i < n; i++ {
		grid[i] = make([]*plot.Plot, n)
		for j := 0; j < n; j++ {
			var (
				p   *plot.Plot
				err error
			)
			switch {
			case i == j:
				p, err = diagonalHistogram(t.Columns[i])
			case i > j:
				p, err = pairScatter(t, style, j, i)
			default:
				p = coefficientPanel(corr.At(i, j))
			}
			if err != nil {
				return nil, apperrors.NewRenderError(fmt.Sprintf("pairs panel %s/%s", t.Names[i], t.Names[j]), err)
			}
			if i == n-1 {
				p.X.Label.Text = t.Names[j]
			}
			if j == 0 {
				p.Y.Label.Text = t.Names[i]
			}
			smallTicks(p)
			grid[i][j] = p
		}
	}
	return grid, nil
}

func diagonalHistogram(values []float64) (*plot.Plot, error) {
	p := plot.New()
	h, err := plotter.NewHist(plotter.Values(values), histogramBins)
	if err != nil {
		return nil, err
	}
	h.FillColor = histogramFill
	p.Add(h)
	return p, nil
}

func pairScatter(t Table, style groupStyle, x, y int) (*plot.Plot, error) {
	p := plot.New()
	for _, level := range t.Levels() {
		pts := make(plotter.XYs, 0)
		for r, g := range t.Groups {
			if g == level {
				pts = append(pts, plotter.XY{X: t.Columns[x][r], Y: t.Columns[y][r]})
			}
		}
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, err
		}
		s.Color = style.color(level)
		s.Shape = style.shape(level)
		s.Radius = vg.Points(1.5)
		p.Add(s)
	}
	return p, nil
}

func coefficientPanel(r float64) *plot.Plot {
	p := plot.New()
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.HideAxes()

	text, size := "r = NA", vg.Points(10)
	if !math.IsNaN(r) {
		text = fmt.Sprintf("r = %.2f", r)
		size = vg.Points(10 + 6*math.Abs(r))
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    []plotter.XY{{X: 0.5, Y: 0.5}},
		Labels: []string{text},
	})
	if err == nil {
		for i := range labels.TextStyle {
			labels.TextStyle[i].XAlign = -0.5
			labels.TextStyle[i].YAlign = -0.5
			labels.TextStyle[i].Font.Size = size
		}
		p.Add(labels)
	}
	return p
}
