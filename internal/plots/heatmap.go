package plots

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"

	"pcareport/internal/correlation"
	apperrors "pcareport/internal/errors"
)

// correlationGrid adapts a correlation matrix to plotter.GridXYZ. Row 0 of the
// grid is the last variable so that the first variable is drawn at the top.
type correlationGrid struct {
	m *correlation.Matrix
}

func (g correlationGrid) Dims() (c, r int) { return g.m.Size(), g.m.Size() }

func (g correlationGrid) Z(c, r int) float64 {
	v := g.m.At(g.m.Size()-1-r, c)
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func (g correlationGrid) X(c int) float64 { return float64(c) }

func (g correlationGrid) Y(r int) float64 { return float64(r) }

// CorrelationHeatmap draws the matrix on a diverging blue-red scale fixed to [-1, 1].
func CorrelationHeatmap(m *correlation.Matrix) (*plot.Plot, error) {
	if m.Size() == 0 {
		return nil, apperrors.NewValidationError("correlation matrix is empty")
	}

	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(-1)
	cmap.SetMax(1)

	grid := correlationGrid{m: m}
	hm := plotter.NewHeatMap(grid, cmap.Palette(255))
	hm.Min, hm.Max = -1, 1

	p := plot.New()
	p.Title.Text = "Correlation matrix"
	p.Add(hm)

	n := m.Size()
	var (
		pts    []plotter.XY
		labels []string
	)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			v := m.At(n-1-r, c)
			text := "NA"
			if !math.IsNaN(v) {
				text = fmt.Sprintf("%.2f", v)
			}
			pts = append(pts, plotter.XY{X: float64(c), Y: float64(r)})
			labels = append(labels, text)
		}
	}
	l, err := plotter.NewLabels(plotter.XYLabels{XYs: pts, Labels: labels})
	if err != nil {
		return nil, apperrors.NewRenderError("correlation labels", err)
	}
	for i := range l.TextStyle {
		l.TextStyle[i].XAlign = -0.5
		l.TextStyle[i].YAlign = -0.5
	}
	p.Add(l)

	reversed := make([]string, n)
	for i, name := range m.Variables {
		reversed[n-1-i] = name
	}
	p.NominalX(m.Variables...)
	p.NominalY(reversed...)
	p.X.Tick.Label.Rotation = math.Pi / 6
	p.X.Tick.Label.XAlign = -1

	return p, nil
}
