package plots

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	apperrors "pcareport/internal/errors"
	"pcareport/internal/pca"
)

// LoadingBars returns one horizontal bar panel per component for the first n
// components, laid out in a single row. Axes share the [-1, 1] range.
func LoadingBars(res *pca.Result, n int) ([][]*plot.Plot, error) {
	wide := res.Wide
	if n <= 0 || n > len(wide.Components) {
		n = len(wide.Components)
	}
	if n == 0 {
		return nil, apperrors.NewValidationError("no components to plot")
	}

	row := make([]*plot.Plot, n)
	for j := 0; j < n; j++ {
		component := wide.Components[j]
		values, err := wide.Column(component)
		if err != nil {
			return nil, err
		}

		bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(10))
		if err != nil {
			return nil, apperrors.NewRenderError(fmt.Sprintf("loading bars for %s", component), err)
		}
		bars.Horizontal = true
		bars.Color = plotutil.Color(j)
		bars.LineStyle.Width = 0

		p := plot.New()
		p.Title.Text = fmt.Sprintf("%s (%.1f%%)", component, res.Variance.Percent(component))
		p.Add(bars, plotter.NewGrid())
		p.X.Min, p.X.Max = -1, 1
		p.X.Label.Text = "loading"
		if j == 0 {
			p.NominalY(wide.Terms...)
		} else {
			p.NominalY(make([]string, len(wide.Terms))...)
		}
		smallTicks(p)
		row[j] = p
	}
	return [][]*plot.Plot{row}, nil
}
