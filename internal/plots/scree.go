package plots

import (
	"bytes"
	"os"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	apperrors "pcareport/internal/errors"
	"pcareport/internal/pca"
)

// pointStyle returns a style with dots joined by a line.
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: 2,
		StrokeColor: col,
		DotWidth:    4,
		DotColor:    col,
	}
}

// Scree renders the percent and cumulative percent variance explained per
// component as a go-chart line chart.
func Scree(v pca.VarianceTable, format string, width, height int) (*bytes.Buffer, error) {
	if len(v) == 0 {
		return nil, apperrors.NewValidationError("variance table is empty")
	}

	xs := make([]float64, len(v))
	pct := make([]float64, len(v))
	cum := make([]float64, len(v))
	ticks := make([]chart.Tick, len(v))
	for i, row := range v {
		xs[i] = float64(i + 1)
		pct[i] = row.Percent
		cum[i] = row.CumulativePercent
		ticks[i] = chart.Tick{Value: xs[i], Label: row.Component}
	}
	// go-chart needs a non-degenerate x range.
	if len(xs) == 1 {
		xs = append(xs, 2)
		pct = append(pct, pct[0])
		cum = append(cum, cum[0])
	}

	ch := chart.Chart{
		Title:      "Variance explained",
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "component", Ticks: ticks},
		YAxis: chart.YAxis{
			Name:  "% variance",
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: "per component", XValues: xs, YValues: pct, Style: pointStyle(chart.ColorBlue)},
			chart.ContinuousSeries{Name: "cumulative", XValues: xs, YValues: cum, Style: pointStyle(chart.ColorRed)},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	provider := chart.PNG
	if format == FormatSVG {
		provider = chart.SVG
	}

	var buf bytes.Buffer
	if err := ch.Render(provider, &buf); err != nil {
		return nil, apperrors.NewRenderError("render scree chart", err)
	}
	return &buf, nil
}

func saveScree(v pca.VarianceTable, path, format string, width, height int) error {
	buf, err := Scree(v, format, width, height)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return apperrors.NewStorageError("write scree chart", err).WithContext("path", path)
	}
	return nil
}
