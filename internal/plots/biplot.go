package plots

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	apperrors "pcareport/internal/errors"
	"pcareport/internal/pca"
)

var (
	arrowColor    = color.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 255}
	centroidColor = color.RGBA{A: 255}
)

// DefaultArrowScale is the share of the largest score that the longest arrow reaches.
const DefaultArrowScale = 0.8

// Biplot draws specimen scores on components a and b (1-based), coloured by
// group, with group centroids and one arrow per term showing its loadings.
// Axis labels carry the percent variance explained by each component.
func Biplot(res *pca.Result, a, b int, arrowScale float64) (*plot.Plot, error) {
	scores := res.Scores
	k := len(scores.Components)
	if a < 1 || b < 1 || a > k || b > k || a == b {
		return nil, apperrors.NewValidationError(fmt.Sprintf("biplot needs two distinct components in 1..%d, got %d and %d", k, a, b))
	}
	if arrowScale <= 0 {
		arrowScale = DefaultArrowScale
	}
	ca, cb := scores.Components[a-1], scores.Components[b-1]

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Biplot %s vs %s", ca, cb)
	p.X.Label.Text = fmt.Sprintf("%s (%.1f%% explained var.)", ca, res.Variance.Percent(ca))
	p.Y.Label.Text = fmt.Sprintf("%s (%.1f%% explained var.)", cb, res.Variance.Percent(cb))
	p.Add(plotter.NewGrid())

	xs, ys := scores.Column(a-1), scores.Column(b-1)
	style := newGroupStyle(scores.Levels())
	for _, g := range scores.GroupSummaries() {
		pts := make(plotter.XYs, 0, g.Count)
		for i, label := range scores.Groups {
			if label == g.Group {
				pts = append(pts, plotter.XY{X: xs[i], Y: ys[i]})
			}
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, apperrors.NewRenderError("biplot scores", err)
		}
		s.Color = style.color(g.Group)
		s.Shape = style.shape(g.Group)
		s.Radius = vg.Points(2)
		p.Add(s)
		p.Legend.Add(legendLabel(g), s)
	}

	centroids, err := centroidScatter(scores.GroupSummaries(), a-1, b-1)
	if err != nil {
		return nil, err
	}
	p.Add(centroids)
	p.Legend.Add("group centroid", centroids)
	p.Legend.Top = true

	if err := addArrows(p, res, a-1, b-1, scaleFactor(res, xs, ys, a-1, b-1)*arrowScale); err != nil {
		return nil, err
	}

	return p, nil
}

func legendLabel(g pca.GroupSummary) string {
	label := g.Group
	if label == "" {
		label = "(none)"
	}
	return fmt.Sprintf("%s (n=%d)", label, g.Count)
}

func centroidScatter(groups []pca.GroupSummary, a, b int) (*plotter.Scatter, error) {
	pts := make(plotter.XYs, len(groups))
	for i, g := range groups {
		pts[i] = plotter.XY{X: g.Mean[a], Y: g.Mean[b]}
	}
	c, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, apperrors.NewRenderError("biplot centroids", err)
	}
	c.Color = centroidColor
	c.Shape = draw.CrossGlyph{}
	c.Radius = vg.Points(5)
	return c, nil
}

// scaleFactor maps the longest loading arrow onto the largest score magnitude.
func scaleFactor(res *pca.Result, xs, ys []float64, a, b int) float64 {
	maxScore := 0.0
	for i := range xs {
		maxScore = math.Max(maxScore, math.Hypot(xs[i], ys[i]))
	}
	maxLoading := 0.0
	for i := range res.Wide.Terms {
		maxLoading = math.Max(maxLoading, math.Hypot(res.Wide.Values.At(i, a), res.Wide.Values.At(i, b)))
	}
	if maxLoading == 0 || maxScore == 0 {
		return 1
	}
	return maxScore / maxLoading
}

func addArrows(p *plot.Plot, res *pca.Result, a, b int, scale float64) error {
	var (
		tips   []plotter.XY
		labels []string
	)
	for i, term := range res.Wide.Terms {
		x := res.Wide.Values.At(i, a) * scale
		y := res.Wide.Values.At(i, b) * scale

		shaft, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: x, Y: y}})
		if err != nil {
			return apperrors.NewRenderError("biplot arrow", err)
		}
		shaft.Color = arrowColor
		shaft.Width = vg.Points(1.2)
		p.Add(shaft)

		if head := arrowHead(x, y); head != nil {
			h, err := plotter.NewLine(head)
			if err != nil {
				return apperrors.NewRenderError("biplot arrow head", err)
			}
			h.Color = arrowColor
			h.Width = vg.Points(1.2)
			p.Add(h)
		}

		tips = append(tips, plotter.XY{X: x * 1.08, Y: y * 1.08})
		labels = append(labels, term)
	}

	l, err := plotter.NewLabels(plotter.XYLabels{XYs: tips, Labels: labels})
	if err != nil {
		return apperrors.NewRenderError("biplot arrow labels", err)
	}
	for i := range l.TextStyle {
		l.TextStyle[i].XAlign = -0.5
		l.TextStyle[i].YAlign = -0.5
		l.TextStyle[i].Font.Size = vg.Points(8)
	}
	p.Add(l)
	return nil
}

// arrowHead returns the two barbs of an arrow ending at (x, y), drawn as one
// polyline through the tip.
func arrowHead(x, y float64) plotter.XYs {
	length := math.Hypot(x, y)
	if length == 0 {
		return nil
	}
	barb := 0.08 * length
	angle := math.Atan2(y, x)
	left := angle + math.Pi - math.Pi/8
	right := angle + math.Pi + math.Pi/8
	return plotter.XYs{
		{X: x + barb*math.Cos(left), Y: y + barb*math.Sin(left)},
		{X: x, Y: y},
		{X: x + barb*math.Cos(right), Y: y + barb*math.Sin(right)},
	}
}
