// Package plots renders the static figures of the report: the pairs matrix,
// the correlation heatmap, loading bars, biplots and the scree chart.
//
// Every figure is built with gonum/plot except the scree chart, which uses
// go-chart. Figures are independent of each other, so Renderer draws them
// concurrently once all analysis results are final.
package plots

import (
	"fmt"
	"image/color"
	"os"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"

	apperrors "pcareport/internal/errors"
)

// Supported output formats.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

// Figure geometry, in inches. A grid panel narrower or shorter than
// minPanelSize leaves no room for axes, and gonum/plot cannot lay it out.
const (
	MinFigureSize = 2.0
	panelSize     = 1.75
	minPanelSize  = 1.25
)

var histogramFill = color.Gray{Y: 190}

// Table is the complete-case measurement data shown in the pairs matrix.
type Table struct {
	Names   []string
	Groups  []string
	Columns [][]float64
}

// Levels returns the sorted distinct group labels.
func (t Table) Levels() []string { return levels(t.Groups) }

func levels(groups []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, g := range groups {
		if _, ok := seen[g]; !ok {
			seen[g] = struct{}{}
			out = append(out, g)
		}
	}
	sort.Strings(out)
	return out
}

// groupStyle assigns a stable color and glyph to every group level.
type groupStyle struct {
	index map[string]int
}

func newGroupStyle(levels []string) groupStyle {
	idx := make(map[string]int, len(levels))
	for i, l := range levels {
		idx[l] = i
	}
	return groupStyle{index: idx}
}

func (s groupStyle) color(group string) color.Color { return plotutil.Color(s.index[group]) }

func (s groupStyle) shape(group string) draw.GlyphDrawer { return plotutil.Shape(s.index[group]) }

func checkFormat(format string) error {
	switch format {
	case FormatPNG, FormatSVG:
		return nil
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unsupported figure format %q", format))
	}
}

func newCanvas(format string, w, h vg.Length) (vg.CanvasWriterTo, error) {
	switch format {
	case FormatPNG:
		return vgimg.PngCanvas{Canvas: vgimg.New(w, h)}, nil
	case FormatSVG:
		return vgsvg.New(w, h), nil
	default:
		return nil, checkFormat(format)
	}
}

func gridTiles(rows, cols int) draw.Tiles {
	return draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter,
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(4),
	}
}

// panelLength returns the length of one of n panels sharing total.
func panelLength(total vg.Length, n int, pad, before, after vg.Length) vg.Length {
	return (total - before - after - vg.Length(n-1)*pad) / vg.Length(n)
}

// gridLength grows length so that each of n panels gets at least panelSize.
func gridLength(length vg.Length, n int) vg.Length {
	return max(length, vg.Length(n)*panelSize*vg.Inch)
}

// saveGrid draws a rows × cols grid of plots aligned on a single canvas.
func saveGrid(grid [][]*plot.Plot, path, format string, w, h vg.Length) error {
	if len(grid) == 0 || len(grid[0]) == 0 {
		return apperrors.NewValidationError("figure grid is empty")
	}
	tiles := gridTiles(len(grid), len(grid[0]))
	pw := panelLength(w, tiles.Cols, tiles.PadX, tiles.PadLeft, tiles.PadRight)
	ph := panelLength(h, tiles.Rows, tiles.PadY, tiles.PadTop, tiles.PadBottom)
	if pw < minPanelSize*vg.Inch || ph < minPanelSize*vg.Inch {
		return apperrors.NewValidationError("figure too small for its panel grid").
			WithContext("panel_width_in", float64(pw/vg.Inch)).
			WithContext("panel_height_in", float64(ph/vg.Inch))
	}

	c, err := newCanvas(format, w, h)
	if err != nil {
		return err
	}
	canvases := plot.Align(grid, tiles, draw.New(c))
	for i := range grid {
		for j := range grid[i] {
			if grid[i][j] != nil {
				grid[i][j].Draw(canvases[i][j])
			}
		}
	}

	return writeCanvas(c, path)
}

func savePlot(p *plot.Plot, path, format string, w, h vg.Length) error {
	c, err := newCanvas(format, w, h)
	if err != nil {
		return err
	}
	p.Draw(draw.New(c))
	return writeCanvas(c, path)
}

func writeCanvas(c vg.CanvasWriterTo, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.NewStorageError("create figure file", err).WithContext("path", path)
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return apperrors.NewRenderError("write figure", err).WithContext("path", path)
	}
	if err := f.Close(); err != nil {
		return apperrors.NewStorageError("close figure file", err).WithContext("path", path)
	}
	return nil
}

func smallTicks(p *plot.Plot) {
	p.X.Tick.Label.Font.Size = vg.Points(6)
	p.Y.Tick.Label.Font.Size = vg.Points(6)
	p.X.Label.TextStyle.Font.Size = vg.Points(8)
	p.Y.Label.TextStyle.Font.Size = vg.Points(8)
}
