// Package report writes the narrative article of an analysis run as markdown:
// prose generated from the results, tables, and links to the figures.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"pcareport/internal/correlation"
	"pcareport/internal/dataset"
	apperrors "pcareport/internal/errors"
	"pcareport/internal/exporter"
	"pcareport/internal/pca"
	"pcareport/internal/plots"
	"pcareport/internal/recipe"
)

//go:embed templates/article.md.tmpl
var templates embed.FS

var article = template.Must(template.New("article.md.tmpl").Funcs(template.FuncMap{
	"join":     strings.Join,
	"codeList": codeList,
	"table":    markdownTable,
	"figure":   findFigure,
	"figureOf": figureMarkdown,
	"inc":      func(i int) int { return i + 1 },
}).ParseFS(templates, "templates/article.md.tmpl"))

// Data is everything the article reports on.
type Data struct {
	Title           string
	RunID           string
	Generated       time.Time
	Input           string
	GroupColumn     string
	Measurements    []string
	Levels          []string
	RowsLoaded      int
	RowsDropped     int
	MissingStrategy string
	Description     dataset.Description
	Missing         map[string]int
	Correlation     *correlation.Matrix
	Steps           []recipe.StepSummary
	Result          *pca.Result
	// Figures carry paths relative to the article.
	Figures []plots.Figure
}

type view struct {
	Title        string
	RunID        string
	Generated    string
	Input        string
	GroupColumn  string
	Measurements []string
	Levels       []string
	RowsLoaded   int
	Steps        []recipe.StepSummary
	Figures      []plots.Figure
	Biplots      []plots.Figure

	DescribeTable     exporter.Table
	GroupMeansTable   exporter.Table
	MissingTable      exporter.Table
	CorrelationTable  exporter.Table
	VarianceTable     exporter.Table
	WideLoadingsTable exporter.Table
	GroupScoresTable  exporter.Table

	MissingProse     string
	CorrelationProse string
	VarianceProse    string
	LoadingsProse    []string
	SeparationProse  string
	Conclusion       string
}

// Render writes the article to w.
func Render(w io.Writer, d Data) error {
	if d.Correlation == nil || d.Result == nil {
		return apperrors.NewValidationError("article needs correlation and pca results")
	}

	title := d.Title
	if title == "" {
		title = "Principal component analysis of specimen measurements"
	}
	columns := append([]string{d.GroupColumn}, d.Measurements...)

	v := view{
		Title:        title,
		RunID:        d.RunID,
		Generated:    d.Generated.UTC().Format(time.RFC3339),
		Input:        d.Input,
		GroupColumn:  d.GroupColumn,
		Measurements: d.Measurements,
		Levels:       d.Levels,
		RowsLoaded:   d.RowsLoaded,
		Steps:        d.Steps,
		Figures:      d.Figures,

		DescribeTable:     exporter.DescribeTable(d.Description),
		GroupMeansTable:   exporter.GroupMeansTable(d.Description, d.Measurements),
		MissingTable:      exporter.MissingTable(d.Missing, columns),
		CorrelationTable:  exporter.CorrelationTable(d.Correlation),
		VarianceTable:     exporter.VarianceTable(d.Result.Variance),
		WideLoadingsTable: exporter.WideLoadingsTable(d.Result.Wide),
		GroupScoresTable:  exporter.GroupScoresTable(d.Result.Scores),

		MissingProse:     missingProse(d),
		CorrelationProse: correlationProse(d.Correlation),
		VarianceProse:    varianceProse(d.Result.Variance),
		LoadingsProse:    loadingsProse(d.Result, 3),
		SeparationProse:  separationProse(d.Result),
		Conclusion:       conclusion(d),
	}
	for _, f := range d.Figures {
		if strings.HasPrefix(f.Name, "biplot_") {
			v.Biplots = append(v.Biplots, f)
		}
	}

	if err := article.Execute(w, v); err != nil {
		return apperrors.NewRenderError("execute article template", err)
	}
	return nil
}

// Write renders the article to path.
func Write(path string, d Data) error {
	var buf bytes.Buffer
	if err := Render(&buf, d); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("create report directory", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return apperrors.NewStorageError("write report", err).WithContext("path", path)
	}
	return nil
}

func codeList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "`" + s + "`"
	}
	return strings.Join(quoted, ", ")
}

func markdownTable(t exporter.Table) string {
	var b strings.Builder
	if t.Title != "" {
		fmt.Fprintf(&b, "**%s**\n\n", t.Title)
	}
	b.WriteString("| " + strings.Join(escapeCells(t.Headers), " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(t.Headers)) + "\n")
	for _, row := range t.Rows {
		b.WriteString("| " + strings.Join(escapeCells(row), " | ") + " |\n")
	}
	return b.String()
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return out
}

func findFigure(figures []plots.Figure, name string) string {
	for _, f := range figures {
		if f.Name == name {
			return figureMarkdown(f)
		}
	}
	return ""
}

func figureMarkdown(f plots.Figure) string {
	s := fmt.Sprintf("![%s](%s)\n", f.Title, filepath.ToSlash(f.Path))
	if f.Caption != "" {
		s += "\n_" + f.Caption + "_\n"
	}
	return s
}
