package report

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"pcareport/internal/correlation"
	"pcareport/internal/pca"
	"pcareport/internal/recipe"
)

// varianceTarget is the cumulative percentage the article reports reaching.
const varianceTarget = 90

func missingProse(d Data) string {
	total := 0
	var affected []string
	for _, name := range append([]string{d.GroupColumn}, d.Measurements...) {
		if n := d.Missing[name]; n > 0 {
			total += n
			affected = append(affected, fmt.Sprintf("`%s` (%d)", name, n))
		}
	}
	if total == 0 {
		return "No values are missing in the analysed columns."
	}

	var action string
	switch d.MissingStrategy {
	case recipe.MissingMean:
		action = "Missing measurements were replaced with the column mean before the rotation."
	case recipe.MissingMedian:
		action = "Missing measurements were replaced with the column median before the rotation."
	default:
		action = fmt.Sprintf("Rows with any missing value were dropped, leaving %d of %d specimens.",
			d.RowsLoaded-d.RowsDropped, d.RowsLoaded)
	}
	imputed := d.MissingStrategy == recipe.MissingMean || d.MissingStrategy == recipe.MissingMedian
	if imputed && d.RowsDropped > 0 {
		action += fmt.Sprintf(" %d specimens without a `%s` label were left out.", d.RowsDropped, d.GroupColumn)
	}
	return fmt.Sprintf("%d values are missing across %s. %s", total, strings.Join(affected, ", "), action)
}

func correlationProse(m *correlation.Matrix) string {
	pairs := m.Strongest(3)
	if len(pairs) == 0 {
		return "There are no variable pairs to correlate."
	}

	var parts []string
	for _, p := range pairs {
		if math.IsNaN(p.R) {
			continue
		}
		parts = append(parts, fmt.Sprintf("`%s` and `%s` (r = %.2f, %s %s)",
			p.X, p.Y, p.R, correlation.Strength(p.R), direction(p.R)))
	}
	if len(parts) == 0 {
		return "None of the correlations are defined."
	}

	s := fmt.Sprintf("The strongest associations are between %s.", joinWords(parts))
	if strong := countStrong(m.Pairs()); strong > 0 {
		s += fmt.Sprintf(" %d of %d pairs have |r| of at least 0.6, so the measurements share enough structure for a rotation to summarise them in fewer dimensions.",
			strong, len(m.Pairs()))
	} else {
		s += " No pair has |r| of 0.6 or more, so the leading components are unlikely to capture much more variance than the individual measurements."
	}
	return s
}

func countStrong(pairs []correlation.Pair) int {
	n := 0
	for _, p := range pairs {
		if math.Abs(p.R) >= 0.6 {
			n++
		}
	}
	return n
}

func direction(r float64) string {
	if r < 0 {
		return "negative"
	}
	return "positive"
}

func varianceProse(v pca.VarianceTable) string {
	if len(v) == 0 {
		return ""
	}
	s := fmt.Sprintf("%s explains %.1f%% of the total variance", v[0].Component, v[0].Percent)
	if len(v) > 1 {
		s += fmt.Sprintf(" and the first two components together explain %.1f%%", v[1].CumulativePercent)
	}
	k := v.ComponentsFor(varianceTarget)
	s += fmt.Sprintf(". %d of %d components are needed to reach %d%%.", k, len(v), varianceTarget)
	return s
}

func loadingsProse(res *pca.Result, n int) []string {
	comps := res.Wide.Components
	if n > len(comps) {
		n = len(comps)
	}
	out := make([]string, 0, n)
	for _, c := range comps[:n] {
		top := res.Loadings.TopTerms(c, 2)
		var terms []string
		for _, l := range top {
			terms = append(terms, fmt.Sprintf("`%s` (%+.2f)", l.Term, l.Value))
		}
		line := fmt.Sprintf("**%s** (%.1f%%) is dominated by %s", c, res.Variance.Percent(c), joinWords(terms))
		if len(top) == 2 && (top[0].Value < 0) != (top[1].Value < 0) {
			line += ", which pull in opposite directions"
		}
		out = append(out, line+".")
	}
	return out
}

func separationProse(res *pca.Result) string {
	scores := res.Scores
	if len(scores.Components) == 0 {
		return ""
	}
	groups := scores.GroupSummaries()
	if len(groups) < 2 {
		return fmt.Sprintf("All specimens belong to one group, so the biplots show spread rather than separation on %s.", scores.Components[0])
	}

	sort.SliceStable(groups, func(a, b int) bool { return groups[a].Mean[0] < groups[b].Mean[0] })
	var order []string
	for _, g := range groups {
		order = append(order, fmt.Sprintf("%s (%.2f)", g.Group, g.Mean[0]))
	}
	eta := scores.Separation(0)
	return fmt.Sprintf("Along %s the group centroids are ordered %s. Group membership accounts for %.0f%% of the variance of %s scores, %s.",
		scores.Components[0], strings.Join(order, " < "), 100*eta, scores.Components[0], separationWords(eta))
}

func separationWords(eta float64) string {
	switch {
	case eta >= 0.8:
		return "so the groups separate cleanly"
	case eta >= 0.5:
		return "so the groups separate with some overlap"
	case eta >= 0.2:
		return "so the groups overlap substantially"
	default:
		return "so the component says little about group membership"
	}
}

func separationState(eta float64) string {
	switch {
	case eta >= 0.8:
		return "cleanly separated"
	case eta >= 0.5:
		return "separated with some overlap"
	case eta >= 0.2:
		return "largely overlapping"
	default:
		return "not separated"
	}
}

func conclusion(d Data) string {
	v := d.Result.Variance
	if len(v) == 0 {
		return ""
	}
	k := v.ComponentsFor(varianceTarget)
	s := fmt.Sprintf("The %d measurements reduce to %d principal component", len(d.Measurements), k)
	if k != 1 {
		s += "s"
	}
	s += fmt.Sprintf(" covering at least %d%% of the variance.", varianceTarget)
	if d.Result.Scores != nil && len(d.Result.Scores.GroupSummaries()) > 1 {
		s += fmt.Sprintf(" The %s groups are %s on %s.", d.GroupColumn,
			separationState(d.Result.Scores.Separation(0)), d.Result.Scores.Components[0])
	}
	return s
}

func joinWords(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
