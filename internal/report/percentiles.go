package report

import (
	"strconv"

	"github.com/KaramelBytes/statloom-cli/internal/examine"
	"github.com/KaramelBytes/statloom-cli/internal/explore"
)

const (
	weightedAverageLabel = "Weighted Average(Definition 1)"
	tukeyHingesLabel     = "Tukey's Hinges"
)

func percentileKey(pt float64) string { return "p" + strconv.FormatFloat(pt, 'f', -1, 64) }

// Percentiles shows the weighted-average percentiles and Tukey's hinges in
// two top-level blocks, each listing every dependent variable.
func Percentiles(agg *explore.Aggregated, p explore.Params) *Table {
	if !p.ShowPercentiles {
		return nil
	}
	factors := p.HasFactors()
	depth := 2
	if factors {
		depth = 3
	}
	cols := make([]Column, len(examine.PercentilePoints))
	for i, pt := range examine.PercentilePoints {
		cols[i] = Col(percentileKey(pt), strconv.FormatFloat(pt, 'f', -1, 64))
	}
	t := &Table{
		Name:        "percentiles",
		Title:       "Percentiles",
		HeaderDepth: depth,
		Columns:     []Column{Span("Percentiles", cols...)},
	}

	block := func(label string, cells func(*examine.Result) map[string]string) {
		var vars []Row
		for _, vr := range agg.RegroupByDepVar() {
			name := vr.Variable.DisplayName()
			var groups []Row
			for _, e := range vr.Entries {
				if e.Result.Percentiles == nil {
					continue
				}
				if !factors {
					vars = append(vars, Leaf(hdr(depth, 1, name), cells(e.Result)))
					break
				}
				groups = append(groups, Leaf(hdr(depth, 2, e.Label()), cells(e.Result)))
			}
			if len(groups) > 0 {
				vars = append(vars, Branch(hdr(depth, 1, name), groups...))
			}
		}
		if len(vars) > 0 {
			t.Rows = append(t.Rows, Branch(hdr(depth, 0, label), vars...))
		}
	}
	block(weightedAverageLabel, weightedAverageCells)
	block(tukeyHingesLabel, tukeyHingeCells)
	if len(t.Rows) == 0 {
		return nil
	}
	return t
}

func weightedAverageCells(r *examine.Result) map[string]string {
	cells := make(map[string]string, len(examine.PercentilePoints))
	for i, pt := range examine.PercentilePoints {
		if i < len(r.Percentiles.WeightedAverage) {
			cells[percentileKey(pt)] = Stat(r.Percentiles.WeightedAverage[i])
		}
	}
	return cells
}

// tukeyHingeCells fills 25/50/75 only. The 50th is the median.
func tukeyHingeCells(r *examine.Result) map[string]string {
	median := ""
	if r.Descriptives != nil {
		median = Stat(r.Descriptives.Median)
	}
	return map[string]string{
		percentileKey(25): Stat(r.Percentiles.TukeyLower),
		percentileKey(50): median,
		percentileKey(75): Stat(r.Percentiles.TukeyUpper),
	}
}
