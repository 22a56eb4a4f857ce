package report

import (
	"github.com/KaramelBytes/statloom-cli/internal/examine"
	"github.com/KaramelBytes/statloom-cli/internal/explore"
)

var mEstimatorNotes = []string{
	"a. The weighting constant is 1.339.",
	"b. The weighting constant is 4.685.",
	"c. The weighting constants are 1.700, 3.400, and 8.500.",
	"d. The weighting constant is 1.340*pi.",
}

// MEstimators lists the four robust location estimates.
func MEstimators(agg *explore.Aggregated, p explore.Params) *Table {
	if !p.ShowMEstimators {
		return nil
	}
	depth := 1
	if p.HasFactors() {
		depth = 2
	}
	t := &Table{
		Name:        "m_estimators",
		Title:       "M-Estimators",
		HeaderDepth: depth,
		Columns: []Column{
			Col("huber", "Huber's M-Estimator^a"),
			Col("tukey", "Tukey's Biweight^b"),
			Col("hampel", "Hampel's M-Estimator^c"),
			Col("andrews", "Andrews' Wave^d"),
		},
		Footnotes: append([]string(nil), mEstimatorNotes...),
	}
	for _, vr := range agg.RegroupByDepVar() {
		name := vr.Variable.DisplayName()
		var children []Row
		for _, e := range vr.Entries {
			m := e.Result.MEstimators
			if m == nil {
				continue
			}
			if depth == 1 {
				t.Rows = append(t.Rows, Leaf(hdr(depth, 0, name), mEstimatorCells(m)))
				break
			}
			children = append(children, Leaf(hdr(depth, 1, e.Label()), mEstimatorCells(m)))
		}
		if len(children) > 0 {
			t.Rows = append(t.Rows, nest(depth, name, children))
		}
	}
	if len(t.Rows) == 0 {
		return nil
	}
	return t
}

func mEstimatorCells(m *examine.MEstimators) map[string]string {
	return map[string]string{
		"huber":   Stat(m.Huber),
		"tukey":   Stat(m.Tukey),
		"hampel":  Stat(m.Hampel),
		"andrews": Stat(m.Andrews),
	}
}
