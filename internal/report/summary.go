package report

import (
	"github.com/KaramelBytes/statloom-cli/internal/examine"
	"github.com/KaramelBytes/statloom-cli/internal/explore"
)

// CaseProcessingSummary reports valid, missing and total case counts per
// dependent variable and group. It is always produced when any result
// exists.
func CaseProcessingSummary(agg *explore.Aggregated, p explore.Params) *Table {
	vrs := agg.RegroupByDepVar()
	if len(vrs) == 0 {
		return nil
	}
	depth := 1
	if p.HasFactors() {
		depth = 2
	}
	t := &Table{
		Name:        "case_processing_summary",
		Title:       "Case Processing Summary",
		HeaderDepth: depth,
		Columns: []Column{
			Span("Cases",
				Span("Valid", Col("valid_n", "N"), Col("valid_pct", "Percent")),
				Span("Missing", Col("missing_n", "N"), Col("missing_pct", "Percent")),
				Span("Total", Col("total_n", "N"), Col("total_pct", "Percent")),
			),
		},
	}
	for _, vr := range vrs {
		name := vr.Variable.DisplayName()
		if depth == 1 {
			t.Rows = append(t.Rows, Leaf(hdr(depth, 0, name), summaryCells(vr.Entries[0].Result.Summary)))
			continue
		}
		children := make([]Row, 0, len(vr.Entries))
		for _, e := range vr.Entries {
			children = append(children, Leaf(hdr(depth, 1, e.Label()), summaryCells(e.Result.Summary)))
		}
		t.Rows = append(t.Rows, nest(depth, name, children))
	}
	return t
}

func summaryCells(s examine.Summary) map[string]string {
	total := s.Valid + s.Missing
	return map[string]string{
		"valid_n":     Count(s.Valid),
		"valid_pct":   Percent(s.Valid, total),
		"missing_n":   Count(s.Missing),
		"missing_pct": Percent(s.Missing, total),
		"total_n":     Count(total),
		"total_pct":   Percent(total, total),
	}
}
