package report

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/KaramelBytes/statloom-cli/internal/examine"
	"github.com/KaramelBytes/statloom-cli/internal/explore"
)

// TruncatedNote is the footnote shown when a group had fewer valid cases
// than the requested number of extremes.
const TruncatedNote = "The requested number of extreme values exceeds the number of data points. A smaller number of extremes is displayed."

// ExtremeValues lists the highest and lowest cases of each dependent
// variable (and group). Highest keeps the service order; Lowest is listed
// by case number descending. Partial boundary entries get lettered
// footnotes.
func ExtremeValues(agg *explore.Aggregated, p explore.Params) *Table {
	if !p.ShowOutliers {
		return nil
	}
	factors := p.HasFactors()
	depth, dirPos := 3, 1
	if factors {
		depth, dirPos = 4, 2
	}
	t := &Table{
		Name:        "extreme_values",
		Title:       "Extreme Values",
		HeaderDepth: depth,
		Columns:     []Column{Col("case", "Case Number"), Col("value", "Value")},
	}

	var notes []string
	truncated := false
	list := func(dir, side string, xs []examine.Extreme) Row {
		rows := make([]Row, 0, len(xs))
		for i, x := range xs {
			value := Stat(x.Value)
			if x.Partial {
				mark := letter(len(notes))
				value += "^" + mark
				notes = append(notes, fmt.Sprintf("%s. Only a partial list of cases with the value %s are shown in the table of %s extremes.", mark, Stat(x.Value), side))
			}
			rows = append(rows, Leaf(hdr(depth, dirPos+1, strconv.Itoa(i+1)), map[string]string{
				"case":  strconv.Itoa(x.Case),
				"value": value,
			}))
		}
		return Branch(hdr(depth, dirPos, dir), rows...)
	}

	for _, vr := range agg.RegroupByDepVar() {
		var children []Row
		for _, e := range vr.Entries {
			ex := e.Result.Extremes
			if ex == nil || (len(ex.Highest) == 0 && len(ex.Lowest) == 0) {
				continue
			}
			truncated = truncated || ex.Truncated
			var blocks []Row
			if len(ex.Highest) > 0 {
				blocks = append(blocks, list("Highest", "upper", ex.Highest))
			}
			if len(ex.Lowest) > 0 {
				blocks = append(blocks, list("Lowest", "lower", lowestByCase(ex.Lowest)))
			}
			if !factors {
				children = append(children, blocks...)
				continue
			}
			children = append(children, Branch(hdr(depth, 1, e.Label()), blocks...))
		}
		if len(children) > 0 {
			t.Rows = append(t.Rows, nest(depth, vr.Variable.DisplayName(), children))
		}
	}
	if len(t.Rows) == 0 {
		return nil
	}
	if truncated {
		t.Footnotes = append(t.Footnotes, TruncatedNote)
	}
	t.Footnotes = append(t.Footnotes, notes...)
	return t
}

// lowestByCase returns a copy ordered by case number, descending.
func lowestByCase(xs []examine.Extreme) []examine.Extreme {
	out := append([]examine.Extreme(nil), xs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Case > out[j].Case })
	return out
}

// letter returns the footnote letter for index i: a..z, aa, ab, ...
func letter(i int) string {
	s := ""
	for {
		s = string(rune('a'+i%26)) + s
		i = i/26 - 1
		if i < 0 {
			return s
		}
	}
}
