package report

import (
	"github.com/KaramelBytes/statloom-cli/internal/examine"
	"github.com/KaramelBytes/statloom-cli/internal/explore"
)

// Descriptives lists the descriptive statistics of each dependent variable,
// broken down by group when factors are set. Row headers are (variable,
// level, statistic, sub-label) with factors and (variable, statistic)
// without.
func Descriptives(agg *explore.Aggregated, p explore.Params) *Table {
	if !p.ShowDescriptives {
		return nil
	}
	factors := p.HasFactors()
	depth := 2
	if factors {
		depth = 4
	}
	t := &Table{
		Name:        "descriptives",
		Title:       "Descriptives",
		HeaderDepth: depth,
		Columns:     []Column{Col("statistic", "Statistic"), Col("std_error", "Std. Error")},
	}
	for _, vr := range agg.RegroupByDepVar() {
		var children []Row
		for _, e := range vr.Entries {
			d := e.Result.Descriptives
			if d == nil {
				continue
			}
			level := d.ConfidenceLevel
			if level <= 0 {
				level = p.CILevel()
			}
			rows := descriptiveRows(d, e.Result.TrimmedMean, level, factors)
			if !factors {
				children = append(children, rows...)
				continue
			}
			children = append(children, Branch(hdr(depth, 1, e.Label()), rows...))
		}
		if len(children) > 0 {
			t.Rows = append(t.Rows, nest(depth, vr.Variable.DisplayName(), children))
		}
	}
	if len(t.Rows) == 0 {
		return nil
	}
	return t
}

func descriptiveRows(d *examine.Descriptives, trimmed *float64, level float64, factors bool) []Row {
	depth, pos := 2, 1
	if factors {
		depth, pos = 4, 2
	}
	stat := func(label, value string) Row {
		return Leaf(hdr(depth, pos, label), map[string]string{"statistic": value})
	}
	withSE := func(label, value, se string) Row {
		return Leaf(hdr(depth, pos, label), map[string]string{"statistic": value, "std_error": se})
	}

	ci := Level(level) + " Confidence Interval for Mean"
	var lower, upper Row
	if factors {
		lower = Leaf(hdr(depth, pos, ci, "Lower Bound"), map[string]string{"statistic": Stat(d.CILower)})
		upper = Leaf(hdr(depth, pos+1, "Upper Bound"), map[string]string{"statistic": Stat(d.CIUpper)})
	} else {
		lower = stat(ci+", Lower Bound", Stat(d.CILower))
		upper = stat(ci+", Upper Bound", Stat(d.CIUpper))
	}

	return []Row{
		withSE("Mean", Stat(d.Mean), StdErr(d.SEMean)),
		lower,
		upper,
		stat("5% Trimmed Mean", StatPtr(trimmed)),
		stat("Median", Stat(d.Median)),
		stat("Variance", Stat(d.Variance)),
		stat("Std. Deviation", Stat(d.StdDev)),
		stat("Minimum", Stat(d.Min)),
		stat("Maximum", Stat(d.Max)),
		stat("Range", Stat(d.Range)),
		stat("Interquartile Range", Stat(d.IQR)),
		withSE("Skewness", Stat(d.Skewness), StdErr(d.SESkewness)),
		withSE("Kurtosis", Stat(d.Kurtosis), StdErr(d.SEKurtosis)),
	}
}
