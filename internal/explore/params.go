// Package explore runs the Explore analysis: it partitions a dataset by
// factor variables, dispatches one numeric computation per (group,
// dependent variable) pair and aggregates the outcomes for the table
// formatters.
package explore

import (
	"fmt"

	"github.com/KaramelBytes/statloom-cli/internal/dataset"
	"github.com/KaramelBytes/statloom-cli/internal/examine"
)

// Params are the analysis parameters.
type Params struct {
	Dependents []dataset.Variable
	// Factors may contain nil entries; they are ignored.
	Factors []*dataset.Variable
	// Label is display-only and never consumed by the computation.
	Label *dataset.Variable
	// Weight holds optional frequency weights.
	Weight *dataset.Variable

	ConfidenceLevel float64
	ExtremeCount    int

	ShowDescriptives bool
	ShowMEstimators  bool
	ShowOutliers     bool
	ShowPercentiles  bool
}

// FactorVariables returns the non-nil factors in order.
func (p Params) FactorVariables() []dataset.Variable {
	var out []dataset.Variable
	for _, f := range p.Factors {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out
}

// HasFactors reports whether at least one factor variable is set.
func (p Params) HasFactors() bool { return len(p.FactorVariables()) > 0 }

// CILevel returns the confidence level in percent, defaulting to 95.
func (p Params) CILevel() float64 {
	if p.ConfidenceLevel <= 0 {
		return examine.DefaultConfidenceLevel
	}
	return p.ConfidenceLevel
}

// Extremes returns the number of highest/lowest cases to list.
func (p Params) Extremes() int {
	if p.ExtremeCount <= 0 {
		return examine.DefaultExtremeCount
	}
	return p.ExtremeCount
}

func (p Params) options() examine.Options {
	return examine.Options{
		ConfidenceLevel: p.CILevel(),
		Descriptives:    p.ShowDescriptives,
		MEstimators:     p.ShowMEstimators,
		Percentiles:     p.ShowPercentiles,
		Extremes:        p.ShowOutliers,
		ExtremeCount:    p.Extremes(),
	}
}

// Validate checks the parameters against the dataset before any work is
// dispatched.
func Validate(ds *dataset.Dataset, p Params) error {
	if len(p.Dependents) == 0 {
		return &ValidationError{Msg: "no dependent variables selected"}
	}
	if ds == nil || len(ds.Rows) == 0 {
		return &ValidationError{Msg: "dataset has no rows"}
	}
	if p.ConfidenceLevel < 0 || p.ConfidenceLevel >= 100 {
		return &ValidationError{Msg: fmt.Sprintf("confidence level must be between 0 and 100, got %g", p.ConfidenceLevel)}
	}
	check := func(role string, v dataset.Variable) error {
		if v.Index < 0 || v.Index >= len(ds.Variables) {
			return &ValidationError{Msg: fmt.Sprintf("%s variable %q has column index %d outside the dataset", role, v.Name, v.Index)}
		}
		return nil
	}
	for _, v := range p.Dependents {
		if err := check("dependent", v); err != nil {
			return err
		}
		if v.Type == dataset.TypeString || v.Type == dataset.TypeDate {
			return &ValidationError{Msg: fmt.Sprintf("dependent variable %q is not numeric", v.Name)}
		}
	}
	for _, v := range p.FactorVariables() {
		if err := check("factor", v); err != nil {
			return err
		}
	}
	if p.Weight != nil {
		if err := check("weight", *p.Weight); err != nil {
			return err
		}
	}
	return nil
}
