package explore

import (
	"strings"

	"github.com/KaramelBytes/statloom-cli/internal/dataset"
	"github.com/KaramelBytes/statloom-cli/internal/examine"
)

// Outcome is the settled state of one task: exactly one of Result and Err
// is set.
type Outcome struct {
	Group    *Group
	Variable dataset.Variable
	Result   *examine.Result
	Err      error
}

// GroupResults holds one group's levels and its results, one per dependent
// variable that produced a result, in parameter order.
type GroupResults struct {
	Key     GroupKey
	Levels  []Level
	Results []*examine.Result
}

// Aggregated is the hand-off from the computation to the formatters.
type Aggregated struct {
	dependents []dataset.Variable
	groups     []*GroupResults
	byKey      map[GroupKey]*GroupResults
}

// Aggregate keys the successful outcomes by group. Groups are kept in the
// given order; failed outcomes are omitted.
func Aggregate(groups []*Group, dependents []dataset.Variable, outcomes []Outcome) *Aggregated {
	a := &Aggregated{
		dependents: dependents,
		byKey:      make(map[GroupKey]*GroupResults, len(groups)),
	}
	for _, g := range groups {
		gr := &GroupResults{Key: g.Key, Levels: g.Levels}
		a.groups = append(a.groups, gr)
		a.byKey[g.Key] = gr
	}
	// index results by (group, variable) so arrival order never matters
	found := make(map[GroupKey]map[string]*examine.Result, len(groups))
	for _, o := range outcomes {
		if o.Err != nil || o.Result == nil || o.Group == nil {
			continue
		}
		m := found[o.Group.Key]
		if m == nil {
			m = make(map[string]*examine.Result)
			found[o.Group.Key] = m
		}
		m[o.Variable.Name] = o.Result
	}
	for _, gr := range a.groups {
		for _, dep := range dependents {
			if r, ok := found[gr.Key][dep.Name]; ok {
				gr.Results = append(gr.Results, r)
			}
		}
	}
	return a
}

// Groups returns the per-group view.
func (a *Aggregated) Groups() []*GroupResults { return a.groups }

// Get returns the results of one group.
func (a *Aggregated) Get(key GroupKey) (*GroupResults, bool) {
	gr, ok := a.byKey[key]
	return gr, ok
}

// Empty reports whether no task produced a result.
func (a *Aggregated) Empty() bool {
	for _, gr := range a.groups {
		if len(gr.Results) > 0 {
			return false
		}
	}
	return true
}

// GroupEntry is one group's result for a dependent variable.
type GroupEntry struct {
	Key    GroupKey
	Levels []Level
	Result *examine.Result
}

// Label is the display label of the entry's group.
func (e GroupEntry) Label() string { return LevelLabel(e.Levels) }

// VariableResults is the per-group results of one dependent variable.
type VariableResults struct {
	Variable dataset.Variable
	Entries  []GroupEntry
}

// RegroupByDepVar inverts the aggregation: one entry per dependent variable
// with at least one result, in parameter order, each listing its groups in
// group order.
func (a *Aggregated) RegroupByDepVar() []VariableResults {
	var out []VariableResults
	for _, dep := range a.dependents {
		vr := VariableResults{Variable: dep}
		for _, gr := range a.groups {
			for _, r := range gr.Results {
				if r.Variable.Name == dep.Name {
					vr.Entries = append(vr.Entries, GroupEntry{Key: gr.Key, Levels: gr.Levels, Result: r})
					break
				}
			}
		}
		if len(vr.Entries) > 0 {
			out = append(out, vr)
		}
	}
	return out
}

// Lookup returns the per-group results of the named dependent variable.
func (a *Aggregated) Lookup(name string) (VariableResults, bool) {
	for _, vr := range a.RegroupByDepVar() {
		if strings.EqualFold(vr.Variable.Name, name) {
			return vr, true
		}
	}
	return VariableResults{}, false
}
