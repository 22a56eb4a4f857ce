package explore

import (
	"sort"
	"strings"

	"github.com/KaramelBytes/statloom-cli/internal/dataset"
)

// GroupKey identifies a combination of factor values. Equality is
// structural: each component is kind-tagged and quoted, so values that
// contain the display separator cannot collide.
type GroupKey struct {
	id      string
	display string
}

// AllDataKey is the key of the single group formed when there are no
// factors.
var AllDataKey = GroupKey{id: "*", display: "all data"}

// String joins the raw factor values with " | ".
func (k GroupKey) String() string { return k.display }

func keyOf(values []dataset.Value) GroupKey {
	ids := make([]string, len(values))
	shown := make([]string, len(values))
	for i, v := range values {
		ids[i] = v.Key()
		shown[i] = v.String()
	}
	return GroupKey{id: strings.Join(ids, ","), display: strings.Join(shown, " | ")}
}

// Level is one factor's value within a group.
type Level struct {
	Factor dataset.Variable
	Value  dataset.Value
}

// Label is the factor value's display label.
func (l Level) Label() string { return dataset.FactorLabel(l.Factor, l.Value) }

// Group is a unique combination of factor values plus the rows sharing it.
type Group struct {
	Key    GroupKey
	Levels []Level
	// Rows are dataset row indices in dataset order.
	Rows []int
}

// FactorLevels maps factor name to the group's raw value.
func (g *Group) FactorLevels() map[string]dataset.Value {
	m := make(map[string]dataset.Value, len(g.Levels))
	for _, l := range g.Levels {
		m[l.Factor.Name] = l.Value
	}
	return m
}

// LevelLabel joins the levels' display labels with ", ".
func LevelLabel(levels []Level) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = l.Label()
	}
	return strings.Join(parts, ", ")
}

// GroupRows partitions the dataset rows by the values of factors. With no
// factors it returns one group holding every row. Groups are ordered by
// their factor values, left to right, using dataset.Compare.
func GroupRows(ds *dataset.Dataset, factors []dataset.Variable) []*Group {
	if len(factors) == 0 {
		g := &Group{Key: AllDataKey, Rows: make([]int, len(ds.Rows))}
		for i := range ds.Rows {
			g.Rows[i] = i
		}
		return []*Group{g}
	}

	byKey := make(map[GroupKey]*Group)
	var groups []*Group
	values := make([]dataset.Value, len(factors))
	for i, row := range ds.Rows {
		for j, f := range factors {
			values[j] = row.Cell(f.Index)
		}
		k := keyOf(values)
		g, ok := byKey[k]
		if !ok {
			g = &Group{Key: k, Levels: make([]Level, len(factors))}
			for j, f := range factors {
				g.Levels[j] = Level{Factor: f, Value: values[j]}
			}
			byKey[k] = g
			groups = append(groups, g)
		}
		g.Rows = append(g.Rows, i)
	}
	sort.SliceStable(groups, func(a, b int) bool {
		la, lb := groups[a].Levels, groups[b].Levels
		for j := range la {
			if c := dataset.Compare(la[j].Value, lb[j].Value); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return groups
}
