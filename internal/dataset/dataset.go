// Package dataset holds the flat tabular input of an analysis: variables,
// rows of cell values, and the loaders that build them from CSV and XLSX
// files.
package dataset

import (
	"fmt"
	"strings"
)

// Row is one case; cells are addressed by Variable.Index.
type Row []Value

// Cell returns the value at idx, or Missing when the row is short.
func (r Row) Cell(idx int) Value {
	if idx < 0 || idx >= len(r) {
		return Missing
	}
	return r[idx]
}

// Dataset is an ordered sequence of rows plus the variables describing them.
type Dataset struct {
	Name      string
	Variables []Variable
	Rows      []Row
	Warnings  []string

	// raw keeps the source strings so a metadata type override can
	// re-convert a column.
	raw [][]string
}

// Lookup resolves a variable by name, case-insensitively.
func (d *Dataset) Lookup(name string) (Variable, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	for _, v := range d.Variables {
		if strings.ToLower(v.Name) == want {
			return v, true
		}
	}
	return Variable{}, false
}

// MustLookup is Lookup returning an error that names the available columns.
func (d *Dataset) MustLookup(name string) (Variable, error) {
	if v, ok := d.Lookup(name); ok {
		return v, nil
	}
	names := make([]string, len(d.Variables))
	for i, v := range d.Variables {
		names[i] = v.Name
	}
	return Variable{}, fmt.Errorf("variable %q not found.\nAvailable variables: %s", name, strings.Join(names, ", "))
}

// Column returns the values of the variable at idx for the given rows, in
// the order of rows.
func (d *Dataset) Column(idx int, rows []int) []Value {
	out := make([]Value, len(rows))
	for i, r := range rows {
		out[i] = d.Rows[r].Cell(idx)
	}
	return out
}
