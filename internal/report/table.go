// Package report turns aggregated Explore results into hierarchical tables
// and renders them as text, markdown, JSON or XLSX.
package report

import (
	"encoding/json"
	"fmt"
)

// Column is a node of the column header tree. Leaves carry the Key that
// row cells are addressed by; inner nodes span their children.
type Column struct {
	Label    string   `json:"label"`
	Key      string   `json:"key,omitempty"`
	Children []Column `json:"children,omitempty"`
}

// Col returns a leaf column.
func Col(key, label string) Column { return Column{Key: key, Label: label} }

// Span returns a spanning column over children.
func Span(label string, children ...Column) Column {
	return Column{Label: label, Children: children}
}

// Leaves returns the leaf columns left to right.
func Leaves(cols []Column) []Column {
	var out []Column
	for _, c := range cols {
		if len(c.Children) == 0 {
			out = append(out, c)
			continue
		}
		out = append(out, Leaves(c.Children)...)
	}
	return out
}

// Depth is the number of header rows the column tree needs.
func Depth(cols []Column) int {
	d := 0
	for _, c := range cols {
		cd := 1 + Depth(c.Children)
		if cd > d {
			d = cd
		}
	}
	return d
}

// Header is a row-header tuple. An empty string is a blank cell that
// continues the header above it.
type Header []string

// MarshalJSON encodes blank entries as null.
func (h Header) MarshalJSON() ([]byte, error) {
	out := make([]*string, len(h))
	for i := range h {
		if h[i] != "" {
			out[i] = &h[i]
		}
	}
	return json.Marshal(out)
}

// Row is a node of the row tree: a leaf holding cells keyed by column key,
// or a branch holding child rows. Build rows with Leaf and Branch.
type Row struct {
	Header   Header            `json:"header"`
	Cells    map[string]string `json:"cells,omitempty"`
	Children []Row             `json:"children,omitempty"`
}

// Leaf returns a data row.
func Leaf(header Header, cells map[string]string) Row {
	if cells == nil {
		cells = map[string]string{}
	}
	return Row{Header: header, Cells: cells}
}

// Branch returns a row whose data lives in its children.
func Branch(header Header, children ...Row) Row {
	return Row{Header: header, Children: children}
}

// IsLeaf reports whether the row holds cells.
func (r Row) IsLeaf() bool { return len(r.Children) == 0 }

// Walk visits every row depth first. depth is 0 for top-level rows.
// Returning false from fn skips the row's children.
func Walk(rows []Row, fn func(r Row, depth int) bool) {
	var walk func(rows []Row, depth int)
	walk = func(rows []Row, depth int) {
		for _, r := range rows {
			if fn(r, depth) && !r.IsLeaf() {
				walk(r.Children, depth+1)
			}
		}
	}
	walk(rows, 0)
}

// Table is a formatted result table.
type Table struct {
	// Name identifies the table kind, e.g. "descriptives".
	Name  string `json:"name"`
	Title string `json:"title"`
	// HeaderDepth is the number of row-header columns.
	HeaderDepth int      `json:"header_depth"`
	Columns     []Column `json:"columns"`
	Rows        []Row    `json:"rows"`
	Footnotes   []string `json:"footnotes,omitempty"`
}

// Validate checks the structural invariants: every row header has
// HeaderDepth entries and every leaf's cells address leaf columns.
func (t *Table) Validate() error {
	keys := map[string]bool{}
	for _, c := range Leaves(t.Columns) {
		if c.Key == "" {
			return fmt.Errorf("table %s: leaf column %q has no key", t.Name, c.Label)
		}
		keys[c.Key] = true
	}
	var err error
	Walk(t.Rows, func(r Row, depth int) bool {
		if err != nil {
			return false
		}
		if len(r.Header) != t.HeaderDepth {
			err = fmt.Errorf("table %s: row %v has %d header cells, want %d", t.Name, []string(r.Header), len(r.Header), t.HeaderDepth)
			return false
		}
		if r.IsLeaf() && r.Cells == nil {
			err = fmt.Errorf("table %s: row %v has neither cells nor children", t.Name, []string(r.Header))
			return false
		}
		for k := range r.Cells {
			if !keys[k] {
				err = fmt.Errorf("table %s: row %v has cell for unknown column %q", t.Name, []string(r.Header), k)
				return false
			}
		}
		return true
	})
	return err
}

// FlatRow is a leaf row ready for grid rendering: Header has the row's own
// labels merged with those of ancestors it is the first leaf of.
type FlatRow struct {
	Header []string
	Cells  []string
}

// Flatten lays the row tree out as a grid, one entry per leaf, with cells
// in leaf-column order. A branch's header labels appear on its first leaf.
func (t *Table) Flatten() []FlatRow {
	leaves := Leaves(t.Columns)
	var out []FlatRow
	var flatten func(rows []Row, pending []string)
	flatten = func(rows []Row, pending []string) {
		for _, r := range rows {
			h := make([]string, t.HeaderDepth)
			for i := range h {
				if i < len(r.Header) && r.Header[i] != "" {
					h[i] = r.Header[i]
				} else if i < len(pending) {
					h[i] = pending[i]
				}
			}
			pending = nil
			if !r.IsLeaf() {
				flatten(r.Children, h)
				continue
			}
			cells := make([]string, len(leaves))
			for i, c := range leaves {
				cells[i] = r.Cells[c.Key]
			}
			out = append(out, FlatRow{Header: h, Cells: cells})
		}
	}
	flatten(t.Rows, nil)
	return out
}

// HeaderGrid returns the column header as Depth(Columns) rows of
// HeaderDepth+len(leaves) labels. Shallow leaves repeat their label down to
// the last header row.
func (t *Table) HeaderGrid() [][]string {
	depth := Depth(t.Columns)
	var paths [][]string
	var collect func(cols []Column, prefix []string)
	collect = func(cols []Column, prefix []string) {
		for _, c := range cols {
			p := append(append([]string(nil), prefix...), c.Label)
			if len(c.Children) == 0 {
				paths = append(paths, p)
				continue
			}
			collect(c.Children, p)
		}
	}
	collect(t.Columns, nil)

	grid := make([][]string, depth)
	for level := range grid {
		row := make([]string, t.HeaderDepth, t.HeaderDepth+len(paths))
		for _, p := range paths {
			if level < len(p) {
				row = append(row, p[level])
			} else {
				row = append(row, p[len(p)-1])
			}
		}
		grid[level] = row
	}
	return grid
}
