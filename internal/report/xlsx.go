package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// renderXLSX writes one sheet per table: title, the merged column header,
// the row grid with merged row headers, then the footnotes.
func renderXLSX(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("xlsx style: %w", err)
	}
	used := map[string]int{}
	nums := &numStyles{f: f, ids: map[string]int{}}
	for i, t := range doc.Tables {
		name := sheetName(t.Title, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("xlsx sheet %s: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("xlsx sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, t, bold, nums); err != nil {
			return fmt.Errorf("xlsx sheet %s: %w", name, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func sheetName(title string, used map[string]int) string {
	name := title
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	used[name]++
	if n := used[name]; n > 1 {
		suffix := fmt.Sprintf(" (%d)", n)
		if len(name)+len(suffix) > maxSheetName {
			name = name[:maxSheetName-len(suffix)]
		}
		name += suffix
	}
	return name
}

func cellName(col, row int) string {
	c, _ := excelize.CoordinatesToCellName(col, row)
	return c
}

func writeSheet(f *excelize.File, sheet string, t *Table, headerStyle int, nums *numStyles) error {
	if err := f.SetCellValue(sheet, "A1", t.Title); err != nil {
		return err
	}
	top := 3
	grid := t.HeaderGrid()
	for r, row := range grid {
		for c, label := range row {
			if c < t.HeaderDepth || label == "" {
				continue
			}
			if err := f.SetCellValue(sheet, cellName(c+1, top+r), label); err != nil {
				return err
			}
		}
	}
	if len(grid) > 0 {
		last := cellName(len(grid[0]), top+len(grid)-1)
		if err := f.SetCellStyle(sheet, cellName(1, top), last, headerStyle); err != nil {
			return err
		}
	}
	if err := mergeColumnHeader(f, sheet, t.Columns, t.HeaderDepth+1, top, len(grid)); err != nil {
		return err
	}

	first := top + len(grid)
	flat := t.Flatten()
	for i, fr := range flat {
		r := first + i
		for c, label := range fr.Header {
			if label == "" {
				continue
			}
			if err := f.SetCellValue(sheet, cellName(c+1, r), label); err != nil {
				return err
			}
		}
		for c, v := range fr.Cells {
			if v == "" {
				continue
			}
			cell := cellName(t.HeaderDepth+c+1, r)
			x, code, ok := numericCell(v)
			if !ok {
				if err := f.SetCellStr(sheet, cell, v); err != nil {
					return err
				}
				continue
			}
			if err := f.SetCellFloat(sheet, cell, x, -1, 64); err != nil {
				return err
			}
			style, err := nums.get(code)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return err
			}
		}
	}
	if err := mergeRowHeaders(f, sheet, t.Rows, first); err != nil {
		return err
	}

	r := first + len(flat) + 1
	for _, n := range t.Footnotes {
		if err := f.SetCellValue(sheet, cellName(1, r), n); err != nil {
			return err
		}
		r++
	}
	return nil
}

// numericCell reads a formatted cell back as a number plus the Excel
// number format that displays it the same way: "12.50" -> 12.5 "0.00",
// "50.0%" -> 0.5 "0.0%". Cells with footnote markers stay text.
func numericCell(v string) (float64, string, bool) {
	pct := strings.HasSuffix(v, "%")
	num := strings.TrimSuffix(v, "%")
	x, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, "", false
	}
	code := "0"
	if i := strings.IndexByte(num, '.'); i >= 0 {
		code += "." + strings.Repeat("0", len(num)-i-1)
	}
	if pct {
		return x / 100, code + "%", true
	}
	return x, code, true
}

// numStyles caches one cell style per number format.
type numStyles struct {
	f   *excelize.File
	ids map[string]int
}

func (n *numStyles) get(code string) (int, error) {
	if id, ok := n.ids[code]; ok {
		return id, nil
	}
	id, err := n.f.NewStyle(&excelize.Style{
		CustomNumFmt: &code,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return 0, fmt.Errorf("xlsx number format %s: %w", code, err)
	}
	n.ids[code] = id
	return id, nil
}

// mergeColumnHeader merges spanning headers across their leaves and shallow
// leaves down to the last header row. Leaves start at col.
func mergeColumnHeader(f *excelize.File, sheet string, cols []Column, col, row, depth int) error {
	var place func(cols []Column, col, level int) (int, error)
	place = func(cols []Column, col, level int) (int, error) {
		start := col
		for _, c := range cols {
			if len(c.Children) == 0 {
				if level < depth-1 {
					if err := f.MergeCell(sheet, cellName(col, row+level), cellName(col, row+depth-1)); err != nil {
						return 0, err
					}
				}
				col++
				continue
			}
			n, err := place(c.Children, col, level+1)
			if err != nil {
				return 0, err
			}
			if n > 1 {
				if err := f.MergeCell(sheet, cellName(col, row+level), cellName(col+n-1, row+level)); err != nil {
					return 0, err
				}
			}
			col += n
		}
		return col - start, nil
	}
	_, err := place(cols, col, 0)
	return err
}

// mergeRowHeaders merges each branch's labels down over its leaves, matching
// the grid produced by Flatten.
func mergeRowHeaders(f *excelize.File, sheet string, rows []Row, first int) error {
	var place func(rows []Row, row int) (int, error)
	place = func(rows []Row, row int) (int, error) {
		start := row
		for _, r := range rows {
			if r.IsLeaf() {
				row++
				continue
			}
			n, err := place(r.Children, row)
			if err != nil {
				return 0, err
			}
			if n > 1 {
				for c, label := range r.Header {
					if label == "" {
						continue
					}
					if err := f.MergeCell(sheet, cellName(c+1, row), cellName(c+1, row+n-1)); err != nil {
						return 0, err
					}
				}
			}
			row += n
		}
		return row - start, nil
	}
	_, err := place(rows, first)
	return err
}
