package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Format is an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatXLSX     Format = "xlsx"
)

// ParseFormat accepts a format name or common alias.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt", "table":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown output format %q (use text, markdown, json or xlsx)", s)
}

// Document is everything one run emits.
type Document struct {
	RunID   string   `json:"run_id,omitempty"`
	Source  string   `json:"source,omitempty"`
	Warning string   `json:"warning,omitempty"`
	Tables  []*Table `json:"tables"`
}

// Render writes doc to w in the given format.
func Render(w io.Writer, doc Document, f Format) error {
	switch f {
	case FormatText:
		return renderText(w, doc, false)
	case FormatMarkdown:
		return renderText(w, doc, true)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case FormatXLSX:
		return renderXLSX(w, doc)
	}
	return fmt.Errorf("unknown output format %q", f)
}

func renderText(w io.Writer, doc Document, markdown bool) error {
	var b strings.Builder
	for i, t := range doc.Tables {
		if i > 0 {
			b.WriteString("\n")
		}
		tw := prettyTable(t)
		if markdown {
			fmt.Fprintf(&b, "### %s\n\n%s\n", t.Title, tw.RenderMarkdown())
			if len(t.Footnotes) > 0 {
				b.WriteString("\n")
				for _, n := range t.Footnotes {
					fmt.Fprintf(&b, "%s  \n", n)
				}
			}
			continue
		}
		tw.SetTitle(t.Title)
		if len(t.Footnotes) > 0 {
			tw.SetCaption("%s", strings.Join(t.Footnotes, "\n"))
		}
		b.WriteString(tw.Render())
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func prettyTable(t *Table) table.Writer {
	tw := table.NewWriter()
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)
	merge := table.RowConfig{AutoMerge: true}
	for _, h := range t.HeaderGrid() {
		tw.AppendHeader(toRow(h), merge)
	}
	for _, fr := range t.Flatten() {
		tw.AppendRow(toRow(append(append([]string(nil), fr.Header...), fr.Cells...)))
	}
	cfgs := make([]table.ColumnConfig, 0, len(Leaves(t.Columns)))
	for i := range Leaves(t.Columns) {
		cfgs = append(cfgs, table.ColumnConfig{Number: t.HeaderDepth + i + 1, Align: text.AlignRight, AlignHeader: text.AlignCenter})
	}
	tw.SetColumnConfigs(cfgs)
	return tw
}

func toRow(cells []string) table.Row {
	r := make(table.Row, len(cells))
	for i, c := range cells {
		r[i] = c
	}
	return r
}
