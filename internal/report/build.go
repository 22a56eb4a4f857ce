package report

import (
	"fmt"

	"github.com/KaramelBytes/statloom-cli/internal/explore"
)

// Formatter builds one table from aggregated results. It returns nil when
// its toggle is off or no result carries the statistics it shows.
type Formatter func(agg *explore.Aggregated, p explore.Params) *Table

// Formatters run in output order.
var Formatters = []Formatter{
	CaseProcessingSummary,
	Descriptives,
	MEstimators,
	Percentiles,
	ExtremeValues,
}

// Build runs every formatter and returns the non-nil tables. It fails with
// an *explore.EmptyResultError when no table is produced.
func Build(agg *explore.Aggregated, p explore.Params) ([]*Table, error) {
	if agg == nil {
		return nil, &explore.EmptyResultError{}
	}
	var out []*Table
	for _, f := range Formatters {
		t := f(agg, p)
		if t == nil {
			continue
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("format tables: %w", err)
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, &explore.EmptyResultError{}
	}
	return out, nil
}

// hdr returns a header of depth entries with labels placed from pos on.
func hdr(depth, pos int, labels ...string) Header {
	h := make(Header, depth)
	copy(h[pos:], labels)
	return h
}

// nest returns the dependent variable's branch over its rows.
func nest(depth int, name string, children []Row) Row {
	return Branch(hdr(depth, 0, name), children...)
}
