package report

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/statloom-cli/internal/dataset"
	"github.com/KaramelBytes/statloom-cli/internal/examine"
	"github.com/KaramelBytes/statloom-cli/internal/explore"
)

const scores = "score,grp\n10,A\n20,B\n15,A\n25,B\n"

type fixture struct {
	ds    *dataset.Dataset
	score dataset.Variable
	grp   dataset.Variable
}

func load(t *testing.T, src string) fixture {
	t.Helper()
	ds, err := dataset.ReadCSV(strings.NewReader(src), "scores.csv", ',', dataset.DefaultOptions())
	require.NoError(t, err)
	score, err := ds.MustLookup("score")
	require.NoError(t, err)
	grp, err := ds.MustLookup("grp")
	require.NoError(t, err)
	return fixture{ds: ds, score: score, grp: grp}
}

func allOn(p explore.Params) explore.Params {
	p.ShowDescriptives = true
	p.ShowMEstimators = true
	p.ShowOutliers = true
	p.ShowPercentiles = true
	return p
}

func run(t *testing.T, fx fixture, p explore.Params) *explore.Aggregated {
	t.Helper()
	out, err := explore.NewRunner(examine.NewLocal(), 2, 0, nil).Run(context.Background(), fx.ds, p)
	require.NoError(t, err)
	return out.Aggregated
}

func headerDepths(rows []Row) map[int]bool {
	seen := map[int]bool{}
	Walk(rows, func(r Row, _ int) bool {
		seen[len(r.Header)] = true
		return true
	})
	return seen
}

func TestCaseProcessingSummaryNoFactor(t *testing.T) {
	fx := load(t, scores)
	p := explore.Params{Dependents: []dataset.Variable{fx.score}}
	tbl := CaseProcessingSummary(run(t, fx, p), p)
	require.NotNil(t, tbl)
	require.NoError(t, tbl.Validate())

	assert.Equal(t, 1, tbl.HeaderDepth)
	assert.Equal(t, 3, Depth(tbl.Columns))
	require.Len(t, tbl.Rows, 1)
	r := tbl.Rows[0]
	assert.Equal(t, Header{"score"}, r.Header)
	assert.Equal(t, map[string]string{
		"valid_n": "4", "valid_pct": "100.0%",
		"missing_n": "0", "missing_pct": "0.0%",
		"total_n": "4", "total_pct": "100.0%",
	}, r.Cells)
}

func TestCaseProcessingSummaryCountsAddUp(t *testing.T) {
	fx := load(t, "score,grp\n1,A\n,A\n3,A\n,B\n5,B\n6,B\n7,B\nx,C\n")
	p := explore.Params{Dependents: []dataset.Variable{fx.score}, Factors: []*dataset.Variable{&fx.grp}}
	out, err := explore.NewRunner(examine.NewLocal(), 2, 0, nil).Run(context.Background(), fx.ds, p)
	require.NoError(t, err)
	tbl := CaseProcessingSummary(out.Aggregated, p)
	require.NotNil(t, tbl)
	require.NoError(t, tbl.Validate())
	require.Len(t, tbl.Rows, 1)
	require.Len(t, tbl.Rows[0].Children, len(out.Groups))

	pct := func(s string) float64 {
		x, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		require.NoError(t, err)
		return x
	}
	for i, child := range tbl.Rows[0].Children {
		g := out.Groups[i]
		assert.Equal(t, g.Key.String(), child.Header[1])
		valid, _ := strconv.Atoi(child.Cells["valid_n"])
		missing, _ := strconv.Atoi(child.Cells["missing_n"])
		assert.Equal(t, len(g.Rows), valid+missing)
		assert.InDelta(t, 100, pct(child.Cells["valid_pct"])+pct(child.Cells["missing_pct"]), 0.11)
		assert.Equal(t, "100.0%", child.Cells["total_pct"])
	}
	// group C has no valid value
	assert.Equal(t, "0.0%", tbl.Rows[0].Children[2].Cells["valid_pct"])
}

func TestDescriptivesWithFactor(t *testing.T) {
	fx := load(t, scores)
	p := explore.Params{
		Dependents:       []dataset.Variable{fx.score},
		Factors:          []*dataset.Variable{&fx.grp},
		ShowDescriptives: true,
	}
	tbl := Descriptives(run(t, fx, p), p)
	require.NotNil(t, tbl)
	require.NoError(t, tbl.Validate())
	assert.Equal(t, map[int]bool{4: true}, headerDepths(tbl.Rows))

	require.Len(t, tbl.Rows, 1)
	parent := tbl.Rows[0]
	assert.Equal(t, "score", parent.Header[0])
	require.Len(t, parent.Children, 2)
	assert.Equal(t, "A", parent.Children[0].Header[1])
	assert.Equal(t, "B", parent.Children[1].Header[1])

	stats := parent.Children[0].Children
	require.Len(t, stats, 13)
	assert.Equal(t, Header{"", "", "Mean", ""}, stats[0].Header)
	assert.Equal(t, "12.50", stats[0].Cells["statistic"])
	assert.Equal(t, "2.500", stats[0].Cells["std_error"])
	assert.Equal(t, Header{"", "", "95% Confidence Interval for Mean", "Lower Bound"}, stats[1].Header)
	assert.Equal(t, Header{"", "", "", "Upper Bound"}, stats[2].Header)
	assert.Equal(t, "5% Trimmed Mean", stats[3].Header[2])
	assert.Equal(t, "Kurtosis", stats[12].Header[2])
	assert.Equal(t, "", stats[12].Cells["statistic"], "kurtosis needs four cases")
}

func TestDescriptivesWithoutFactor(t *testing.T) {
	fx := load(t, scores)
	p := explore.Params{Dependents: []dataset.Variable{fx.score}, ShowDescriptives: true, ConfidenceLevel: 90}
	tbl := Descriptives(run(t, fx, p), p)
	require.NotNil(t, tbl)
	require.NoError(t, tbl.Validate())
	assert.Equal(t, map[int]bool{2: true}, headerDepths(tbl.Rows))

	flat := tbl.Flatten()
	require.Len(t, flat, 13)
	assert.Equal(t, []string{"score", "Mean"}, flat[0].Header)
	assert.Equal(t, []string{"17.50", "3.227"}, flat[0].Cells)
	assert.Equal(t, []string{"", "90% Confidence Interval for Mean, Lower Bound"}, flat[1].Header)
	assert.Equal(t, []string{"", "Median"}, flat[4].Header)
	assert.Equal(t, "-1.20", flat[12].Cells[0])
	assert.Equal(t, "2.619", flat[12].Cells[1])
}

func TestGatedFormattersReturnNil(t *testing.T) {
	fx := load(t, scores)
	on := allOn(explore.Params{Dependents: []dataset.Variable{fx.score}, Factors: []*dataset.Variable{&fx.grp}})
	agg := run(t, fx, on)

	require.NotNil(t, Descriptives(agg, on))
	require.NotNil(t, MEstimators(agg, on))
	require.NotNil(t, Percentiles(agg, on))
	require.NotNil(t, ExtremeValues(agg, on))

	off := on
	off.ShowDescriptives, off.ShowMEstimators, off.ShowPercentiles, off.ShowOutliers = false, false, false, false
	assert.Nil(t, Descriptives(agg, off))
	assert.Nil(t, MEstimators(agg, off))
	assert.Nil(t, Percentiles(agg, off))
	assert.Nil(t, ExtremeValues(agg, off))

	tables, err := Build(agg, off)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "case_processing_summary", tables[0].Name)
}

func TestFormattersSkipAbsentStatistics(t *testing.T) {
	fx := load(t, scores)
	p := explore.Params{Dependents: []dataset.Variable{fx.score}}
	agg := run(t, fx, p)
	// toggles on, but the results were computed without them
	p = allOn(p)
	assert.Nil(t, Descriptives(agg, p))
	assert.Nil(t, MEstimators(agg, p))
	assert.Nil(t, Percentiles(agg, p))
	assert.Nil(t, ExtremeValues(agg, p))
}

func TestMEstimatorsFootnotes(t *testing.T) {
	fx := load(t, scores)
	p := explore.Params{Dependents: []dataset.Variable{fx.score}, ShowMEstimators: true}
	tbl := MEstimators(run(t, fx, p), p)
	require.NotNil(t, tbl)
	require.NoError(t, tbl.Validate())
	require.Len(t, tbl.Footnotes, 4)
	assert.True(t, strings.HasPrefix(tbl.Footnotes[0], "a. "))
	assert.Contains(t, tbl.Footnotes[0], "1.339")
	assert.Contains(t, tbl.Footnotes[1], "4.685")
	assert.Contains(t, tbl.Footnotes[2], "1.700, 3.400, and 8.500")
	assert.Contains(t, tbl.Footnotes[3], "1.340*pi")
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "17.50", tbl.Rows[0].Cells["huber"])
	assert.Equal(t, "17.50", tbl.Rows[0].Cells["andrews"])
}

func TestPercentilesBlocks(t *testing.T) {
	fx := load(t, scores)
	p := explore.Params{Dependents: []dataset.Variable{fx.score}, ShowPercentiles: true}
	tbl := Percentiles(run(t, fx, p), p)
	require.NotNil(t, tbl)
	require.NoError(t, tbl.Validate())
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, weightedAverageLabel, tbl.Rows[0].Header[0])
	assert.Equal(t, tukeyHingesLabel, tbl.Rows[1].Header[0])
	assert.Len(t, Leaves(tbl.Columns), 7)

	wa := tbl.Rows[0].Children[0]
	assert.Equal(t, Header{"", "score"}, wa.Header)
	assert.Equal(t, "11.25", wa.Cells["p25"])
	assert.Equal(t, "17.50", wa.Cells["p50"])
	assert.Equal(t, "23.75", wa.Cells["p75"])

	th := tbl.Rows[1].Children[0]
	assert.Equal(t, map[string]string{"p25": "12.50", "p50": "17.50", "p75": "22.50"}, th.Cells)
}

func TestPercentilesWithFactor(t *testing.T) {
	fx := load(t, scores)
	p := explore.Params{
		Dependents:      []dataset.Variable{fx.score},
		Factors:         []*dataset.Variable{&fx.grp},
		ShowPercentiles: true,
	}
	agg := run(t, fx, p)
	tbl := Percentiles(agg, p)
	require.NotNil(t, tbl)
	require.NoError(t, tbl.Validate())
	assert.Equal(t, 3, tbl.HeaderDepth)
	assert.Equal(t, map[int]bool{3: true}, headerDepths(tbl.Rows))

	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, Header{weightedAverageLabel, "", ""}, tbl.Rows[0].Header)
	assert.Equal(t, Header{tukeyHingesLabel, "", ""}, tbl.Rows[1].Header)

	vr, ok := agg.Lookup("score")
	require.True(t, ok)
	require.Len(t, vr.Entries, 2)
	for _, block := range tbl.Rows {
		require.Len(t, block.Children, 1)
		v := block.Children[0]
		assert.Equal(t, Header{"", "score", ""}, v.Header)
		require.Len(t, v.Children, 2)
		assert.Equal(t, Header{"", "", "A"}, v.Children[0].Header)
		assert.Equal(t, Header{"", "", "B"}, v.Children[1].Header)
	}

	hinges := tbl.Rows[1].Children[0].Children
	for i, e := range vr.Entries {
		require.NotNil(t, e.Result.Descriptives)
		assert.Equal(t, Stat(e.Result.Descriptives.Median), hinges[i].Cells["p50"])
		assert.Len(t, hinges[i].Cells, 3)
	}
	assert.Equal(t, "12.50", hinges[0].Cells["p50"])
	assert.Equal(t, "22.50", hinges[1].Cells["p50"])
}

func TestMEstimatorsWithFactor(t *testing.T) {
	fx := load(t, scores)
	p := explore.Params{
		Dependents:      []dataset.Variable{fx.score},
		Factors:         []*dataset.Variable{&fx.grp},
		ShowMEstimators: true,
	}
	tbl := MEstimators(run(t, fx, p), p)
	require.NotNil(t, tbl)
	require.NoError(t, tbl.Validate())
	assert.Equal(t, 2, tbl.HeaderDepth)
	assert.Equal(t, map[int]bool{2: true}, headerDepths(tbl.Rows))

	require.Len(t, tbl.Rows, 1)
	parent := tbl.Rows[0]
	assert.Equal(t, Header{"score", ""}, parent.Header)
	require.Len(t, parent.Children, 2)
	assert.Equal(t, Header{"", "A"}, parent.Children[0].Header)
	assert.Equal(t, Header{"", "B"}, parent.Children[1].Header)
	// two-case groups are symmetric around their mean
	assert.Equal(t, "12.50", parent.Children[0].Cells["huber"])
	assert.Equal(t, "22.50", parent.Children[1].Cells["tukey"])
	assert.Len(t, tbl.Footnotes, 4)

	flat := tbl.Flatten()
	require.Len(t, flat, 2)
	assert.Equal(t, []string{"score", "A"}, flat[0].Header)
	assert.Equal(t, []string{"", "B"}, flat[1].Header)
}

func extremesAgg(t *testing.T, fx fixture, p explore.Params, ex *examine.Extremes) *explore.Aggregated {
	t.Helper()
	groups := explore.GroupRows(fx.ds, p.FactorVariables())
	var outcomes []explore.Outcome
	for _, g := range groups {
		outcomes = append(outcomes, explore.Outcome{
			Group:    g,
			Variable: fx.score,
			Result:   &examine.Result{Variable: fx.score, Summary: examine.Summary{Valid: 3, Total: 3}, Extremes: ex},
		})
	}
	return explore.Aggregate(groups, p.Dependents, outcomes)
}

func TestExtremeValuesFootnotes(t *testing.T) {
	fx := load(t, scores)
	p := explore.Params{Dependents: []dataset.Variable{fx.score}, ShowOutliers: true}
	ex := &examine.Extremes{
		Truncated: true,
		Highest: []examine.Extreme{
			{Rank: 1, Case: 3, Value: 9},
			{Rank: 2, Case: 1, Value: 8},
			{Rank: 3, Case: 2, Value: 7},
		},
		Lowest: []examine.Extreme{
			{Rank: 1, Case: 2, Value: 7},
			{Rank: 2, Case: 1, Value: 8},
			{Rank: 3, Case: 3, Value: 9, Partial: true},
		},
	}
	tbl := ExtremeValues(extremesAgg(t, fx, p, ex), p)
	require.NotNil(t, tbl)
	require.NoError(t, tbl.Validate())
	assert.Equal(t, map[int]bool{3: true}, headerDepths(tbl.Rows))

	require.Len(t, tbl.Footnotes, 2)
	assert.Equal(t, TruncatedNote, tbl.Footnotes[0])
	assert.Equal(t, "a. Only a partial list of cases with the value 9.00 are shown in the table of lower extremes.", tbl.Footnotes[1])

	blocks := tbl.Rows[0].Children
	require.Len(t, blocks, 2)
	assert.Equal(t, "Highest", blocks[0].Header[1])
	assert.Equal(t, "Lowest", blocks[1].Header[1])

	var highCases []string
	for _, r := range blocks[0].Children {
		highCases = append(highCases, r.Cells["case"])
	}
	assert.Equal(t, []string{"3", "1", "2"}, highCases, "highest keeps service order")

	var lowCases []string
	for i, r := range blocks[1].Children {
		lowCases = append(lowCases, r.Cells["case"])
		assert.Equal(t, strconv.Itoa(i+1), r.Header[2])
	}
	assert.Equal(t, []string{"3", "2", "1"}, lowCases, "lowest is by case number descending")
	assert.Equal(t, "9.00^a", blocks[1].Children[0].Cells["value"])
}

func TestExtremeValuesLettersFollowAppearance(t *testing.T) {
	fx := load(t, scores)
	p := explore.Params{Dependents: []dataset.Variable{fx.score}, Factors: []*dataset.Variable{&fx.grp}, ShowOutliers: true}
	ex := &examine.Extremes{
		Highest: []examine.Extreme{{Rank: 1, Case: 1, Value: 5, Partial: true}},
		Lowest:  []examine.Extreme{{Rank: 1, Case: 2, Value: 1, Partial: true}},
	}
	tbl := ExtremeValues(extremesAgg(t, fx, p, ex), p)
	require.NotNil(t, tbl)
	require.NoError(t, tbl.Validate())
	assert.Equal(t, map[int]bool{4: true}, headerDepths(tbl.Rows))
	require.Len(t, tbl.Footnotes, 4, "two groups, two partial entries each")
	assert.True(t, strings.HasPrefix(tbl.Footnotes[0], "a. "))
	assert.Contains(t, tbl.Footnotes[0], "upper extremes")
	assert.True(t, strings.HasPrefix(tbl.Footnotes[1], "b. "))
	assert.Contains(t, tbl.Footnotes[1], "lower extremes")
	assert.True(t, strings.HasPrefix(tbl.Footnotes[3], "d. "))
}

func TestBuildEmpty(t *testing.T) {
	fx := load(t, scores)
	p := explore.Params{Dependents: []dataset.Variable{fx.score}}
	groups := explore.GroupRows(fx.ds, nil)
	agg := explore.Aggregate(groups, p.Dependents, nil)
	_, err := Build(agg, p)
	assert.Equal(t, explore.KindEmptyResult, explore.KindOf(err))
	assert.Contains(t, err.Error(), "Analysis produced no results")
}

func TestNumberFormatting(t *testing.T) {
	assert.Equal(t, "", Stat(math.NaN()))
	assert.Equal(t, "", StdErr(math.Inf(1)))
	assert.Equal(t, "0.00", Stat(-0.001))
	assert.Equal(t, "3.14", Stat(math.Pi))
	assert.Equal(t, "3.142", StdErr(math.Pi))
	assert.Equal(t, "", StatPtr(nil))
	assert.Equal(t, "4", Count(4))
	assert.Equal(t, "2.50", Count(2.5))
	assert.Equal(t, "0.0%", Percent(0, 0))
	assert.Equal(t, "33.3%", Percent(1, 3))
	assert.Equal(t, "95%", Level(95))
	assert.Equal(t, "99.5%", Level(99.5))
	assert.Equal(t, "a", letter(0))
	assert.Equal(t, "z", letter(25))
	assert.Equal(t, "aa", letter(26))
}

func TestTableStructure(t *testing.T) {
	tbl := &Table{
		Name:        "t",
		HeaderDepth: 2,
		Columns:     []Column{Span("S", Col("x", "X"), Col("y", "Y")), Col("z", "Z")},
		Rows: []Row{
			Branch(hdr(2, 0, "v"),
				Leaf(hdr(2, 1, "a"), map[string]string{"x": "1", "z": "3"}),
				Leaf(hdr(2, 1, "b"), map[string]string{"y": "2"}),
			),
		},
	}
	require.NoError(t, tbl.Validate())
	assert.Equal(t, [][]string{{"", "", "S", "S", "Z"}, {"", "", "X", "Y", "Z"}}, tbl.HeaderGrid())
	flat := tbl.Flatten()
	require.Len(t, flat, 2)
	assert.Equal(t, []string{"v", "a"}, flat[0].Header)
	assert.Equal(t, []string{"1", "", "3"}, flat[0].Cells)
	assert.Equal(t, []string{"", "b"}, flat[1].Header)

	b, err := json.Marshal(tbl.Rows[0].Header)
	require.NoError(t, err)
	assert.JSONEq(t, `["v", null]`, string(b))

	bad := *tbl
	bad.Rows = []Row{Leaf(Header{"only one"}, nil)}
	assert.Error(t, bad.Validate())
	bad.Rows = []Row{Leaf(hdr(2, 0, "v"), map[string]string{"nope": "1"})}
	assert.Error(t, bad.Validate())
	bad.Rows = []Row{{Header: hdr(2, 0, "v")}}
	assert.Error(t, bad.Validate())
}

func TestNumericCell(t *testing.T) {
	for _, c := range []struct {
		in   string
		x    float64
		code string
		ok   bool
	}{
		{"12.50", 12.5, "0.00", true},
		{"-0.125", -0.125, "0.000", true},
		{"4", 4, "0", true},
		{"33.3%", 0.333, "0.0%", true},
		{"12.50^a", 0, "", false},
		{"", 0, "", false},
		{"NaN", 0, "", false},
	} {
		x, code, ok := numericCell(c.in)
		assert.Equal(t, c.ok, ok, c.in)
		assert.InDelta(t, c.x, x, 1e-12, c.in)
		assert.Equal(t, c.code, code, c.in)
	}
}

func TestRenderFormats(t *testing.T) {
	fx := load(t, scores)
	p := allOn(explore.Params{Dependents: []dataset.Variable{fx.score}, Factors: []*dataset.Variable{&fx.grp}})
	tables, err := Build(run(t, fx, p), p)
	require.NoError(t, err)
	require.Len(t, tables, 5)
	doc := Document{RunID: "run-1", Source: "scores.csv", Tables: tables}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, doc, FormatText))
	out := buf.String()
	assert.Contains(t, out, "Case Processing Summary")
	assert.Contains(t, out, "Huber's M-Estimator^a")
	assert.Contains(t, out, "a. The weighting constant is 1.339.")

	buf.Reset()
	require.NoError(t, Render(&buf, doc, FormatMarkdown))
	assert.Contains(t, buf.String(), "### Descriptives")
	assert.Contains(t, buf.String(), "| score")

	buf.Reset()
	require.NoError(t, Render(&buf, doc, FormatJSON))
	var decoded struct {
		RunID  string `json:"run_id"`
		Tables []struct {
			Name string `json:"name"`
			Rows []struct {
				Header []*string `json:"header"`
			} `json:"rows"`
		} `json:"tables"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	require.Len(t, decoded.Tables, 5)
	assert.Equal(t, "descriptives", decoded.Tables[1].Name)
	assert.Nil(t, decoded.Tables[1].Rows[0].Header[1])

	buf.Reset()
	require.NoError(t, Render(&buf, doc, FormatXLSX))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Case Processing Summary", "Descriptives", "M-Estimators", "Percentiles", "Extreme Values"}, f.GetSheetList())
	title, err := f.GetCellValue("Descriptives", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Descriptives", title)
	merged, err := f.GetMergeCells("Case Processing Summary")
	require.NoError(t, err)
	var spans []string
	for _, m := range merged {
		spans = append(spans, m.GetStartAxis()+":"+m.GetEndAxis())
	}
	// "Cases" spans the six leaf columns after two row-header columns
	assert.Contains(t, spans, "C3:H3")
	assert.Contains(t, spans, "C4:D4")

	// numbers keep their displayed precision and stay numeric
	for _, c := range []struct{ sheet, cell, shown, raw string }{
		{"Descriptives", "E4", "12.50", "12.5"},
		{"Descriptives", "F4", "2.500", "2.5"},
		{"Case Processing Summary", "C6", "2", "2"},
		{"Case Processing Summary", "D6", "100.0%", "1"},
	} {
		shown, err := f.GetCellValue(c.sheet, c.cell)
		require.NoError(t, err)
		assert.Equal(t, c.shown, shown, c.sheet+"!"+c.cell)
		raw, err := f.GetCellValue(c.sheet, c.cell, excelize.Options{RawCellValue: true})
		require.NoError(t, err)
		assert.Equal(t, c.raw, raw, c.sheet+"!"+c.cell)
	}

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
	f2, err := ParseFormat("md")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, f2)
}
