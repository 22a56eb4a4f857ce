package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Options controls how raw files are turned into a Dataset.
type Options struct {
	// MaxRows limits rows loaded; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, picks '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// DefaultOptions returns reasonable defaults for dataset loading.
func DefaultOptions() Options {
	return Options{MaxRows: 1000000}
}

// LoadCSV reads a delimited file with a header row.
func LoadCSV(path string, opt Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	return ReadCSV(f, filepath.Base(path), delim, opt)
}

// ReadCSV reads delimited records from r. The first record is the header.
func ReadCSV(r io.Reader, name string, delim rune, opt Options) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if delim != 0 {
		cr.Comma = delim
	}
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Dataset{Name: name}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)
	var records [][]string
	total := 0
	for {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", total+1, err)
		}
		total++
		if opt.MaxRows > 0 && len(records) >= opt.MaxRows {
			continue
		}
		records = append(records, rec)
	}
	ds := FromRecords(name, header, records, opt)
	if len(records) < total {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("loaded only %d/%d rows due to MaxRows", len(records), total))
	}
	return ds, nil
}

// FromRecords infers variables from string records and converts every cell
// to a Value. Columns whose non-empty cells are predominantly numeric become
// numeric scale variables; everything else is kept as text.
func FromRecords(name string, header []string, records [][]string, opt Options) *Dataset {
	ncol := len(header)
	for _, rec := range records {
		if len(rec) > ncol {
			ncol = len(rec)
		}
	}
	type colAcc struct {
		numCnt, dtCnt, txtCnt int
	}
	acc := make([]colAcc, ncol)
	for _, rec := range records {
		for j := 0; j < len(rec); j++ {
			v := strings.TrimSpace(rec[j])
			if v == "" {
				continue
			}
			if _, ok := parseNumeric(v, opt); ok {
				acc[j].numCnt++
			} else if _, ok := parseTimeMaybe(v); ok {
				acc[j].dtCnt++
			} else {
				acc[j].txtCnt++
			}
		}
	}

	ds := &Dataset{Name: name, Variables: make([]Variable, ncol)}
	seen := map[string]int{}
	for j := 0; j < ncol; j++ {
		vname := ""
		if j < len(header) {
			vname = strings.TrimSpace(header[j])
		}
		if vname == "" {
			vname = fmt.Sprintf("V%d", j+1)
		}
		if n := seen[strings.ToLower(vname)]; n > 0 {
			ds.Warnings = append(ds.Warnings, fmt.Sprintf("duplicate column %q renamed", vname))
			vname = fmt.Sprintf("%s_%d", vname, n+1)
		}
		seen[strings.ToLower(vname)]++
		c := acc[j]
		v := Variable{Name: vname, Index: j, Type: TypeString, Measure: MeasureNominal}
		switch {
		case c.numCnt > 0 && c.numCnt >= c.dtCnt && c.numCnt >= c.txtCnt:
			v.Type, v.Measure = TypeNumeric, MeasureScale
		case c.dtCnt > 0 && c.dtCnt >= c.txtCnt:
			v.Type, v.Measure = TypeDate, MeasureScale
		case c.txtCnt == 0:
			v.Measure = MeasureUnknown
		}
		ds.Variables[j] = v
	}

	ds.raw = records
	ds.Rows = make([]Row, len(records))
	for i, rec := range records {
		row := make(Row, ncol)
		for j := 0; j < ncol; j++ {
			raw := ""
			if j < len(rec) {
				raw = strings.TrimSpace(rec[j])
			}
			row[j] = convertCell(raw, ds.Variables[j], opt)
		}
		ds.Rows[i] = row
	}
	return ds
}

// Retype converts the cells of column idx after a metadata override changed
// its declared type.
func (d *Dataset) Retype(idx int, t Type, opt Options) {
	if idx < 0 || idx >= len(d.Variables) {
		return
	}
	d.Variables[idx].Type = t
	for i, row := range d.Rows {
		if idx >= len(row) {
			continue
		}
		raw := row[idx].String()
		if i < len(d.raw) && idx < len(d.raw[i]) {
			raw = strings.TrimSpace(d.raw[i][idx])
		}
		row[idx] = convertCell(raw, d.Variables[idx], opt)
	}
}

func convertCell(raw string, v Variable, opt Options) Value {
	if raw == "" {
		return Missing
	}
	if v.Type == TypeNumeric {
		if x, ok := parseNumeric(raw, opt); ok {
			return Number(x)
		}
		return Missing
	}
	return Text(raw)
}

func sniffDelimiter(path string) rune {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	return ','
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		if cpos >= 0 && dpos >= 0 {
			if cpos > dpos {
				dec = ','
				thou = '.'
			} else {
				dec = '.'
				thou = ','
			}
		} else if cpos >= 0 {
			dec = ','
		} else {
			dec = '.'
		}
	}
	// Remove thousands separators (common: ',', '.', space) if they differ from decimal
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
