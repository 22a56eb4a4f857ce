package dataset

import (
	"math"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	kindMissing valueKind = iota
	kindNumber
	kindText
)

// Value is a single dataset cell: missing, a number, or text.
type Value struct {
	kind valueKind
	num  float64
	str  string
}

// Missing is the empty cell.
var Missing = Value{}

// Number wraps a numeric cell. NaN is stored as missing.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Missing
	}
	return Value{kind: kindNumber, num: f}
}

// Text wraps a string cell. Blank strings are stored as missing.
func Text(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Missing
	}
	return Value{kind: kindText, str: s}
}

func (v Value) IsMissing() bool { return v.kind == kindMissing }
func (v Value) IsNumber() bool  { return v.kind == kindNumber }

// Float returns the numeric reading of the cell. Text that parses as a plain
// number is accepted so label-only columns keyed by codes still work.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case kindNumber:
		return v.num, true
	case kindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// String is the raw string form used for value-label matching and display.
func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindText:
		return v.str
	}
	return ""
}

// Compare orders values: numbers (numerically) before text (lexically),
// missing last. The sign of the result follows strings.Compare.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		return rank(a.kind) - rank(b.kind)
	}
	switch a.kind {
	case kindNumber:
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
	case kindText:
		return strings.Compare(a.str, b.str)
	}
	return 0
}

func rank(k valueKind) int {
	switch k {
	case kindNumber:
		return -1
	case kindText:
		return 0
	}
	return 1
}

// Key is an unambiguous encoding of the value: the kind tag is followed by
// the quoted string form, so no two distinct values share a key.
func (v Value) Key() string {
	switch v.kind {
	case kindNumber:
		return "n" + strconv.Quote(v.String())
	case kindText:
		return "s" + strconv.Quote(v.str)
	}
	return "m"
}
