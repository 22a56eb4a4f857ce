package report

import (
	"math"
	"strconv"
)

// Decimal places per kind of value.
const (
	StatDecimals    = 2
	StdErrDecimals  = 3
	PercentDecimals = 1
)

// Fixed formats x with the given decimals. NaN and infinities are blank.
func Fixed(x float64, decimals int) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return ""
	}
	s := strconv.FormatFloat(x, 'f', decimals, 64)
	if s == "-"+strconv.FormatFloat(0, 'f', decimals, 64) {
		return s[1:]
	}
	return s
}

// Stat formats a statistic.
func Stat(x float64) string { return Fixed(x, StatDecimals) }

// StatPtr formats an optional statistic; nil is blank.
func StatPtr(x *float64) string {
	if x == nil {
		return ""
	}
	return Stat(*x)
}

// StdErr formats a standard error.
func StdErr(x float64) string { return Fixed(x, StdErrDecimals) }

// Count formats a (possibly weighted) case count: whole numbers without
// decimals, fractional weighted counts with StatDecimals.
func Count(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return ""
	}
	if x == math.Trunc(x) {
		return strconv.FormatFloat(x, 'f', 0, 64)
	}
	return Stat(x)
}

// Percent formats part/total as a percentage. A zero total reads "0.0%".
func Percent(part, total float64) string {
	if total == 0 || math.IsNaN(total) || math.IsNaN(part) {
		return Fixed(0, PercentDecimals) + "%"
	}
	return Fixed(part/total*100, PercentDecimals) + "%"
}

// Level formats a confidence level as a percent label, e.g. "95%".
func Level(x float64) string { return strconv.FormatFloat(x, 'f', -1, 64) + "%" }
