package dataset

import (
	"fmt"
	"strings"
)

// Type is the declared storage type of a variable.
type Type string

const (
	TypeNumeric Type = "numeric"
	TypeString  Type = "string"
	TypeDate    Type = "date"
)

// Measure is the measurement level of a variable.
type Measure string

const (
	MeasureScale   Measure = "scale"
	MeasureOrdinal Measure = "ordinal"
	MeasureNominal Measure = "nominal"
	MeasureUnknown Measure = "unknown"
)

// ValueLabel maps a raw value (in its string form) to a display label.
type ValueLabel struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Variable describes one dataset column.
type Variable struct {
	Name        string       `yaml:"name" json:"name"`
	Label       string       `yaml:"label,omitempty" json:"label,omitempty"`
	Index       int          `yaml:"index" json:"index"`
	Type        Type         `yaml:"type" json:"type"`
	Measure     Measure      `yaml:"measure" json:"measure"`
	ValueLabels []ValueLabel `yaml:"value_labels,omitempty" json:"value_labels,omitempty"`
}

// DisplayName returns the label when set, otherwise the name.
func (v Variable) DisplayName() string {
	if strings.TrimSpace(v.Label) != "" {
		return v.Label
	}
	return v.Name
}

// IsNumeric reports whether values of the variable are analysed as numbers.
func (v Variable) IsNumeric() bool { return v.Type == TypeNumeric }

func (v Variable) String() string { return v.Name }

// FactorLabel returns the configured label for raw, falling back to the raw
// value's string form.
func FactorLabel(v Variable, raw Value) string {
	s := raw.String()
	for _, vl := range v.ValueLabels {
		if vl.Value == s {
			return vl.Label
		}
	}
	return s
}

// ParseType accepts the type names used in metadata files.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "numeric", "number", "num", "float", "int":
		return TypeNumeric, nil
	case "string", "text", "str":
		return TypeString, nil
	case "date", "datetime", "time":
		return TypeDate, nil
	}
	return "", fmt.Errorf("unknown variable type %q", s)
}

// ParseMeasure accepts the measurement level names used in metadata files.
func ParseMeasure(s string) (Measure, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scale", "interval", "ratio":
		return MeasureScale, nil
	case "ordinal":
		return MeasureOrdinal, nil
	case "nominal", "categorical":
		return MeasureNominal, nil
	case "", "unknown":
		return MeasureUnknown, nil
	}
	return "", fmt.Errorf("unknown measure %q", s)
}
