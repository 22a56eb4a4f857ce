package dataset

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Metadata is the on-disk description of variables, used to override what
// the loaders infer (labels, declared type, measure, value labels).
type Metadata struct {
	Variables []VariableMeta `yaml:"variables"`
}

// VariableMeta is one entry of a metadata file. Empty fields keep the
// inferred value.
type VariableMeta struct {
	Name        string       `yaml:"name"`
	Label       string       `yaml:"label,omitempty"`
	Type        string       `yaml:"type,omitempty"`
	Measure     string       `yaml:"measure,omitempty"`
	ValueLabels []ValueLabel `yaml:"value_labels,omitempty"`
}

// LoadMetadata parses a YAML metadata file.
func LoadMetadata(path string) (*Metadata, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var m Metadata
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return &m, nil
}

// Apply merges metadata into the dataset's variables. Unknown variable
// names are an error so typos do not silently drop labels.
func (m *Metadata) Apply(d *Dataset, opt Options) error {
	if m == nil {
		return nil
	}
	for _, vm := range m.Variables {
		v, err := d.MustLookup(vm.Name)
		if err != nil {
			return err
		}
		idx := v.Index
		if strings.TrimSpace(vm.Label) != "" {
			d.Variables[idx].Label = vm.Label
		}
		if vm.Measure != "" {
			ms, err := ParseMeasure(vm.Measure)
			if err != nil {
				return fmt.Errorf("variable %s: %w", vm.Name, err)
			}
			d.Variables[idx].Measure = ms
		}
		if vm.Type != "" {
			t, err := ParseType(vm.Type)
			if err != nil {
				return fmt.Errorf("variable %s: %w", vm.Name, err)
			}
			if t != d.Variables[idx].Type {
				d.Retype(idx, t, opt)
			}
		}
		if len(vm.ValueLabels) > 0 {
			d.Variables[idx].ValueLabels = append([]ValueLabel(nil), vm.ValueLabels...)
		}
	}
	return nil
}

// MetadataOf describes the dataset's current variables.
func MetadataOf(d *Dataset) *Metadata {
	m := &Metadata{Variables: make([]VariableMeta, len(d.Variables))}
	for i, v := range d.Variables {
		m.Variables[i] = VariableMeta{
			Name:        v.Name,
			Label:       v.Label,
			Type:        string(v.Type),
			Measure:     string(v.Measure),
			ValueLabels: v.ValueLabels,
		}
	}
	return m
}

// YAML renders metadata in the format LoadMetadata reads.
func (m *Metadata) YAML() ([]byte, error) {
	b, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	return b, nil
}
