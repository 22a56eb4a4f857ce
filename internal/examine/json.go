package examine

import (
	"encoding/json"
	"math"
)

// Statistics that are undefined for a sample (variance of one case, say) are
// NaN in memory and null on the wire. encoding/json leaves a float field
// untouched when it reads null, so decoders start from NaN.

// UnmarshalJSON decodes null statistics as NaN.
func (d *Descriptives) UnmarshalJSON(b []byte) error {
	type plain Descriptives
	nan := math.NaN()
	p := plain{
		Mean: nan, SEMean: nan, CILower: nan, CIUpper: nan,
		Median: nan, Variance: nan, StdDev: nan,
		Min: nan, Max: nan, Range: nan, IQR: nan,
		Skewness: nan, SESkewness: nan, Kurtosis: nan, SEKurtosis: nan,
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*d = Descriptives(p)
	return nil
}

// UnmarshalJSON decodes null estimates as NaN.
func (m *MEstimators) UnmarshalJSON(b []byte) error {
	type plain MEstimators
	nan := math.NaN()
	p := plain{Huber: nan, Tukey: nan, Hampel: nan, Andrews: nan}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*m = MEstimators(p)
	return nil
}

// UnmarshalJSON decodes null percentile values as NaN.
func (p *Percentiles) UnmarshalJSON(b []byte) error {
	var w struct {
		WeightedAverage []*float64 `json:"weighted_average"`
		TukeyLower      *float64   `json:"tukey_lower"`
		TukeyUpper      *float64   `json:"tukey_upper"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	out := Percentiles{WeightedAverage: make([]float64, len(w.WeightedAverage))}
	for i, x := range w.WeightedAverage {
		out.WeightedAverage[i] = orNaN(x)
	}
	out.TukeyLower = orNaN(w.TukeyLower)
	out.TukeyUpper = orNaN(w.TukeyUpper)
	*p = out
	return nil
}

func orNaN(x *float64) float64 {
	if x == nil {
		return math.NaN()
	}
	return *x
}
