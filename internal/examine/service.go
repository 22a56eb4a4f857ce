// Package examine defines the numeric service contract behind the Explore
// analysis and ships two implementations: Local, computing in-process, and
// Remote, calling a statistics worker over HTTP.
package examine

import (
	"context"
	"fmt"
	"time"

	"github.com/KaramelBytes/statloom-cli/internal/dataset"
)

// Service computes the Examine statistics for one (variable, group) column.
type Service interface {
	Examine(ctx context.Context, req Request) (*Result, error)
}

// Options selects which statistic families to compute.
type Options struct {
	ConfidenceLevel float64 `json:"confidence_level"`
	Descriptives    bool    `json:"descriptives"`
	MEstimators     bool    `json:"m_estimators"`
	Percentiles     bool    `json:"percentiles"`
	Extremes        bool    `json:"extremes"`
	ExtremeCount    int     `json:"extreme_count"`
}

// Request is one unit of work. Values holds NaN for missing cells; Weights,
// when present, has the same length as Values.
type Request struct {
	Variable dataset.Variable `json:"variable"`
	Values   []float64        `json:"-"`
	Weights  []float64        `json:"-"`
	Options  Options          `json:"options"`
}

// Summary counts cases (weighted when weights are supplied).
type Summary struct {
	Valid   float64 `json:"valid"`
	Missing float64 `json:"missing"`
	Total   float64 `json:"total"`
}

// Descriptives is the descriptive statistics family.
type Descriptives struct {
	Mean            float64 `json:"mean"`
	SEMean          float64 `json:"se_mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
	CILower         float64 `json:"ci_lower"`
	CIUpper         float64 `json:"ci_upper"`
	Median          float64 `json:"median"`
	Variance        float64 `json:"variance"`
	StdDev          float64 `json:"std_dev"`
	Min             float64 `json:"min"`
	Max             float64 `json:"max"`
	Range           float64 `json:"range"`
	IQR             float64 `json:"iqr"`
	Skewness        float64 `json:"skewness"`
	SESkewness      float64 `json:"se_skewness"`
	Kurtosis        float64 `json:"kurtosis"`
	SEKurtosis      float64 `json:"se_kurtosis"`
}

// MEstimators holds the four robust location estimates.
type MEstimators struct {
	Huber   float64 `json:"huber"`
	Tukey   float64 `json:"tukey"`
	Hampel  float64 `json:"hampel"`
	Andrews float64 `json:"andrews"`
}

// PercentilePoints are the fixed points of the weighted-average method.
var PercentilePoints = []float64{5, 10, 25, 50, 75, 90, 95}

// Percentiles holds both percentile methods. WeightedAverage is aligned with
// PercentilePoints.
type Percentiles struct {
	WeightedAverage []float64 `json:"weighted_average"`
	TukeyLower      float64   `json:"tukey_lower"`
	TukeyUpper      float64   `json:"tukey_upper"`
}

// Extreme is one ranked case of an extreme-value list. Case is the 1-based
// position within the values handed to the service.
type Extreme struct {
	Rank    int     `json:"rank"`
	Case    int     `json:"case"`
	Value   float64 `json:"value"`
	Partial bool    `json:"partial,omitempty"`
}

// Extremes holds the highest and lowest cases. Truncated reports that fewer
// valid cases than requested were available.
type Extremes struct {
	Highest   []Extreme `json:"highest"`
	Lowest    []Extreme `json:"lowest"`
	Truncated bool      `json:"truncated,omitempty"`
}

// Result is the service output for one column. Optional families are nil
// when not requested or not computable.
type Result struct {
	Variable     dataset.Variable `json:"variable"`
	Summary      Summary          `json:"summary"`
	Descriptives *Descriptives    `json:"descriptives,omitempty"`
	TrimmedMean  *float64         `json:"trimmed_mean,omitempty"`
	MEstimators  *MEstimators     `json:"m_estimators,omitempty"`
	Percentiles  *Percentiles     `json:"percentiles,omitempty"`
	Extremes     *Extremes        `json:"extremes,omitempty"`
}

// ServiceError is an error payload returned by the service. StatusCode is
// zero for errors reported inside a successful response.
type ServiceError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("examine service error: status=%d message=%s", e.StatusCode, e.Message)
	}
	return e.Message
}
