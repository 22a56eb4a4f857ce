package examine

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// DefaultConfidenceLevel is used when a request leaves the level unset.
	DefaultConfidenceLevel = 95.0
	// DefaultExtremeCount is the number of highest and lowest cases listed.
	DefaultExtremeCount = 5
	trimFraction        = 0.05
)

// M-estimator weighting constants.
const (
	HuberConstant   = 1.339
	TukeyConstant   = 4.685
	HampelA         = 1.7
	HampelB         = 3.4
	HampelC         = 8.5
	AndrewsConstant = 1.34

	// madConsistency turns the MAD into a standard deviation estimate
	// under normality; the constants above are in those units.
	madConsistency = 0.6745
)

// Local computes Examine statistics in-process.
type Local struct{}

// NewLocal returns the in-process service.
func NewLocal() *Local { return &Local{} }

// Examine implements Service.
func (l *Local) Examine(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Weights != nil && len(req.Weights) != len(req.Values) {
		return nil, &ServiceError{Message: fmt.Sprintf("weights length %d does not match values length %d", len(req.Weights), len(req.Values))}
	}
	opt := req.Options
	if opt.ConfidenceLevel <= 0 || opt.ConfidenceLevel >= 100 {
		opt.ConfidenceLevel = DefaultConfidenceLevel
	}
	if opt.ExtremeCount <= 0 {
		opt.ExtremeCount = DefaultExtremeCount
	}

	s, sum := newSample(req.Values, req.Weights)
	res := &Result{Variable: req.Variable, Summary: sum}
	if s.len() == 0 {
		return res, nil
	}
	if opt.Descriptives || opt.Percentiles {
		res.Descriptives = describe(s, opt.ConfidenceLevel)
		tm := s.trimmedMean(trimFraction)
		res.TrimmedMean = &tm
	}
	if opt.Percentiles {
		p := &Percentiles{WeightedAverage: make([]float64, len(PercentilePoints))}
		for i, pt := range PercentilePoints {
			p.WeightedAverage[i] = s.haverage(pt / 100)
		}
		p.TukeyLower, p.TukeyUpper = s.tukeyHinges()
		res.Percentiles = p
	}
	if opt.MEstimators {
		res.MEstimators = mEstimators(s)
	}
	if opt.Extremes {
		res.Extremes = extremes(s, opt.ExtremeCount)
	}
	return res, nil
}

func describe(s *sample, level float64) *Descriptives {
	w := s.weights()
	n := s.total
	d := &Descriptives{ConfidenceLevel: level}
	d.Mean = stat.Mean(s.xs, w)
	d.Variance = math.NaN()
	d.StdDev = math.NaN()
	d.SEMean = math.NaN()
	d.CILower, d.CIUpper = math.NaN(), math.NaN()
	if n > 1 {
		d.Variance = stat.Variance(s.xs, w)
		d.StdDev = math.Sqrt(d.Variance)
		d.SEMean = d.StdDev / math.Sqrt(n)
		t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 1}.Quantile(0.5 + level/200)
		d.CILower = d.Mean - t*d.SEMean
		d.CIUpper = d.Mean + t*d.SEMean
	}
	d.Min, _ = stats.Min(s.xs)
	d.Max, _ = stats.Max(s.xs)
	d.Range = d.Max - d.Min
	d.Median = s.median()
	d.IQR = s.haverage(0.75) - s.haverage(0.25)

	d.Skewness, d.SESkewness = math.NaN(), math.NaN()
	d.Kurtosis, d.SEKurtosis = math.NaN(), math.NaN()
	if n >= 3 {
		d.SESkewness = math.Sqrt(6 * n * (n - 1) / ((n - 2) * (n + 1) * (n + 3)))
		if d.StdDev > 0 {
			d.Skewness = stat.Skew(s.xs, w)
		}
	}
	if n >= 4 {
		d.SEKurtosis = 2 * d.SESkewness * math.Sqrt((n*n-1)/((n-3)*(n+5)))
		if d.StdDev > 0 {
			d.Kurtosis = stat.ExKurtosis(s.xs, w)
		}
	}
	return d
}

type weightFunc func(u float64) float64

func huber(c float64) weightFunc {
	return func(u float64) float64 {
		if a := math.Abs(u); a > c {
			return c / a
		}
		return 1
	}
}

func tukeyBiweight(c float64) weightFunc {
	return func(u float64) float64 {
		if math.Abs(u) > c {
			return 0
		}
		r := u / c
		return (1 - r*r) * (1 - r*r)
	}
}

func hampel(a, b, c float64) weightFunc {
	return func(u float64) float64 {
		au := math.Abs(u)
		switch {
		case au <= a:
			return 1
		case au <= b:
			return a / au
		case au <= c:
			return a * (c - au) / ((c - b) * au)
		}
		return 0
	}
}

func andrews(c float64) weightFunc {
	return func(u float64) float64 {
		if math.Abs(u) > c*math.Pi {
			return 0
		}
		if u == 0 {
			return 1
		}
		return math.Sin(u/c) / (u / c)
	}
}

func mEstimators(s *sample) *MEstimators {
	med := s.median()
	scale := s.mad() / madConsistency
	return &MEstimators{
		Huber:   mEstimate(s, med, scale, huber(HuberConstant)),
		Tukey:   mEstimate(s, med, scale, tukeyBiweight(TukeyConstant)),
		Hampel:  mEstimate(s, med, scale, hampel(HampelA, HampelB, HampelC)),
		Andrews: mEstimate(s, med, scale, andrews(AndrewsConstant)),
	}
}

// mEstimate iterates weighted means starting from the median with a fixed
// scale of MAD/0.6745.
func mEstimate(s *sample, start, scale float64, wf weightFunc) float64 {
	if scale == 0 || math.IsNaN(scale) {
		return start
	}
	t := start
	for iter := 0; iter < 50; iter++ {
		var num, den float64
		for i, x := range s.xs {
			w := wf((x-t)/scale) * s.ws[i]
			num += w * x
			den += w
		}
		if den == 0 {
			return t
		}
		next := num / den
		if math.Abs(next-t) <= 1e-10*scale {
			return next
		}
		t = next
	}
	return t
}

// extremes lists the count highest and lowest cases. Ties are broken by
// case number ascending. The boundary entry is partial when a tied case did
// not fit in the list.
func extremes(s *sample, count int) *Extremes {
	n := s.len()
	k := count
	if n < k {
		k = n
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	asc := append([]int(nil), idx...)
	sort.SliceStable(asc, func(a, b int) bool {
		ia, ib := asc[a], asc[b]
		if s.xs[ia] != s.xs[ib] {
			return s.xs[ia] < s.xs[ib]
		}
		return s.cases[ia] < s.cases[ib]
	})
	desc := append([]int(nil), idx...)
	sort.SliceStable(desc, func(a, b int) bool {
		ia, ib := desc[a], desc[b]
		if s.xs[ia] != s.xs[ib] {
			return s.xs[ia] > s.xs[ib]
		}
		return s.cases[ia] < s.cases[ib]
	})
	build := func(order []int) []Extreme {
		out := make([]Extreme, k)
		for r := 0; r < k; r++ {
			i := order[r]
			out[r] = Extreme{Rank: r + 1, Case: s.cases[i], Value: s.xs[i]}
		}
		if k > 0 && k < n && s.xs[order[k-1]] == s.xs[order[k]] {
			out[k-1].Partial = true
		}
		return out
	}
	return &Extremes{
		Highest:   build(desc),
		Lowest:    build(asc),
		Truncated: n < count,
	}
}
