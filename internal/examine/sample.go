package examine

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// sample is the sorted, valid part of a request: values ascending with their
// weights and 1-based case numbers.
type sample struct {
	xs    []float64
	ws    []float64
	cases []int
	cum   []float64 // cumulative weights
	total float64
	// weighted is false when every weight is 1.
	weighted bool
}

type caseValue struct {
	x      float64
	w      float64
	caseNo int
}

// newSample drops missing values and cases with unusable weights and returns
// the sorted sample along with the summary counts.
func newSample(values, weights []float64) (*sample, Summary) {
	var sum Summary
	cvs := make([]caseValue, 0, len(values))
	weighted := false
	for i, x := range values {
		w := 1.0
		if weights != nil {
			w = weights[i]
			// such a case stands for no observations and enters no count
			if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
				continue
			}
			if w != 1 {
				weighted = true
			}
		}
		sum.Total += w
		if math.IsNaN(x) || math.IsInf(x, 0) {
			sum.Missing += w
			continue
		}
		sum.Valid += w
		cvs = append(cvs, caseValue{x: x, w: w, caseNo: i + 1})
	}
	sort.SliceStable(cvs, func(i, j int) bool { return cvs[i].x < cvs[j].x })
	s := &sample{
		xs:       make([]float64, len(cvs)),
		ws:       make([]float64, len(cvs)),
		cases:    make([]int, len(cvs)),
		cum:      make([]float64, len(cvs)),
		weighted: weighted,
	}
	for i, cv := range cvs {
		s.xs[i] = cv.x
		s.ws[i] = cv.w
		s.cases[i] = cv.caseNo
		s.total += cv.w
		s.cum[i] = s.total
	}
	return s, sum
}

func (s *sample) len() int { return len(s.xs) }

// weights returns nil for unweighted samples, matching gonum's convention.
func (s *sample) weights() []float64 {
	if !s.weighted {
		return nil
	}
	return s.ws
}

// at returns the value at 1-based cumulative rank r, clamped to the ends.
func (s *sample) at(r float64) float64 {
	last := len(s.xs) - 1
	if r < 1 {
		return s.xs[0]
	}
	if r >= s.total {
		return s.xs[last]
	}
	i := sort.SearchFloat64s(s.cum, r)
	if i > last {
		i = last
	}
	return s.xs[i]
}

// interp linearly interpolates between the values at floor(pos) and
// floor(pos)+1.
func (s *sample) interp(pos float64) float64 {
	k := math.Floor(pos)
	f := pos - k
	lo := s.at(k)
	if f == 0 {
		return lo
	}
	return lo + f*(s.at(k+1)-lo)
}

// haverage is the weighted-average percentile at p in (0,1), definition 1:
// position (W+1)p.
func (s *sample) haverage(p float64) float64 {
	return s.interp((s.total + 1) * p)
}

// tukeyHinges returns the lower and upper hinges.
func (s *sample) tukeyHinges() (lower, upper float64) {
	dm := (s.total + 1) / 2
	dh := (math.Floor(dm) + 1) / 2
	return s.interp(dh), s.interp(s.total + 1 - dh)
}

// trimmedMean discards fraction of the total weight from each tail; the
// boundary cases contribute the part of their weight inside the kept range.
func (s *sample) trimmedMean(fraction float64) float64 {
	tc := fraction * s.total
	lo, hi := tc, s.total-tc
	var num, den float64
	for i, x := range s.xs {
		start := s.cum[i] - s.ws[i]
		eff := math.Min(s.cum[i], hi) - math.Max(start, lo)
		if eff <= 0 {
			continue
		}
		num += eff * x
		den += eff
	}
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

func (s *sample) median() float64 {
	if !s.weighted {
		m, err := stats.Median(s.xs)
		if err == nil {
			return m
		}
	}
	return s.haverage(0.5)
}

// mad is the (unscaled) median absolute deviation from the median.
func (s *sample) mad() float64 {
	if !s.weighted {
		m, err := stats.MedianAbsoluteDeviationPopulation(s.xs)
		if err == nil {
			return m
		}
	}
	med := s.median()
	dev := make([]float64, len(s.xs))
	for i, x := range s.xs {
		dev[i] = math.Abs(x - med)
	}
	ds, _ := newSample(dev, s.ws)
	return ds.haverage(0.5)
}
