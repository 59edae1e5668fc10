// Package samples computes summary statistics over decoded field values.
//
// g2c fills points masked out by a bitmap with 9.999e20. Those values, and
// NaN or infinite values, are counted as missing and excluded.
package samples

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Missing is the g2c fill value for bitmapped-out points.
const Missing float32 = 9.999e20

// Summary describes one field's values.
type Summary struct {
	Count   int     `json:"count"`
	Valid   int     `json:"valid"`
	Missing int     `json:"missing"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stddev"`
	Median  float64 `json:"median"`
}

// IsMissing reports whether v carries no data.
func IsMissing(v float32) bool {
	if v >= Missing {
		return true
	}
	f := float64(v)
	return math.IsNaN(f) || math.IsInf(f, 0)
}

// Summarize computes statistics over the valid values. With no valid value
// every statistic is NaN.
func Summarize(values []float32) Summary {
	s := Summary{Count: len(values)}

	valid := make([]float64, 0, len(values))
	for _, v := range values {
		if IsMissing(v) {
			continue
		}
		valid = append(valid, float64(v))
	}
	s.Valid = len(valid)
	s.Missing = s.Count - s.Valid

	if len(valid) == 0 {
		nan := math.NaN()
		s.Min, s.Max, s.Mean, s.StdDev, s.Median = nan, nan, nan, nan, nan
		return s
	}

	s.Min = floats.Min(valid)
	s.Max = floats.Max(valid)
	if len(valid) == 1 {
		s.Mean, s.Median = valid[0], valid[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(valid, nil)

	sort.Float64s(valid)
	s.Median = stat.Quantile(0.5, stat.Empirical, valid, nil)
	return s
}

// Range returns the valid min and max, the colour scale bounds a map
// renderer uses.
func (s Summary) Range() (lo, hi float64) {
	return s.Min, s.Max
}
