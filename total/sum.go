package total

import (
	"math"
	"time"
)

// Sum is the one-pass accumulator shared by the STC and LTA pipelines: per
// cell, a running count, sum, sum-of-squares, min, and max of u and v,
// accumulated across however many hourly Totals contribute to the window.
type Sum struct {
	Domain, Resolution string
	// T is the window's representative timestamp: STC's center-hour,
	// LTA's month, or LTA's year (UTC, Jan 1).
	T time.Time

	OceanLat, OceanLon []float64

	NGood              []int
	USum, VSum         []float64
	U2Sum, V2Sum       []float64
	UMin, VMin         []float64
	UMax, VMax         []float64
}

// NewSum allocates a Sum with every cell at zero count and +/-Inf min/max
// sentinels (overwritten by the first accumulation).
func NewSum(domain, resolution string, t time.Time, oceanLat, oceanLon []float64) *Sum {
	n := len(oceanLat)
	s := &Sum{
		Domain: domain, Resolution: resolution, T: t,
		OceanLat: oceanLat, OceanLon: oceanLon,
		NGood: make([]int, n),
		USum:  make([]float64, n), VSum: make([]float64, n),
		U2Sum: make([]float64, n), V2Sum: make([]float64, n),
		UMin: make([]float64, n), VMin: make([]float64, n),
		UMax: make([]float64, n), VMax: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		s.UMin[i], s.VMin[i] = math.Inf(1), math.Inf(1)
		s.UMax[i], s.VMax[i] = math.Inf(-1), math.Inf(-1)
	}
	return s
}

// Len reports the number of ocean cells.
func (s *Sum) Len() int { return len(s.OceanLat) }

// Accumulate folds one (u, v) observation into cell i's running sums. A
// NaN u or v is silently skipped, matching the NaN-skipping one-pass
// accumulation used by both the STC and LTA windows.
func (s *Sum) Accumulate(i int, u, v float64) {
	if math.IsNaN(u) || math.IsNaN(v) {
		return
	}
	s.NGood[i]++
	s.USum[i] += u
	s.VSum[i] += v
	s.U2Sum[i] += u * u
	s.V2Sum[i] += v * v
	s.UMin[i] = math.Min(s.UMin[i], u)
	s.VMin[i] = math.Min(s.VMin[i], v)
	s.UMax[i] = math.Max(s.UMax[i], u)
	s.VMax[i] = math.Max(s.VMax[i], v)
}

// Variance computes the Bessel-corrected sample variance from a running
// sum and sum-of-squares over n observations. By definition, a cell with
// exactly one observation has zero variance rather than a division by
// zero.
func Variance(sum, sumSq float64, n int) float64 {
	if n <= 1 {
		return 0
	}
	nf := float64(n)
	return (sumSq - sum*sum/nf) / (nf - 1)
}

// Avg is the average/variance extension of Sum, computed once a window's
// accumulation is complete.
type Avg struct {
	Domain, Resolution string
	T                  time.Time

	OceanLat, OceanLon []float64

	NGood              []int
	UAvg, VAvg         []float64
	UVar, VVar         []float64
	UMin, VMin         []float64
	UMax, VMax         []float64
}

// Average computes per-cell averages and sample variances from s, masking
// (setting to NaN) any cell whose NGood is below minGood. minGood
// expresses each pipeline's own minimum-coverage gate (STC's
// min_temporal_coverage, LTA's min_month/year_temporal_coverage*24).
func (s *Sum) Average(minGood int) *Avg {
	n := s.Len()
	a := &Avg{
		Domain: s.Domain, Resolution: s.Resolution, T: s.T,
		OceanLat: s.OceanLat, OceanLon: s.OceanLon,
		NGood: make([]int, n),
		UAvg:  make([]float64, n), VAvg: make([]float64, n),
		UVar: make([]float64, n), VVar: make([]float64, n),
		UMin: make([]float64, n), VMin: make([]float64, n),
		UMax: make([]float64, n), VMax: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		a.NGood[i] = s.NGood[i]
		if s.NGood[i] < minGood || s.NGood[i] == 0 {
			a.UAvg[i], a.VAvg[i] = math.NaN(), math.NaN()
			a.UVar[i], a.VVar[i] = math.NaN(), math.NaN()
			a.UMin[i], a.VMin[i] = math.NaN(), math.NaN()
			a.UMax[i], a.VMax[i] = math.NaN(), math.NaN()
			continue
		}
		nf := float64(s.NGood[i])
		a.UAvg[i] = s.USum[i] / nf
		a.VAvg[i] = s.VSum[i] / nf
		a.UVar[i] = Variance(s.USum[i], s.U2Sum[i], s.NGood[i])
		a.VVar[i] = Variance(s.VSum[i], s.V2Sum[i], s.NGood[i])
		a.UMin[i], a.VMin[i] = s.UMin[i], s.VMin[i]
		a.UMax[i], a.VMax[i] = s.UMax[i], s.VMax[i]
	}
	return a
}

// IsSet reports whether cell i's average is defined.
func (a *Avg) IsSet(i int) bool { return !math.IsNaN(a.UAvg[i]) }

// Len reports the number of ocean cells.
func (a *Avg) Len() int { return len(a.OceanLat) }

// MergeMonthly folds 12 monthly Sum structures into an annual Sum,
// accumulating nGood/sums/min/max per cell without recomputing from raw
// observations, matching ltaAnnualAvg's "accumulate per-cell nGood, *Sum,
// *²Sum, min/max" rollup.
func MergeMonthly(months []*Sum, year time.Time) *Sum {
	if len(months) == 0 {
		return nil
	}
	out := NewSum(months[0].Domain, months[0].Resolution, year, months[0].OceanLat, months[0].OceanLon)
	for _, m := range months {
		for i := 0; i < m.Len(); i++ {
			if m.NGood[i] == 0 {
				continue
			}
			out.NGood[i] += m.NGood[i]
			out.USum[i] += m.USum[i]
			out.VSum[i] += m.VSum[i]
			out.U2Sum[i] += m.U2Sum[i]
			out.V2Sum[i] += m.V2Sum[i]
			out.UMin[i] = math.Min(out.UMin[i], m.UMin[i])
			out.VMin[i] = math.Min(out.VMin[i], m.VMin[i])
			out.UMax[i] = math.Max(out.UMax[i], m.UMax[i])
			out.VMax[i] = math.Max(out.VMax[i], m.VMax[i])
		}
	}
	return out
}
