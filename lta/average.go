package lta

import (
	"time"

	"github.com/ioos/hfrnet-totals/total"
)

// MonthlyAverage computes the masked average/variance from a monthly Sum,
// gated at minMonthTemporalCoverage days expressed in hours (matching
// ltaMonthlyAvg.py's "min_coverage = min_month_temporal_coverage * 24").
// It returns nil if no cell meets the coverage threshold.
func MonthlyAverage(log Logger, s *total.Sum, minMonthTemporalCoverage float64) *total.Avg {
	minGood := int(minMonthTemporalCoverage * 24)
	a := s.Average(minGood)

	if !anySet(a) {
		log.Debugf("not enough data to meet minimum temporal coverage of %v days", minMonthTemporalCoverage)
		return nil
	}
	log.Debugf("computed month average")
	return a
}

// AnnualAverage rolls up up to twelve monthly sums into an annual Sum and
// computes the masked average, gated at minYearTemporalCoverage days
// expressed in hours, matching ltaAnnualAvg.py.
func AnnualAverage(log Logger, months []*total.Sum, year time.Time, minYearTemporalCoverage float64) *total.Avg {
	yearSum := total.MergeMonthly(months, year)
	if yearSum == nil {
		log.Debugf("no monthly data loaded")
		return nil
	}

	minGood := int(minYearTemporalCoverage * 24)
	a := yearSum.Average(minGood)

	if !anySet(a) {
		log.Debugf("not enough data to meet minimum temporal coverage of %v days", minYearTemporalCoverage)
		return nil
	}
	log.Debugf("computed year average")
	return a
}

func anySet(a *total.Avg) bool {
	for i := 0; i < a.Len(); i++ {
		if a.IsSet(i) {
			return true
		}
	}
	return false
}
