package lta

import (
	"testing"
	"time"

	"github.com/ioos/hfrnet-totals/total"
)

func TestMonthlyAverageGatesOnCoverageInHours(t *testing.T) {
	month := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	s := total.NewSum("mwx", "6km", month, []float64{30.1}, []float64{-80.1})
	// 0.5 days * 24 = 12 hours required; only provide 10.
	for i := 0; i < 10; i++ {
		s.Accumulate(0, 2, -2)
	}

	avg := MonthlyAverage(&testLog{}, s, 0.5)
	if avg != nil {
		t.Fatal("expected nil average below minimum coverage")
	}
}

func TestMonthlyAverageProducesResultAboveCoverage(t *testing.T) {
	month := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	s := total.NewSum("mwx", "6km", month, []float64{30.1}, []float64{-80.1})
	for i := 0; i < 12; i++ {
		s.Accumulate(0, 2, -2)
	}

	avg := MonthlyAverage(&testLog{}, s, 0.5)
	if avg == nil {
		t.Fatal("expected a non-nil average")
	}
	if avg.UAvg[0] != 2 || avg.VAvg[0] != -2 {
		t.Fatalf("unexpected average: u=%v v=%v", avg.UAvg[0], avg.VAvg[0])
	}
}

func TestAnnualAverageRollsUpMonthlySums(t *testing.T) {
	year := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var months []*total.Sum
	for m := 1; m <= 3; m++ {
		s := total.NewSum("mwx", "6km", time.Date(2024, time.Month(m), 1, 0, 0, 0, 0, time.UTC), []float64{30.1}, []float64{-80.1})
		for i := 0; i < 10; i++ {
			s.Accumulate(0, 1, 1)
		}
		months = append(months, s)
	}

	avg := AnnualAverage(&testLog{}, months, year, 1.0/24*30) // require ~30 hours total
	if avg == nil {
		t.Fatal("expected a non-nil annual average (30 total observations)")
	}
	if avg.NGood[0] != 30 {
		t.Fatalf("expected 30 total observations, got %d", avg.NGood[0])
	}
}

func TestAnnualAverageNilWithNoMonths(t *testing.T) {
	avg := AnnualAverage(&testLog{}, nil, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 0)
	if avg != nil {
		t.Fatal("expected nil average with no monthly sums")
	}
}
