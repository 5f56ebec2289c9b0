package total

import (
	"math"
	"testing"
	"time"
)

func TestSumAccumulateSkipsNaN(t *testing.T) {
	s := NewSum("mwx", "6km", time.Now(), []float64{30.1}, []float64{-80.1})
	s.Accumulate(0, 1, 1)
	s.Accumulate(0, math.NaN(), 2)
	s.Accumulate(0, 3, 3)
	if s.NGood[0] != 2 {
		t.Fatalf("expected 2 good observations (NaN skipped), got %d", s.NGood[0])
	}
	if s.USum[0] != 4 {
		t.Fatalf("expected uSum=4, got %v", s.USum[0])
	}
}

func TestSumMinMaxTrackCorrectly(t *testing.T) {
	s := NewSum("mwx", "6km", time.Now(), []float64{30.1}, []float64{-80.1})
	s.Accumulate(0, 5, -2)
	s.Accumulate(0, -3, 7)
	s.Accumulate(0, 1, 1)
	if s.UMin[0] != -3 || s.UMax[0] != 5 {
		t.Fatalf("unexpected u min/max: %v/%v", s.UMin[0], s.UMax[0])
	}
	if s.VMin[0] != -2 || s.VMax[0] != 7 {
		t.Fatalf("unexpected v min/max: %v/%v", s.VMin[0], s.VMax[0])
	}
}

func TestAverageMasksCellsBelowMinimumCoverage(t *testing.T) {
	s := NewSum("mwx", "6km", time.Now(), []float64{30.1, 30.2}, []float64{-80.1, -80.2})
	// Cell 0: only 2 good observations, below a minimum of 12.
	s.Accumulate(0, 1, 1)
	s.Accumulate(0, 3, 3)
	// Cell 1: 12 good observations at a constant value.
	for i := 0; i < 12; i++ {
		s.Accumulate(1, 2, -2)
	}

	a := s.Average(12)
	if a.IsSet(0) {
		t.Fatal("cell 0 should be masked out (nGood=2 < minGood=12)")
	}
	if !a.IsSet(1) {
		t.Fatal("cell 1 should be set (nGood=12 >= minGood=12)")
	}
	if a.UAvg[1] != 2 || a.VAvg[1] != -2 {
		t.Fatalf("unexpected average at cell 1: u=%v v=%v", a.UAvg[1], a.VAvg[1])
	}
	if a.UVar[1] != 0 {
		t.Fatalf("expected zero variance for constant observations, got %v", a.UVar[1])
	}
}

func TestAverageNeverDefinedOnEmptyCell(t *testing.T) {
	s := NewSum("mwx", "6km", time.Now(), []float64{30.1}, []float64{-80.1})
	a := s.Average(0)
	if a.IsSet(0) {
		t.Fatal("an empty cell must never be set, regardless of minGood")
	}
}

func TestMergeMonthlyAccumulatesAcrossMonths(t *testing.T) {
	jan := NewSum("mwx", "6km", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), []float64{30.1}, []float64{-80.1})
	jan.Accumulate(0, 1, 1)
	jan.Accumulate(0, 3, 3)

	feb := NewSum("mwx", "6km", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), []float64{30.1}, []float64{-80.1})
	feb.Accumulate(0, 5, 5)

	year := MergeMonthly([]*Sum{jan, feb}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if year.NGood[0] != 3 {
		t.Fatalf("expected 3 total observations across months, got %d", year.NGood[0])
	}
	if year.USum[0] != 9 {
		t.Fatalf("expected uSum=9, got %v", year.USum[0])
	}
	if year.UMax[0] != 5 {
		t.Fatalf("expected uMax=5, got %v", year.UMax[0])
	}
}

func TestMergeMonthlySkipsEmptyMonths(t *testing.T) {
	withData := NewSum("mwx", "6km", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), []float64{30.1}, []float64{-80.1})
	withData.Accumulate(0, 2, 2)

	empty := NewSum("mwx", "6km", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), []float64{30.1}, []float64{-80.1})

	year := MergeMonthly([]*Sum{withData, empty}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if year.NGood[0] != 1 {
		t.Fatalf("expected 1 observation, got %d", year.NGood[0])
	}
	if math.IsInf(year.UMin[0], 0) {
		t.Fatal("uMin should have been set from the non-empty month, not left at +Inf")
	}
}
