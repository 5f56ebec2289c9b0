package total

import (
	"math"
	"testing"
	"time"
)

func TestNewTotalStartsWithEveryCellUnset(t *testing.T) {
	tt := New("mwx", "6km", time.Now(), []float64{30.1, 30.2}, []float64{-80.1, -80.2})
	for i := 0; i < tt.Len(); i++ {
		if tt.IsSet(i) {
			t.Fatalf("cell %d should start unset", i)
		}
	}
}

func TestSetCellThenIsSet(t *testing.T) {
	tt := New("mwx", "6km", time.Now(), []float64{30.1}, []float64{-80.1})
	if err := tt.SetCell(0, 10, 10, 1, 1, math.Sqrt2, 5, 3); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
	if !tt.IsSet(0) {
		t.Fatal("expected cell 0 to be set")
	}
	if tt.NRads[0] != 5 || tt.NSites[0] != 3 {
		t.Fatalf("unexpected nRads/nSites: %d/%d", tt.NRads[0], tt.NSites[0])
	}
}

func TestSetCellRejectsRadsWithoutSites(t *testing.T) {
	tt := New("mwx", "6km", time.Now(), []float64{30.1}, []float64{-80.1})
	err := tt.SetCell(0, 10, 10, 1, 1, math.Sqrt2, 5, 0)
	if err == nil {
		t.Fatal("expected InvariantViolation for nRads set without nSites")
	}
	if _, ok := err.(*InvariantViolation); !ok {
		t.Fatalf("expected *InvariantViolation, got %T", err)
	}
}

func TestInitHistoryMessageFormat(t *testing.T) {
	tt := New("mwx", "6km", time.Now(), nil, nil)
	tt.InitHistory("hfrnet-totals", "rtv", time.Now(), 42)
	if got, want := tt.History[0].Message, "Saving 42 new solutions"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestAppendMergeHistoryMessageFormat(t *testing.T) {
	tt := New("mwx", "6km", time.Now(), nil, nil)
	tt.AppendMergeHistory("hfrnet-totals", "rtv", time.Now(), 120, 30, 90)
	got := tt.History[0].Message
	want := "Saving 120 solutions; 30 new or updated, 90 unmodified from previous run(s)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSaveLoadRoundTripsFiniteAndNaNCells(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/rtv.mat.gob"

	tt := New("mwx", "6km", time.Unix(1700000000, 0).UTC(), []float64{30.1, 30.2, 30.3}, []float64{-80.1, -80.2, -80.3})
	if err := tt.SetCell(0, 12.5, -4.25, 0.8, 0.9, 1.2, 6, 3); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
	// cell 1 stays NaN/unset; cell 2 also solved.
	if err := tt.SetCell(2, -3.5, 2.25, 0.5, 0.6, 0.78, 4, 2); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
	tt.InitHistory("hfrnet-totals", "rtv", time.Now(), 2)

	if err := Save(path, tt); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got.IsSet(1) {
		t.Fatal("cell 1 should still be unset after round-trip")
	}
	if !math.IsNaN(got.U[1]) || !math.IsNaN(got.V[1]) {
		t.Fatal("cell 1's U/V must remain NaN after round-trip")
	}
	if got.U[0] != tt.U[0] || got.V[0] != tt.V[0] || got.HDOP[0] != tt.HDOP[0] {
		t.Fatalf("cell 0 did not round-trip exactly: got u=%v v=%v hdop=%v", got.U[0], got.V[0], got.HDOP[0])
	}
	if got.NRads[2] != 4 || got.NSites[2] != 2 {
		t.Fatalf("cell 2 counts did not round-trip: nRads=%d nSites=%d", got.NRads[2], got.NSites[2])
	}
	if len(got.History) != 1 || got.History[0].Message != tt.History[0].Message {
		t.Fatal("history did not round-trip")
	}
}

func TestLoadMissingFileIsDataError(t *testing.T) {
	_, err := Load("/nonexistent/path/to/a/total.mat.gob")
	if _, ok := err.(*DataError); !ok {
		t.Fatalf("expected *DataError for a missing file, got %T: %v", err, err)
	}
}

func TestVarianceIsZeroAtSingleObservation(t *testing.T) {
	if v := Variance(5, 25, 1); v != 0 {
		t.Fatalf("expected 0 variance for n=1, got %v", v)
	}
}

func TestVarianceBesselCorrected(t *testing.T) {
	// Observations: 2, 4, 6 -> mean 4, sample variance 4.
	sum, sumSq := 12.0, 4.0+16.0+36.0
	if v := Variance(sum, sumSq, 3); math.Abs(v-4) > 1e-9 {
		t.Fatalf("expected variance 4, got %v", v)
	}
}
