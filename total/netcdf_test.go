package total

import (
	"os"
	"testing"
	"time"

	"github.com/ioos/hfrnet-totals/grid"
)

func testGrid(t *testing.T) *grid.Grid {
	t.Helper()
	oceanIdx := []int{0, 1, 4, 5}
	lon := []float64{-118.0, -117.9, -118.0, -117.9}
	lat := []float64{33.0, 33.0, 33.1, 33.1}
	g, err := grid.NewGrid("socal", "6km", [2]float64{-118.0, -117.9}, [2]float64{33.0, 33.1}, 0.1, 0.1, [2]int{4, 4}, oceanIdx, lon, lat, 30)
	if err != nil {
		t.Fatalf("grid.NewGrid: %v", err)
	}
	return g
}

func TestWriteNetCDFProducesNonEmptyFile(t *testing.T) {
	g := testGrid(t)
	tt := New("socal", "6km", time.Unix(1700000000, 0).UTC(), []float64{33.0, 33.0, 33.1, 33.1}, []float64{-118.0, -117.9, -118.0, -117.9})
	if err := tt.SetCell(0, 10, 5, 1, 1, 1.2, 6, 3); err != nil {
		t.Fatal(err)
	}
	if err := tt.SetCell(2, -4, 2, 0.8, 0.8, 0.9, 4, 2); err != nil {
		t.Fatal(err)
	}

	path := t.TempDir() + "/rtv.nc"
	if err := WriteNetCDF(path, tt, g, 5.0); err != nil {
		t.Fatalf("WriteNetCDF: %v", err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat output file: %v", err)
	}
	if fi.Size() == 0 {
		t.Fatal("expected a non-empty netcdf file")
	}
}

func TestWriteNetCDFAvgProducesNonEmptyFile(t *testing.T) {
	g := testGrid(t)
	s := NewSum("socal", "6km", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), []float64{33.0, 33.0, 33.1, 33.1}, []float64{-118.0, -117.9, -118.0, -117.9})
	for i := 0; i < 12; i++ {
		s.Accumulate(0, 2, -2)
	}
	a := s.Average(12)

	path := t.TempDir() + "/stc.nc"
	if err := WriteNetCDFAvg(path, a, g); err != nil {
		t.Fatalf("WriteNetCDFAvg: %v", err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat output file: %v", err)
	}
	if fi.Size() == 0 {
		t.Fatal("expected a non-empty netcdf file")
	}
}
