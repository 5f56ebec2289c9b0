package stc

import (
	"os"
	"testing"
	"time"

	"github.com/ioos/hfrnet-totals/config"
	"github.com/ioos/hfrnet-totals/total"
)

type testLog struct{ lines []string }

func (l *testLog) Debugf(format string, args ...interface{}) { l.lines = append(l.lines, format) }
func (l *testLog) Infof(format string, args ...interface{})  { l.lines = append(l.lines, format) }
func (l *testLog) Alertf(format string, args ...interface{}) { l.lines = append(l.lines, format) }

func writeHourlyRTV(t *testing.T, fc config.FilenameConvention, domain, resolution string, ti time.Time, u, v, hdop float64) {
	t.Helper()
	tt := total.New(domain, resolution, ti, []float64{30.1}, []float64{-80.1})
	if err := tt.SetCell(0, u, v, 0.1, 0.1, hdop, 5, 3); err != nil {
		t.Fatal(err)
	}
	paths := fc.RTV(domain, resolution, ti)
	if err := os.MkdirAll(paths.MDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := total.Save(paths.MPathFile, tt); err != nil {
		t.Fatal(err)
	}
}

func TestCompute25hrAvgAveragesAcrossWindow(t *testing.T) {
	dir := t.TempDir()
	fc := config.FilenameConvention{BaseDir: dir}
	tc := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for h := -12; h <= 12; h++ {
		writeHourlyRTV(t, fc, "mwx", "6km", tc.Add(time.Duration(h)*time.Hour), 2, -2, 0.5)
	}

	avg, err := Compute25hrAvg(&testLog{}, fc, "mwx", "6km", tc, 5.0, 12)
	if err != nil {
		t.Fatalf("Compute25hrAvg: %v", err)
	}
	if avg == nil {
		t.Fatal("expected a non-nil average")
	}
	if !avg.IsSet(0) {
		t.Fatal("expected cell 0 to be set")
	}
	if avg.UAvg[0] != 2 || avg.VAvg[0] != -2 {
		t.Fatalf("unexpected average: u=%v v=%v", avg.UAvg[0], avg.VAvg[0])
	}
	if avg.NGood[0] != 25 {
		t.Fatalf("expected 25 good observations, got %d", avg.NGood[0])
	}
}

func TestCompute25hrAvgMasksByHDOP(t *testing.T) {
	dir := t.TempDir()
	fc := config.FilenameConvention{BaseDir: dir}
	tc := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for h := -12; h <= 12; h++ {
		hdop := 0.5
		if h >= 0 {
			hdop = 9.0 // exceeds max_error, masked out for these hours
		}
		writeHourlyRTV(t, fc, "mwx", "6km", tc.Add(time.Duration(h)*time.Hour), 2, -2, hdop)
	}

	avg, err := Compute25hrAvg(&testLog{}, fc, "mwx", "6km", tc, 5.0, 12)
	if err != nil {
		t.Fatalf("Compute25hrAvg: %v", err)
	}
	if avg == nil {
		t.Fatal("expected a non-nil average (12 good hours still meet coverage)")
	}
	if avg.NGood[0] != 12 {
		t.Fatalf("expected 12 good observations after HDOP masking, got %d", avg.NGood[0])
	}
}

func TestCompute25hrAvgReturnsNilBelowMinimumFileCoverage(t *testing.T) {
	dir := t.TempDir()
	fc := config.FilenameConvention{BaseDir: dir}
	tc := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// Only write 5 hours, well below the minimum of 12.
	for h := -2; h <= 2; h++ {
		writeHourlyRTV(t, fc, "mwx", "6km", tc.Add(time.Duration(h)*time.Hour), 2, -2, 0.5)
	}

	avg, err := Compute25hrAvg(&testLog{}, fc, "mwx", "6km", tc, 5.0, 12)
	if err != nil {
		t.Fatalf("Compute25hrAvg: %v", err)
	}
	if avg != nil {
		t.Fatal("expected a nil average below minimum temporal coverage")
	}
}

func TestCompute25hrAvgReturnsNilWhenNoFilesExist(t *testing.T) {
	dir := t.TempDir()
	fc := config.FilenameConvention{BaseDir: dir}
	tc := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	avg, err := Compute25hrAvg(&testLog{}, fc, "mwx", "6km", tc, 5.0, 12)
	if err != nil {
		t.Fatalf("Compute25hrAvg: %v", err)
	}
	if avg != nil {
		t.Fatal("expected a nil average with no hourly files present")
	}
}
