package lta

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ioos/hfrnet-totals/config"
	"github.com/ioos/hfrnet-totals/confdb"
	"github.com/ioos/hfrnet-totals/grid"
	"github.com/ioos/hfrnet-totals/state"
	"github.com/ioos/hfrnet-totals/total"
)

func testGrid(t *testing.T) *grid.Grid {
	t.Helper()
	g, err := grid.NewGrid("mwx", "6km", [2]float64{-80.1, -80.1}, [2]float64{30.1, 30.1}, 0.1, 0.1, [2]int{1, 1}, []int{0}, []float64{-80.1}, []float64{30.1}, 30)
	if err != nil {
		t.Fatalf("grid.NewGrid: %v", err)
	}
	return g
}

// newTestState builds a real sqlite-backed State with an optional seeded
// time entry (seededTime zero means no row is inserted).
func newTestState(t *testing.T, name string, seededTime time.Time) *state.State {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "confdb.sqlite")

	dbcfg := config.DBConfig{Driver: "sqlite", DSN: dsn, LoginTimeout: 5 * time.Second}
	db := confdb.Open(dbcfg)
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	seed, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := seed.Exec(`INSERT INTO domain (name) VALUES ('mwx')`); err != nil {
		t.Fatal(err)
	}
	if _, err := seed.Exec(`INSERT INTO resolution (name) VALUES ('6km')`); err != nil {
		t.Fatal(err)
	}

	domainID, resolutionID, err := db.DomainResolutionIDs(context.Background(), "mwx", "6km")
	if err != nil {
		t.Fatal(err)
	}

	if !seededTime.IsZero() {
		const layout = "2006-01-02 15:04:05.999999"
		if _, err := seed.Exec(`INSERT INTO state (domain_id, resolution_id, name, time, csv) VALUES (?, ?, ?, ?, '')`,
			domainID, resolutionID, name, seededTime.UTC().Format(layout)); err != nil {
			t.Fatal(err)
		}
	}
	seed.Close()

	return state.New(dsn, 5*time.Second, domainID, resolutionID, name)
}

func TestProcessMonthlyExitsBelowMinimumMonthDay(t *testing.T) {
	dir := t.TempDir()
	fc := config.FilenameConvention{BaseDir: dir}
	cfg := config.LtaCfg{MaxError: 5.0, MonthlyMinMonthDay: 10, MinMonthTemporalCoverage: 0, SaveAs: []string{"mat"}}

	now := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC) // day 5, below min day 10
	produced, err := ProcessMonthly(&testLog{}, fc, "mwx", "6km", cfg, testGrid(t), config.RunMode{}, false, nil, now)
	if err != nil {
		t.Fatalf("ProcessMonthly: %v", err)
	}
	if len(produced) != 0 {
		t.Fatalf("expected no months processed below the minimum month day, got %d", len(produced))
	}
}

func TestProcessMonthlyProcessesPreviousMonthOnceEligible(t *testing.T) {
	dir := t.TempDir()
	fc := config.FilenameConvention{BaseDir: dir}
	cfg := config.LtaCfg{MaxError: 5.0, MonthlyMinMonthDay: 10, MinMonthTemporalCoverage: 0, SaveAs: []string{"mat"}}

	// Populate some hours in February so the previous month (relative to
	// a March "now") has data.
	for d := 1; d <= 3; d++ {
		writeHourlyRTV(t, fc, "mwx", "6km", time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC), 2, -2, 0.5)
	}

	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) // past min day 10
	produced, err := ProcessMonthly(&testLog{}, fc, "mwx", "6km", cfg, testGrid(t), config.RunMode{}, false, nil, now)
	if err != nil {
		t.Fatalf("ProcessMonthly: %v", err)
	}
	if len(produced) != 1 {
		t.Fatalf("expected exactly 1 month processed, got %d", len(produced))
	}
	if produced[0].Month() != time.February {
		t.Fatalf("expected February to be processed, got %s", produced[0].Month())
	}
}

func TestProcessMonthlySkipsWhenAlreadyRunThisMonth(t *testing.T) {
	dir := t.TempDir()
	fc := config.FilenameConvention{BaseDir: dir}
	cfg := config.LtaCfg{MaxError: 5.0, MonthlyMinMonthDay: 10, MinMonthTemporalCoverage: 0, SaveAs: []string{"mat"}}

	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	// Seed a state row already stamped within the same month/year as now.
	st := newTestState(t, "lta-monthly", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))

	produced, err := ProcessMonthly(&testLog{}, fc, "mwx", "6km", cfg, testGrid(t), config.RunMode{}, false, st, now)
	if err != nil {
		t.Fatalf("ProcessMonthly: %v", err)
	}
	if len(produced) != 0 {
		t.Fatalf("expected no months processed when already run this month, got %d", len(produced))
	}
}

func TestProcessMonthlyRunsWhenLastStateWasAnEarlierMonth(t *testing.T) {
	dir := t.TempDir()
	fc := config.FilenameConvention{BaseDir: dir}
	cfg := config.LtaCfg{MaxError: 5.0, MonthlyMinMonthDay: 10, MinMonthTemporalCoverage: 0, SaveAs: []string{"mat"}}

	for d := 1; d <= 3; d++ {
		writeHourlyRTV(t, fc, "mwx", "6km", time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC), 2, -2, 0.5)
	}

	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	st := newTestState(t, "lta-monthly", time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC))

	produced, err := ProcessMonthly(&testLog{}, fc, "mwx", "6km", cfg, testGrid(t), config.RunMode{}, false, st, now)
	if err != nil {
		t.Fatalf("ProcessMonthly: %v", err)
	}
	if len(produced) != 1 {
		t.Fatalf("expected 1 month processed when last run was an earlier month, got %d", len(produced))
	}
}

func TestProcessAnnualExitsBeforeMinimumDate(t *testing.T) {
	dir := t.TempDir()
	fc := config.FilenameConvention{BaseDir: dir}
	cfg := config.LtaCfg{MaxError: 5.0, MinYearTemporalCoverage: 0, AnnualMinDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), SaveAs: []string{"mat"}}

	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC) // before annual_min_date
	produced, err := ProcessAnnual(&testLog{}, fc, "mwx", "6km", cfg, testGrid(t), config.RunMode{}, false, nil, now)
	if err != nil {
		t.Fatalf("ProcessAnnual: %v", err)
	}
	if len(produced) != 0 {
		t.Fatalf("expected no years processed before the minimum date, got %d", len(produced))
	}
}

func TestProcessAnnualRollsUpMonthlySumFiles(t *testing.T) {
	dir := t.TempDir()
	fc := config.FilenameConvention{BaseDir: dir}
	cfg := config.LtaCfg{MaxError: 5.0, MinYearTemporalCoverage: 0, AnnualMinDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), SaveAs: []string{"mat"}}

	for m := 1; m <= 3; m++ {
		monthTime := time.Date(2023, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
		sum := total.NewSum("mwx", "6km", monthTime, []float64{30.1}, []float64{-80.1})
		sum.Accumulate(0, 1, 1)
		sumPaths := fc.LTAMonthlySum("mwx", "6km", monthTime)
		if err := os.MkdirAll(sumPaths.MSumDir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := total.SaveSum(sumPaths.MSumPathFile, sum); err != nil {
			t.Fatal(err)
		}
	}

	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	produced, err := ProcessAnnual(&testLog{}, fc, "mwx", "6km", cfg, testGrid(t), config.RunMode{}, false, nil, now)
	if err != nil {
		t.Fatalf("ProcessAnnual: %v", err)
	}
	if len(produced) != 1 {
		t.Fatalf("expected exactly 1 year processed, got %d", len(produced))
	}
	if produced[0].Year() != 2023 {
		t.Fatalf("expected 2023 to be rolled up, got %d", produced[0].Year())
	}
}
