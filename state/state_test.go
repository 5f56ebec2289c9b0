package state

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ioos/hfrnet-totals/config"
	"github.com/ioos/hfrnet-totals/confdb"
)

func newTestDSN(t *testing.T) string {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "conf.db")

	cdb := confdb.Open(config.DBConfig{Driver: "sqlite", DSN: dsn, LoginTimeout: 5 * time.Second})
	if err := cdb.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`INSERT INTO domain (id, name) VALUES (1, 'usegc')`); err != nil {
		t.Fatalf("seed domain: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO resolution (id, name) VALUES (1, '6km')`); err != nil {
		t.Fatalf("seed resolution: %v", err)
	}
	return dsn
}

func TestStateRoundTripCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	dsn := newTestDSN(t)
	s := New(dsn, 5*time.Second, 1, 1, "rtv")

	if err := s.Get(ctx); err != nil {
		t.Fatalf("get: %v", err)
	}
	if !s.Time.IsZero() {
		t.Fatalf("expected zero time before first write, got %v", s.Time)
	}

	if err := s.Write(ctx, "first"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if s.Time.IsZero() || s.CSV != "first" {
		t.Fatalf("expected populated entry after write, got time=%v csv=%q", s.Time, s.CSV)
	}
	firstTime := s.Time

	time.Sleep(2 * time.Millisecond)
	if err := s.Write(ctx, "second"); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if s.CSV != "second" {
		t.Fatalf("expected csv updated to 'second', got %q", s.CSV)
	}
	if !s.Time.After(firstTime) {
		t.Fatalf("expected update to advance time, got %v -> %v", firstTime, s.Time)
	}
}

func TestStateEntryExistsAndRemove(t *testing.T) {
	ctx := context.Background()
	dsn := newTestDSN(t)
	s := New(dsn, 5*time.Second, 1, 1, "stc")

	exists, err := s.EntryExists(ctx)
	if err != nil {
		t.Fatalf("entryExists: %v", err)
	}
	if exists {
		t.Fatal("expected no entry before first write")
	}

	if err := s.Write(ctx, "x"); err != nil {
		t.Fatalf("write: %v", err)
	}
	exists, err = s.EntryExists(ctx)
	if err != nil || !exists {
		t.Fatalf("expected entry to exist after write, exists=%v err=%v", exists, err)
	}

	if err := s.Remove(ctx); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !s.Time.IsZero() {
		t.Fatalf("expected zero time after remove, got %v", s.Time)
	}
	exists, err = s.EntryExists(ctx)
	if err != nil || exists {
		t.Fatalf("expected entry gone after remove, exists=%v err=%v", exists, err)
	}
}

func TestStateIsolatedByName(t *testing.T) {
	ctx := context.Background()
	dsn := newTestDSN(t)
	rtv := New(dsn, 5*time.Second, 1, 1, "rtv")
	stc := New(dsn, 5*time.Second, 1, 1, "stc")

	if err := rtv.Write(ctx, "rtv-scratch"); err != nil {
		t.Fatalf("write rtv: %v", err)
	}
	if err := stc.Get(ctx); err != nil {
		t.Fatalf("get stc: %v", err)
	}
	if !stc.Time.IsZero() {
		t.Fatalf("expected stc entry untouched by rtv write, got time=%v", stc.Time)
	}
}
