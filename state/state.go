// Package state tracks per-(domain, resolution, name) last-processed time
// and an opaque scratch string in the configuration database, grounded on
// original_source/.../State.py.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// State is one (domain_id, resolution_id, name) row. Reads always reopen
// the connection, per State.py's openDb/closeDb-per-method discipline.
type State struct {
	dsn          string
	loginTimeout time.Duration

	DomainID, ResolutionID int64
	Name                   string

	Time time.Time // zero value means "no entry yet"
	CSV  string
}

const timeLayout = "2006-01-02 15:04:05.999999"

// New expects domain/resolution IDs already known to the caller (via
// confdb.DomainResolutionIDs) and constructs a handle to one named state
// entry. It does not touch the database.
func New(dsn string, loginTimeout time.Duration, domainID, resolutionID int64, name string) *State {
	return &State{dsn: dsn, loginTimeout: loginTimeout, DomainID: domainID, ResolutionID: resolutionID, Name: name}
}

func (s *State) conn(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return nil, fmt.Errorf("state: open: %v", err)
	}
	cctx, cancel := context.WithTimeout(ctx, s.loginTimeout)
	defer cancel()
	if err := db.PingContext(cctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("state: ping: %v", err)
	}
	return db, nil
}

// Get loads the current time/csv for this entry, or zero-value Time and
// empty CSV if no row exists yet.
func (s *State) Get(ctx context.Context) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	var timeStr string
	var csv sql.NullString
	err = db.QueryRowContext(ctx, `SELECT time, csv FROM state WHERE name = ? AND domain_id = ? AND resolution_id = ?`,
		s.Name, s.DomainID, s.ResolutionID).Scan(&timeStr, &csv)
	switch {
	case err == sql.ErrNoRows:
		s.Time = time.Time{}
		s.CSV = ""
		return nil
	case err != nil:
		return fmt.Errorf("state: get: %v", err)
	}

	t, err := time.Parse(timeLayout, timeStr)
	if err != nil {
		return fmt.Errorf("state: get: parsing time: %v", err)
	}
	s.Time = t
	s.CSV = csv.String
	return nil
}

// EntryExists reports whether a row exists for this entry.
func (s *State) EntryExists(ctx context.Context) (bool, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return false, err
	}
	defer db.Close()

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM state WHERE name = ? AND domain_id = ? AND resolution_id = ?`,
		s.Name, s.DomainID, s.ResolutionID).Scan(&count); err != nil {
		return false, fmt.Errorf("state: entryExists: %v", err)
	}
	return count > 0, nil
}

// Write upserts the current time (stamped to now) and CSV, then reloads
// from the database, matching State.py's write-then-get round trip.
func (s *State) Write(ctx context.Context, csv string) error {
	return s.WriteAt(ctx, time.Now().UTC(), csv)
}

// WriteAt is Write with an explicit timestamp, for callers (like the RTV
// pipeline) that must persist a specific watermark -- e.g. the
// "new_state" cutoff computed at the start of a run -- rather than the
// moment the write happens to execute.
func (s *State) WriteAt(ctx context.Context, t time.Time, csv string) error {
	exists, err := s.EntryExists(ctx)
	if err != nil {
		return err
	}
	s.CSV = csv
	stamp := t.UTC().Format(timeLayout)

	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	if exists {
		_, err = db.ExecContext(ctx, `UPDATE state SET time = ?, csv = ? WHERE name = ? AND domain_id = ? AND resolution_id = ?`,
			stamp, s.CSV, s.Name, s.DomainID, s.ResolutionID)
	} else {
		_, err = db.ExecContext(ctx, `INSERT INTO state (domain_id, resolution_id, name, time, csv) VALUES (?, ?, ?, ?, ?)`,
			s.DomainID, s.ResolutionID, s.Name, stamp, s.CSV)
	}
	db.Close()
	if err != nil {
		return fmt.Errorf("state: write: %v", err)
	}

	return s.Get(ctx)
}

// Remove deletes the entry, if present, then reloads (leaving Time zero and
// CSV empty).
func (s *State) Remove(ctx context.Context) error {
	exists, err := s.EntryExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `DELETE FROM state WHERE name = ? AND domain_id = ? AND resolution_id = ?`,
		s.Name, s.DomainID, s.ResolutionID)
	db.Close()
	if err != nil {
		return fmt.Errorf("state: remove: %v", err)
	}
	return s.Get(ctx)
}
