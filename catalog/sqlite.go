package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ioos/hfrnet-totals/config"
)

// SQLCatalog implements Catalog against the external radial-file catalog
// database: radialfiles joined to site and network, per
// original_source/.../rtvLoadRadials.py's SQL shape (spec.md §6's
// "Catalog database (read-only)" table list). The schema is owned and
// populated by the acquisition system upstream of this pipeline; this type
// only ever issues SELECTs.
type SQLCatalog struct {
	dsn          string
	loginTimeout time.Duration
}

// NewSQLCatalog opens no connection itself; every method opens and closes
// its own, matching the connect-per-operation discipline used throughout
// this codebase's database-backed types.
func NewSQLCatalog(cfg config.DBConfig) *SQLCatalog {
	return &SQLCatalog{dsn: cfg.DSN, loginTimeout: cfg.LoginTimeout}
}

func (c *SQLCatalog) conn(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", c.dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open: %v", err)
	}
	cctx, cancel := context.WithTimeout(ctx, c.loginTimeout)
	defer cancel()
	if err := db.PingContext(cctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: ping: %v", err)
	}
	return db, nil
}

// radialfiles.time and .file_arrival_time are stored as epoch seconds.
func toEpoch(t time.Time) int64 { return t.UTC().Unix() }
func fromEpoch(s int64) time.Time { return time.Unix(s, 0).UTC() }

// QuerySites implements Catalog.
func (c *SQLCatalog) QuerySites(ctx context.Context, domain, resolution string, hour time.Time, sites map[SiteRef]Window, arrivalBefore time.Time) ([]CandidateRecord, error) {
	if len(sites) == 0 {
		return nil, nil
	}

	db, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var clauses []string
	var args []interface{}
	for ref, win := range sites {
		clause := "(n.net = ? AND s.sta = ? AND rf.time = ?"
		clauseArgs := []interface{}{ref.Network, ref.Name, toEpoch(win.SiteQueryTime)}
		if win.BeamPatternCode != "" {
			clause += " AND rf.patterntype = ?"
			clauseArgs = append(clauseArgs, win.BeamPatternCode)
		}
		clause += ")"
		clauses = append(clauses, clause)
		args = append(args, clauseArgs...)
	}

	lo, hi := toEpoch(hour.Add(-30*time.Minute)), toEpoch(hour.Add(30*time.Minute))
	query := fmt.Sprintf(`
		SELECT rf.time, n.net, s.sta, rf.patterntype, rf.file_arrival_time,
		       rf.lat, rf.lon, rf.range_res, rf.range_bin_end, rf.manufacturer, rf.dfile, rf.dir
		FROM radialfiles rf
		JOIN site s ON rf.site_id = s.site_id
		JOIN network n ON rf.network_id = n.network_id
		WHERE rf.time >= ? AND rf.time < ? AND (%s)`, strings.Join(clauses, " OR "))
	allArgs := append([]interface{}{lo, hi}, args...)

	if !arrivalBefore.IsZero() {
		query += " AND rf.file_arrival_time < ?"
		allArgs = append(allArgs, toEpoch(arrivalBefore))
	}

	rows, err := db.QueryContext(ctx, query, allArgs...)
	if err != nil {
		return nil, fmt.Errorf("catalog: querying radialfiles: %v", err)
	}
	defer rows.Close()

	var out []CandidateRecord
	for rows.Next() {
		var epoch int64
		var network, site, pattern string
		var arrival sql.NullInt64
		var lat, lon, rangeRes, rangeBinEnd sql.NullFloat64
		var manufacturer sql.NullString
		var file, dir sql.NullString
		if err := rows.Scan(&epoch, &network, &site, &pattern, &arrival, &lat, &lon, &rangeRes, &rangeBinEnd, &manufacturer, &file, &dir); err != nil {
			return nil, fmt.Errorf("catalog: scanning radialfiles row: %v", err)
		}
		rec := CandidateRecord{
			T:            fromEpoch(epoch),
			Network:      network,
			Site:         site,
			PatternType:  pattern,
			Manufacturer: manufacturer.String,
			HasFile:      file.Valid,
			HasDir:       dir.Valid,
			HasLat:       lat.Valid,
			HasLon:       lon.Valid,
			HasArrival:   arrival.Valid,
		}
		if file.Valid {
			rec.File = file.String
		}
		if dir.Valid {
			rec.Dir = dir.String
		}
		if lat.Valid {
			rec.Lat = lat.Float64
		}
		if lon.Valid {
			rec.Lon = lon.Float64
		}
		if rangeRes.Valid {
			rec.RangeRes = rangeRes.Float64
		}
		if rangeBinEnd.Valid {
			rec.RangeBinEnd = rangeBinEnd.Float64
		}
		if arrival.Valid {
			rec.FileArrivalTime = fromEpoch(arrival.Int64)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// NewHours implements Catalog.
func (c *SQLCatalog) NewHours(ctx context.Context, domain, resolution string, sites []SiteRef, currentState, newState, minTime time.Time) ([]time.Time, error) {
	if len(sites) == 0 {
		return nil, nil
	}

	db, err := c.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var clauses []string
	var args []interface{}
	for _, ref := range sites {
		clauses = append(clauses, "(n.net = ? AND s.sta = ?)")
		args = append(args, ref.Network, ref.Name)
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT rf.time
		FROM radialfiles rf
		JOIN site s ON rf.site_id = s.site_id
		JOIN network n ON rf.network_id = n.network_id
		WHERE (%s)
		  AND rf.file_arrival_time >= ? AND rf.file_arrival_time < ?
		  AND rf.time >= ?`, strings.Join(clauses, " OR "))
	args = append(args, toEpoch(currentState), toEpoch(newState), toEpoch(minTime))

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: querying new hours: %v", err)
	}
	defer rows.Close()

	seen := make(map[time.Time]bool)
	var hours []time.Time
	for rows.Next() {
		var epoch int64
		if err := rows.Scan(&epoch); err != nil {
			return nil, fmt.Errorf("catalog: scanning new-hours row: %v", err)
		}
		t := fromEpoch(epoch)
		hour := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
		if t.Minute() >= 30 {
			hour = hour.Add(time.Hour)
		}
		if !seen[hour] {
			seen[hour] = true
			hours = append(hours, hour)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := 1; i < len(hours); i++ {
		for j := i; j > 0 && hours[j-1].After(hours[j]); j-- {
			hours[j-1], hours[j] = hours[j], hours[j-1]
		}
	}
	return hours, nil
}
