// Package confdb wraps the configuration database: domain/resolution ID
// resolution and site_config queries, grounded on
// original_source/.../State.py's connect-per-operation pattern and
// original_source/.../rtvGetSiteConfig.py's query shape.
package confdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migsqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/ioos/hfrnet-totals/config"
	"github.com/ioos/hfrnet-totals/internal/schema"
)

// DB opens one configuration-database connection per operation, matching
// original_source/.../State.py's openDb/closeDb discipline rather than
// holding a long-lived pool.
type DB struct {
	dsn          string
	loginTimeout time.Duration
}

func Open(cfg config.DBConfig) *DB {
	return &DB{dsn: cfg.DSN, loginTimeout: cfg.LoginTimeout}
}

func (d *DB) conn(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", d.dsn)
	if err != nil {
		return nil, fmt.Errorf("confdb: open: %v", err)
	}
	ctx, cancel := context.WithTimeout(ctx, d.loginTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("confdb: ping: %v", err)
	}
	return db, nil
}

// Migrate applies every pending schema migration.
func (d *DB) Migrate() error {
	db, err := d.conn(context.Background())
	if err != nil {
		return err
	}
	defer db.Close()

	src, err := iofs.New(schema.Migrations(), "migrations")
	if err != nil {
		return fmt.Errorf("confdb: migration source: %v", err)
	}
	driver, err := migsqlite.WithInstance(db, &migsqlite.Config{})
	if err != nil {
		return fmt.Errorf("confdb: migration driver: %v", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("confdb: migrate instance: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("confdb: migrate up: %v", err)
	}
	return nil
}

// DomainResolutionIDs resolves the (domain, resolution) name pair to their
// database row IDs, per original_source/.../State.py's __init__ query.
func (d *DB) DomainResolutionIDs(ctx context.Context, domain, resolution string) (domainID, resolutionID int64, err error) {
	db, err := d.conn(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer db.Close()

	if err := db.QueryRowContext(ctx, `SELECT id FROM domain WHERE name = ?`, domain).Scan(&domainID); err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, fmt.Errorf("confdb: no domain row for %q", domain)
		}
		return 0, 0, fmt.Errorf("confdb: querying domain: %v", err)
	}
	if err := db.QueryRowContext(ctx, `SELECT id FROM resolution WHERE name = ?`, resolution).Scan(&resolutionID); err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, fmt.Errorf("confdb: no resolution row for %q", resolution)
		}
		return 0, 0, fmt.Errorf("confdb: querying resolution: %v", err)
	}
	return domainID, resolutionID, nil
}

// SiteConfigs returns every site_config row for (domain, resolution),
// grounded on original_source/.../rtvGetSiteConfig.py.
func (d *DB) SiteConfigs(ctx context.Context, domain, resolution string) ([]config.SiteConfig, error) {
	db, err := d.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	domainID, resolutionID, err := d.DomainResolutionIDs(ctx, domain, resolution)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT network, name, beampattern, usemin, start_time, end_time
		FROM site_config
		WHERE domain_id = ? AND resolution_id = ?
		ORDER BY network, name, start_time`, domainID, resolutionID)
	if err != nil {
		return nil, fmt.Errorf("confdb: querying site_config: %v", err)
	}
	defer rows.Close()

	const layout = "2006-01-02 15:04:05.999999"
	var out []config.SiteConfig
	for rows.Next() {
		var network, name, bp, startStr string
		var useMin int
		var endStr sql.NullString
		if err := rows.Scan(&network, &name, &bp, &useMin, &startStr, &endStr); err != nil {
			return nil, fmt.Errorf("confdb: scanning site_config row: %v", err)
		}
		start, err := time.Parse(layout, startStr)
		if err != nil {
			return nil, fmt.Errorf("confdb: parsing start_time: %v", err)
		}
		code := "m"
		if bp == "ideal" {
			code = "i"
		}
		beamPattern, err := config.BeamPatternFromCode(code)
		if err != nil {
			return nil, err
		}
		sc := config.SiteConfig{
			Network:     network,
			Name:        name,
			BeamPattern: beamPattern,
			UseMinute:   useMin,
			StartTime:   start,
		}
		if endStr.Valid {
			end, err := time.Parse(layout, endStr.String)
			if err != nil {
				return nil, fmt.Errorf("confdb: parsing end_time: %v", err)
			}
			sc.EndTime = &end
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
