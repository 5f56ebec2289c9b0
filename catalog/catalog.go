// Package catalog translates a (domain, resolution, hour) into candidate
// radial-file records via the read-only external catalog database. The
// parsers for the files themselves, and the acquisition pipeline that
// populates the catalog, are peripheral collaborators -- this package only
// talks to the `radialfiles`, `network`, and `site` tables.
package catalog

import (
	"context"
	"time"
)

// CandidateRecord is one row returned by a catalog query.
type CandidateRecord struct {
	T               time.Time
	Network, Site   string
	PatternType     string
	FileArrivalTime time.Time // zero value means NULL
	Lat, Lon        float64
	RangeRes        float64 // km/bin; 0 means unknown/NULL
	RangeBinEnd     float64 // 0 means unknown/NULL
	Manufacturer    string
	File, Dir       string

	// HasFile/HasDir/HasLat/HasLon/HasArrival track NULL-ness for the
	// required-field drop rule: records with NULL in any of {file, dir, lat,
	// lon}, or (outside reprocessing) {file_arrival_time}, are dropped with a
	// warning.
	HasFile, HasDir, HasLat, HasLon, HasArrival bool
}

// SiteRef identifies a site by its (network, name) catalog join key.
type SiteRef struct {
	Network, Name string
}

// Window bounds a candidate-record query.
type Window struct {
	// Site-specific query time, already shifted by useMinute
	// (config.ResolveUseMinute).
	SiteQueryTime time.Time
	// BeamPatternCode restricts to a single patterntype ("i" or "m").
	BeamPatternCode string
}

// Catalog queries the read-only radial-file catalog.
type Catalog interface {
	// QuerySites returns every candidate record in [t-30min, t+30min)
	// whose (network, site) matches one of sites and whose per-site
	// useMinute-shifted timestamp matches exactly, per
	// original_source/.../rtvLoadRadials.py's SQL shape. When
	// arrivalBefore is non-zero, only records with file_arrival_time
	// strictly before it are returned (the normal-mode "r.file_arrival_time
	// < new_state" condition); pass the zero time during reprocessing to
	// select on timestamp alone.
	QuerySites(ctx context.Context, domain, resolution string, hour time.Time, sites map[SiteRef]Window, arrivalBefore time.Time) ([]CandidateRecord, error)

	// NewHours returns the distinct hours (truncated, with :30+ shifted to
	// the next hour) for which any of sites has a
	// radial file whose arrival time falls in [currentState, newState) and
	// whose own timestamp is >= minTime.
	NewHours(ctx context.Context, domain, resolution string, sites []SiteRef, currentState, newState, minTime time.Time) ([]time.Time, error)
}

// Complete reports whether a candidate record has every field required by
// the drop rule above. reprocessing relaxes the file_arrival_time
// requirement.
func (r CandidateRecord) Complete(reprocessing bool) bool {
	if !r.HasFile || !r.HasDir || !r.HasLat || !r.HasLon {
		return false
	}
	if !reprocessing && !r.HasArrival {
		return false
	}
	return true
}
