// Package rtv implements hourly Real-Time Vector processing: selecting the
// hours to (re)process, loading and filtering each hour's radials, solving
// per-cell UWLS totals, merging against the prior run, and persisting the
// result.
//
// Grounded on original_source/.../rtv.py (the per-hour orchestration loop)
// and rtvLoadRadials.py/rtvComputeTotals.py (candidate selection and
// solving); spec.md §4.5.
package rtv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ioos/hfrnet-totals/catalog"
	"github.com/ioos/hfrnet-totals/config"
	"github.com/ioos/hfrnet-totals/grid"
	"github.com/ioos/hfrnet-totals/merge"
	"github.com/ioos/hfrnet-totals/radial"
	"github.com/ioos/hfrnet-totals/state"
	"github.com/ioos/hfrnet-totals/total"
	"github.com/ioos/hfrnet-totals/uwls"
)

// Logger is the minimal logging seam rtv needs.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Dependencies bundles rtv.Process's external collaborators, replacing the
// module-level catalog/db singletons the source system relies on.
type Dependencies struct {
	Catalog     catalog.Catalog
	Parser      radial.Parser
	Landmask    *grid.Landmask
	SiteConfigs []config.SiteConfig // every site_config row for (domain, resolution), all time ranges
}

// arrivalSkew is the "now - 10s" cutoff on new-radial arrival queries in
// normal-mode time selection, per spec.md §4.5 step 1.
const arrivalSkew = 10 * time.Second

// overlapBufferKM is the flat coverage-radius buffer added in
// radial.Site.CoverageRadiusKM, per spec.md §4.5's
// "range_res * range_bin_end + buffer + grid_search_radius" formula. The
// source system's buffer term is instead a fraction of range_res
// (rtvLoadRadials.py's buf=0.05 bin-fraction), but the requirements this
// package implements specify a flat additive term, so a fixed constant
// replaces it; see DESIGN.md.
const overlapBufferKM = 5.0

// TransientError reports a database or filesystem failure in the hourly
// loop that may succeed on a later tick; the affected hour is skipped and
// state is not advanced past it.
type TransientError struct {
	Hour time.Time
	Op   string
	Err  error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("rtv: transient error during %s for hour %s: %v", e.Op, e.Hour, e.Err)
}
func (e *TransientError) Unwrap() error { return e.Err }

// errHourSkipped is returned by processHour when an hour has nothing to
// solve (no active site configuration, or fewer than 2 sites' radials).
var errHourSkipped = errors.New("rtv: hour skipped")

// Process runs the RTV pipeline for one (domain, resolution). It returns
// the hours it successfully (re)processed -- the tNewRtvFiles set consumed
// by STC/LTA -- and a non-nil error only for a pipeline-fatal failure
// (time selection itself). Per-hour failures are logged and skipped,
// matching spec.md §7's propagation policy.
func Process(ctx context.Context, log Logger, deps Dependencies, fc config.FilenameConvention, domain, resolution string, cfg config.RtvCfg, g *grid.Grid, mode config.RunMode, st *state.State, now time.Time, program, user string) ([]time.Time, error) {
	hours, currentState, newState, err := selectHours(ctx, log, deps, domain, resolution, mode, st, cfg.MaxAgeHours, now)
	if err != nil {
		return nil, fmt.Errorf("rtv: selecting hours: %w", err)
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].Before(hours[j]) })

	var produced []time.Time
	for _, t := range hours {
		if err := processHour(ctx, log, deps, fc, domain, resolution, cfg, g, mode, t, currentState, newState, now, program, user); err != nil {
			if err == errHourSkipped {
				continue
			}
			log.Errorf("error processing rtv hour %s: %v", t, err)
			continue
		}
		produced = append(produced, t)
	}

	if !mode.IsReprocess() && st != nil {
		if err := st.WriteAt(ctx, newState, ""); err != nil {
			return produced, &TransientError{Op: "writing rtv state", Err: err}
		}
		log.Debugf("updated rtv state to %s", st.Time)
	}

	return produced, nil
}

// selectHours implements spec.md §4.5 step 1: the explicit reprocess list,
// or a catalog query over [current_state, new_state) bucketed by hour and
// filtered to max_age_hours.
func selectHours(ctx context.Context, log Logger, deps Dependencies, domain, resolution string, mode config.RunMode, st *state.State, maxAgeHours int, now time.Time) (hours []time.Time, currentState, newState time.Time, err error) {
	if mode.IsReprocess() {
		return mode.Reprocess.Times, time.Time{}, time.Time{}, nil
	}

	if st != nil {
		if err := st.Get(ctx); err != nil {
			return nil, time.Time{}, time.Time{}, &TransientError{Op: "reading rtv state", Err: err}
		}
		currentState = st.Time
	}
	newState = now.Add(-arrivalSkew)
	minTime := now.Add(-time.Duration(maxAgeHours) * time.Hour)

	siteRefs := distinctSiteRefs(deps.SiteConfigs)
	got, err := deps.Catalog.NewHours(ctx, domain, resolution, siteRefs, currentState, newState, minTime)
	if err != nil {
		return nil, time.Time{}, time.Time{}, &TransientError{Op: "querying new hours", Err: err}
	}
	log.Infof("obtained %d new hour(s) to process", len(got))
	return got, currentState, newState, nil
}

func distinctSiteRefs(rows []config.SiteConfig) []catalog.SiteRef {
	seen := map[catalog.SiteRef]bool{}
	var out []catalog.SiteRef
	for _, r := range rows {
		ref := catalog.SiteRef{Network: r.Network, Name: r.Name}
		if !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}
	return out
}

// processHour implements spec.md §4.5 step 2.
func processHour(ctx context.Context, log Logger, deps Dependencies, fc config.FilenameConvention, domain, resolution string, cfg config.RtvCfg, g *grid.Grid, mode config.RunMode, t, currentState, newState, now time.Time, program, user string) error {
	active, err := config.ActiveSiteConfigs(deps.SiteConfigs, t)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		log.Debugf("no active site configurations for %s, skipping", t)
		return errHourSkipped
	}

	paths := fc.RTV(domain, resolution, t)

	if mode.IsReprocess() && total.Exists(paths.MPathFile) {
		if err := os.Remove(paths.MPathFile); err != nil {
			return &TransientError{Hour: t, Op: "deleting prior total for reprocess", Err: err}
		}
		log.Debugf("deleted pre-existing total at %s for reprocess", paths.MPathFile)
	}

	var priors []radial.PriorSite
	if total.Exists(paths.MPathFile) {
		prior, err := total.Load(paths.MPathFile)
		if err != nil {
			log.Warningf("failed to load prior total at %s for beam-pattern consistency: %v", paths.MPathFile, err)
		} else {
			for _, r := range prior.Radials {
				priors = append(priors, radial.PriorSite{Network: r.Network, Site: r.Site, PatternType: r.PatternType, UseMinute: r.UseMinute})
			}
		}
	}

	sources, err := buildCandidates(ctx, log, deps, domain, resolution, cfg, active, priors, t, currentState, newState, mode)
	if err != nil {
		return err
	}

	sites := make([]radial.Site, 0, len(sources))
	for _, src := range sources {
		sites = append(sites, radial.Site{
			Network: src.Network, Name: src.Site,
			Latitude: src.SiteLatitude, Longitude: src.SiteLongitude,
			RangeRes: src.RangeRes, RangeBinEnd: src.RangeBinEnd,
			IsNew: src.IsNew,
		})
	}
	pruned := radial.PruneByOverlap(sites, overlapBufferKM, cfg.GridSearchRadiusKM)
	prunedSet := map[[2]string]bool{}
	for _, s := range pruned {
		prunedSet[[2]string{s.Network, s.Name}] = true
	}

	var records []radial.Record
	for _, src := range sources {
		if !prunedSet[[2]string{src.Network, src.Site}] {
			continue
		}
		rec, result, err := radial.Load(src, deps.Parser, cfg.MaxRadSpeed, deps.Landmask)
		if err != nil {
			log.Warningf("skipping %s: %v", src.File, err)
			continue
		}
		rec.T = t
		log.Debugf("%s: removed %d by vflag, %d by speed cap, %d by landmask", src.File, result.RemovedByVFlag, result.RemovedBySpeedCap, result.RemovedByLandmask)
		records = append(records, rec)
	}

	if len(records) < 2 {
		log.Infof("fewer than 2 sites' radials available for %s, skipping", t)
		return errHourSkipped
	}

	cur := total.New(domain, resolution, t, g.OceanLat, g.OceanLon)
	cur.Radials = records
	solveCells(cur, g, records, cfg)

	priorPath := paths.MPathFile
	result, err := merge.Merge(log, priorPath, cur, mode.IsReprocess(), program, user, now)
	if err != nil {
		return err
	}

	if err := persist(log, paths, result.Total, g, cfg); err != nil {
		return err
	}
	return nil
}

// buildCandidates resolves each active site's useMinute-shifted query
// time, applies beam-pattern/useMinute consistency overrides from prior
// radials, and queries the catalog for one candidate Source per site that
// has a record for this hour. A candidate is marked IsNew -- and so
// participates in overlap pruning's "keep every new site" rule and
// solveCells' new-site-per-cell requirement -- when its own arrival fell
// inside this run's [current_state, new_state) window (reprocess runs
// always treat every resolved candidate as new, since a reprocess rebuilds
// the whole hour from scratch).
func buildCandidates(ctx context.Context, log Logger, deps Dependencies, domain, resolution string, cfg config.RtvCfg, active []config.SiteConfig, priors []radial.PriorSite, t, currentState, newState time.Time, mode config.RunMode) ([]radial.Source, error) {
	windows := make(map[catalog.SiteRef]config.SiteConfig, len(active))
	sites := make(map[catalog.SiteRef]catalog.Window, len(active))
	for _, sc := range active {
		resolved, changed := radial.ApplyBeamPatternConsistency(sc, priors)
		if changed {
			log.Warningf("beam-pattern/useMinute override for %s:%s to keep merge consistent with prior run", sc.Network, sc.Name)
		}
		queryTime, err := config.ResolveUseMinute(t, resolved.UseMinute)
		if err != nil {
			return nil, err
		}
		code, err := resolved.BeamPattern.Code()
		if err != nil {
			return nil, err
		}
		ref := catalog.SiteRef{Network: resolved.Network, Name: resolved.Name}
		windows[ref] = resolved
		sites[ref] = catalog.Window{SiteQueryTime: queryTime, BeamPatternCode: code}
	}

	arrivalBefore := newState
	if mode.IsReprocess() {
		arrivalBefore = time.Time{}
	}
	recs, err := deps.Catalog.QuerySites(ctx, domain, resolution, t, sites, arrivalBefore)
	if err != nil {
		return nil, &TransientError{Hour: t, Op: "querying candidate radials", Err: err}
	}

	var out []radial.Source
	for _, r := range recs {
		if !r.Complete(mode.IsReprocess()) {
			log.Warningf("dropping incomplete catalog record for %s:%s at %s", r.Network, r.Site, t)
			continue
		}
		ref := catalog.SiteRef{Network: r.Network, Name: r.Site}
		sc, ok := windows[ref]
		if !ok {
			continue
		}
		isNew := mode.IsReprocess() || (!r.FileArrivalTime.Before(currentState) && r.FileArrivalTime.Before(newState))
		out = append(out, radial.Source{
			Network: r.Network, Site: r.Site,
			SiteLatitude: r.Lat, SiteLongitude: r.Lon,
			PatternType: r.PatternType, UseMinute: sc.UseMinute,
			Manufacturer: r.Manufacturer,
			File:         filepath.Join(r.Dir, r.File), Dir: r.Dir,
			RangeRes: r.RangeRes, RangeBinEnd: r.RangeBinEnd,
			IsNew: isNew,
		})
	}
	return out, nil
}

// solveCells runs UWLS (spec.md §4.4) for every candidate ocean cell
// covered by at least min_rad_sites contributing sites, masking any
// solution that fails the post-solve checks.
func solveCells(cur *total.Total, g *grid.Grid, records []radial.Record, cfg config.RtvCfg) {
	for i := range g.OceanIndices {
		poly := g.SmallCircles[i]

		var speeds, headings []float64
		contributing := map[string]bool{}
		newSiteInCell := false
		for _, rec := range records {
			siteContributed := false
			for p := 0; p < rec.Len(); p++ {
				if !poly.Contains(rec.Longitude[p], rec.Latitude[p]) {
					continue
				}
				speeds = append(speeds, rec.Speed[p])
				headings = append(headings, rec.Heading[p])
				siteContributed = true
			}
			if siteContributed {
				contributing[rec.Network+":"+rec.Site] = true
				if rec.IsNew {
					newSiteInCell = true
				}
			}
		}

		if len(speeds) < cfg.MinRadials || len(contributing) < cfg.MinRadSites || !newSiteInCell {
			continue
		}

		sol, err := uwls.Solve(speeds, headings)
		if err != nil {
			continue
		}
		if !sol.Valid(cfg.MaxRTVSpeed, cfg.UWLSMaxHDOP) {
			continue
		}
		cur.SetCell(i, sol.U, sol.V, sol.DOPX, sol.DOPY, sol.HDOP, len(speeds), len(contributing))
	}
}

func persist(log Logger, paths config.TotalPaths, cur *total.Total, g *grid.Grid, cfg config.RtvCfg) error {
	if err := os.MkdirAll(paths.MDir, 0o755); err != nil {
		return &TransientError{Op: "creating rtv mat directory", Err: err}
	}
	if err := total.Save(paths.MPathFile, cur); err != nil {
		return &TransientError{Op: "saving rtv total to mat-file", Err: err}
	}
	log.Infof("saved rtv total to mat-file")

	lower := strings.ToLower(strings.Join(cfg.SaveAsFormats(), ","))
	if strings.Contains(lower, "ascii") && anyWithinHDOP(cur, cfg.UWLSMaxHDOPASCII) {
		if err := os.MkdirAll(paths.ASCIIDir, 0o755); err != nil {
			return &TransientError{Op: "creating rtv ascii directory", Err: err}
		}
		if err := total.WriteASCIIRTV(paths.ASCIIPathFile, cur, cfg.UWLSMaxHDOPASCII); err != nil {
			return &TransientError{Op: "saving rtv total to ascii file", Err: err}
		}
		log.Infof("saved rtv total to ascii file")
	}
	if strings.Contains(lower, "netcdf") && anyWithinHDOP(cur, cfg.UWLSMaxHDOPNetCDF) {
		if err := os.MkdirAll(paths.NCDir, 0o755); err != nil {
			return &TransientError{Op: "creating rtv netcdf directory", Err: err}
		}
		if err := total.WriteNetCDF(paths.NCPathFile, cur, g, cfg.UWLSMaxHDOPNetCDF); err != nil {
			return &TransientError{Op: "saving rtv total to netcdf file", Err: err}
		}
		log.Infof("saved rtv total to netcdf file")
	}
	return nil
}

func anyWithinHDOP(t *total.Total, maxHDOP float64) bool {
	for i := range t.HDOP {
		if t.IsSet(i) && t.HDOP[i] <= maxHDOP {
			return true
		}
	}
	return false
}
