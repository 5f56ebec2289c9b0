// Package process is the top-level orchestrator: for one (domain,
// resolution) it acquires the single-writer lock, runs RTV, STC, and LTA
// in order with per-process error isolation, and releases the lock.
//
// Grounded on original_source/.../processRtv.py's overall control flow
// (lock-then-dispatch-then-release, per-process try/except); spec.md
// §4.11.
package process

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ioos/hfrnet-totals/catalog"
	"github.com/ioos/hfrnet-totals/config"
	"github.com/ioos/hfrnet-totals/confdb"
	"github.com/ioos/hfrnet-totals/grid"
	"github.com/ioos/hfrnet-totals/lock"
	"github.com/ioos/hfrnet-totals/lta"
	"github.com/ioos/hfrnet-totals/radial"
	"github.com/ioos/hfrnet-totals/rtv"
	"github.com/ioos/hfrnet-totals/state"
	"github.com/ioos/hfrnet-totals/stc"
)

// Logger is the logging seam process needs: the union of every
// Debugf/Infof/.../Errorf-style method the rtv/stc/lta Logger interfaces
// declare, so one value can be threaded through all three.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Alertf(format string, args ...interface{})
}

// runLogger prefixes every line with the per-run correlation id, so an
// operator can grep one run's lines out of a shared log stream (the
// per-run uuid is the run's identity; logging.Logger's WithFields would
// also work here, but a prefix keeps this package usable with any Logger
// implementation, not just the structured one).
type runLogger struct {
	base   Logger
	prefix string
}

func newRunLogger(base Logger, runID, domain, resolution string) *runLogger {
	return &runLogger{base: base, prefix: fmt.Sprintf("[%s %s/%s] ", runID, domain, resolution)}
}

func (r *runLogger) Debugf(format string, args ...interface{}) {
	r.base.Debugf(r.prefix+format, args...)
}
func (r *runLogger) Infof(format string, args ...interface{}) {
	r.base.Infof(r.prefix+format, args...)
}
func (r *runLogger) Warningf(format string, args ...interface{}) {
	r.base.Warningf(r.prefix+format, args...)
}
func (r *runLogger) Errorf(format string, args ...interface{}) {
	r.base.Errorf(r.prefix+format, args...)
}
func (r *runLogger) Alertf(format string, args ...interface{}) {
	r.base.Alertf(r.prefix+format, args...)
}

// TransientError reports a failure acquiring shared infrastructure (the
// configuration database, the lock) before any pipeline ran; the caller
// may retry the whole run later.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("process: %s: %v", e.Op, e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// Dependencies bundles the external collaborators one orchestrator run
// needs beyond what config.Loader resolves directly: the catalog
// connection's radial parser (LLUV/WVM9 parsing is peripheral plumbing
// the radial package deliberately leaves to the caller) and, optionally,
// a pre-built grid/landmask pair for callers (e.g. tests) that don't want
// to read them from disk.
type Dependencies struct {
	Parser   radial.Parser
	Grid     *grid.Grid
	Landmask *grid.Landmask
}

// Run is process_rtv(domain, resolution, ...): normalizes domain/resolution,
// resolves configuration, acquires the lock (skipped entirely when
// reprocessing with Reprocess.Lock == false), runs rtv -> stc -> lta in
// order with each process's failure isolated from the others, releases the
// lock, and logs elapsed time. A LockUnavailable condition is not an error:
// Run returns nil and logs that another process holds the run.
func Run(ctx context.Context, log Logger, loader *config.Loader, confDB *confdb.DB, domain, resolution string, mode config.RunMode, deps Dependencies, now time.Time) error {
	domain = config.Normalize(domain)
	resolution = config.Normalize(resolution)

	runID := uuid.NewString()
	rlog := newRunLogger(log, runID, domain, resolution)

	wallStart := time.Now()
	rlog.Infof("starting run for %s/%s", domain, resolution)

	processes, err := loader.Processes()
	if err != nil {
		return &TransientError{Op: "loading process configuration", Err: err}
	}

	l := lock.New(loader.LockFile(domain, resolution))
	needsLock := !(mode.IsReprocess() && !mode.Reprocess.Lock)
	if needsLock {
		if err := l.Acquire(); err != nil {
			if unavail, ok := err.(*lock.Unavailable); ok {
				rlog.Infof("lock unavailable (%v); exiting without error", unavail)
				return nil
			}
			return &TransientError{Op: "acquiring lock", Err: err}
		}
		defer l.Release()
	}

	g := deps.Grid
	if g == nil {
		g, err = grid.LoadNetCDF(loader.GridFile(domain, resolution), domain, resolution, ruleSearchRadiusKM(processes))
		if err != nil {
			return &TransientError{Op: "loading grid", Err: err}
		}
	}
	lm := deps.Landmask
	if lm == nil {
		lm, err = grid.LoadLandmaskNetCDF(loader.LandmaskFile(domain), domain)
		if err != nil {
			return &TransientError{Op: "loading landmask", Err: err}
		}
	}

	fc := config.FilenameConvention{BaseDir: loader.OutputDir()}
	program := programName()
	user := userName()

	domainID, resolutionID, err := confDB.DomainResolutionIDs(ctx, domain, resolution)
	if err != nil {
		return &TransientError{Op: "resolving domain/resolution", Err: err}
	}
	dsn := loader.ConfDB().DSN
	loginTimeout := loader.ConfDB().LoginTimeout

	rtvEnabled := hasKind(processes, "rtv")
	for _, pc := range processes {
		if pc.Method() != "uwls" {
			rlog.Errorf("process %s: unsupported method %q; only uwls is supported", pc.Kind(), pc.Method())
			continue
		}
		switch c := pc.(type) {
		case config.RtvCfg:
			siteConfigs, err := confDB.SiteConfigs(ctx, domain, resolution)
			if err != nil {
				rlog.Errorf("rtv: loading site configs: %v", err)
				continue
			}
			rtvDeps := rtv.Dependencies{
				Catalog:     catalog.NewSQLCatalog(loader.RadialDB()),
				Parser:      deps.Parser,
				Landmask:    lm,
				SiteConfigs: siteConfigs,
			}
			st := state.New(dsn, loginTimeout, domainID, resolutionID, "rtv")
			times, err := rtv.Process(ctx, rlog, rtvDeps, fc, domain, resolution, c, g, mode, st, now, program, user)
			if err != nil {
				rlog.Errorf("rtv: %v", err)
				continue
			}
			if mode.IsReprocess() {
				mode.Reprocess.NewRTVFiles = times
			}
		case config.StcCfg:
			stcState := state.New(dsn, loginTimeout, domainID, resolutionID, "stc")
			if _, err := stc.Process(rlog, fc, domain, resolution, c, g, mode, rtvEnabled, stcState, now); err != nil {
				rlog.Errorf("stc: %v", err)
			}
		case config.LtaCfg:
			monthlyState := state.New(dsn, loginTimeout, domainID, resolutionID, "lta-monthly")
			annualState := state.New(dsn, loginTimeout, domainID, resolutionID, "lta-annual")
			result := lta.Process(rlog, fc, domain, resolution, c, g, mode, rtvEnabled, monthlyState, annualState, now)
			if result.MonthlyErr != nil {
				rlog.Errorf("lta monthly: %v", result.MonthlyErr)
			}
			if result.AnnualErr != nil {
				rlog.Errorf("lta annual: %v", result.AnnualErr)
			}
		}
	}

	rlog.Infof("run for %s/%s finished in %s", domain, resolution, time.Since(wallStart))
	return nil
}

func hasKind(processes []config.ProcessConfig, kind string) bool {
	for _, p := range processes {
		if p.Kind() == kind {
			return true
		}
	}
	return false
}

// ruleSearchRadiusKM finds the configured RTV grid-search radius among the
// resolved process list, the radius every ocean cell's small-circle
// polygon is generated at.
func ruleSearchRadiusKM(processes []config.ProcessConfig) float64 {
	for _, p := range processes {
		if c, ok := p.(config.RtvCfg); ok {
			return c.GridSearchRadiusKM
		}
	}
	return 0
}

func programName() string {
	return "hfrnet-totals"
}

func userName() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}
