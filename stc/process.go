package stc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ioos/hfrnet-totals/config"
	"github.com/ioos/hfrnet-totals/grid"
	"github.com/ioos/hfrnet-totals/state"
	"github.com/ioos/hfrnet-totals/total"
)

// reprocessCandidateTimes selects which reprocess-range times drive stc's
// own reprocessing, matching stc.py's "'RTV' in c['processes']['name']"
// branch: when the RTV process ran as part of this invocation, only the
// hours RTV actually (re)wrote drive stc; otherwise the caller-provided
// reprocess range is used directly.
func reprocessCandidateTimes(mode config.RunMode, rtvEnabled bool) []time.Time {
	if rtvEnabled {
		return mode.Reprocess.NewRTVFiles
	}
	return mode.Reprocess.Times
}

// findNewRTVs is find_new_rtvs(c, logger): a state-tracked modification-time
// scan over the RTV output directory, run in normal (non-reprocess) mode
// and independent of whatever rtv.Process returned in this same
// invocation. It lets stc catch up on RTV files another process or host
// wrote, or hours rtv failed to produce on a previous tick, by walking
// every hour in [minTime, newState] and keeping those whose on-disk mat
// file exists with an mtime in [currentState, newState).
func findNewRTVs(log Logger, fc config.FilenameConvention, domain, resolution string, maxAgeHours int, st *state.State, now time.Time) (found []time.Time, newState time.Time, err error) {
	minTime := now.Add(-time.Duration(maxAgeHours) * time.Hour).UTC().Truncate(time.Hour)

	currentState := time.Unix(0, 0).UTC()
	if st != nil {
		if err := st.Get(context.Background()); err != nil {
			return nil, time.Time{}, fmt.Errorf("stc: reading state: %w", err)
		}
		if !st.Time.IsZero() {
			currentState = st.Time
		}
	}
	newState = now

	for t := minTime; !t.After(newState); t = t.Add(time.Hour) {
		paths := fc.RTV(domain, resolution, t)
		info, statErr := os.Stat(paths.MPathFile)
		if statErr != nil {
			continue
		}
		mtime := info.ModTime()
		if !mtime.Before(currentState) && mtime.Before(newState) {
			found = append(found, t)
		}
	}
	log.Infof("found %d new rtv(s) via mtime scan between %s and %s", len(found), minTime, newState)
	return found, newState, nil
}

// Process runs the sub-tidal current step over every 25-hour window
// touched by the newly available RTVs, skipping windows that extend past
// now-13h (their trailing RTV hours can't exist yet), and persists each
// resulting average in every format cfg.SaveAsFormats names. In reprocess
// mode the driving RTV times come from mode.Reprocess (via
// reprocessCandidateTimes); in normal mode they come from findNewRTVs's
// own state-tracked scan of the RTV output directory, decoupled from
// whatever rtv.Process returned in this same invocation. It returns the
// list of center times it actually produced a solution for, matching
// stc.py's per-window loop and save-format dispatch.
func Process(log Logger, fc config.FilenameConvention, domain, resolution string, cfg config.StcCfg, g *grid.Grid, mode config.RunMode, rtvEnabled bool, st *state.State, now time.Time) ([]time.Time, error) {
	var newRtvTimes []time.Time
	var newState time.Time

	if mode.IsReprocess() {
		newRtvTimes = reprocessCandidateTimes(mode, rtvEnabled)
	} else {
		var err error
		newRtvTimes, newState, err = findNewRTVs(log, fc, domain, resolution, cfg.MaxAgeHours, st, now)
		if err != nil {
			return nil, err
		}
	}

	if len(newRtvTimes) == 0 {
		log.Infof("no new RTVs found")
		return nil, nil
	}

	windowTimes := make(map[time.Time]struct{})
	for _, t := range newRtvTimes {
		for h := -12; h <= 12; h++ {
			windowTimes[t.Add(time.Duration(h)*time.Hour)] = struct{}{}
		}
	}

	cutoff := now.Add(-13 * time.Hour)
	var processTimes []time.Time
	for t := range windowTimes {
		if !t.After(cutoff) {
			processTimes = append(processTimes, t)
		}
	}
	sort.Slice(processTimes, func(i, j int) bool { return processTimes[i].Before(processTimes[j]) })

	if len(processTimes) == 0 {
		log.Infof("no STCs to process")
		return nil, nil
	}
	log.Infof("found %d STCs to process between %s and %s", len(processTimes), processTimes[0], processTimes[len(processTimes)-1])

	var produced []time.Time
	for _, tc := range processTimes {
		log.Infof("begin processing stc for %s", tc)

		avg, err := Compute25hrAvg(log, fc, domain, resolution, tc, cfg.MaxError, cfg.MinTemporalCoverage)
		if err != nil {
			return produced, fmt.Errorf("stc: computing average for %s: %w", tc, err)
		}
		if avg == nil {
			log.Infof("no average solutions returned")
			continue
		}

		paths := fc.STC(domain, resolution, tc)
		if err := save(log, paths, avg, g, cfg.SaveAsFormats()); err != nil {
			return produced, err
		}
		produced = append(produced, tc)
	}

	if !mode.IsReprocess() && st != nil {
		if err := st.WriteAt(context.Background(), newState, ""); err != nil {
			return produced, fmt.Errorf("stc: writing state: %w", err)
		}
		log.Debugf("updated stc state to %s", st.Time)
	}

	return produced, nil
}

func save(log Logger, paths config.TotalPaths, avg *total.Avg, g *grid.Grid, formats []string) error {
	if err := os.MkdirAll(filepath.Dir(paths.MPathFile), 0o755); err != nil {
		return fmt.Errorf("stc: creating mat directory: %w", err)
	}
	if err := total.SaveAvg(paths.MPathFile, avg); err != nil {
		return fmt.Errorf("stc: saving stc to mat-file: %w", err)
	}
	log.Infof("saved stc solutions to mat-file")

	lower := strings.ToLower(strings.Join(formats, ","))

	if strings.Contains(lower, "ascii") {
		if err := os.MkdirAll(filepath.Dir(paths.ASCIIPathFile), 0o755); err != nil {
			return fmt.Errorf("stc: creating ascii directory: %w", err)
		}
		if err := total.WriteASCIIAvg(paths.ASCIIPathFile, avg); err != nil {
			return fmt.Errorf("stc: saving stc to ascii file: %w", err)
		}
		log.Infof("saved stc solutions to ascii file")
	}

	if strings.Contains(lower, "netcdf") {
		if err := os.MkdirAll(filepath.Dir(paths.NCPathFile), 0o755); err != nil {
			return fmt.Errorf("stc: creating netcdf directory: %w", err)
		}
		if err := total.WriteNetCDFAvg(paths.NCPathFile, avg, g); err != nil {
			return fmt.Errorf("stc: saving stc to netcdf file: %w", err)
		}
		log.Infof("saved stc solutions to netcdf file")
	}

	return nil
}
