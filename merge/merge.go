// Package merge implements the RTV merge step: combining a freshly solved
// total field with whatever total persists on disk from a prior run,
// without discarding cells the current run could not update.
//
// Grounded on original_source/.../rtvMergeData.py.
package merge

import (
	"fmt"
	"math"
	"time"

	"github.com/ioos/hfrnet-totals/radial"
	"github.com/ioos/hfrnet-totals/total"
)

// Logger is the minimal logging seam merge needs; hfrnet-totals/logging's
// Logger satisfies it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// ReprocessInvariant reports that a prior total file exists where the
// merge step expects the reprocessing path to have already removed it --
// fatal regardless of whether locking was enabled for the reprocess.
type ReprocessInvariant struct{ Path string }

func (e *ReprocessInvariant) Error() string {
	return fmt.Sprintf("merge: total file %s exists; it should have been removed before a reprocess run", e.Path)
}

// Result is the outcome of Merge: the combined total, the combined radial
// set, and the counts used to compose the history message.
type Result struct {
	Total   *total.Total
	Radials []radial.Record

	NewSolutions   int // finite in the current run's U before merge
	TotalSolutions int // finite in the merged U
	Unmodified     int // carried verbatim from the prior run
}

// Merge combines the current run's total (with its contributing radial
// set in current.Radials) with whatever persists at priorPath. isReprocess
// selects the reprocess invariant check; program/user/now stamp the
// appended history entry.
//
// If priorPath does not exist, the result is current unchanged with a
// freshly initialized history. If it exists during a reprocess run, Merge
// returns *ReprocessInvariant regardless of whether locking was enabled.
// If it exists but fails to load during normal processing, Merge warns and
// proceeds as though no prior total existed -- the current run's solution
// overwrites it.
func Merge(log Logger, priorPath string, current *total.Total, isReprocess bool, program, user string, now time.Time) (Result, error) {
	nNew := countFinite(current.U)

	exists := total.Exists(priorPath)
	if !exists {
		log.Debugf("%s not found, no prior solutions", priorPath)
		current.InitHistory(program, user, now, nNew)
		return Result{Total: current, Radials: current.Radials, NewSolutions: nNew, TotalSolutions: nNew, Unmodified: 0}, nil
	}

	if isReprocess {
		return Result{}, &ReprocessInvariant{Path: priorPath}
	}

	prior, err := total.Load(priorPath)
	if err != nil {
		log.Warningf("failed to load prior data from %s: %v", priorPath, err)
		log.Warningf("overwriting existing file; data from previous run(s) will be lost")
		current.InitHistory(program, user, now, nNew)
		return Result{Total: current, Radials: current.Radials, NewSolutions: nNew, TotalSolutions: nNew, Unmodified: 0}, nil
	}
	log.Debugf("loaded prior solutions from %s", priorPath)

	current.Radials = UnionRadials(current.Radials, prior.Radials)

	unmodified := carryOverUnset(current, prior)

	current.History = prior.History
	totalSolutions := countFinite(current.U)
	current.AppendMergeHistory(program, user, now, totalSolutions, nNew, unmodified)
	log.Debugf("updated history: %s", current.History[len(current.History)-1].Message)

	return Result{
		Total: current, Radials: current.Radials,
		NewSolutions: nNew, TotalSolutions: totalSolutions, Unmodified: unmodified,
	}, nil
}

func countFinite(u []float64) int {
	n := 0
	for _, v := range u {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// carryOverUnset copies all seven fields from prior into current for
// every cell the current run left unset but the prior run had solved.
func carryOverUnset(current, prior *total.Total) int {
	n := 0
	for i := 0; i < current.Len(); i++ {
		if current.IsSet(i) || !prior.IsSet(i) {
			continue
		}
		current.SetCell(i, prior.U[i], prior.V[i], prior.DOPX[i], prior.DOPY[i], prior.HDOP[i], prior.NRads[i], prior.NSites[i])
		n++
	}
	return n
}

// UnionRadials appends every prior radial dataset whose (network, site,
// patterntype) doesn't already appear in current, verbatim, matching
// rtvMergeData.py's per-site match-and-append loop.
func UnionRadials(current, prior []radial.Record) []radial.Record {
	out := make([]radial.Record, len(current))
	copy(out, current)
	for _, p := range prior {
		matched := false
		for _, c := range current {
			if c.Network == p.Network && c.Site == p.Site && c.PatternType == p.PatternType {
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, p)
		}
	}
	return out
}
