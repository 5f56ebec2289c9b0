package lta

import (
	"time"

	"github.com/ioos/hfrnet-totals/config"
	"github.com/ioos/hfrnet-totals/grid"
	"github.com/ioos/hfrnet-totals/state"
)

// Result carries what Process actually produced, with monthly and annual
// errors isolated from each other -- a failure in one must not prevent
// the other from running, matching lta.py's two independent try/except
// blocks around ltaMonthly and ltaAnnual.
type Result struct {
	MonthsProcessed []time.Time
	YearsProcessed  []time.Time
	MonthlyErr      error
	AnnualErr       error
}

// Process runs the monthly-then-annual long-term average step, after a
// coarse pre-check: in near-real-time mode, if the current day hasn't
// reached the configured minimum month day, nothing runs at all (not even
// a check of the reprocess range, since there is none). In reprocessing
// mode, the same day-of-month rule shifts which month is the processing
// boundary, but the detailed eligibility check is left to ProcessMonthly
// and ProcessAnnual themselves.
func Process(log Logger, fc config.FilenameConvention, domain, resolution string, cfg config.LtaCfg, g *grid.Grid, mode config.RunMode, rtvEnabled bool, monthlyState, annualState *state.State, now time.Time) Result {
	if !mode.IsReprocess() && now.Day() < cfg.MonthlyMinMonthDay {
		log.Debugf("below minimum month day (%d) for lta processing, exiting", cfg.MonthlyMinMonthDay)
		return Result{}
	}

	var res Result
	res.MonthsProcessed, res.MonthlyErr = ProcessMonthly(log, fc, domain, resolution, cfg, g, mode, rtvEnabled, monthlyState, now)
	if res.MonthlyErr != nil {
		log.Errorf("error processing %s monthly average (lta): %v", cfg.Method(), res.MonthlyErr)
	}

	res.YearsProcessed, res.AnnualErr = ProcessAnnual(log, fc, domain, resolution, cfg, g, mode, rtvEnabled, annualState, now)
	if res.AnnualErr != nil {
		log.Errorf("error processing %s annual average (lta): %v", cfg.Method(), res.AnnualErr)
	}

	return res
}
