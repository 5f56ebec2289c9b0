package lta

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ioos/hfrnet-totals/config"
	"github.com/ioos/hfrnet-totals/grid"
	"github.com/ioos/hfrnet-totals/state"
	"github.com/ioos/hfrnet-totals/total"
)

// reprocessCandidateTimes selects which reprocess-range times drive lta's
// own reprocessing, matching ltaMonthly.py/ltaAnnual.py's
// "'RTV' in c['processes']['name']" branch: when the RTV process ran as
// part of this invocation, only the hours RTV actually (re)wrote drive
// lta; otherwise the caller-provided reprocess range is used directly.
func reprocessCandidateTimes(mode config.RunMode, rtvEnabled bool) []time.Time {
	if rtvEnabled {
		return mode.Reprocess.NewRTVFiles
	}
	return mode.Reprocess.Times
}

// ProcessMonthly computes and persists the monthly long-term average,
// iterating every eligible month. In reprocessing mode, eligible months
// are derived from the reprocess time range; in near-real-time mode, at
// most the single previous month is processed, gated on the configured
// minimum month day and on not having already run this month.
func ProcessMonthly(log Logger, fc config.FilenameConvention, domain, resolution string, cfg config.LtaCfg, g *grid.Grid, mode config.RunMode, rtvEnabled bool, st *state.State, now time.Time) ([]time.Time, error) {
	var processTimes []time.Time

	if mode.IsReprocess() {
		maxLtaDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		if now.Day() < cfg.MonthlyMinMonthDay {
			maxLtaDate = maxLtaDate.AddDate(0, -1, 0)
		}

		seen := make(map[time.Time]bool)
		for _, t := range reprocessCandidateTimes(mode, rtvEnabled) {
			if !t.Before(maxLtaDate) {
				continue
			}
			month := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
			if !seen[month] {
				seen[month] = true
				processTimes = append(processTimes, month)
			}
		}
		if len(processTimes) == 0 {
			log.Debugf("no new RTVs processed prior to %s, exiting", maxLtaDate)
			return nil, nil
		}
		log.Infof("obtained %d month(s) to process", len(processTimes))
	} else {
		if now.Day() < cfg.MonthlyMinMonthDay {
			log.Debugf("below minimum month day (%d) for lta processing, exiting", cfg.MonthlyMinMonthDay)
			return nil, nil
		}
		if st != nil {
			if err := st.Get(context.Background()); err != nil {
				return nil, fmt.Errorf("lta: reading monthly state: %w", err)
			}
			if !st.Time.IsZero() && st.Time.Year() == now.Year() && st.Time.Month() == now.Month() {
				log.Debugf("monthly lta processing has already been run this month")
				return nil, nil
			}
		}
		prevMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		processTimes = []time.Time{prevMonth}
		log.Infof("obtained 1 month to process: %s", prevMonth)
	}

	var produced []time.Time
	for _, tc := range processTimes {
		if mode.IsReprocess() {
			log.Infof("begin reprocessing monthly lta for %s", tc)
		} else {
			log.Infof("begin processing monthly lta for %s", tc)
		}

		sum, err := MonthlySum(log, fc, domain, resolution, tc, cfg.MaxError)
		if err != nil {
			return produced, fmt.Errorf("lta: computing monthly sum for %s: %w", tc, err)
		}
		if sum == nil {
			log.Infof("no sums returned")
			continue
		}

		sumPaths := fc.LTAMonthlySum(domain, resolution, tc)
		if err := os.MkdirAll(filepath.Dir(sumPaths.MSumPathFile), 0o755); err != nil {
			return produced, fmt.Errorf("lta: creating monthly sum directory: %w", err)
		}
		if err := total.SaveSum(sumPaths.MSumPathFile, sum); err != nil {
			return produced, fmt.Errorf("lta: saving lta monthly sums to mat-file: %w", err)
		}
		log.Infof("saved lta monthly sums to mat-file")

		avg := MonthlyAverage(log, sum, cfg.MinMonthTemporalCoverage)
		if avg == nil {
			log.Infof("no averaged data returned")
			continue
		}

		avgPaths := fc.LTAMonthlyAvg(domain, resolution, tc)
		if err := saveMatFile(avgPaths.MPathFile, avg); err != nil {
			return produced, fmt.Errorf("lta: saving lta month average to mat-file: %w", err)
		}
		log.Infof("saved lta month to mat-file")

		QCMask(log, avg)
		if !anySet(avg) {
			log.Infof("no averaged data remains after QC masking")
			continue
		}
		if err := savePublishedFormats(log, avgPaths, avg, g, cfg.SaveAsFormats(), "lta month"); err != nil {
			return produced, err
		}

		produced = append(produced, tc)
	}

	if !mode.IsReprocess() && st != nil {
		if err := st.Write(context.Background(), ""); err != nil {
			return produced, fmt.Errorf("lta: writing monthly state: %w", err)
		}
		log.Debugf("updated lta monthly state to %s", st.Time)
	}

	return produced, nil
}

// ProcessAnnual computes and persists the annual long-term average,
// rolling up whichever monthly sums are available on disk for the year.
// Gating mirrors ProcessMonthly: reprocess range vs. minimum date plus a
// once-per-year state check in near-real-time mode.
func ProcessAnnual(log Logger, fc config.FilenameConvention, domain, resolution string, cfg config.LtaCfg, g *grid.Grid, mode config.RunMode, rtvEnabled bool, st *state.State, now time.Time) ([]time.Time, error) {
	var years []time.Time

	if mode.IsReprocess() {
		maxLtaDate := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		if now.Before(cfg.AnnualMinDate) {
			maxLtaDate = maxLtaDate.AddDate(-1, 0, 0)
		}

		seen := make(map[int]bool)
		for _, t := range reprocessCandidateTimes(mode, rtvEnabled) {
			if !t.Before(maxLtaDate) {
				continue
			}
			if !seen[t.Year()] {
				seen[t.Year()] = true
				years = append(years, time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC))
			}
		}
		if len(years) == 0 {
			log.Debugf("no new RTVs processed prior to %s, exiting", maxLtaDate)
			return nil, nil
		}
		log.Infof("obtained %d year(s) to process", len(years))
	} else {
		if now.Before(cfg.AnnualMinDate) {
			log.Debugf("prior to minimum date (%s) for annual lta processing, exiting", cfg.AnnualMinDate.Format("Jan 02, 2006"))
			return nil, nil
		}
		if st != nil {
			if err := st.Get(context.Background()); err != nil {
				return nil, fmt.Errorf("lta: reading annual state: %w", err)
			}
			if !st.Time.IsZero() && st.Time.Year() == now.Year() {
				log.Debugf("annual lta processing has already been run this year")
				return nil, nil
			}
		}
		prevYear := time.Date(now.Year()-1, 1, 1, 0, 0, 0, 0, time.UTC)
		years = []time.Time{prevYear}
		log.Infof("obtained 1 year to process: %d", prevYear.Year())
	}

	var produced []time.Time
	for _, year := range years {
		if mode.IsReprocess() {
			log.Infof("begin reprocessing annual lta for %d", year.Year())
		} else {
			log.Infof("begin processing annual lta for %d", year.Year())
		}

		var months []*total.Sum
		for m := 1; m <= 12; m++ {
			monthTime := time.Date(year.Year(), time.Month(m), 1, 0, 0, 0, 0, time.UTC)
			sumPaths := fc.LTAMonthlySum(domain, resolution, monthTime)
			if !total.Exists(sumPaths.MSumPathFile) {
				continue
			}
			s, err := total.LoadSum(sumPaths.MSumPathFile)
			if err != nil {
				log.Errorf("error loading %s: %v", sumPaths.MSumPathFile, err)
				continue
			}
			log.Debugf("loaded %s", sumPaths.MSumPathFile)
			months = append(months, s)
		}

		avg := AnnualAverage(log, months, year, cfg.MinYearTemporalCoverage)
		if avg == nil {
			log.Infof("no averaged data returned")
			continue
		}

		avgPaths := fc.LTAAnnual(domain, resolution, year.Year())
		if err := saveMatFile(avgPaths.MPathFile, avg); err != nil {
			return produced, fmt.Errorf("lta: saving lta year average to mat-file: %w", err)
		}
		log.Infof("saved lta year to mat-file")

		QCMask(log, avg)
		if !anySet(avg) {
			log.Infof("no averaged data remains after QC masking")
			continue
		}
		if err := savePublishedFormats(log, avgPaths, avg, g, cfg.SaveAsFormats(), "lta year"); err != nil {
			return produced, err
		}

		produced = append(produced, year)
	}

	if !mode.IsReprocess() && st != nil {
		if err := st.Write(context.Background(), ""); err != nil {
			return produced, fmt.Errorf("lta: writing annual state: %w", err)
		}
		log.Debugf("updated lta annual state to %s", st.Time)
	}

	return produced, nil
}

func saveMatFile(path string, avg *total.Avg) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("lta: creating mat directory: %w", err)
	}
	return total.SaveAvg(path, avg)
}

func savePublishedFormats(log Logger, paths config.TotalPaths, avg *total.Avg, g *grid.Grid, formats []string, label string) error {
	lower := strings.ToLower(strings.Join(formats, ","))

	if strings.Contains(lower, "ascii") {
		if err := os.MkdirAll(filepath.Dir(paths.ASCIIPathFile), 0o755); err != nil {
			return fmt.Errorf("lta: creating ascii directory: %w", err)
		}
		if err := total.WriteASCIIAvg(paths.ASCIIPathFile, avg); err != nil {
			return fmt.Errorf("lta: saving %s to ascii file: %w", label, err)
		}
		log.Infof("saved %s to ascii file", label)
	}

	if strings.Contains(lower, "netcdf") {
		if err := os.MkdirAll(filepath.Dir(paths.NCPathFile), 0o755); err != nil {
			return fmt.Errorf("lta: creating netcdf directory: %w", err)
		}
		if err := total.WriteNetCDFAvg(paths.NCPathFile, avg, g); err != nil {
			return fmt.Errorf("lta: saving %s to netcdf file: %w", label, err)
		}
		log.Infof("saved %s to netcdf file", label)
	}

	return nil
}
