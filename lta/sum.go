// Package lta computes the long-term average products: a monthly
// one-pass sum/average of hourly RTV totals, and an annual rollup of
// twelve monthly sums, each gated on a configurable minimum temporal
// coverage and masked over the Straits of Florida.
//
// Grounded on original_source/.../ltaMonthlySum.py, ltaMonthlyAvg.py,
// ltaAnnualAvg.py, ltaQCmask.py, ltaMonthly.py, ltaAnnual.py, lta.py.
package lta

import (
	"math"
	"time"

	"github.com/ioos/hfrnet-totals/config"
	"github.com/ioos/hfrnet-totals/total"
)

// Logger is the minimal logging seam lta needs.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// MonthlySum accumulates every hourly RTV total within the calendar month
// containing month (which may be any time within that month; only its
// year/month are used) into a one-pass Sum, masking by maxError HDOP
// before accumulation exactly as Compute25hrAvg does for STC. It returns
// (nil, nil) if no hourly files exist for the month at all.
func MonthlySum(log Logger, fc config.FilenameConvention, domain, resolution string, month time.Time, maxError float64) (*total.Sum, error) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var sum *total.Sum
	nLoaded := 0

	for ti := start; ti.Before(end); ti = ti.Add(time.Hour) {
		paths := fc.RTV(domain, resolution, ti)
		if !total.Exists(paths.MPathFile) {
			continue
		}

		t, err := total.Load(paths.MPathFile)
		if err != nil {
			log.Errorf("error loading %s: %v", paths.MPathFile, err)
			continue
		}
		nLoaded++
		log.Debugf("loaded %s", paths.MPathFile)

		maskByHDOP(t, maxError)

		if sum == nil {
			sum = total.NewSum(domain, resolution, start, t.OceanLat, t.OceanLon)
		}
		for i := 0; i < t.Len(); i++ {
			sum.Accumulate(i, t.U[i], t.V[i])
		}
	}

	log.Debugf("summed values from %d hourly rtv files", nLoaded)
	return sum, nil
}

func maskByHDOP(t *total.Total, maxError float64) {
	for i := 0; i < t.Len(); i++ {
		if t.HDOP[i] >= maxError {
			t.U[i] = math.NaN()
			t.V[i] = math.NaN()
		}
	}
}
