// Package stc computes the sub-tidal current product: a 25-hour centered
// boxcar average of hourly RTV totals, masked by HDOP and gated on
// temporal coverage before being persisted in every configured format.
//
// Grounded on original_source/.../stcCompute25hrAvg.py and stc.py.
package stc

import (
	"math"
	"time"

	"github.com/ioos/hfrnet-totals/config"
	"github.com/ioos/hfrnet-totals/total"
)

// Logger is the minimal logging seam stc needs.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Alertf(format string, args ...interface{})
}

// Compute25hrAvg builds the centered 25-hour average for tc from the
// hourly RTV totals at tc-12h .. tc+12h. Each hourly total is masked by
// maxError before accumulation: cells with hdop >= maxError contribute no
// observation for that hour, matching stcCompute25hrAvg.py's HDOP filter.
//
// It returns (nil, nil) -- not an error -- whenever there isn't enough
// data to produce a meaningful average: fewer than minTemporalCoverage
// hourly files loaded, or every cell falling below that same coverage
// threshold once per-cell gaps are counted.
func Compute25hrAvg(log Logger, fc config.FilenameConvention, domain, resolution string, tc time.Time, maxError float64, minTemporalCoverage int) (*total.Avg, error) {
	var sum *total.Sum
	nLoaded := 0

	for h := -12; h <= 12; h++ {
		ti := tc.Add(time.Duration(h) * time.Hour)
		paths := fc.RTV(domain, resolution, ti)
		if !total.Exists(paths.MPathFile) {
			continue
		}

		t, err := total.Load(paths.MPathFile)
		if err != nil {
			log.Alertf("error loading %s: %v", paths.MPathFile, err)
			continue
		}
		nLoaded++
		log.Debugf("loaded %s", paths.MPathFile)

		maskByHDOP(t, maxError)

		if sum == nil {
			sum = total.NewSum(domain, resolution, tc, t.OceanLat, t.OceanLon)
		}
		for i := 0; i < t.Len(); i++ {
			sum.Accumulate(i, t.U[i], t.V[i])
		}
	}

	if nLoaded < minTemporalCoverage || sum == nil {
		log.Debugf("Minimum temporal coverage is %d hours, only %d file(s) loaded", minTemporalCoverage, nLoaded)
		return nil, nil
	}

	avg := sum.Average(minTemporalCoverage)

	anySet := false
	for i := 0; i < avg.Len(); i++ {
		if avg.IsSet(i) {
			anySet = true
			break
		}
	}
	if !anySet {
		log.Debugf("Not enough data to meet minimum temporal coverage of %d hours", minTemporalCoverage)
		return nil, nil
	}

	log.Debugf("computed average from %d files", nLoaded)
	return avg, nil
}

// maskByHDOP matches stcCompute25hrAvg.py's "mask = U['hdop'] >= max_error"
// filter: u/v are set to NaN wherever the hourly cell's HDOP is at or
// above the threshold, so that hour contributes no observation there.
func maskByHDOP(t *total.Total, maxError float64) {
	for i := 0; i < t.Len(); i++ {
		if t.HDOP[i] >= maxError {
			t.U[i] = math.NaN()
			t.V[i] = math.NaN()
		}
	}
}
