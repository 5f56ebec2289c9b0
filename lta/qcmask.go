package lta

import (
	"math"

	"github.com/ioos/hfrnet-totals/total"
)

// straitsOfFloridaLatMin/Max/LonMin/Max bound the QC exclusion zone where
// long-term average currents are not reliable, per ltaQCmask.py. This
// applies unconditionally regardless of processing time -- the source
// comment notes it is meant to be revisited once a reliable period is
// identified, past or future.
const (
	straitsOfFloridaLatMin = 25.0
	straitsOfFloridaLatMax = 26.75
	straitsOfFloridaLonMin = -80.75
	straitsOfFloridaLonMax = -78.75
)

// QCMask masks every cell falling within the Straits of Florida bounding
// box, matching ltaQCmask.py's spatial mask applied to both monthly and
// annual averages.
func QCMask(log Logger, a *total.Avg) {
	masked := 0
	for i := 0; i < len(a.OceanLat); i++ {
		lat, lon := a.OceanLat[i], a.OceanLon[i]
		if lat > straitsOfFloridaLatMin && lat < straitsOfFloridaLatMax &&
			lon > straitsOfFloridaLonMin && lon < straitsOfFloridaLonMax {
			a.NGood[i] = 0
			a.UMin[i], a.VMin[i] = math.NaN(), math.NaN()
			a.UMax[i], a.VMax[i] = math.NaN(), math.NaN()
			a.UAvg[i], a.VAvg[i] = math.NaN(), math.NaN()
			a.UVar[i], a.VVar[i] = math.NaN(), math.NaN()
			masked++
		}
	}
	if masked > 0 {
		log.Infof("QC masked %d solutions in the Straits of Florida", masked)
	}
}
