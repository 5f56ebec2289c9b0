package radial

import (
	"math"

	"github.com/ioos/hfrnet-totals/grid"
)

// VelocityFlagLand is the vflag sentinel meaning "velocity flagged".
const VelocityFlagLand = 128

// FilterResult reports how many points each filter stage removed, for
// logging at "debug"/"info" severity matching original_source/.../
// rtvLoadRadials.py's per-stage removal messages.
type FilterResult struct {
	RemovedByVFlag    int
	RemovedBySpeedCap int
	RemovedByLandmask int
}

// ApplyFilters applies the vflag, speed-cap, and landmask filters in
// order, mutating d in place and returning the count removed by each
// stage.
func ApplyFilters(d *Parsed, maxRadSpeed float64, lm *grid.Landmask) FilterResult {
	var result FilterResult

	if d.VFlag != nil {
		keep := make([]int, 0, len(d.VFlag))
		for i, f := range d.VFlag {
			if f == VelocityFlagLand {
				result.RemovedByVFlag++
				continue
			}
			keep = append(keep, i)
		}
		selectIndices(d, keep)
	}

	if len(d.Speed) > 0 {
		keep := make([]int, 0, len(d.Speed))
		for i, s := range d.Speed {
			if math.Abs(s) > maxRadSpeed {
				result.RemovedBySpeedCap++
				continue
			}
			keep = append(keep, i)
		}
		selectIndices(d, keep)
	}

	if lm != nil && len(d.Longitude) > 0 {
		keepSet, removed := lm.FilterPoints(d.Longitude, d.Latitude)
		result.RemovedByLandmask = removed
		selectIndices(d, keepSet)
	}

	return result
}

// selectIndices reduces every co-indexed slice in d to the given indices,
// preserving order.
func selectIndices(d *Parsed, keep []int) {
	d.Latitude = pick(d.Latitude, keep)
	d.Longitude = pick(d.Longitude, keep)
	d.Speed = pick(d.Speed, keep)
	d.Heading = pick(d.Heading, keep)
	d.VELU = pick(d.VELU, keep)
	d.VELV = pick(d.VELV, keep)
	d.Range = pick(d.Range, keep)
	d.VFlag = pickInt(d.VFlag, keep)
}

func pick(s []float64, idx []int) []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = s[j]
	}
	return out
}

func pickInt(s []int, idx []int) []int {
	if s == nil {
		return nil
	}
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = s[j]
	}
	return out
}
