package grid

// Land is a land polygon with a precomputed bounding-box region used to
// cheaply skip polygon tests against a radial dataset's own bounding box,
// matching original_source/.../rtvLoadRadials.py's bbox prefilter.
type Land struct {
	// Region is (latMax, latMin, lonMax, lonMin)
	Region  [4]float64
	Polygon Polygon
}

// Landmask is the set of land polygons used to mask radial observation
// points that fall on land.
type Landmask struct {
	Domain string
	Land   []Land
}

// NewLandmask builds a Landmask, computing each polygon's bounding-box
// region.
func NewLandmask(domain string, polys []Polygon) *Landmask {
	lm := &Landmask{Domain: domain}
	for _, p := range polys {
		latMax, latMin, lonMax, lonMin := p.Bounds()
		lm.Land = append(lm.Land, Land{
			Region:  [4]float64{latMax, latMin, lonMax, lonMin},
			Polygon: p,
		})
	}
	return lm
}

// Overlaps reports whether the land polygon's bounding box overlaps the
// given data bounding box (latMax, latMin, lonMax, lonMin), the prefilter
// applied before any point-in-polygon test.
func (l Land) Overlaps(dataLatMax, dataLatMin, dataLonMax, dataLonMin float64) bool {
	return dataLatMax >= l.Region[1] && dataLatMin <= l.Region[0] &&
		dataLonMax >= l.Region[3] && dataLonMin <= l.Region[2]
}

// IsLand reports whether (lon, lat) falls inside any land polygon whose
// bounding box overlaps the supplied data bounding box.
func (lm *Landmask) IsLand(lon, lat, dataLatMax, dataLatMin, dataLonMax, dataLonMin float64) bool {
	for _, land := range lm.Land {
		if !land.Overlaps(dataLatMax, dataLatMin, dataLonMax, dataLonMin) {
			continue
		}
		if land.Polygon.Contains(lon, lat) {
			return true
		}
	}
	return false
}

// FilterPoints returns the indices of (lons[i], lats[i]) pairs that do NOT
// fall on land, given the precomputed bounding box of the full point set.
func (lm *Landmask) FilterPoints(lons, lats []float64) (keep []int, removed int) {
	if len(lons) == 0 {
		return nil, 0
	}
	latMax, latMin := lats[0], lats[0]
	lonMax, lonMin := lons[0], lons[0]
	for i := 1; i < len(lats); i++ {
		if lats[i] > latMax {
			latMax = lats[i]
		}
		if lats[i] < latMin {
			latMin = lats[i]
		}
		if lons[i] > lonMax {
			lonMax = lons[i]
		}
		if lons[i] < lonMin {
			lonMin = lons[i]
		}
	}
	keep = make([]int, 0, len(lons))
	for i := range lons {
		if lm.IsLand(lons[i], lats[i], latMax, latMin, lonMax, lonMin) {
			removed++
			continue
		}
		keep = append(keep, i)
	}
	return keep, removed
}
