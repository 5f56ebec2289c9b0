// Package grid holds the fixed spatial grid and landmask consumed by the
// UWLS total solver: ocean cell indexing, per-cell precomputed small-circle
// search polygons, and land-polygon masking.
//
// Grounded on original_source/.../rtvComputeTotals.py (scircle1/scircle/
// inpolygon), reimplemented in Go idiom using only the standard library --
// the formulas are fully specified in closed form and no pack library
// models a bare WGS84 small circle or crossings-rule point-in-polygon test
// (see DESIGN.md).
package grid

import (
	"fmt"
	"math"
)

// EarthRadiusKM is the sphere radius used for small-circle generation,
// matching the WGS84 mean radius assumption in the reference
// implementation.
const EarthRadiusKM = 6371.0

// SmallCirclePoints is the number of vertices generated per search polygon.
const SmallCirclePoints = 360

// Point is a geographic coordinate, longitude then latitude (degrees), to
// match the (x, y) convention used by the polygon-containment test.
type Point struct {
	Lon, Lat float64
}

// Polygon is a closed ring of vertices; the first vertex is implicitly
// repeated to close the ring (see Contains).
type Polygon []Point

// Grid is a regular lat/lon grid identified by (domain, resolution).
type Grid struct {
	Domain, Resolution string

	XRange [2]float64 // lon min, max
	YRange [2]float64 // lat min, max
	DX, DY float64
	Size   [2]int // M, N

	// OceanIndices are the flat indices (row-major, size M*N) of wet cells.
	OceanIndices []int

	// OceanLon/OceanLat give each ocean cell's center coordinate, co-indexed
	// with OceanIndices.
	OceanLon []float64
	OceanLat []float64

	// SearchRadiusKM is the configured rtv.grid_search_radius (must be a
	// whole number of km, or of meters -- see FieldName).
	SearchRadiusKM float64

	// SmallCircles[i] is the 360-point search polygon for ocean cell i,
	// co-indexed with OceanIndices.
	SmallCircles []Polygon
}

// NewGrid precomputes the small-circle search polygon for every ocean cell.
// It returns an error if the number of generated small circles would not
// equal len(oceanIndices) (an internal invariant, not an input-validation
// concern) or if searchRadiusKM cannot be expressed as a whole number of
// kilometers or meters.
func NewGrid(domain, resolution string, xRange, yRange [2]float64, dx, dy float64, size [2]int, oceanIndices []int, oceanLon, oceanLat []float64, searchRadiusKM float64) (*Grid, error) {
	if len(oceanLon) != len(oceanIndices) || len(oceanLat) != len(oceanIndices) {
		return nil, fmt.Errorf("grid.NewGrid: ocean coordinate arrays must be co-indexed with ocean_indices (have %d/%d/%d)", len(oceanIndices), len(oceanLon), len(oceanLat))
	}
	if _, err := FieldName("x", searchRadiusKM); err != nil {
		return nil, err
	}

	g := &Grid{
		Domain: domain, Resolution: resolution,
		XRange: xRange, YRange: yRange, DX: dx, DY: dy, Size: size,
		OceanIndices: oceanIndices, OceanLon: oceanLon, OceanLat: oceanLat,
		SearchRadiusKM: searchRadiusKM,
		SmallCircles:   make([]Polygon, len(oceanIndices)),
	}
	for i := range oceanIndices {
		g.SmallCircles[i] = SmallCircle(oceanLat[i], oceanLon[i], searchRadiusKM)
	}
	if len(g.SmallCircles) != len(g.OceanIndices) {
		return nil, fmt.Errorf("grid.NewGrid: generated %d small circles for %d ocean indices", len(g.SmallCircles), len(g.OceanIndices))
	}
	return g, nil
}

// FieldName returns the grid small-circle field name convention: integer
// kilometers render as "ocean_[xy]_scircle{K}km"; otherwise integer meters
// render as "ocean_[xy]_scircle{K*1000}m"; any other value is a
// configuration error.
func FieldName(axis string, radiusKM float64) (string, error) {
	if radiusKM == math.Trunc(radiusKM) {
		return fmt.Sprintf("ocean_%s_scircle%dkm", axis, int(radiusKM)), nil
	}
	meters := radiusKM * 1000
	if meters == math.Trunc(meters) {
		return fmt.Sprintf("ocean_%s_scircle%dm", axis, int(meters)), nil
	}
	return "", &ConfigError{Msg: fmt.Sprintf("invalid grid search radius of %g km: value must be a whole number when represented in meters", radiusKM)}
}

// ConfigError reports a fatal, affected-pipeline-only configuration problem.
type ConfigError struct{ Msg string }

func (e *ConfigError) Error() string { return "grid: configuration error: " + e.Msg }

// SmallCircle generates the 360-point search polygon centered at
// (lat0, lon0) with the given radius in kilometers:
//
//	lat = asin( sin(lat0)*cos(R/a) + cos(lat0)*sin(R/a)*cos(az) )
//	lon = lon0 + atan2( sin(az)*sin(R/a)*cos(lat0), cos(R/a) - sin(lat0)*sin(lat) )
func SmallCircle(lat0, lon0, radiusKM float64) Polygon {
	lat0r := lat0 * math.Pi / 180
	lon0r := lon0 * math.Pi / 180
	r := radiusKM / EarthRadiusKM
	cosR, sinR := math.Cos(r), math.Sin(r)
	sinLat0, cosLat0 := math.Sin(lat0r), math.Cos(lat0r)

	pts := make(Polygon, SmallCirclePoints)
	for i := 0; i < SmallCirclePoints; i++ {
		az := 2 * math.Pi * float64(i) / float64(SmallCirclePoints)
		sinAz, cosAz := math.Sin(az), math.Cos(az)

		lat := math.Asin(sinLat0*cosR + cosLat0*sinR*cosAz)
		lon := lon0r + math.Atan2(sinAz*sinR*cosLat0, cosR-sinLat0*math.Sin(lat))

		pts[i] = Point{Lon: lon * 180 / math.Pi, Lat: lat * 180 / math.Pi}
	}
	return pts
}

// Contains reports whether (lon, lat) lies inside the polygon using the
// classic crossings rule: count ray crossings of the (implicitly closed)
// edge list; odd means inside.
func (p Polygon) Contains(lon, lat float64) bool {
	n := len(p)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		yi, yj := p[i].Lat, p[j].Lat
		xi, xj := p[i].Lon, p[j].Lon
		if (yi > lat) != (yj > lat) {
			xCross := xi + (lat-yi)/(yj-yi)*(xj-xi)
			if lon < xCross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// Bounds returns the axis-aligned bounding box of the polygon as
// (latMax, latMin, lonMax, lonMin), the convention used by Landmask Region.
func (p Polygon) Bounds() (latMax, latMin, lonMax, lonMin float64) {
	if len(p) == 0 {
		return 0, 0, 0, 0
	}
	latMax, latMin = p[0].Lat, p[0].Lat
	lonMax, lonMin = p[0].Lon, p[0].Lon
	for _, v := range p[1:] {
		latMax = math.Max(latMax, v.Lat)
		latMin = math.Min(latMin, v.Lat)
		lonMax = math.Max(lonMax, v.Lon)
		lonMin = math.Min(lonMin, v.Lon)
	}
	return
}

// Centroid computes the arithmetic mean of the polygon's vertices, used by
// the small-circle closure test.
func (p Polygon) Centroid() Point {
	var lon, lat float64
	for _, v := range p {
		lon += v.Lon
		lat += v.Lat
	}
	n := float64(len(p))
	return Point{Lon: lon / n, Lat: lat / n}
}
