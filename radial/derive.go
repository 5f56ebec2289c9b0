package radial

import "math"

// BearingToOrigin computes the initial bearing (degrees clockwise from
// north) from (lat, lon) to (originLat, originLon) using the spherical
// geodesic inverse formula.
func BearingToOrigin(lat, lon, originLat, originLon float64) float64 {
	lat1 := lat * math.Pi / 180
	lat2 := originLat * math.Pi / 180
	dLon := (originLon - lon) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	brng := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(brng+360, 360)
}

// ToPolarCCWFromEast converts a bearing in degrees clockwise from north to
// the polar convention used throughout this package: degrees
// counterclockwise from east: h' = (90 - h) mod 360.
func ToPolarCCWFromEast(clockwiseFromNorth float64) float64 {
	return math.Mod(90-clockwiseFromNorth+360, 360)
}

// DeriveHeading fills in Heading for every point from the geodesic bearing
// to the radar origin, for use when the parsed file omits heading
// entirely.
func DeriveHeading(lat, lon []float64, originLat, originLon float64) []float64 {
	heading := make([]float64, len(lat))
	for i := range lat {
		bearing := BearingToOrigin(lat[i], lon[i], originLat, originLon)
		heading[i] = ToPolarCCWFromEast(bearing)
	}
	return heading
}

// DeriveSpeedFromComponents computes radial speed and heading-consistency
// from eastward/northward velocity components (VELU, VELV):
//
//	rspd = hypot(u, v)
//	rdir = atan2(v, u)
//
// If the angular difference between the already-known heading and rdir
// exceeds 10 degrees (mod 360), rspd is negated -- the sign convention is
// that positive speed means away from the radar.
func DeriveSpeedFromComponents(velu, velv, heading []float64) []float64 {
	speed := make([]float64, len(velu))
	for i := range velu {
		rspd := math.Hypot(velu[i], velv[i])
		rdir := math.Atan2(velv[i], velu[i]) * 180 / math.Pi
		diff := math.Mod(math.Abs(heading[i]-rdir), 360)
		if diff > 180 {
			diff = 360 - diff
		}
		if diff > 10 {
			rspd = -rspd
		}
		speed[i] = rspd
	}
	return speed
}
