package total

import (
	"fmt"
	"math"
	"os"

	"github.com/ctessum/cdf"

	"github.com/ioos/hfrnet-totals/grid"
)

// fillShort is the CF convention fill value for scaled short (i2) data
// variables; it decodes (after scale_factor) to a value far outside any
// physically plausible current speed or DOP.
const fillShort int16 = -32768

// fillByte is the fill value for the unscaled byte (i1) site-count variable.
const fillByte int8 = -128

// wgs84SemiMajorAxis / wgs84InverseFlattening are the ellipsoid parameters
// published on the "wgs84" grid-mapping variable.
const (
	wgs84SemiMajorAxis     = 6378137.0
	wgs84InverseFlattening = 298.257223563
)

// scatter lays ocean-indexed flat values onto the grid's full (M, N) array,
// row-major, with land/unused cells left at NaN. Row 0 corresponds to the
// grid's minimum latitude (south); rotateNorthFirst flips this so row 0 is
// the northernmost row, matching the NW-corner-at-(0,0) convention.
func scatter(g *grid.Grid, flat []float64) [][]float64 {
	m, n := g.Size[0], g.Size[1]
	out := make([][]float64, m)
	for r := range out {
		out[r] = make([]float64, n)
		for c := range out[r] {
			out[r][c] = math.NaN()
		}
	}
	for k, idx := range g.OceanIndices {
		r, c := idx/n, idx%n
		if r < m && c < n {
			out[r][c] = flat[k]
		}
	}
	return rotateNorthFirst(out)
}

func rotateNorthFirst(grid [][]float64) [][]float64 {
	m := len(grid)
	out := make([][]float64, m)
	for r := range grid {
		out[r] = grid[m-1-r]
	}
	return out
}

func flatten(grid2d [][]float64) []float64 {
	if len(grid2d) == 0 {
		return nil
	}
	m, n := len(grid2d), len(grid2d[0])
	out := make([]float64, 0, m*n)
	for _, row := range grid2d {
		out = append(out, row...)
	}
	return out
}

func encodeScaled(values []float64, scale float64) []int16 {
	out := make([]int16, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = fillShort
			continue
		}
		out[i] = int16(math.Round(v / scale))
	}
	return out
}

func latLonAxes(g *grid.Grid) (lat, lon []float32) {
	m, n := g.Size[0], g.Size[1]
	lat = make([]float32, m)
	lon = make([]float32, n)
	for i := 0; i < m; i++ {
		// Row 0 is north after rotateNorthFirst, so walk from YRange max down.
		lat[i] = float32(g.YRange[1] - float64(i)*g.DY)
	}
	for j := 0; j < n; j++ {
		lon[j] = float32(g.XRange[0] + float64(j)*g.DX)
	}
	return lat, lon
}

// commonHeader builds the dimensions, coordinate variables, and grid
// mapping shared by every product's NetCDF file.
func commonHeader(g *grid.Grid) *cdf.Header {
	m, n := g.Size[0], g.Size[1]
	h := cdf.NewHeader([]string{"lon", "lat", "time", "nv"}, []int{n, m, 1, 2})
	h.AddAttribute("", "Conventions", "CF-1.7, ACDD-1.3")
	h.AddAttribute("", "format_version", FormatVersion)

	h.AddVariable("time", []string{"time"}, []int32{0})
	h.AddAttribute("time", "units", "seconds since 1970-01-01 UTC")
	h.AddAttribute("time", "calendar", "gregorian")

	h.AddVariable("time_bnds", []string{"time", "nv"}, []int32{0, 0})

	h.AddVariable("lat", []string{"lat"}, []float32{0})
	h.AddAttribute("lat", "units", "degrees_north")
	h.AddAttribute("lat", "standard_name", "latitude")

	h.AddVariable("lon", []string{"lon"}, []float32{0})
	h.AddAttribute("lon", "units", "degrees_east")
	h.AddAttribute("lon", "standard_name", "longitude")

	h.AddVariable("depth", []string{}, []float32{0})
	h.AddAttribute("depth", "units", "m")
	h.AddVariable("depth_bnds", []string{"nv"}, []float32{0, 0})

	h.AddVariable("wgs84", []string{}, []uint8{0})
	h.AddAttribute("wgs84", "grid_mapping_name", "latitude_longitude")
	h.AddAttribute("wgs84", "semi_major_axis", []float64{wgs84SemiMajorAxis})
	h.AddAttribute("wgs84", "inverse_flattening", []float64{wgs84InverseFlattening})

	return h
}

func addScaledVariable(h *cdf.Header, name string, units string) {
	h.AddVariable(name, []string{"time", "lat", "lon"}, []int16{0})
	h.AddAttribute(name, "scale_factor", []float64{0.01})
	h.AddAttribute(name, "_FillValue", []int16{fillShort})
	if units != "" {
		h.AddAttribute(name, "units", units)
	}
}

func writeCoords(f *cdf.File, g *grid.Grid, epochSeconds int64) error {
	lat, lon := latLonAxes(g)
	if err := writeVar(f, "lat", lat); err != nil {
		return err
	}
	if err := writeVar(f, "lon", lon); err != nil {
		return err
	}
	t := int32(epochSeconds)
	if err := writeVar(f, "time", []int32{t}); err != nil {
		return err
	}
	if err := writeVar(f, "time_bnds", []int32{t, t}); err != nil {
		return err
	}
	if err := writeVar(f, "depth", []float32{0}); err != nil {
		return err
	}
	if err := writeVar(f, "depth_bnds", []float32{0, 0}); err != nil {
		return err
	}
	return writeVar(f, "wgs84", []uint8{0})
}

func writeVar(f *cdf.File, name string, data interface{}) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	_, err := w.Write(data)
	if err != nil {
		return fmt.Errorf("total: writing netcdf variable %s: %w", name, err)
	}
	return nil
}

// WriteNetCDF exports an RTV Total as a CF-1.7/ACDD-1.3 file with data
// variables u, v, dopx, dopy, hdop (i2, scale 0.01), number_of_sites (i1),
// and number_of_radials (i2). u and v of cells whose HDOP exceeds
// maxHDOPNetCDF are left at the fill value; dopx, dopy, hdop and the two
// counts are written for every set cell regardless of HDOP.
//
// The ctessum/cdf writer only implements classic (non-HDF5-backed) NetCDF,
// so deflation and shuffle filtering -- part of the full output contract --
// are not produced here; see DESIGN.md.
func WriteNetCDF(path string, t *Total, g *grid.Grid, maxHDOPNetCDF float64) error {
	h := commonHeader(g)
	addScaledVariable(h, "u", "m s-1")
	addScaledVariable(h, "v", "m s-1")
	addScaledVariable(h, "dopx", "")
	addScaledVariable(h, "dopy", "")
	addScaledVariable(h, "hdop", "")
	h.AddVariable("number_of_sites", []string{"time", "lat", "lon"}, []uint8{0})
	h.AddAttribute("number_of_sites", "_FillValue", []uint8{uint8(fillByte)})
	h.AddVariable("number_of_radials", []string{"time", "lat", "lon"}, []int16{0})
	h.AddAttribute("number_of_radials", "_FillValue", []int16{fillShort})
	h.Define()

	f, err := create(path, h)
	if err != nil {
		return err
	}
	defer f.Close()

	u, v := maskByHDOP(t, maxHDOPNetCDF)
	for name, vals := range map[string][]float64{"u": u, "v": v, "dopx": t.DOPX, "dopy": t.DOPY, "hdop": t.HDOP} {
		if err := writeVar(f.File, name, encodeScaled(flatten(scatter(g, vals)), 0.01)); err != nil {
			return err
		}
	}

	nSites := make([]float64, t.Len())
	nRads := make([]float64, t.Len())
	for i := range nSites {
		nSites[i], nRads[i] = float64(t.NSites[i]), float64(t.NRads[i])
		if !t.IsSet(i) {
			nSites[i], nRads[i] = math.NaN(), math.NaN()
		}
	}
	if err := writeByteVar(f.File, "number_of_sites", flatten(scatter(g, nSites))); err != nil {
		return err
	}
	if err := writeVar(f.File, "number_of_radials", encodeScaled(flatten(scatter(g, nRads)), 1)); err != nil {
		return err
	}

	return writeCoords(f.File, g, t.T.Unix())
}

// maskByHDOP returns u/v with any cell whose HDOP exceeds the threshold
// replaced by NaN (so it lands on the fill value), without mutating t.
func maskByHDOP(t *Total, maxHDOP float64) (u, v []float64) {
	u = make([]float64, t.Len())
	v = make([]float64, t.Len())
	copy(u, t.U)
	copy(v, t.V)
	for i := range u {
		if t.HDOP[i] > maxHDOP {
			u[i], v[i] = math.NaN(), math.NaN()
		}
	}
	return u, v
}

func writeByteVar(f *cdf.File, name string, values []float64) error {
	out := make([]uint8, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = uint8(fillByte)
			continue
		}
		out[i] = uint8(v)
	}
	return writeVar(f, name, out)
}

// WriteNetCDFAvg exports an STC/LTA Avg as a CF-1.7/ACDD-1.3 file with the
// aggregate variable set: <u|v>_mean, <u|v>_var (scale 0.0001), <u|v>_min,
// <u|v>_max, and n_obs.
func WriteNetCDFAvg(path string, a *Avg, g *grid.Grid) error {
	h := commonHeader(g)
	for _, p := range []string{"u", "v"} {
		addScaledVariable(h, p+"_mean", "m s-1")
		h.AddVariable(p+"_var", []string{"time", "lat", "lon"}, []int16{0})
		h.AddAttribute(p+"_var", "scale_factor", []float64{0.0001})
		h.AddAttribute(p+"_var", "_FillValue", []int16{fillShort})
		addScaledVariable(h, p+"_min", "m s-1")
		addScaledVariable(h, p+"_max", "m s-1")
	}
	h.AddVariable("n_obs", []string{"time", "lat", "lon"}, []int16{0})
	h.AddAttribute("n_obs", "_FillValue", []int16{fillShort})
	h.Define()

	f, err := create(path, h)
	if err != nil {
		return err
	}
	defer f.Close()

	fields := map[string][]float64{
		"u_mean": a.UAvg, "v_mean": a.VAvg,
		"u_min": a.UMin, "v_min": a.VMin,
		"u_max": a.UMax, "v_max": a.VMax,
	}
	for name, vals := range fields {
		if err := writeVar(f.File, name, encodeScaled(flatten(scatter(g, vals)), 0.01)); err != nil {
			return err
		}
	}
	for name, vals := range map[string][]float64{"u_var": a.UVar, "v_var": a.VVar} {
		if err := writeVar(f.File, name, encodeScaled(flatten(scatter(g, vals)), 0.0001)); err != nil {
			return err
		}
	}

	nObs := make([]float64, a.Len())
	for i := range nObs {
		if a.IsSet(i) {
			nObs[i] = float64(a.NGood[i])
		} else {
			nObs[i] = math.NaN()
		}
	}
	if err := writeVar(f.File, "n_obs", encodeScaled(flatten(scatter(g, nObs)), 1)); err != nil {
		return err
	}

	return writeCoords(f.File, g, a.T.Unix())
}

// netcdfFile wraps *cdf.File alongside the OS file so both can be closed
// together, matching vargrid.go's Create-then-defer-Close pattern.
type netcdfFile struct {
	*cdf.File
	osFile *os.File
}

func (f *netcdfFile) Close() error {
	if err := cdf.UpdateNumRecs(f.osFile); err != nil {
		f.osFile.Close()
		return err
	}
	return f.osFile.Close()
}

func create(path string, h *cdf.Header) (*netcdfFile, error) {
	osf, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("total: creating %s: %w", path, err)
	}
	f, err := cdf.Create(osf, h)
	if err != nil {
		osf.Close()
		return nil, fmt.Errorf("total: writing netcdf header to %s: %w", path, err)
	}
	return &netcdfFile{File: f, osFile: osf}, nil
}
