package grid

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"
)

// LoadNetCDF reads a grid definition file and constructs a Grid, generating
// each ocean cell's small-circle search polygon at searchRadiusKM.
//
// The file is expected to carry the global attributes "x_range", "y_range",
// "dx", "dy", "size" (length-2: M, N) and the co-indexed variables
// "ocean_indices", "ocean_lon", "ocean_lat" -- the same ocean-cell
// bookkeeping total.WriteNetCDF scatters values back onto via
// grid.Grid.OceanIndices, read in reverse here.
func LoadNetCDF(path, domain, resolution string, searchRadiusKM float64) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("grid.LoadNetCDF: %v", err)
	}
	defer f.Close()

	nc, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("grid.LoadNetCDF: %v", err)
	}

	xRange, err := globalFloat2(nc, "x_range")
	if err != nil {
		return nil, err
	}
	yRange, err := globalFloat2(nc, "y_range")
	if err != nil {
		return nil, err
	}
	dx, err := globalFloat(nc, "dx")
	if err != nil {
		return nil, err
	}
	dy, err := globalFloat(nc, "dy")
	if err != nil {
		return nil, err
	}
	size, err := globalInt2(nc, "size")
	if err != nil {
		return nil, err
	}

	oceanIndices, err := readInts(nc, "ocean_indices")
	if err != nil {
		return nil, err
	}
	oceanLon, err := readFloats(nc, "ocean_lon")
	if err != nil {
		return nil, err
	}
	oceanLat, err := readFloats(nc, "ocean_lat")
	if err != nil {
		return nil, err
	}

	return NewGrid(domain, resolution, xRange, yRange, dx, dy, size, oceanIndices, oceanLon, oceanLat, searchRadiusKM)
}

func readFloats(nc *cdf.File, v string) ([]float64, error) {
	dims := nc.Header.Lengths(v)
	n := 1
	for _, d := range dims {
		n *= d
	}
	out := make([]float64, n)
	r := nc.Reader(v, nil, nil)
	if _, err := r.Read(out); err != nil {
		return nil, fmt.Errorf("grid.LoadNetCDF: reading %s: %v", v, err)
	}
	return out, nil
}

func readInts(nc *cdf.File, v string) ([]int, error) {
	dims := nc.Header.Lengths(v)
	n := 1
	for _, d := range dims {
		n *= d
	}
	tmp := make([]int32, n)
	r := nc.Reader(v, nil, nil)
	if _, err := r.Read(tmp); err != nil {
		return nil, fmt.Errorf("grid.LoadNetCDF: reading %s: %v", v, err)
	}
	out := make([]int, n)
	for i, x := range tmp {
		out[i] = int(x)
	}
	return out, nil
}

func globalFloat(nc *cdf.File, name string) (float64, error) {
	v, ok := nc.Header.GetAttribute("", name).([]float64)
	if !ok || len(v) < 1 {
		return 0, fmt.Errorf("grid.LoadNetCDF: missing or malformed global attribute %q", name)
	}
	return v[0], nil
}

func globalFloat2(nc *cdf.File, name string) ([2]float64, error) {
	v, ok := nc.Header.GetAttribute("", name).([]float64)
	if !ok || len(v) < 2 {
		return [2]float64{}, fmt.Errorf("grid.LoadNetCDF: missing or malformed global attribute %q", name)
	}
	return [2]float64{v[0], v[1]}, nil
}

func globalInt2(nc *cdf.File, name string) ([2]int, error) {
	v, ok := nc.Header.GetAttribute("", name).([]int32)
	if !ok || len(v) < 2 {
		return [2]int{}, fmt.Errorf("grid.LoadNetCDF: missing or malformed global attribute %q", name)
	}
	return [2]int{int(v[0]), int(v[1])}, nil
}

// LoadLandmaskNetCDF reads land polygons persisted as a flattened vertex
// list ("land_lon", "land_lat") with a ring-start offset index
// ("land_ring_offsets", one entry per ring plus a final sentinel equal to
// the vertex count), the same ragged-array convention grid NetCDF files
// use for variable-length data with no native NetCDF list type.
func LoadLandmaskNetCDF(path, domain string) (*Landmask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("grid.LoadLandmaskNetCDF: %v", err)
	}
	defer f.Close()

	nc, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("grid.LoadLandmaskNetCDF: %v", err)
	}

	lons, err := readFloats(nc, "land_lon")
	if err != nil {
		return nil, err
	}
	lats, err := readFloats(nc, "land_lat")
	if err != nil {
		return nil, err
	}
	offsets, err := readInts(nc, "land_ring_offsets")
	if err != nil {
		return nil, err
	}
	if len(offsets) < 2 {
		return NewLandmask(domain, nil), nil
	}

	polys := make([]Polygon, 0, len(offsets)-1)
	for i := 0; i < len(offsets)-1; i++ {
		start, end := offsets[i], offsets[i+1]
		if start < 0 || end > len(lons) || start > end {
			return nil, fmt.Errorf("grid.LoadLandmaskNetCDF: malformed ring offsets at index %d", i)
		}
		poly := make(Polygon, 0, end-start)
		for j := start; j < end; j++ {
			poly = append(poly, Point{Lon: lons[j], Lat: lats[j]})
		}
		polys = append(polys, poly)
	}
	return NewLandmask(domain, polys), nil
}
