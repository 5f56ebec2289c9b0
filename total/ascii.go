package total

import (
	"bufio"
	"fmt"
	"math"
	"os"
)

// asciiFormat matches saveAscii.py's np.savetxt fmt string exactly:
// 8-wide 4-decimal latitude, 9-wide 4-decimal longitude, two 7-wide
// 0-decimal velocity components.
const asciiFormat = "%8.4f %9.4f %7.0f %7.0f\n"

// WriteASCIIRTV exports an RTV Total's four columns (lat, lon, u, v),
// filtering by the RTV-specific ASCII HDOP threshold (which may be
// stricter than the threshold already applied by the solver).
func WriteASCIIRTV(path string, t *Total, maxHDOPASCII float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("total: creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i := 0; i < t.Len(); i++ {
		if !t.IsSet(i) || t.HDOP[i] > maxHDOPASCII {
			continue
		}
		if _, err := fmt.Fprintf(w, asciiFormat, t.OceanLat[i], t.OceanLon[i], t.U[i], t.V[i]); err != nil {
			return fmt.Errorf("total: writing %s: %w", path, err)
		}
	}
	return w.Flush()
}

// WriteASCIIAvg exports an STC/LTA Avg's four columns (lat, lon, uAvg,
// vAvg), filtering to cells where uAvg is finite.
func WriteASCIIAvg(path string, a *Avg) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("total: creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i := 0; i < a.Len(); i++ {
		if math.IsNaN(a.UAvg[i]) {
			continue
		}
		if _, err := fmt.Fprintf(w, asciiFormat, a.OceanLat[i], a.OceanLon[i], a.UAvg[i], a.VAvg[i]); err != nil {
			return fmt.Errorf("total: writing %s: %w", path, err)
		}
	}
	return w.Flush()
}
