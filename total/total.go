// Package total holds the per-cell total-vector field type persisted by
// every pipeline (RTV/STC/LTA), its one-pass sum/average accumulator, and
// the three output formats: a gob-encoded MAT-equivalent binary (the merge
// authority), a 4-column ASCII export, and a CF-1.7/ACDD-1.3 NetCDF file.
//
// Grounded on original_source/.../saveMat.py, saveAscii.py,
// rtvSaveNetcdf.py (field-dropping convention and the three output
// formats) and spatialmodel-inmap/vargrid.go's cdf.File writer shape.
package total

import (
	"fmt"
	"math"
	"time"

	"github.com/ioos/hfrnet-totals/radial"
)

// FormatVersion is written into every NetCDF file as the format_version
// global attribute; the gob-encoded binaries do not carry it.
const FormatVersion = "1.1.00"

// HistoryEntry records one processing event applied to a Total.
type HistoryEntry struct {
	Timestamp time.Time
	Program   string
	User      string
	Message   string
}

// Total is a fused total-vector field for one processing hour (RTV), or
// one centered 25-hour window (STC), or one monthly/annual average (LTA).
// Per-cell slices are co-indexed with the originating grid's OceanIndices;
// an unset cell carries NaN in U/V.
type Total struct {
	Domain, Resolution string
	T                  time.Time

	OceanLat, OceanLon []float64

	U, V       []float64
	DOPX, DOPY []float64
	HDOP       []float64
	NRads      []int
	NSites     []int

	// Radials is the contributing radial set for this total, persisted
	// alongside it so a later merge can union against it -- the prior
	// total file is the merge authority for both U and r together,
	// matching saveMat.py saving {U, r} into one file.
	Radials []radial.Record

	History []HistoryEntry
}

// New allocates a Total with every cell unset (U/V = NaN).
func New(domain, resolution string, t time.Time, oceanLat, oceanLon []float64) *Total {
	n := len(oceanLat)
	tt := &Total{
		Domain: domain, Resolution: resolution, T: t,
		OceanLat: oceanLat, OceanLon: oceanLon,
		U: make([]float64, n), V: make([]float64, n),
		DOPX: make([]float64, n), DOPY: make([]float64, n),
		HDOP:   make([]float64, n),
		NRads:  make([]int, n),
		NSites: make([]int, n),
	}
	for i := 0; i < n; i++ {
		tt.U[i] = math.NaN()
		tt.V[i] = math.NaN()
		tt.DOPX[i] = math.NaN()
		tt.DOPY[i] = math.NaN()
		tt.HDOP[i] = math.NaN()
	}
	return tt
}

// Len reports the number of ocean cells.
func (t *Total) Len() int { return len(t.OceanLat) }

// IsSet reports whether cell i carries a solved value.
func (t *Total) IsSet(i int) bool { return !math.IsNaN(t.U[i]) }

// SetCell records a UWLS solution at cell i. A positive nRads with zero
// nSites is an InvariantViolation; no other combination is rejected.
func (t *Total) SetCell(i int, u, v, dopx, dopy, hdop float64, nRads, nSites int) error {
	if nRads > 0 && nSites == 0 {
		return &InvariantViolation{Msg: fmt.Sprintf("cell %d: nRads=%d set without nSites", i, nRads)}
	}
	t.U[i], t.V[i], t.DOPX[i], t.DOPY[i], t.HDOP[i] = u, v, dopx, dopy, hdop
	t.NRads[i], t.NSites[i] = nRads, nSites
	return nil
}

// ClearCell marks cell i as unset.
func (t *Total) ClearCell(i int) {
	t.U[i], t.V[i], t.DOPX[i], t.DOPY[i], t.HDOP[i] = math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()
	t.NRads[i], t.NSites[i] = 0, 0
}

// CountSet returns the number of solved cells.
func (t *Total) CountSet() int {
	n := 0
	for i := range t.U {
		if t.IsSet(i) {
			n++
		}
	}
	return n
}

// InitHistory records the first history line for a Total with no prior
// run: "Saving N new solutions".
func (t *Total) InitHistory(program, user string, now time.Time, n int) {
	t.History = append(t.History, HistoryEntry{
		Timestamp: now, Program: program, User: user,
		Message: fmt.Sprintf("Saving %d new solutions", n),
	})
}

// AppendMergeHistory records a merge-run history line:
// "Saving T solutions; N new or updated, K unmodified from previous run(s)".
func (t *Total) AppendMergeHistory(program, user string, now time.Time, total, newOrUpdated, unmodified int) {
	t.History = append(t.History, HistoryEntry{
		Timestamp: now, Program: program, User: user,
		Message: fmt.Sprintf("Saving %d solutions; %d new or updated, %d unmodified from previous run(s)", total, newOrUpdated, unmodified),
	})
}

// InvariantViolation reports a fatal structural inconsistency in a Total.
type InvariantViolation struct{ Msg string }

func (e *InvariantViolation) Error() string { return "total: invariant violation: " + e.Msg }

// DataError reports a non-fatal problem reading a persisted total (missing
// file, corrupt binary).
type DataError struct{ Msg string }

func (e *DataError) Error() string { return "total: data error: " + e.Msg }
