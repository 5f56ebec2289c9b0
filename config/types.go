// Package config holds the typed, tagged-union configuration schema for
// hfrnet-totals, replacing the "dynamic pseudo-struct dictionaries" the
// source system uses throughout.
//
// Grounded on spatialmodel-inmap/inmaputil/config.go and cmd.go (a Cfg
// struct embedding *viper.Viper, github.com/spf13/cast for permissive
// value coercion).
package config

import (
	"strings"
	"time"
)

// Normalize lower-cases a domain or resolution name for consistent lookup.
func Normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// ProcessConfig is the tagged union of per-process configuration
// (RtvCfg | StcCfg | LtaCfg), replacing string-keyed lookups into a shared
// dictionary.
type ProcessConfig interface {
	// Kind returns the process name: "rtv", "stc", or "lta".
	Kind() string
	// Method returns the solving method; only "uwls" is supported.
	Method() string
	SaveAsFormats() []string
}

// RtvCfg configures Real-Time Vector processing.
type RtvCfg struct {
	MethodName string // must be "uwls"
	SaveAs     []string

	MinRadials         int     // minimum radials per cell
	MinRadSites        int     // minimum contributing sites per cell
	MaxRadSpeed        float64 // cm/s, radial speed cap
	MaxRTVSpeed        float64 // cm/s, solved total speed cap
	UWLSMaxHDOP        float64 // cell solution HDOP cap
	UWLSMaxHDOPASCII   float64 // ASCII export HDOP cap
	UWLSMaxHDOPNetCDF  float64 // NetCDF export HDOP cap
	GridSearchRadiusKM float64
	MaxAgeHours        int // drop hours older than this
}

func (RtvCfg) Kind() string               { return "rtv" }
func (c RtvCfg) Method() string           { return c.MethodName }
func (c RtvCfg) SaveAsFormats() []string  { return c.SaveAs }

// StcCfg configures Sub-Tidal Current (25-hour average) processing.
type StcCfg struct {
	MethodName string
	SaveAs     []string

	MaxError            float64 // HDOP threshold
	MinTemporalCoverage int     // minimum hourly files required in window
	MaxAgeHours         int     // rtv output directory mtime-scan horizon, normal mode only
}

func (StcCfg) Kind() string              { return "stc" }
func (c StcCfg) Method() string          { return c.MethodName }
func (c StcCfg) SaveAsFormats() []string { return c.SaveAs }

// LtaCfg configures Long-Term Average (monthly/annual) processing.
type LtaCfg struct {
	MethodName string
	SaveAs     []string

	MaxError                 float64
	MonthlyMinMonthDay       int
	MinMonthTemporalCoverage float64 // days of coverage required per cell; times 24 gives the hour count
	MinYearTemporalCoverage  float64 // days of coverage required per cell; times 24 gives the hour count
	AnnualMinDate            time.Time
}

func (LtaCfg) Kind() string              { return "lta" }
func (c LtaCfg) Method() string          { return c.MethodName }
func (c LtaCfg) SaveAsFormats() []string { return c.SaveAs }

// RunMode is the first-class replacement for the source system's mutable
// "reprocess" side-channel on the configuration object.
type RunMode struct {
	Reprocess *Reprocess // nil for normal (near-real-time) processing
}

// Reprocess carries the explicit times to (re)process and whether process
// locking should still be acquired.
type Reprocess struct {
	Times []time.Time
	Lock  bool

	// NewRTVFiles is populated by the RTV pipeline after it runs, and
	// consumed by the STC/LTA pipelines so they only aggregate what
	// changed.
	NewRTVFiles []time.Time
}

func (m RunMode) IsReprocess() bool { return m.Reprocess != nil }

// DBConfig describes a database connection target (catalog or
// configuration database).
type DBConfig struct {
	Driver       string
	DSN          string
	LoginTimeout time.Duration
	ReadOnly     bool
}
