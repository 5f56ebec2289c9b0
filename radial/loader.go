package radial

import (
	"fmt"

	"github.com/ioos/hfrnet-totals/config"
	"github.com/ioos/hfrnet-totals/grid"
)

// PriorSite carries the (patterntype, useMinute) a prior persisted total
// used for one site, for the beam-pattern consistency override.
type PriorSite struct {
	Network, Site string
	PatternType   string
	UseMinute     int
}

// ApplyBeamPatternConsistency overrides cfg's beampattern/usemin with the
// values a previously-persisted total recorded for the same site, so a
// merge always compares like data. Returns the possibly-adjusted config and
// whether an override happened (callers log a warning when it did).
func ApplyBeamPatternConsistency(cfg config.SiteConfig, priors []PriorSite) (config.SiteConfig, bool) {
	for _, p := range priors {
		if p.Network != cfg.Network || p.Site != cfg.Name {
			continue
		}
		bp, err := config.BeamPatternFromCode(p.PatternType)
		if err != nil {
			continue
		}
		changed := bp != cfg.BeamPattern || p.UseMinute != cfg.UseMinute
		cfg.BeamPattern = bp
		cfg.UseMinute = p.UseMinute
		return cfg, changed
	}
	return cfg, false
}

// Source is everything the loader needs to build one Record: a candidate's
// location/identity, the parser to read its file with, and its site
// configuration.
type Source struct {
	Network, Site               string
	SiteLatitude, SiteLongitude float64
	PatternType                 string
	UseMinute                   int
	Manufacturer                string
	File, Dir                   string
	IsNew                       bool

	// RangeRes/RangeBinEnd describe the site's radar coverage, consumed by
	// PruneByOverlap via radial.Site -- not persisted on the resulting
	// Record, which only carries the parsed/derived observation data.
	RangeRes, RangeBinEnd float64
}

// Load reads and derives-and-filters one radial source into a Record. It
// applies the derivation rules of  (heading from geodesic
// bearing when absent, speed from VELU/VELV when absent), then the
// vflag/speed-cap/landmask filters in order, and returns a *DataError when
// the source's file contains too few usable points to be worth keeping (0
// points after filtering).
func Load(src Source, p Parser, maxRadSpeed float64, lm *grid.Landmask) (Record, FilterResult, error) {
	parsed, err := p.Parse(src.File)
	if err != nil {
		return Record{}, FilterResult{}, fmt.Errorf("radial: Load: %v", err)
	}

	if len(parsed.Heading) == 0 && len(parsed.Latitude) > 0 {
		parsed.Heading = DeriveHeading(parsed.Latitude, parsed.Longitude, src.SiteLatitude, src.SiteLongitude)
	}
	if len(parsed.Speed) == 0 && len(parsed.VELU) > 0 {
		parsed.Speed = DeriveSpeedFromComponents(parsed.VELU, parsed.VELV, parsed.Heading)
	}

	result := ApplyFilters(&parsed, maxRadSpeed, lm)

	maxRange := 0.0
	for _, r := range parsed.Range {
		if r > maxRange {
			maxRange = r
		}
	}

	rec := Record{
		IsNew:          src.IsNew,
		Network:        src.Network,
		Site:           src.Site,
		SiteLatitude:   src.SiteLatitude,
		SiteLongitude:  src.SiteLongitude,
		PatternType:    src.PatternType,
		UseMinute:      src.UseMinute,
		Manufacturer:   src.Manufacturer,
		File:           src.File,
		Dir:            src.Dir,
		Latitude:       parsed.Latitude,
		Longitude:      parsed.Longitude,
		Speed:          parsed.Speed,
		Heading:        parsed.Heading,
		Range:          parsed.Range,
		VFlag:          parsed.VFlag,
		MaxRange:       maxRange,
	}

	if rec.Len() == 0 {
		return rec, result, &DataError{Msg: fmt.Sprintf("%s: no usable points remain after filtering", src.File)}
	}
	return rec, result, nil
}
