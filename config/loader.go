package config

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Loader reads the on-disk/environment configuration for one
// (domain, resolution) pipeline, grounded on
// spatialmodel-inmap/inmaputil/config.go's Cfg struct, which embeds
// *viper.Viper and leans on github.com/spf13/cast for permissive decoding
// of configuration values.
type Loader struct {
	*viper.Viper
}

// NewLoader returns a Loader reading from the given config file path (may
// be empty to rely solely on defaults/environment), with environment
// variables prefixed HFRNET_ overriding file values.
func NewLoader(configFile string) (*Loader, error) {
	v := viper.New()
	v.SetEnvPrefix("HFRNET")
	v.AutomaticEnv()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config.NewLoader: reading %s: %w", configFile, err)
		}
	}
	return &Loader{Viper: v}, nil
}

// DomainResolution is a (domain, resolution) name pair.
type DomainResolution struct {
	Domain, Resolution string
}

// LogConfig returns the logging sink configuration.
type LogConfig struct {
	File           string
	Level          string
	CmdWinLogLevel string
}

func (l *Loader) Log() LogConfig {
	return LogConfig{
		File:           l.GetString("log.file"),
		Level:          defaultString(l.GetString("log.level"), "info"),
		CmdWinLogLevel: defaultString(l.GetString("log.cmdWinLogLevel"), "off"),
	}
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// LockFile returns the configured single-writer lock file path for
// (domain, resolution).
func (l *Loader) LockFile(domain, resolution string) string {
	key := fmt.Sprintf("lock.file")
	if l.IsSet(key) {
		return l.GetString(key)
	}
	return fmt.Sprintf("/var/run/hfrnet-totals/%s_%s.lock", Normalize(domain), Normalize(resolution))
}

// OutputDir returns the base directory total-file paths are rooted at.
func (l *Loader) OutputDir() string {
	return defaultString(l.GetString("output.dir"), "/var/lib/hfrnet-totals")
}

// GridFile returns the configured grid-definition NetCDF path for
// (domain, resolution).
func (l *Loader) GridFile(domain, resolution string) string {
	key := fmt.Sprintf("grid.%s.%s.file", Normalize(domain), Normalize(resolution))
	if l.IsSet(key) {
		return l.GetString(key)
	}
	return fmt.Sprintf("/etc/hfrnet-totals/grid/%s_%s.nc", Normalize(domain), Normalize(resolution))
}

// LandmaskFile returns the configured land-polygon NetCDF path for domain.
func (l *Loader) LandmaskFile(domain string) string {
	key := fmt.Sprintf("grid.%s.landmask", Normalize(domain))
	if l.IsSet(key) {
		return l.GetString(key)
	}
	return fmt.Sprintf("/etc/hfrnet-totals/grid/%s_landmask.nc", Normalize(domain))
}

// RadialDB returns the catalog database connection configuration.
func (l *Loader) RadialDB() DBConfig {
	return l.dbConfig("raddb")
}

// ConfDB returns the configuration database connection configuration.
func (l *Loader) ConfDB() DBConfig {
	return l.dbConfig("confdb")
}

func (l *Loader) dbConfig(prefix string) DBConfig {
	timeoutSec := l.GetInt(prefix + ".logintimeout")
	if timeoutSec == 0 {
		timeoutSec = 5
	}
	return DBConfig{
		Driver:       defaultString(l.GetString(prefix+".driver"), "sqlite"),
		DSN:          l.GetString(prefix + ".url"),
		LoginTimeout: time.Duration(timeoutSec) * time.Second,
	}
}

// RtvCfg decodes the rtv.* configuration block for a domain/resolution.
func (l *Loader) RtvCfg() (RtvCfg, error) {
	c := RtvCfg{
		MethodName:         defaultString(l.GetString("rtv.method"), "uwls"),
		SaveAs:             cast.ToStringSlice(l.Get("rtv.save_as")),
		MinRadials:         l.GetInt("rtv.min_radials"),
		MinRadSites:        l.GetInt("rtv.min_rad_sites"),
		MaxRadSpeed:        cast.ToFloat64(l.Get("rtv.max_rad_speed")),
		MaxRTVSpeed:        cast.ToFloat64(l.Get("rtv.max_rtv_speed")),
		UWLSMaxHDOP:        cast.ToFloat64(l.Get("rtv.uwls_max_hdop")),
		UWLSMaxHDOPASCII:   cast.ToFloat64(l.Get("rtv.uwls_max_hdop_ascii")),
		UWLSMaxHDOPNetCDF:  cast.ToFloat64(l.Get("rtv.uwls_max_hdop_nc")),
		GridSearchRadiusKM: cast.ToFloat64(l.Get("rtv.grid_search_radius")),
		MaxAgeHours:        l.GetInt("rtv.max_age"),
	}
	if c.Method() != "uwls" {
		return RtvCfg{}, &ConfigError{Msg: fmt.Sprintf("unsupported rtv method %q; only uwls is supported", c.Method())}
	}
	return c, nil
}

// StcCfg decodes the stc.* configuration block.
func (l *Loader) StcCfg() (StcCfg, error) {
	c := StcCfg{
		MethodName:          defaultString(l.GetString("stc.method"), "uwls"),
		SaveAs:              cast.ToStringSlice(l.Get("stc.save_as")),
		MaxError:            cast.ToFloat64(l.Get("stc.max_error")),
		MinTemporalCoverage: l.GetInt("stc.min_temporal_coverage"),
		MaxAgeHours:         l.GetInt("stc.max_age"),
	}
	if c.Method() != "uwls" {
		return StcCfg{}, &ConfigError{Msg: fmt.Sprintf("unsupported stc method %q; only uwls is supported", c.Method())}
	}
	return c, nil
}

// LtaCfg decodes the lta.* configuration block.
func (l *Loader) LtaCfg() (LtaCfg, error) {
	c := LtaCfg{
		MethodName:               defaultString(l.GetString("lta.method"), "uwls"),
		SaveAs:                   cast.ToStringSlice(l.Get("lta.save_as")),
		MaxError:                 cast.ToFloat64(l.Get("lta.max_error")),
		MonthlyMinMonthDay:       l.GetInt("lta.monthly_min_month_day"),
		MinMonthTemporalCoverage: cast.ToFloat64(l.Get("lta.min_month_temporal_coverage")),
		MinYearTemporalCoverage:  cast.ToFloat64(l.Get("lta.min_year_temporal_coverage")),
	}
	if d := l.GetString("lta.annual_min_date"); d != "" {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			return LtaCfg{}, fmt.Errorf("config.LtaCfg: parsing lta.annual_min_date: %w", err)
		}
		c.AnnualMinDate = t
	}
	if c.Method() != "uwls" {
		return LtaCfg{}, &ConfigError{Msg: fmt.Sprintf("unsupported lta method %q; only uwls is supported", c.Method())}
	}
	return c, nil
}

// processEntry mirrors one element of the "processes" configuration list.
type processEntry struct {
	Name        string   `mapstructure:"name"`
	Method      string   `mapstructure:"method"`
	Description string   `mapstructure:"description"`
	SaveAs      []string `mapstructure:"save_as"`
}

// Processes decodes the ordered "processes" list into the tagged
// ProcessConfig union, preserving configuration order.
func (l *Loader) Processes() ([]ProcessConfig, error) {
	var entries []processEntry
	if err := l.UnmarshalKey("processes", &entries); err != nil {
		return nil, fmt.Errorf("config.Processes: %w", err)
	}
	var out []ProcessConfig
	for _, e := range entries {
		switch Normalize(e.Name) {
		case "rtv":
			c, err := l.RtvCfg()
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		case "stc":
			c, err := l.StcCfg()
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		case "lta":
			c, err := l.LtaCfg()
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		default:
			return nil, &ConfigError{Msg: fmt.Sprintf("unrecognized process name %q", e.Name)}
		}
	}
	return out, nil
}
