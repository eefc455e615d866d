// # internal/core/config/config.go
package config

import (
	"runtime"
	"time"
)

const DefaultFileName = "wlscope.toml"

type Config struct {
	Version       int           `toml:"version"`
	Paths         Paths         `toml:"paths"`
	Analysis      Analysis      `toml:"analysis"`
	Exclude       Exclude       `toml:"exclude"`
	Output        Output        `toml:"output"`
	DB            Database      `toml:"db"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
	Log           Log           `toml:"log"`
}

type Paths struct {
	ProjectRoot string `toml:"project_root"`
	StateDir    string `toml:"state_dir"`
}

type Analysis struct {
	Extensions    []string `toml:"extensions"`
	Workers       int      `toml:"workers"`
	MaxFileBytes  int64    `toml:"max_file_bytes"`
	ResultCache   int      `toml:"result_cache"`
	DisabledRules []string `toml:"disabled_rules"`
	MinSeverity   string   `toml:"min_severity"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Output struct {
	Format string `toml:"format"`
	Path   string `toml:"path"`
}

type Database struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	ProjectKey  string        `toml:"project_key"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
	RetainRuns  int           `toml:"retain_runs"`
}

type Watch struct {
	Debounce           time.Duration `toml:"debounce"`
	MaxEventsPerSecond float64       `toml:"max_events_per_second"`
	Burst              int           `toml:"burst"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	MetricsAddr   string `toml:"metrics_addr"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
}

type Log struct {
	File       string `toml:"file"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n > 8 {
		return 8
	}
	return n
}
