package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads a TOML file, fills defaults, applies WLSCOPE_* environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decode(path, data)
}

// decode parses data read from path and finishes it like Load.
func decode(path string, data []byte) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}

	return finalize(&cfg)
}

// LoadOrDefault loads path when it exists and falls back to DefaultConfig
// (with environment overrides) otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if strings.TrimSpace(path) != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return finalize(&Config{})
}

func finalize(cfg *Config) (*Config, error) {
	applyDefaults(cfg)
	ApplyEnvOverrides(cfg)
	normalize(cfg)

	if errs := Validate(cfg); len(errs) > 0 {
		return nil, joinErrors(errs)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Paths.StateDir) == "" {
		cfg.Paths.StateDir = ".wlscope"
	}

	if len(cfg.Analysis.Extensions) == 0 {
		cfg.Analysis.Extensions = []string{".wl", ".m", ".wls"}
	}
	if cfg.Analysis.Workers <= 0 {
		cfg.Analysis.Workers = defaultWorkers()
	}
	if cfg.Analysis.MaxFileBytes <= 0 {
		cfg.Analysis.MaxFileBytes = 8 << 20
	}
	if cfg.Analysis.ResultCache == 0 {
		cfg.Analysis.ResultCache = 512
	}
	if strings.TrimSpace(cfg.Analysis.MinSeverity) == "" {
		cfg.Analysis.MinSeverity = "note"
	}

	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{".git", ".wlscope", "node_modules", "build"}
	}

	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "text"
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "history.db"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 2 * time.Second
	}

	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.MaxEventsPerSecond <= 0 {
		cfg.Watch.MaxEventsPerSecond = 2
	}
	if cfg.Watch.Burst <= 0 {
		cfg.Watch.Burst = 1
	}

	if strings.TrimSpace(cfg.Observability.MetricsAddr) == "" {
		cfg.Observability.MetricsAddr = "127.0.0.1:9464"
	}

	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 3
	}
	if cfg.Log.MaxAgeDays <= 0 {
		cfg.Log.MaxAgeDays = 28
	}
}

func normalize(cfg *Config) {
	for i, ext := range cfg.Analysis.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Analysis.Extensions[i] = ext
	}
	for i, id := range cfg.Analysis.DisabledRules {
		cfg.Analysis.DisabledRules[i] = strings.ToUpper(strings.TrimSpace(id))
	}
	cfg.Analysis.MinSeverity = strings.ToLower(strings.TrimSpace(cfg.Analysis.MinSeverity))
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	cfg.Output.Path = strings.TrimSpace(cfg.Output.Path)
	cfg.DB.Path = strings.TrimSpace(cfg.DB.Path)
	cfg.DB.ProjectKey = strings.TrimSpace(cfg.DB.ProjectKey)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.File = strings.TrimSpace(cfg.Log.File)
}
