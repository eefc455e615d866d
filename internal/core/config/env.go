package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: WLSCOPE_[SECTION]_[KEY] (e.g., WLSCOPE_ANALYSIS_WORKERS).
func ApplyEnvOverrides(cfg *Config) {
	// Paths
	setEnvString(&cfg.Paths.ProjectRoot, "WLSCOPE_PATHS_PROJECT_ROOT")
	setEnvString(&cfg.Paths.StateDir, "WLSCOPE_PATHS_STATE_DIR")

	// Analysis
	setEnvList(&cfg.Analysis.Extensions, "WLSCOPE_ANALYSIS_EXTENSIONS")
	setEnvInt(&cfg.Analysis.Workers, "WLSCOPE_ANALYSIS_WORKERS")
	setEnvInt64(&cfg.Analysis.MaxFileBytes, "WLSCOPE_ANALYSIS_MAX_FILE_BYTES")
	setEnvInt(&cfg.Analysis.ResultCache, "WLSCOPE_ANALYSIS_RESULT_CACHE")
	setEnvList(&cfg.Analysis.DisabledRules, "WLSCOPE_ANALYSIS_DISABLED_RULES")
	setEnvString(&cfg.Analysis.MinSeverity, "WLSCOPE_ANALYSIS_MIN_SEVERITY")

	// Output
	setEnvString(&cfg.Output.Format, "WLSCOPE_OUTPUT_FORMAT")
	setEnvString(&cfg.Output.Path, "WLSCOPE_OUTPUT_PATH")

	// Database
	setEnvBool(&cfg.DB.Enabled, "WLSCOPE_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "WLSCOPE_DB_PATH")
	setEnvString(&cfg.DB.ProjectKey, "WLSCOPE_DB_PROJECT_KEY")
	setEnvDuration(&cfg.DB.BusyTimeout, "WLSCOPE_DB_BUSY_TIMEOUT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "WLSCOPE_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.MaxEventsPerSecond, "WLSCOPE_WATCH_MAX_EVENTS_PER_SECOND")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "WLSCOPE_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.MetricsAddr, "WLSCOPE_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "WLSCOPE_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "WLSCOPE_OBSERVABILITY_ENABLE_TRACING")

	// Log
	setEnvString(&cfg.Log.File, "WLSCOPE_LOG_FILE")
	setEnvString(&cfg.Log.Level, "WLSCOPE_LOG_LEVEL")
}

func logOverride(key, val string) {
	slog.Debug("applying env override", "key", key, "value", val)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		logOverride(key, val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		var items []string
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		logOverride(key, val)
		*target = items
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			logOverride(key, val)
			*target = i
		}
	}
}

func setEnvInt64(target *int64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			logOverride(key, val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			logOverride(key, val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			logOverride(key, val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			logOverride(key, val)
			*target = d
		}
	}
}
