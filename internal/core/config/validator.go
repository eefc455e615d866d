package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"wlscope/internal/core/config/helpers"
	apperrors "wlscope/internal/core/errors"
)

var (
	validFormats    = []string{"text", "json", "yaml", "sarif"}
	validLevels     = []string{"debug", "info", "warn", "error"}
	validSeverities = []string{"note", "warning", "error"}
	ruleIDPattern   = glob.MustCompile("WL[0-9][0-9][0-9]")
)

// Validate returns every problem found in cfg.
func Validate(cfg *Config) []error {
	var errs []error

	if err := validateVersion(cfg); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, validateAnalysis(cfg)...)
	errs = append(errs, validateExclude(cfg)...)
	if err := validateOutput(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateDatabase(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateWatch(cfg); err != nil {
		errs = append(errs, err)
	}
	if err := validateLog(cfg); err != nil {
		errs = append(errs, err)
	}

	// Cross-field validation
	errs = append(errs, validateConfigDependencies(cfg)...)
	return errs
}

func joinErrors(errs []error) error {
	return apperrors.Wrap(errors.Join(errs...), apperrors.CodeValidationError, "invalid configuration")
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateAnalysis(cfg *Config) []error {
	var errs []error
	a := cfg.Analysis
	for i, ext := range a.Extensions {
		if ext == "" || ext == "." || strings.ContainsAny(ext, `/\`) {
			errs = append(errs, fmt.Errorf("analysis.extensions[%d] %q is not a file extension", i, ext))
		}
	}
	if a.Workers < 1 {
		errs = append(errs, fmt.Errorf("analysis.workers must be >= 1, got %d", a.Workers))
	}
	if a.MaxFileBytes < 1 {
		errs = append(errs, fmt.Errorf("analysis.max_file_bytes must be >= 1, got %d", a.MaxFileBytes))
	}
	for i, id := range a.DisabledRules {
		if !ruleIDPattern.Match(id) {
			errs = append(errs, fmt.Errorf("analysis.disabled_rules[%d] %q is not a rule id", i, id))
		}
	}
	if !contains(validSeverities, a.MinSeverity) {
		errs = append(errs, fmt.Errorf("analysis.min_severity must be one of: %s", strings.Join(validSeverities, ", ")))
	}
	return errs
}

func validateExclude(cfg *Config) []error {
	var errs []error
	check := func(section string, patterns []string) {
		for i, p := range patterns {
			if strings.TrimSpace(p) == "" {
				errs = append(errs, fmt.Errorf("exclude.%s[%d] must not be empty", section, i))
				continue
			}
			if !helpers.HasWildcard(p) {
				continue
			}
			if _, err := glob.Compile(p); err != nil {
				errs = append(errs, fmt.Errorf("exclude.%s[%d] %q is not a valid pattern: %w", section, i, p, err))
			}
		}
	}
	check("dirs", cfg.Exclude.Dirs)
	check("files", cfg.Exclude.Files)
	return errs
}

func validateOutput(cfg *Config) error {
	if !contains(validFormats, cfg.Output.Format) {
		return fmt.Errorf("output.format must be one of: %s, got %q", strings.Join(validFormats, ", "), cfg.Output.Format)
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if !cfg.DB.Enabled {
		return nil
	}
	if cfg.DB.Path == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	if cfg.DB.RetainRuns < 0 {
		return fmt.Errorf("db.retain_runs must be >= 0, got %d", cfg.DB.RetainRuns)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

func validateLog(cfg *Config) error {
	if !contains(validLevels, cfg.Log.Level) {
		return fmt.Errorf("log.level must be one of: %s", strings.Join(validLevels, ", "))
	}
	return nil
}

func validateConfigDependencies(cfg *Config) []error {
	var errs []error
	if cfg.Observability.EnableTracing && strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		errs = append(errs, fmt.Errorf("observability.enable_tracing requires observability.otlp_endpoint"))
	}
	if cfg.DB.Enabled && cfg.Log.File != "" {
		if helpers.IsPathOverlap(filepath.Clean(cfg.DB.Path), filepath.Clean(cfg.Log.File)) {
			errs = append(errs, fmt.Errorf("log.file %q overlaps db.path %q", cfg.Log.File, cfg.DB.Path))
		}
	}
	if cfg.Output.Path != "" && cfg.Output.Path == cfg.Log.File {
		errs = append(errs, fmt.Errorf("output conflict: output.path and log.file share the same path %q", cfg.Output.Path))
	}
	return errs
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
