package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"wlscope/internal/core/config"
	"wlscope/internal/data/history"
	"wlscope/internal/shared/observability"
	"wlscope/internal/shared/version"
)

// environment is the loaded configuration and process-wide setup shared by
// the commands that analyze a project.
type environment struct {
	cfg     *config.Config
	cfgPath string
	paths   config.ResolvedPaths
	logger  *slog.Logger
	closers []func()
}

func setup(ctx context.Context, opts *rootOptions, inputs []string, stderr io.Writer) (*environment, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("detect working directory: %w", err)
	}

	cfg, cfgPath, err := loadConfig(opts.configPath, cwd, inputs)
	if err != nil {
		return nil, err
	}
	paths, err := config.ResolvePaths(cfg, cwd, inputs)
	if err != nil {
		return nil, fmt.Errorf("resolve paths: %w", err)
	}

	env := &environment{cfg: cfg, cfgPath: cfgPath, paths: paths}
	logger, closeLogs := configureLogging(cfg.Log, paths.LogFile, opts.verbose, stderr)
	env.logger = logger
	env.closers = append(env.closers, closeLogs)

	if cfg.Observability.EnableTracing {
		shutdown, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, version.Version)
		if err != nil {
			env.close()
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		env.closers = append(env.closers, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Warn("tracer shutdown failed", "error", err)
			}
		})
	}

	logger.Debug("configuration loaded", "config", cfgPath, "project_root", paths.ProjectRoot, "project_key", paths.ProjectKey)
	return env, nil
}

// close runs the cleanup functions in reverse order.
func (e *environment) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

// loadConfig loads an explicit config path, or wlscope.toml at the detected
// project root when present. Without a file the defaults apply.
func loadConfig(path, cwd string, inputs []string) (*config.Config, string, error) {
	if strings.TrimSpace(path) != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", fmt.Errorf("load config: %w", err)
		}
		return cfg, path, nil
	}

	candidates := make([]string, 0, len(inputs)+1)
	for _, in := range inputs {
		candidates = append(candidates, config.ResolveRelative(cwd, in))
	}
	root, err := config.DetectProjectRoot(append(candidates, cwd))
	if err != nil {
		return nil, "", err
	}
	path = filepath.Join(root, config.DefaultFileName)
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	return cfg, path, nil
}

// configureLogging installs the default slog logger. With a log file the
// output is rotated by lumberjack; otherwise it goes to stderr.
func configureLogging(cfg config.Log, logFile string, verbose bool, stderr io.Writer) (*slog.Logger, func()) {
	level := parseLevel(cfg.Level)
	if verbose {
		level = slog.LevelDebug
	}

	var out io.Writer = stderr
	closeFn := func() {}
	if logFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		out = rotator
		closeFn = func() { _ = rotator.Close() }
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, closeFn
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func parseSince(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, nil
	}

	rfc3339, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return rfc3339.UTC(), nil
	}

	dateOnly, err := time.Parse("2006-01-02", raw)
	if err == nil {
		return dateOnly.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("--since must be RFC3339 or YYYY-MM-DD, got %q", value)
}

func parseHistoryWindow(value string) (time.Duration, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("--window must be a Go duration (example: 24h), got %q", value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("--window must be > 0, got %q", value)
	}
	return d, nil
}

// openHistoryStore opens the run history. A corrupt database is moved aside
// together with its WAL files and replaced by an empty one.
func openHistoryStore(cfg *config.Config, paths config.ResolvedPaths, logger *slog.Logger) (*history.Store, error) {
	store, err := history.OpenWithTimeout(paths.DBPath, cfg.DB.BusyTimeout)
	if err == nil {
		return store, nil
	}
	if !history.IsCorruptError(err) {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	backup := fmt.Sprintf("%s.corrupt-%d", paths.DBPath, time.Now().Unix())
	logger.Warn("history database is corrupt, starting a new one", "path", paths.DBPath, "backup", backup, "error", err)
	if err := moveAside(paths.DBPath, backup); err != nil {
		return nil, fmt.Errorf("move corrupt history store aside: %w", err)
	}
	store, err = history.OpenWithTimeout(paths.DBPath, cfg.DB.BusyTimeout)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	return store, nil
}

func moveAside(path, backup string) error {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Rename(path+suffix, backup+suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}
