package app

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"wlscope/internal/core/config"
	"wlscope/internal/core/ports"
	"wlscope/internal/engine/pipeline"
	"wlscope/internal/engine/source"
	"wlscope/internal/engine/symbols"
	"wlscope/internal/shared/util"
)

// App runs project-wide analyses: it discovers source files, analyzes them
// on a bounded worker pool, and records each run.
type App struct {
	Config *config.Config

	projectRoot string
	projectKey  string
	history     ports.HistoryStore
	logger      *slog.Logger

	registry    *symbols.Registry
	pipeline    *pipeline.Pipeline
	results     *resultCache
	minSeverity source.Severity

	exclude    *util.Excluder
	extensions map[string]bool

	runMu   sync.Mutex
	statsMu sync.RWMutex
	lastRun *RunReport
}

type Option func(*App)

// WithProject sets the project root used for file keys and the key under
// which runs are recorded.
func WithProject(root, key string) Option {
	return func(a *App) {
		a.projectRoot = root
		a.projectKey = key
	}
}

// WithHistory records a snapshot of every run in store.
func WithHistory(store ports.HistoryStore) Option {
	return func(a *App) { a.history = store }
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	minSeverity, ok := source.ParseSeverity(cfg.Analysis.MinSeverity)
	if !ok {
		minSeverity = source.SeverityNote
	}

	a := &App{
		Config:      cfg,
		logger:      slog.Default(),
		registry:    symbols.NewRegistry(),
		results:     newResultCache(cfg.Analysis.ResultCache),
		minSeverity: minSeverity,
		extensions:  make(map[string]bool, len(cfg.Analysis.Extensions)),
	}
	for _, ext := range cfg.Analysis.Extensions {
		a.extensions[normalizeExt(ext)] = true
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.projectRoot != "" {
		if abs, err := filepath.Abs(a.projectRoot); err == nil {
			a.projectRoot = abs
		}
	}
	if a.projectKey == "" && a.projectRoot != "" {
		a.projectKey = filepath.Base(a.projectRoot)
	}
	exclude, err := util.NewExcluder(a.projectRoot, cfg.Exclude.Dirs, cfg.Exclude.Files)
	if err != nil {
		return nil, err
	}
	a.exclude = exclude
	a.pipeline = pipeline.New(pipeline.WithRegistry(a.registry), pipeline.WithLogger(a.logger))
	return a, nil
}

// Registry returns the symbol table registry. It holds tables only while a
// run is in progress.
func (a *App) Registry() *symbols.Registry { return a.registry }

func (a *App) ProjectKey() string { return a.projectKey }

// LastRun returns the most recent completed run, if any.
func (a *App) LastRun() (*RunReport, bool) {
	a.statsMu.RLock()
	defer a.statsMu.RUnlock()
	return a.lastRun, a.lastRun != nil
}

func (a *App) setLastRun(r *RunReport) {
	a.statsMu.Lock()
	a.lastRun = r
	a.statsMu.Unlock()
}

func since(start time.Time) time.Duration { return time.Since(start).Round(time.Millisecond) }
