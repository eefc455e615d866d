package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wlscope_phase_seconds",
		Help:    "Time spent in one pipeline phase (lex, parse, resolve, analyze) for a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wlscope_analysis_seconds",
		Help:    "Time spent on high-level analysis tasks.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})

	FilesAnalyzedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wlscope_files_analyzed_total",
		Help: "Total number of files processed, by outcome.",
	}, []string{"status"})

	PhasePanicsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wlscope_phase_panics_total",
		Help: "Total number of recovered panics, by pipeline phase.",
	}, []string{"phase"})

	FindingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wlscope_findings_total",
		Help: "Total number of findings reported, by rule.",
	}, []string{"rule"})

	RegistryTables = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wlscope_registry_tables",
		Help: "Number of symbol tables held by the registry for the current run.",
	})

	ResultCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wlscope_result_cache_hits_total",
		Help: "Total number of files whose analysis was served from the content cache.",
	})

	ResultCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wlscope_result_cache_misses_total",
		Help: "Total number of files that had to be analyzed.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wlscope_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	HistoryWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wlscope_history_write_errors_total",
		Help: "Total number of failed history snapshot writes.",
	})
)
