package ports

import (
	"io"
	"time"

	"wlscope/internal/data/history"
	"wlscope/internal/engine/findings"
)

// HistoryStore abstracts run-snapshot persistence for the history command
// and for trend reports.
type HistoryStore interface {
	SaveSnapshot(projectKey string, snapshot history.Snapshot) (string, error)
	LoadSnapshots(projectKey string, since time.Time) ([]history.Snapshot, error)
	LoadRun(runID string) (history.Snapshot, error)
	Prune(projectKey string, keep int) (int, error)
}

// ReportMeta describes the run a report is rendered for.
type ReportMeta struct {
	ProjectKey string
	RunID      string
	Files      int
	Failed     int
	Duration   time.Duration
}

// ReportWriter renders a finding list in one output format.
type ReportWriter interface {
	Format() string
	Write(w io.Writer, meta ReportMeta, fs []findings.Finding) error
}
