package app

import (
	"bytes"
	"fmt"
	"io"

	"wlscope/internal/core/ports"
	"wlscope/internal/data/history"
	"wlscope/internal/shared/observability"
	"wlscope/internal/shared/util"
)

// recordRun saves report as a history snapshot and prunes old runs. History
// failures are logged and counted; they never fail the run.
func (a *App) recordRun(report *RunReport) {
	if a.history == nil {
		return
	}

	snapshot := history.Snapshot{
		RunID:        report.RunID,
		ProjectKey:   a.projectKey,
		Timestamp:    report.StartedAt,
		CommitHash:   history.ResolveCommit(a.projectRoot),
		Duration:     report.Duration,
		FileCount:    len(report.Files),
		FailedCount:  report.Failed,
		FindingCount: len(report.Findings),
		RuleCounts:   make(map[string]int),
		Findings:     make([]history.FindingRecord, 0, len(report.Findings)),
	}
	for _, f := range report.Findings {
		snapshot.RuleCounts[f.RuleID]++
		snapshot.Findings = append(snapshot.Findings, history.FindingRecord{
			RuleID:   f.RuleID,
			Severity: f.Level,
			File:     f.File,
			Line:     f.Line,
			Column:   f.Column,
			Message:  f.Message,
		})
	}

	runID, err := a.history.SaveSnapshot(a.projectKey, snapshot)
	if err != nil {
		observability.HistoryWriteErrorsTotal.Inc()
		a.logger.Warn("failed to record run", "project", a.projectKey, "error", err)
		return
	}
	report.RunID = runID
	report.Recorded = true

	if keep := a.Config.DB.RetainRuns; keep > 0 {
		removed, err := a.history.Prune(a.projectKey, keep)
		if err != nil {
			a.logger.Warn("failed to prune history", "project", a.projectKey, "error", err)
		} else if removed > 0 {
			a.logger.Debug("pruned history", "project", a.projectKey, "removed", removed)
		}
	}
}

// WriteReport renders report with rw to path, or to stdout when path is empty.
func (a *App) WriteReport(report *RunReport, rw ports.ReportWriter, path string, stdout io.Writer) error {
	meta := ports.ReportMeta{
		ProjectKey: report.ProjectKey,
		RunID:      report.RunID,
		Files:      len(report.Files),
		Failed:     report.Failed,
		Duration:   report.Duration,
	}
	if path == "" {
		return rw.Write(stdout, meta, report.Findings)
	}

	var buf bytes.Buffer
	if err := rw.Write(&buf, meta, report.Findings); err != nil {
		return fmt.Errorf("render %s report: %w", rw.Format(), err)
	}
	if err := util.WriteFileWithDirs(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	a.logger.Info("report written", "format", rw.Format(), "path", path)
	return nil
}
