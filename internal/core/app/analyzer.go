package app

import (
	"context"
	stderrors "errors"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"wlscope/internal/core/errors"
	"wlscope/internal/data/cache"
	"wlscope/internal/engine/findings"
	"wlscope/internal/engine/symbols"
	"wlscope/internal/shared/observability"
	"wlscope/internal/shared/util"
)

type FileStatus string

const (
	StatusAnalyzed FileStatus = "analyzed"
	StatusCached   FileStatus = "cached"
	StatusFailed   FileStatus = "failed"
	StatusSkipped  FileStatus = "skipped"
)

type FileOutcome struct {
	Path     string        `json:"path" yaml:"path"`
	Key      string        `json:"key" yaml:"key"`
	Status   FileStatus    `json:"status" yaml:"status"`
	Findings int           `json:"findings" yaml:"findings"`
	Elapsed  time.Duration `json:"elapsed" yaml:"elapsed"`
	Err      error         `json:"-" yaml:"-"`
}

// RunReport is the outcome of one project run. Findings are filtered by the
// configured rules and severity and sorted by position.
type RunReport struct {
	RunID      string
	ProjectKey string
	StartedAt  time.Time
	Duration   time.Duration
	Files      []FileOutcome
	Findings   []findings.Finding
	Failed     int
	Skipped    int
	Cached     int
	Recorded   bool
}

// Run analyzes every source file under paths. A file that cannot be read or
// analyzed contributes a failure finding and never stops the others; only
// cancellation of ctx aborts the run.
func (a *App) Run(ctx context.Context, paths []string) (*RunReport, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	ctx, span := observability.Tracer.Start(ctx, "app.Run", trace.WithAttributes(attribute.Int("wlscope.roots", len(paths))))
	defer span.End()

	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("run").Observe(time.Since(start).Seconds())
	}()

	if len(paths) == 0 {
		root := a.projectRoot
		if root == "" {
			root = "."
		}
		paths = []string{root}
	}
	files, err := a.Discover(paths)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "discover source files"), errors.CtxOperation, "discover")
	}
	span.SetAttributes(attribute.Int("wlscope.files", len(files)))

	outcomes := make([]FileOutcome, len(files))
	perFile := make([][]findings.Finding, len(files))

	// The registry lives for exactly one run.
	defer func() {
		a.registry.Clear()
		observability.RegistryTables.Set(0)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers())
	for i, path := range files {
		if gctx.Err() != nil {
			break
		}
		i, path := i, path
		g.Go(func() error {
			outcomes[i], perFile[i] = a.analyzeOne(gctx, path)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	observability.RegistryTables.Set(float64(a.registry.Len()))

	report := &RunReport{
		RunID:      uuid.NewString(),
		ProjectKey: a.projectKey,
		StartedAt:  start.UTC(),
		Files:      outcomes,
	}
	var all []findings.Finding
	for i, out := range outcomes {
		switch out.Status {
		case StatusFailed:
			report.Failed++
		case StatusSkipped:
			report.Skipped++
		case StatusCached:
			report.Cached++
		}
		all = append(all, perFile[i]...)
	}
	report.Findings = findings.Filter(all, a.Config.Analysis.DisabledRules, a.minSeverity)
	findings.Sort(report.Findings)
	for _, f := range report.Findings {
		observability.FindingsTotal.WithLabelValues(f.RuleID).Inc()
	}
	report.Duration = since(start)

	a.recordRun(report)
	a.setLastRun(report)

	a.logger.Info("analysis complete",
		"project", a.projectKey,
		"files", len(files),
		"failed", report.Failed,
		"cached", report.Cached,
		"findings", len(report.Findings),
		"duration", report.Duration)
	return report, nil
}

func (a *App) workers() int {
	if n := a.Config.Analysis.Workers; n > 0 {
		return n
	}
	return 1
}

func (a *App) analyzeOne(ctx context.Context, path string) (FileOutcome, []findings.Finding) {
	start := time.Now()
	key := a.fileKey(path)
	out := FileOutcome{Path: path, Key: key}
	finish := func(status FileStatus, fs []findings.Finding, err error) (FileOutcome, []findings.Finding) {
		out.Status = status
		out.Findings = len(fs)
		out.Elapsed = time.Since(start)
		out.Err = err
		observability.FilesAnalyzedTotal.WithLabelValues(string(status)).Inc()
		return out, fs
	}

	content, err := util.ReadFileLimited(path, a.Config.Analysis.MaxFileBytes)
	if err != nil {
		if stderrors.Is(err, util.ErrTooLarge) {
			a.logger.Warn("skipping oversized file", "path", path, "limit", a.Config.Analysis.MaxFileBytes)
			err = errors.AddContext(errors.Wrap(err, errors.CodeTooLarge, "read source file"), errors.CtxPath, path)
			return finish(StatusSkipped, nil, err)
		}
		code := errors.CodeInternal
		switch {
		case os.IsNotExist(err):
			code = errors.CodeNotFound
		case os.IsPermission(err):
			code = errors.CodePermissionDenied
		}
		err = errors.AddContext(errors.Wrap(err, code, "read source file"), errors.CtxPath, path)
		a.results.forget(key)
		return finish(StatusFailed, []findings.Finding{findings.Failure(key, err)}, err)
	}

	hash := cache.ContentHash(content)
	if hit, ok := a.results.lookup(key, hash); ok {
		if _, err := a.registry.GetOrCreate(key, func() (*symbols.Table, error) { return hit.table, nil }); err != nil {
			a.logger.Debug("cached table not registered", "file", key, "error", err)
		}
		return finish(StatusCached, hit.findings, nil)
	}

	res, err := a.pipeline.AnalyzeFile(ctx, key, content)
	if err != nil {
		a.results.forget(key)
		if ctx.Err() != nil {
			return finish(StatusFailed, nil, errors.Wrap(err, errors.CodeCanceled, "analysis interrupted"))
		}
		a.logger.Warn("file analysis failed", "file", key, "error", err)
		return finish(StatusFailed, []findings.Finding{findings.Failure(key, err)}, err)
	}

	fs := findings.Collect(res)
	a.results.store(key, cachedResult{hash: hash, table: res.Table, findings: fs})
	return finish(StatusAnalyzed, fs, nil)
}
