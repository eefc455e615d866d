// Package pipeline runs the per-file analysis stages in order:
// lex, parse, resolve, analyze.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"wlscope/internal/core/errors"
	"wlscope/internal/engine/initcheck"
	"wlscope/internal/engine/lexer"
	"wlscope/internal/engine/parser"
	"wlscope/internal/engine/source"
	"wlscope/internal/engine/symbols"
	"wlscope/internal/shared/observability"
)

type Phase string

const (
	PhaseLex     Phase = "lex"
	PhaseParse   Phase = "parse"
	PhaseResolve Phase = "resolve"
	PhaseAnalyze Phase = "analyze"
)

// FileResult is everything the pipeline produced for one file.
type FileResult struct {
	Key     string
	Source  string
	Lex     lexer.Result
	File    *parser.File
	Table   *symbols.Table
	Init    *initcheck.Result
	Elapsed time.Duration
}

// LexDiagnostics returns the diagnostics raised while tokenizing.
func (r *FileResult) LexDiagnostics() []source.Diagnostic {
	return r.Lex.Diagnostics
}

// ParseDiagnostics returns the diagnostics raised by the parser only.
func (r *FileResult) ParseDiagnostics() []source.Diagnostic {
	return r.File.Diagnostics[len(r.Lex.Diagnostics):]
}

type Option func(*Pipeline)

// WithRegistry makes the resolve phase register tables in reg, keyed by
// the file key.
func WithRegistry(reg *symbols.Registry) Option {
	return func(p *Pipeline) { p.registry = reg }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// Pipeline is stateless apart from its optional registry and is safe for
// concurrent use.
type Pipeline struct {
	registry *symbols.Registry
	logger   *slog.Logger
}

func New(opts ...Option) *Pipeline {
	p := &Pipeline{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AnalyzeFile runs all phases over src with a default pipeline.
func AnalyzeFile(ctx context.Context, key, src string) (*FileResult, error) {
	return New().AnalyzeFile(ctx, key, src)
}

// AnalyzeFile runs all phases over src. A panic in any phase fails this
// file only and is returned as an internal DomainError carrying the phase.
func (p *Pipeline) AnalyzeFile(ctx context.Context, key, src string) (*FileResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "pipeline.AnalyzeFile",
		trace.WithAttributes(attribute.String("wlscope.file", key), attribute.Int("wlscope.bytes", len(src))))
	defer span.End()

	start := time.Now()
	res := &FileResult{Key: key, Source: src}

	steps := []struct {
		phase Phase
		run   func() error
	}{
		{PhaseLex, func() error {
			res.Lex = lexer.Tokenize(src)
			return nil
		}},
		{PhaseParse, func() error {
			res.File = parser.ParseTokens(src, res.Lex)
			return nil
		}},
		{PhaseResolve, func() error {
			table, err := p.resolve(key, res.File, src)
			res.Table = table
			return err
		}},
		{PhaseAnalyze, func() error {
			res.Init = initcheck.Analyze(res.File.Nodes)
			return nil
		}},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.runPhase(ctx, key, step.phase, step.run); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}

	res.Elapsed = time.Since(start)
	p.logger.Debug("file analyzed",
		"file", key,
		"nodes", len(res.File.Nodes),
		"diagnostics", len(res.File.Diagnostics),
		"symbols", len(res.Table.AllSymbols()),
		"duration", res.Elapsed)
	return res, nil
}

func (p *Pipeline) resolve(key string, file *parser.File, src string) (*symbols.Table, error) {
	build := func() (*symbols.Table, error) {
		return symbols.Build(key, file.Nodes, src), nil
	}
	if p.registry == nil {
		return build()
	}
	table, err := p.registry.GetOrCreate(key, build)
	if err != nil {
		err = errors.AddContext(errors.Wrap(err, errors.CodeInternal, "symbol table unavailable"), errors.CtxKey, key)
		return nil, err
	}
	return table, nil
}

func (p *Pipeline) runPhase(ctx context.Context, key string, phase Phase, run func() error) (err error) {
	_, span := observability.Tracer.Start(ctx, "pipeline."+string(phase))
	start := time.Now()
	defer func() {
		observability.PhaseDuration.WithLabelValues(string(phase)).Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			observability.PhasePanicsTotal.WithLabelValues(string(phase)).Inc()
			p.logger.Error("analysis phase panicked",
				"file", key,
				"phase", phase,
				"panic", r,
				"stack", string(debug.Stack()))
			err = errors.Wrap(fmt.Errorf("panic: %v", r), errors.CodeInternal, "analysis failed")
			err = errors.AddContext(err, errors.CtxPhase, string(phase))
			err = errors.AddContext(err, errors.CtxKey, key)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	return run()
}
