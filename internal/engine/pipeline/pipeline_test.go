package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"wlscope/internal/core/errors"
	"wlscope/internal/engine/symbols"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAnalyzeFile_RunsAllPhases(t *testing.T) {
	src := "f[x_] := Module[{total}, Print[total]; total = x]\n(* done *)"
	res, err := AnalyzeFile(context.Background(), "a.wl", src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.File.Nodes) != 1 {
		t.Fatalf("expected 1 node, got %d", len(res.File.Nodes))
	}
	if len(res.File.Comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(res.File.Comments))
	}
	if len(res.Table.SymbolsByName("total")) != 1 {
		t.Fatalf("expected symbol total to be resolved")
	}
	if got := res.Init.VariablesUsedBeforeAssignment("f"); len(got) != 1 || got[0] != "total" {
		t.Fatalf("expected total flagged, got %v", got)
	}
}

func TestAnalyzeFile_SplitsDiagnostics(t *testing.T) {
	res, err := AnalyzeFile(context.Background(), "b.wl", "f[x_ := x \\ \"open")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.LexDiagnostics()) == 0 {
		t.Fatal("expected lex diagnostics")
	}
	if len(res.ParseDiagnostics()) == 0 {
		t.Fatal("expected parse diagnostics")
	}
	if len(res.LexDiagnostics())+len(res.ParseDiagnostics()) != len(res.File.Diagnostics) {
		t.Fatal("diagnostic split does not add up")
	}
}

func TestAnalyzeFile_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := AnalyzeFile(ctx, "c.wl", "x = 1"); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunPhase_RecoversPanic(t *testing.T) {
	p := New(WithLogger(quietLogger()))
	err := p.runPhase(context.Background(), "d.wl", PhaseParse, func() error {
		panic("boom")
	})
	if !errors.IsCode(err, errors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	var de *errors.DomainError
	if !stderrors.As(err, &de) || de.Context[errors.CtxPhase] != "parse" || de.Context[errors.CtxKey] != "d.wl" {
		t.Fatalf("expected phase and key context, got %v", err)
	}
}

func TestAnalyzeFile_RegistersTables(t *testing.T) {
	reg := symbols.NewRegistry()
	p := New(WithRegistry(reg), WithLogger(quietLogger()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("f%d.wl", i%4)
			if _, err := p.AnalyzeFile(context.Background(), key, "g[y_] := y + 1"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if reg.Len() != 4 {
		t.Fatalf("expected 4 registered tables, got %d", reg.Len())
	}
	table, ok := reg.Get("f0.wl")
	if !ok || table.Key != "f0.wl" {
		t.Fatalf("expected table for f0.wl, got %v", table)
	}
}

func TestAnalyzeFile_FailedBuildIsInternal(t *testing.T) {
	reg := symbols.NewRegistry()
	func() {
		defer func() { _ = recover() }()
		_, _ = reg.GetOrCreate("bad.wl", func() (*symbols.Table, error) { panic("broken") })
	}()

	p := New(WithRegistry(reg), WithLogger(quietLogger()))
	_, err := p.AnalyzeFile(context.Background(), "bad.wl", "x = 1")
	if !errors.IsCode(err, errors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}

	if _, err := p.AnalyzeFile(context.Background(), "good.wl", "x = 1"); err != nil {
		t.Fatalf("other files must be unaffected, got %v", err)
	}
}
