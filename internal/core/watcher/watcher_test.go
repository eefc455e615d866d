package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"wlscope/internal/shared/util"
)

func wlOptions(debounce time.Duration) Options {
	return Options{
		Debounce:     debounce,
		Extensions:   []string{".wl", ".m"},
		ExcludeDirs:  []string{"exclude_dir"},
		ExcludeFiles: []string{"*Scratch*"},
	}
}

func waitFor(t *testing.T, ch <-chan []string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case paths := <-ch:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change to %s", want)
		}
	}
}

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(wlOptions(100*time.Millisecond), nil)
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestNewWatcher_RejectsBadGlob(t *testing.T) {
	opts := wlOptions(time.Millisecond)
	opts.ExcludeFiles = []string{"[unclosed"}
	if _, err := NewWatcher(opts, func([]string) {}); err == nil {
		t.Fatal("expected invalid pattern error")
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(wlOptions(100*time.Millisecond), func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	testFile := filepath.Join(tmpDir, "Main.wl")
	if err := os.WriteFile(testFile, []byte("f[x_] := x"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, testFile, 2*time.Second)

	// Excluded by glob and by extension.
	for _, name := range []string{"Scratch.wl", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case paths := <-changedFiles:
		for _, p := range paths {
			if base := filepath.Base(p); base == "Scratch.wl" || base == "notes.txt" {
				t.Errorf("excluded file %s triggered event", base)
			}
		}
	case <-time.After(500 * time.Millisecond):
	}

	subdir := filepath.Join(tmpDir, "Kernel")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	subFile := filepath.Join(subdir, "Utils.m")
	if err := os.WriteFile(subFile, []byte("g[] := 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, subFile, 2*time.Second)
}

func TestWatcher_RenameTriggersChange(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(wlOptions(100*time.Millisecond), func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	oldPath := filepath.Join(tmpDir, "old.wl")
	newPath := filepath.Join(tmpDir, "new.wl")
	if err := os.WriteFile(oldPath, []byte("x = 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changedFiles:
			for _, p := range paths {
				if p == oldPath || p == newPath {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for rename event, old=%s new=%s", oldPath, newPath)
		}
	}
}

func TestWatcher_Filters(t *testing.T) {
	w, err := NewWatcher(wlOptions(10*time.Millisecond), func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	cases := map[string]bool{
		"Main.wl":          false,
		"Legacy.M":         false,
		"script.wls":       true,
		"ScratchPad.wl":    true,
		"Kernel/Private.m": false,
	}
	for path, excluded := range cases {
		if got := w.shouldExcludeFile(path); got != excluded {
			t.Errorf("shouldExcludeFile(%q) = %v, want %v", path, got, excluded)
		}
	}
	if !w.shouldExcludeDir("/project/exclude_dir") {
		t.Error("expected exclude_dir to be skipped")
	}
}

func TestWatcher_ThrottledFlushKeepsPending(t *testing.T) {
	calls := make(chan []string, 4)
	opts := wlOptions(20 * time.Millisecond)
	opts.Limiter = util.NewLimiter(5, 1)
	w, err := NewWatcher(opts, func(paths []string) { calls <- paths })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	w.scheduleChange("a.wl")
	first := <-calls
	if len(first) != 1 || first[0] != "a.wl" {
		t.Fatalf("unexpected first batch %v", first)
	}

	// The burst is spent; this flush is denied and retried until a token refills.
	w.scheduleChange("b.wl")
	w.scheduleChange("c.wl")
	select {
	case second := <-calls:
		if len(second) != 2 || second[0] != "b.wl" || second[1] != "c.wl" {
			t.Fatalf("unexpected second batch %v", second)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("throttled batch was never delivered")
	}
}

func TestWatcher_CloseStopsFlush(t *testing.T) {
	calls := make(chan []string, 1)
	w, err := NewWatcher(wlOptions(50*time.Millisecond), func(paths []string) { calls <- paths })
	if err != nil {
		t.Fatal(err)
	}
	w.scheduleChange("a.wl")
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	select {
	case paths := <-calls:
		t.Fatalf("unexpected flush after close: %v", paths)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_RootRelativeExcludes(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"Tests", "Kernel"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	opts := wlOptions(50 * time.Millisecond)
	opts.Root = root
	opts.ExcludeFiles = []string{"Tests/*.wl"}
	changed := make(chan []string, 8)
	w, err := NewWatcher(opts, func(paths []string) { changed <- paths })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if !w.shouldExcludeFile(filepath.Join(root, "Tests", "Slow.wl")) {
		t.Fatal("expected Tests/Slow.wl to match the root-relative pattern")
	}
	if w.shouldExcludeFile(filepath.Join(root, "Kernel", "Slow.wl")) {
		t.Fatal("Kernel/Slow.wl must not match Tests/*.wl")
	}

	if err := w.Watch([]string{root}); err != nil {
		t.Fatal(err)
	}
	excluded := filepath.Join(root, "Tests", "Slow.wl")
	if err := os.WriteFile(excluded, []byte("t = 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	kept := filepath.Join(root, "Kernel", "Slow.wl")
	if err := os.WriteFile(kept, []byte("k = 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for seen := false; !seen; {
		select {
		case paths := <-changed:
			for _, p := range paths {
				if p == excluded {
					t.Fatalf("excluded file %s triggered a change", p)
				}
				seen = seen || p == kept
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change to %s", kept)
		}
	}
}
