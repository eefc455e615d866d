package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
)

const defaultReloadDebounce = 100 * time.Millisecond

// Watcher follows a wlscope.toml on disk and hands each changed, valid
// version to the reload callback. Every reload goes through the same decode
// path as Load, so WLSCOPE_* overrides from the current environment win over
// the file. Saves that leave the content unchanged are ignored.
type Watcher struct {
	path     string
	onReload func(*Config)
	onError  func(error)
	debounce time.Duration
	logger   *slog.Logger

	digest uint64
	stop   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

type WatcherOption func(*Watcher)

// WithReloadDebounce sets the quiet period after the last event before the
// file is re-read.
func WithReloadDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithReloadErrors receives reloads that failed to read, decode or
// validate. The previous configuration stays in effect.
func WithReloadErrors(fn func(error)) WatcherOption {
	return func(w *Watcher) { w.onError = fn }
}

func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func NewWatcher(path string, onReload func(*Config), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		onReload: onReload,
		debounce: defaultReloadDebounce,
		logger:   slog.Default(),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start watches the file's directory until ctx is done or Stop is called.
// Editors that save by renaming a temporary file over the config only show
// up as events on the directory.
func (w *Watcher) Start(ctx context.Context) error {
	if data, err := os.ReadFile(w.path); err == nil {
		w.digest = xxhash.Sum64(data)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}

	w.wg.Add(1)
	go w.loop(ctx, fsw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()
	defer fsw.Close()

	w.logger.Debug("config watcher started", "path", w.path)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || event.Op == fsnotify.Chmod {
				continue
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			w.reload()

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-w.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the watch and waits for a reload in progress to finish.
func (w *Watcher) Stop() {
	w.once.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if errors.Is(err, os.ErrNotExist) {
		// Removed, or mid-rename. A later create schedules another reload.
		w.logger.Debug("config file missing, keeping previous configuration", "path", w.path)
		return
	}
	if err != nil {
		w.fail(fmt.Errorf("read %s: %w", w.path, err))
		return
	}
	digest := xxhash.Sum64(data)
	if digest == w.digest {
		w.logger.Debug("config unchanged", "path", w.path)
		return
	}
	cfg, err := decode(w.path, data)
	if err != nil {
		w.fail(err)
		return
	}
	w.digest = digest
	w.logger.Info("config reloaded", "path", w.path)
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

func (w *Watcher) fail(err error) {
	w.logger.Warn("config reload failed, keeping previous configuration", "path", w.path, "error", err)
	if w.onError != nil {
		w.onError(err)
	}
}
