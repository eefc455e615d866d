package app

import (
	"context"

	"wlscope/internal/core/watcher"
	"wlscope/internal/shared/util"
)

// Watch runs paths once, then again after every debounced batch of source
// changes until ctx is done. Each run's outcome is passed to onReport.
// Unchanged files are served from the result cache.
func (a *App) Watch(ctx context.Context, paths []string, onReport func(*RunReport, error)) error {
	changes := make(chan []string, 1)
	w, err := watcher.NewWatcher(watcher.Options{
		Root:         a.projectRoot,
		Debounce:     a.Config.Watch.Debounce,
		Extensions:   a.Config.Analysis.Extensions,
		ExcludeDirs:  a.Config.Exclude.Dirs,
		ExcludeFiles: a.Config.Exclude.Files,
		Limiter:      util.NewLimiter(a.Config.Watch.MaxEventsPerSecond, a.Config.Watch.Burst),
	}, func(changed []string) {
		select {
		case changes <- changed:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	roots := paths
	if len(roots) == 0 {
		roots = []string{a.projectRoot}
		if a.projectRoot == "" {
			roots = []string{"."}
		}
	}
	if err := w.Watch(roots); err != nil {
		return err
	}

	onReport(a.Run(ctx, paths))

	for {
		select {
		case <-ctx.Done():
			return nil
		case changed := <-changes:
			a.logger.Info("changes detected", "files", len(changed))
			report, err := a.Run(ctx, paths)
			if ctx.Err() != nil {
				return nil
			}
			onReport(report, err)
		}
	}
}
