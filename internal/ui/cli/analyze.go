package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wlscope/internal/core/app"
	"wlscope/internal/core/config"
	"wlscope/internal/core/ports"
	"wlscope/internal/data/history"
	"wlscope/internal/engine/findings"
	"wlscope/internal/engine/source"
	"wlscope/internal/ui/report/formats"
)

type analyzeOptions struct {
	format    string
	output    string
	watch     bool
	failOn    string
	workers   int
	noHistory bool
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [paths...]",
		Short: "Analyze source files and report findings",
		Long: `Analyze every .wl, .m and .wls file under the given paths (default: the
project root) and report findings. With --watch the project is re-analyzed
whenever a source file changes; unchanged files are served from cache.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			env, err := setup(ctx, root, args, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.close()

			if opts.watch {
				return runWatch(ctx, env, opts, args, cmd.OutOrStdout())
			}
			return runOnce(ctx, env, opts, args, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.format, "format", "f", "", "report format: "+fmt.Sprint(formats.Names())+" (default from config)")
	flags.StringVarP(&opts.output, "output", "o", "", "write the report to this file instead of stdout")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "re-analyze on file changes until interrupted")
	flags.StringVar(&opts.failOn, "fail-on", "", "exit with status 1 when a finding has at least this severity (note, warning, error)")
	flags.IntVar(&opts.workers, "workers", 0, "number of files analyzed in parallel (default from config)")
	flags.BoolVar(&opts.noHistory, "no-history", false, "do not record this run in the history database")
	return cmd
}

// applyFlags overrides configuration values with explicitly set flags.
func (o *analyzeOptions) applyFlags(cfg *config.Config) {
	if o.format != "" {
		cfg.Output.Format = o.format
	}
	if o.output != "" {
		cfg.Output.Path = o.output
	}
	if o.workers > 0 {
		cfg.Analysis.Workers = o.workers
	}
	if o.noHistory {
		cfg.DB.Enabled = false
	}
}

// session is an App together with the resources it owns.
type session struct {
	app     *app.App
	writer  ports.ReportWriter
	outPath string
	store   *history.Store
}

func (s *session) close() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

func newSession(env *environment, opts *analyzeOptions) (*session, error) {
	opts.applyFlags(env.cfg)

	writer, err := formats.New(env.cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	s := &session{writer: writer}
	if env.cfg.Output.Path != "" {
		cwd, _ := os.Getwd()
		s.outPath = config.ResolveRelative(cwd, env.cfg.Output.Path)
	}

	appOpts := []app.Option{
		app.WithProject(env.paths.ProjectRoot, env.paths.ProjectKey),
		app.WithLogger(env.logger),
	}
	if env.cfg.DB.Enabled {
		store, err := openHistoryStore(env.cfg, env.paths, env.logger)
		if err != nil {
			return nil, err
		}
		s.store = store
		appOpts = append(appOpts, app.WithHistory(history.NewAdapter(store)))
	}

	s.app, err = app.New(env.cfg, appOpts...)
	if err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func runOnce(ctx context.Context, env *environment, opts *analyzeOptions, args []string, stdout io.Writer) error {
	threshold, err := parseFailOn(opts.failOn)
	if err != nil {
		return err
	}

	s, err := newSession(env, opts)
	if err != nil {
		return err
	}
	defer s.close()

	report, err := s.app.Run(ctx, args)
	if err != nil {
		return err
	}
	if err := s.app.WriteReport(report, s.writer, s.outPath, stdout); err != nil {
		return err
	}
	if threshold != nil && exceeds(report.Findings, *threshold) {
		return exitError{code: 1}
	}
	return nil
}

func parseFailOn(raw string) (*source.Severity, error) {
	if raw == "" {
		return nil, nil
	}
	sev, ok := source.ParseSeverity(raw)
	if !ok {
		return nil, fmt.Errorf("--fail-on must be note, warning or error, got %q", raw)
	}
	return &sev, nil
}

func exceeds(fs []findings.Finding, threshold source.Severity) bool {
	for _, f := range fs {
		if f.Severity >= threshold {
			return true
		}
	}
	return false
}

// runWatch re-analyzes on changes until ctx is done. A change to the config
// file rebuilds the session with the new configuration.
func runWatch(ctx context.Context, env *environment, opts *analyzeOptions, args []string, stdout io.Writer) error {
	s, err := newSession(env, opts)
	if err != nil {
		return err
	}

	var server *ObservabilityServer
	if env.cfg.Observability.Enabled {
		server = NewObservabilityServer(env.cfg.Observability.MetricsAddr, app.NewHealthService(s.app))
		if err := server.Start(ctx); err != nil {
			s.close()
			return fmt.Errorf("start observability server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(shutdownCtx)
		}()
	}

	reloads := make(chan *config.Config, 1)
	if _, err := os.Stat(env.cfgPath); err == nil {
		cw := config.NewWatcher(env.cfgPath, func(cfg *config.Config) {
			select {
			case reloads <- cfg:
			default:
			}
		}, config.WithWatcherLogger(env.logger))
		if err := cw.Start(ctx); err != nil {
			env.logger.Warn("config watcher unavailable", "path", env.cfgPath, "error", err)
		} else {
			defer cw.Stop()
		}
	}

	for {
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		current := s
		go func() {
			done <- current.app.Watch(runCtx, args, func(report *app.RunReport, err error) {
				if err != nil {
					env.logger.Error("analysis run failed", "error", err)
					return
				}
				if err := current.app.WriteReport(report, current.writer, current.outPath, stdout); err != nil {
					env.logger.Error("failed to write report", "error", err)
				}
			})
		}()

		select {
		case err := <-done:
			cancel()
			current.close()
			return err
		case cfg := <-reloads:
			cancel()
			<-done
			current.close()

			env.cfg = cfg
			next, err := newSession(env, opts)
			if err != nil {
				return fmt.Errorf("apply reloaded config: %w", err)
			}
			s = next
			if server != nil {
				server.SetHealthService(app.NewHealthService(s.app))
			}
			env.logger.Info("watch restarted with reloaded configuration")
		}
	}
}
