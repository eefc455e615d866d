package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wlscope/internal/core/ports"
	"wlscope/internal/data/history"
	"wlscope/internal/engine/findings"
	"wlscope/internal/engine/source"
	"wlscope/internal/ui/report"
	"wlscope/internal/ui/report/formats"
)

type historyOptions struct {
	since  string
	window string
	format string
	runID  string
	prune  int
}

func newHistoryCmd(root *rootOptions) *cobra.Command {
	opts := &historyOptions{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs and finding trends",
		Long: `Show the trend of recorded analysis runs for the current project, the
findings of a single run (--run), or delete old runs (--prune).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			since, err := parseSince(opts.since)
			if err != nil {
				return err
			}
			window, err := parseHistoryWindow(opts.window)
			if err != nil {
				return err
			}

			env, err := setup(cmd.Context(), root, nil, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer env.close()

			if _, err := os.Stat(env.paths.DBPath); os.IsNotExist(err) {
				return fmt.Errorf("no history database at %s (enable [db] and run analyze first)", env.paths.DBPath)
			}
			store, err := openHistoryStore(env.cfg, env.paths, env.logger)
			if err != nil {
				return err
			}
			defer store.Close()
			var hs ports.HistoryStore = history.NewAdapter(store)
			out := cmd.OutOrStdout()
			key := env.paths.ProjectKey

			switch {
			case opts.prune > 0:
				removed, err := hs.Prune(key, opts.prune)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "pruned %d runs of %s\n", removed, key)
				return nil

			case opts.runID != "":
				snap, err := hs.LoadRun(opts.runID)
				if err != nil {
					return err
				}
				format := opts.format
				if format == "" || format == "tsv" {
					format = "text"
				}
				rw, err := formats.New(format)
				if err != nil {
					return err
				}
				meta := ports.ReportMeta{
					ProjectKey: snap.ProjectKey,
					RunID:      snap.RunID,
					Files:      snap.FileCount,
					Failed:     snap.FailedCount,
					Duration:   snap.Duration,
				}
				return rw.Write(out, meta, recordsToFindings(snap.Findings))

			default:
				snapshots, err := hs.LoadSnapshots(key, since)
				if err != nil {
					return err
				}
				trend, err := history.BuildTrendReport(key, snapshots, window)
				if err != nil {
					return err
				}
				return report.RenderTrend(out, trend, opts.format)
			}
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.since, "since", "", "only include runs at/after this time (RFC3339 or YYYY-MM-DD)")
	flags.StringVar(&opts.window, "window", "24h", "moving-average window for trend points")
	flags.StringVarP(&opts.format, "format", "f", "text", "output format: text, tsv, json or yaml")
	flags.StringVar(&opts.runID, "run", "", "show the findings recorded for this run ID")
	flags.IntVar(&opts.prune, "prune", 0, "delete all but the newest N runs")
	return cmd
}

func recordsToFindings(records []history.FindingRecord) []findings.Finding {
	out := make([]findings.Finding, 0, len(records))
	for _, r := range records {
		sev, _ := source.ParseSeverity(r.Severity)
		out = append(out, findings.Finding{
			RuleID:   r.RuleID,
			Severity: sev,
			Level:    r.Severity,
			File:     r.File,
			Line:     r.Line,
			Column:   r.Column,
			Message:  r.Message,
		})
	}
	return out
}
