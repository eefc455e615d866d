// Package report renders run history for the history command. Per-run
// finding reports live in the formats subpackage.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"wlscope/internal/data/history"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// RenderTrend writes report in format: text, tsv, json or yaml.
func RenderTrend(w io.Writer, report history.TrendReport, format string) error {
	switch strings.ToLower(format) {
	case "", "text":
		return renderTrendTable(w, report)
	case "tsv":
		return renderTrendTSV(w, report)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown trend format %q", format)
	}
}

func renderTrendTable(w io.Writer, report history.TrendReport) error {
	if _, err := fmt.Fprintf(w, "%s: %d runs, window %s\n", report.ProjectKey, report.RunCount, report.Window); err != nil {
		return err
	}
	if len(report.Points) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Run", "Timestamp", "Commit", "Files", "Failed", "Findings", "Delta", "Per File", "Avg"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	for _, p := range report.Points {
		table.Append([]string{
			shortID(p.RunID),
			p.Timestamp.Format(timeLayout),
			p.CommitHash,
			strconv.Itoa(p.FileCount),
			strconv.Itoa(p.FailedCount),
			strconv.Itoa(p.FindingCount),
			fmt.Sprintf("%+d", p.DeltaFindings),
			fmt.Sprintf("%.2f", p.FindingsPerFile),
			fmt.Sprintf("%.2f", p.AvgFindings),
		})
	}
	table.Render()
	return nil
}

func renderTrendTSV(w io.Writer, report history.TrendReport) error {
	var buf strings.Builder
	buf.WriteString("RunID\tTimestamp\tCommit\tFiles\tFailed\tFindings\tDeltaFiles\tDeltaFindings\tFindingsPerFile\tAvgFindings\tWindowHours\n")
	for _, p := range report.Points {
		fmt.Fprintf(&buf, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%.2f\t%.2f\t%.2f\n",
			p.RunID,
			p.Timestamp.Format(timeLayout),
			p.CommitHash,
			p.FileCount,
			p.FailedCount,
			p.FindingCount,
			p.DeltaFiles,
			p.DeltaFindings,
			p.FindingsPerFile,
			p.AvgFindings,
			p.WindowHours,
		)
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
