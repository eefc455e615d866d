package formats

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"wlscope/internal/core/ports"
	"wlscope/internal/engine/findings"
)

type TextWriter struct{}

func (TextWriter) Format() string { return "text" }

// Write prints a findings table followed by a one-line summary.
func (TextWriter) Write(w io.Writer, meta ports.ReportMeta, fs []findings.Finding) error {
	if len(fs) > 0 {
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Location", "Rule", "Severity", "Message"})
		table.SetBorder(false)
		table.SetCenterSeparator("")
		table.SetAutoWrapText(false)
		table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})
		for _, f := range fs {
			table.Append([]string{location(f), f.RuleID, f.Level, f.Message})
		}
		table.Render()
	}

	_, err := fmt.Fprintf(w, "%s: %d findings in %d files (%d failed) in %s\n",
		projectLabel(meta), len(fs), meta.Files, meta.Failed, meta.Duration)
	return err
}

// location renders file:line:column with a 1-based column, or the file
// alone for findings without a position.
func location(f findings.Finding) string {
	if f.Line <= 0 {
		return f.File
	}
	return f.File + ":" + strconv.Itoa(f.Line) + ":" + strconv.Itoa(f.Column+1)
}

func projectLabel(meta ports.ReportMeta) string {
	if meta.ProjectKey == "" {
		return "wlscope"
	}
	return meta.ProjectKey
}
