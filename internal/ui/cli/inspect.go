package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"wlscope/internal/engine/ast"
	"wlscope/internal/engine/pipeline"
	"wlscope/internal/engine/symbols"
	"wlscope/internal/shared/util"
)

// inspectMaxBytes bounds the single files read by ast and symbols.
const inspectMaxBytes = 64 << 20

func analyzeSingle(ctx context.Context, path string) (*pipeline.FileResult, error) {
	content, err := util.ReadFileLimited(path, inspectMaxBytes)
	if err != nil {
		return nil, err
	}
	return pipeline.AnalyzeFile(ctx, path, content)
}

func newASTCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ast <file>",
		Short: "Print the syntax tree of a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := analyzeSingle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, ast.DumpAll(res.File.Nodes))
			for _, d := range res.File.Diagnostics {
				fmt.Fprintf(out, "%s: %s %s\n", d.Span.Start, d.Severity, d.Message)
			}
			return nil
		},
	}
}

func newSymbolsCmd() *cobra.Command {
	var unresolved, refs bool
	cmd := &cobra.Command{
		Use:   "symbols <file>",
		Short: "Print the scopes and symbols of a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := analyzeSingle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			writeSymbols(cmd.OutOrStdout(), res.Table)
			if refs {
				writeReferences(cmd.OutOrStdout(), res.Table)
			}
			if unresolved {
				writeUnresolved(cmd.OutOrStdout(), res.Table)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&unresolved, "unresolved", "u", false, "also list reads of names with no binding")
	cmd.Flags().BoolVarP(&refs, "refs", "r", false, "also list every reference of each symbol")
	return cmd
}

func writeSymbols(w io.Writer, t *symbols.Table) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Scope", "Declared", "Kind", "Reads", "Writes"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	for _, sym := range t.AllSymbols() {
		table.Append([]string{
			sym.Name,
			scopeLabel(t.Scope(sym.Scope)),
			fmt.Sprintf("%d:%d", sym.DeclLine, sym.DeclColumn+1),
			symbolKind(sym),
			strconv.Itoa(len(sym.Reads)),
			strconv.Itoa(len(sym.Writes)),
		})
	}
	table.Render()
	fmt.Fprintf(w, "%d scopes, %d symbols\n", t.ScopeCount(), len(t.AllSymbols()))
}

func writeReferences(w io.Writer, t *symbols.Table) {
	for _, sym := range t.AllSymbols() {
		for _, ref := range sym.References() {
			fmt.Fprintf(w, "%s %d:%d %s  %s\n", sym.Name, ref.Line, ref.Column+1, access(ref), ref.Context)
		}
	}
}

func access(ref symbols.Reference) string {
	switch {
	case ref.IsRead() && ref.IsWrite():
		return "read-write"
	case ref.IsWrite():
		return "write"
	default:
		return "read"
	}
}

func writeUnresolved(w io.Writer, t *symbols.Table) {
	for _, u := range t.Unresolved() {
		fmt.Fprintf(w, "unresolved %s at %d:%d in %s\n", u.Name, u.Ref.Line, u.Ref.Column+1, scopeLabel(t.Scope(u.Scope)))
	}
}

func scopeLabel(s *symbols.Scope) string {
	if s.Name == "" {
		return s.Type.String()
	}
	return s.Type.String() + " " + s.Name
}

func symbolKind(sym *symbols.Symbol) string {
	switch {
	case sym.IsParameter:
		return "parameter"
	case sym.IsLocal:
		return "local"
	default:
		return "global"
	}
}
