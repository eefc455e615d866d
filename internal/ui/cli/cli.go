// Package cli implements the wlscope command line.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

// exitError carries a process exit code without an error message, for
// example when findings meet the --fail-on threshold.
type exitError struct {
	code int
}

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// NewRootCmd builds the command tree writing to stdout and stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "wlscope",
		Short: "Static analysis for Wolfram Language sources",
		Long: `wlscope parses Wolfram Language packages and scripts, resolves the scopes
of Module, Block, With and function definitions, and reports variables that
are read before they are assigned, unused or shadowed locals, and unused
parameters.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to wlscope.toml (default: discovered from the project root)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newAnalyzeCmd(opts),
		newASTCmd(),
		newSymbolsCmd(),
		newHistoryCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the command line with args and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return 0
	}
	var exit exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintln(stderr, "error:", err)
	return 1
}
