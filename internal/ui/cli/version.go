package cli

import (
	"runtime"

	"github.com/spf13/cobra"

	"wlscope/internal/shared/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("wlscope version\t", version.Version)
			cmd.Println("go version\t", runtime.Version())
		},
	}
}
