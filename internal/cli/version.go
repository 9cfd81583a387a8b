package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
)

// SetVersionInfo sets the build version info from ldflags
func SetVersionInfo(version, commit string) {
	buildVersion = version
	buildCommit = commit
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of nexus",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nexus %s (commit: %s)\n", buildVersion, buildCommit)
		},
	}
}
