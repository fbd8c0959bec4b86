package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/crawlgate/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		info := build.Current()
		fmt.Fprintf(cmd.OutOrStdout(), "crawlgate %s (commit %s, built %s)\n", info.Version, info.Commit, info.BuildTime)
	},
}
