package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/spigell/cv-advisor/cmd.version=... -X ...cmd.commit=...".
var (
	version = "unknown"
	commit  = "none"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the cv-advisor build version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s (commit %s, %s)\n", app, version, commit, runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
