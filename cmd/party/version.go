package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags.
// Example: go build -ldflags="-X main.Version=v1.0.0"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		commitShort := Commit
		if len(commitShort) > 7 {
			commitShort = commitShort[:7]
		}
		fmt.Printf("party %s (commit: %s, built: %s, go: %s)\n",
			Version, commitShort, BuildDate, runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
