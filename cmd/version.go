package cmd

import (
	"runtime"
	"strings"

	"github.com/huangsam/covdelta/core/normalize"
	"github.com/spf13/cobra"
)

// versionCmd prints the release and the supported report formats.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the covdelta release and supported report formats.",
	Long: `Print the covdelta release, the commit and date it was built from,
the Go runtime, and the report adapters accepted by ingest and compare.
Include this output when reporting a delta that looks wrong.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("covdelta %s (%s, built %s, %s)\n", version, commit, date, runtime.Version())
		cmd.Printf("  Adapters: %s\n", strings.Join(normalize.Default().Names(), ", "))
	},
}
