package cmd

import (
	"github.com/huangsam/covdelta/core"
	"github.com/spf13/cobra"
)

// deltaCmd prints the stored deltas of a build.
var deltaCmd = &cobra.Command{
	Use:   "delta BUILD_ID",
	Short: "Show the coverage of a build next to its reference.",
	Long: `Print the stored coverage of a build per element together with the coverage of its
reference build and the delta in percentage points.

Examples:
  # Show deltas of build 42
  covdelta delta api#42

  # Export deltas for a dashboard
  covdelta delta api#42 --output csv --output-file deltas.csv`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{argsAnnotation: buildIDArgs},
	PreRunE:     sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteDelta(rootCtx, cfg, storeManager)
	},
}
