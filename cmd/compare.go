package cmd

import (
	"github.com/huangsam/covdelta/core"
	"github.com/spf13/cobra"
)

// compareCmd compares two sets of reports without recording builds.
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare two sets of coverage reports.",
	Long: `Aggregate a reference and a current set of reports and show the coverage delta
between them. Nothing is written to the build history.

Examples:
  # Compare coverage of two branches
  covdelta compare --reference cobertura:main.xml --current cobertura:feature.xml

  # Several reports per side
  covdelta compare --reference cobertura:a.xml --reference istanbul:b.json \
    --current cobertura:a2.xml --current istanbul:b2.json --output json`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteCompare(rootCtx, cfg, storeManager)
	},
}
