package cmd

import (
	"github.com/huangsam/covdelta/core"
	"github.com/spf13/cobra"
)

// referenceCmd prints the reference build of a build.
var referenceCmd = &cobra.Command{
	Use:   "reference BUILD_ID",
	Short: "Show which reference build was chosen and why.",
	Long: `Print the reference build attached to a build, the strategy that selected it and
the messages recorded during the selection.

Examples:
  covdelta reference api#42
  covdelta reference api#42 --output json`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{argsAnnotation: buildIDArgs},
	PreRunE:     sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteReference(rootCtx, cfg, storeManager)
	},
}
