package cmd

import (
	"github.com/huangsam/covdelta/core"
	"github.com/spf13/cobra"
)

// ingestCmd records a build and aggregates its coverage reports.
var ingestCmd = &cobra.Command{
	Use:   "ingest [adapter:path]...",
	Short: "Aggregate the coverage reports of a build and compute its deltas.",
	Long: `Record a build, merge all of its coverage reports into one tree and compare it
against a reference build.

Each report is given as adapter:path. Supported adapters:
- cobertura - Cobertura XML
- istanbul  - Istanbul coverage-summary.json
- records   - JSON list of per-file element counts

The reference build is chosen with --strategy:
- previous-successful - newest earlier build of the same job that succeeded (default)
- explicit            - the build named by --reference-id
- external            - the build named by --reference-id, with --message reasons recorded

When no reference is eligible the deltas are skipped; this is not an error.
A result is computed once per build; ingesting the same build again fails.

Examples:
  # Ingest build 42 of the api job
  covdelta ingest --job api --number 42 cobertura:coverage.xml

  # Merge several reports of one build
  covdelta ingest --job api --number 43 cobertura:backend.xml istanbul:frontend/coverage-summary.json

  # Compare against a specific build
  covdelta ingest --job api --number 44 --strategy explicit --reference-id api#40 cobertura:coverage.xml`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteIngest(rootCtx, cfg, storeManager)
	},
}
