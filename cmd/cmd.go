// Package cmd defines the command-line interface for covdelta.
package cmd

import (
	"github.com/huangsam/covdelta/internal/contract"
	"github.com/huangsam/covdelta/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(deltaCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(referenceCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json (parquet only via history export)")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for percentage columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-format", contract.LogFormatText, "Log format: text or json")
	rootCmd.PersistentFlags().String("metrics-file", "", "Write Prometheus metrics of the run to this textfile")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Report cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("history-backend", string(schema.SQLiteBackend), "Build history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for build history (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Flags of the subcommands are bound to Viper when the command runs
	ingestCmd.Flags().String("build-id", "", "Build identifier (defaults to JOB#NUMBER)")
	ingestCmd.Flags().String("job", "", "Job the build belongs to")
	ingestCmd.Flags().Int("number", 0, "Build number within the job")
	ingestCmd.Flags().String("outcome", string(schema.SuccessOutcome), "Build outcome: running or success or unstable or failure or aborted")
	ingestCmd.Flags().String("strategy", string(schema.PreviousSuccessfulStrategy), "Reference strategy: previous-successful or explicit or external")
	ingestCmd.Flags().String("reference-id", "", "Reference build for the explicit and external strategies")
	ingestCmd.Flags().Bool("allow-unstable", false, "Accept unstable builds as previous-successful references")
	ingestCmd.Flags().StringArray("message", nil, "Reason recorded with an external reference (repeatable)")

	compareCmd.Flags().StringArray("reference", nil, "Reference report as adapter:path (repeatable)")
	compareCmd.Flags().StringArray("current", nil, "Current report as adapter:path (repeatable)")

	historyListCmd.Flags().String("job", "", "Only list builds of this job")
	historyListCmd.Flags().IntP("limit", "l", contract.DefaultHistoryLimit, "Number of builds to display")

	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
}
