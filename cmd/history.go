package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/covdelta/core"
	"github.com/huangsam/covdelta/internal/contract"
	"github.com/huangsam/covdelta/internal/iocache"
	"github.com/huangsam/covdelta/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyBackendConfig reads and validates the history backend settings.
func historyBackendConfig(cmd *cobra.Command) (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(cmd); err != nil {
		return "", "", err
	}

	backend := schema.DatabaseBackend(viper.GetString("history-backend"))
	if backend == "" {
		backend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", "", fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", backend)
	}
	connStr := viper.GetString("history-db-connect")

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// historySetup loads minimal configuration needed for history operations.
// This is used by commands that need history access without full shared setup.
func historySetup(cmd *cobra.Command, _ []string) error {
	backend, connStr, err := historyBackendConfig(cmd)
	if err != nil {
		return err
	}

	// Initialize the history store only, no report caching for history commands
	if err := iocache.InitStores("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// historyMigrateSetup loads minimal configuration needed for migrate operations.
// This does NOT initialize stores or create tables, so migrations run on a fresh database.
func historyMigrateSetup(cmd *cobra.Command, _ []string) error {
	backend, connStr, err := historyBackendConfig(cmd)
	if err != nil {
		return err
	}

	// For SQLite backend with empty connection string, use default path
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetHistoryDBFilePath()
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	return nil
}

// historyCmd focused on build history management.
//
// Note: Most history subcommands use minimal initialization (historySetup) instead of
// the full sharedSetup used by ingest and delta.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the build history and its coverage results",
	Long: `Manage the build history used to pick reference builds.

The history stores, per build:
- Build metadata (job, number, outcome, start and finish time)
- The attached reference build and the reasons it was chosen
- The aggregated coverage result and its deltas

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (in-memory, per run)

Subcommands:
  status  - Show history statistics
  list    - List recorded builds
  export  - Export data to Parquet for analytics
  clear   - Remove all history data
  migrate - Run database schema migrations`,
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display history statistics and connection details",
	Long: `Show the backend, the number of builds, results and references stored, and the
time of the newest and oldest build.

Examples:
  covdelta history status`,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iocache.Manager.GetHistoryStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get history status", err)
		}
		iocache.PrintHistoryStatus(os.Stdout, status)
	},
}

// historyListCmd lists recorded builds.
var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded builds, newest first",
	Long: `List the builds in the history with their outcome and lifecycle state.

Examples:
  # Recent builds of every job
  covdelta history list

  # The last 10 builds of the api job as CSV
  covdelta history list --job api --limit 10 --output csv`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return core.ExecuteHistoryList(rootCtx, cfg, storeManager)
	},
}

// historyClearCmd clears the history data.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all build history data",
	Long: `Delete all builds, references and coverage results.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the history tables

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  covdelta history export --output-file backup.parquet
  covdelta history clear`,
	PreRunE: historyMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, cfg.HistoryDBConnect); err != nil {
			contract.LogFatal("Failed to clear history", err)
		}
		fmt.Println("History cleared successfully.")
	},
}

// historyExportCmd exports history data to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the build history to Parquet for BI tools and analytics",
	Long: `Export all builds and per-element coverage summaries to Parquet.

Exports two datasets next to --output-file:
- <output-file>.builds.parquet             - build metadata, outcome and reference
- <output-file>.element_summaries.parquet  - covered and total counts per build and element

Requires: --output-file parameter

Examples:
  covdelta history export --output-file covdelta.parquet
  duckdb -c "SELECT * FROM read_parquet('covdelta.parquet.element_summaries.parquet') LIMIT 10"`,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExportHistory(rootCtx, iocache.Manager.GetHistoryStore(), cfg.OutputFile, os.Stdout); err != nil {
			contract.LogFatal("Failed to export history", err)
		}
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  covdelta history migrate

  # Rollback to initial state
  covdelta history migrate --target-version 0`,
	PreRunE: historyMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion, os.Stdout); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
