package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/covdelta/internal/contract"
	"github.com/huangsam/covdelta/internal/iocache"
	"github.com/huangsam/covdelta/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cacheSetup loads minimal configuration needed for cache operations.
// This is used by commands that need cache access without full shared setup.
func cacheSetup(cmd *cobra.Command, _ []string) error {
	if err := loadConfigFile(cmd); err != nil {
		return err
	}

	// Get cache-related config values
	backend := schema.DatabaseBackend(viper.GetString("cache-backend"))
	connStr := viper.GetString("cache-db-connect")
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", backend)
	}

	// Basic validation for database backends
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr
	return nil
}

// cacheDBFilePath is the SQLite file of the cache, honoring --cache-db-connect.
func cacheDBFilePath() string {
	if cfg.CacheDBConnect != "" {
		return cfg.CacheDBConnect
	}
	return contract.GetCacheDBFilePath()
}

// cacheCmd focused on cache management.
//
// Note: Cache subcommands use minimal initialization (cacheSetup) instead of
// the full sharedSetup used by ingest and compare.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the normalized report cache (improves performance)",
	Long: `Manage the cache of normalized coverage reports.

Reports are keyed by adapter and a hash of their content, so an unchanged report is
not parsed again when it is ingested or compared a second time.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status - Show cache statistics and connection info
  clear  - Remove all cached data`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached reports",
	Long: `Delete all cached normalized reports from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache table

Examples:
  covdelta cache clear

  # Clear MySQL cache (set connection string via env variable)
  COVDELTA_CACHE_BACKEND=mysql COVDELTA_CACHE_DB_CONNECT="..." covdelta cache clear`,
	PreRunE: cacheSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearCache(cfg.CacheBackend, cacheDBFilePath(), cfg.CacheDBConnect); err != nil {
			contract.LogFatal("Failed to clear cache", err)
		}
		fmt.Println("Cache cleared successfully.")
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display cache statistics and connection details",
	Long: `Show the backend, the number of cached reports, the newest and oldest entry and
the table size.

Examples:
  covdelta cache status`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := cacheSetup(cmd, args); err != nil {
			return err
		}
		// Initialize caching only, no history tracking for cache commands
		if err := iocache.InitStores(cfg.CacheBackend, cfg.CacheDBConnect, "", ""); err != nil {
			return fmt.Errorf("failed to initialize cache: %w", err)
		}
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		status, err := iocache.Manager.GetReportCache().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
		iocache.PrintCacheStatus(os.Stdout, status)
	},
}
