//go:build basic

// Package integration contains integration tests for covdelta.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
package integration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/covdelta/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useSQLiteIn points both stores at SQLite files inside a temporary directory.
func useSQLiteIn(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("COVDELTA_CACHE_BACKEND", "sqlite")
	t.Setenv("COVDELTA_CACHE_DB_CONNECT", filepath.Join(dir, "cache.db"))
	t.Setenv("COVDELTA_HISTORY_BACKEND", "sqlite")
	t.Setenv("COVDELTA_HISTORY_DB_CONNECT", filepath.Join(dir, "history.db"))
	return dir
}

// TestCovdeltaWithSQLite runs the full build flow against SQLite stores.
func TestCovdeltaWithSQLite(t *testing.T) {
	useSQLiteIn(t)
	exerciseHistory(t)
}

// TestCompareVerification checks the lower/higher Cobertura scenario end to end.
func TestCompareVerification(t *testing.T) {
	useSQLiteIn(t)

	report := requireDeltaReport(t, "compare",
		"--reference", fixture("cobertura-lower-coverage.xml"),
		"--current", fixture("cobertura-higher-coverage.xml"),
	)
	assert.Equal(t, 100, report.Deltas[schema.ConditionalElement])
	assert.Equal(t, 50, report.Deltas[schema.LineElement])
	assert.Equal(t, 0, report.Deltas[schema.FileElement])
	assert.False(t, report.HasDelta[schema.FileElement])
}

// TestIngestTwiceFails checks that a build result is never recomputed.
func TestIngestTwiceFails(t *testing.T) {
	useSQLiteIn(t)

	_, err := runCovdelta(t, "ingest", "--job", "once", "--number", "1", fixture("cobertura-lower-coverage.xml"))
	require.NoError(t, err)

	output, err := runCovdelta(t, "ingest", "--job", "once", "--number", "1", fixture("cobertura-higher-coverage.xml"))
	require.Error(t, err)
	assert.Contains(t, string(output), schema.ErrResultExists.Error())
}

// TestHistoryExport checks that both Parquet datasets are written.
func TestHistoryExport(t *testing.T) {
	dir := useSQLiteIn(t)

	_, err := runCovdelta(t, "ingest", "--job", "exp", "--number", "1", fixture("cobertura-lower-coverage.xml"))
	require.NoError(t, err)

	out := filepath.Join(dir, "export")
	_, err = runCovdelta(t, "history", "export", "--output-file", out)
	require.NoError(t, err)

	for _, suffix := range []string{".builds.parquet", ".element_summaries.parquet"} {
		info, err := os.Stat(out + suffix)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

// TestVersionListsAdapters checks the version output names every report adapter.
func TestVersionListsAdapters(t *testing.T) {
	output, err := runCovdelta(t, "version")
	require.NoError(t, err)
	assert.Contains(t, string(output), "covdelta ")
	assert.Contains(t, string(output), "Adapters: cobertura, istanbul, records")
}
