//go:build basic || database

package integration

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/huangsam/covdelta/schema"
	"github.com/stretchr/testify/require"
)

var (
	// sharedCovdeltaPath holds the path to a shared covdelta binary built once for all tests.
	sharedCovdeltaPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	// Run all tests
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getCovdeltaBinary returns the path to the covdelta binary, building it once if needed.
func getCovdeltaBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		// Create a temp directory for the binary
		var err error
		tempDir, err = os.MkdirTemp("", "covdelta-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		covdeltaPath := filepath.Join(tempDir, "covdelta")
		buildCmd := exec.Command("go", "build", "-o", covdeltaPath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		if err := buildCmd.Run(); err != nil {
			panic(fmt.Sprintf("failed to build covdelta: %v", err))
		}

		sharedCovdeltaPath = covdeltaPath
	})

	return sharedCovdeltaPath
}

// fixture returns the path of a report fixture relative to the project root.
func fixture(name string) string {
	return "cobertura:" + filepath.Join("core", "normalize", "testdata", name)
}

// runCovdelta runs the binary from the project root and returns its stdout and stderr.
func runCovdelta(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()
	cmd := exec.Command(getCovdeltaBinary(), args...)
	cmd.Dir = "../" // Run from project root
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Logf("Command failed: %s\nOutput: %s", cmd.String(), string(output))
	}
	return output, err
}

// requireDeltaReport runs a command with JSON output and decodes the delta report.
func requireDeltaReport(t *testing.T, args ...string) schema.DeltaReport {
	t.Helper()
	out := filepath.Join(t.TempDir(), "report.json")
	_, err := runCovdelta(t, append(args, "--output", "json", "--output-file", out)...)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var report schema.DeltaReport
	require.NoError(t, json.Unmarshal(data, &report))
	return report
}

// exerciseHistory ingests the lower/higher fixture pair and checks the stored deltas.
func exerciseHistory(t *testing.T) {
	t.Helper()

	_, err := runCovdelta(t, "cache", "clear")
	require.NoError(t, err)
	_, err = runCovdelta(t, "history", "clear")
	require.NoError(t, err)

	first := requireDeltaReport(t, "ingest", "--job", "it", "--number", "1", fixture("cobertura-lower-coverage.xml"))
	require.Empty(t, first.ReferenceID)

	second := requireDeltaReport(t, "ingest", "--job", "it", "--number", "2", fixture("cobertura-higher-coverage.xml"))
	require.Equal(t, "it#1", second.ReferenceID)
	require.Equal(t, 100, second.Deltas[schema.ConditionalElement])
	require.Equal(t, 50, second.Deltas[schema.LineElement])

	stored := requireDeltaReport(t, "delta", "it#2")
	require.Equal(t, second.Deltas, stored.Deltas)

	output, err := runCovdelta(t, "reference", "it#2")
	require.NoError(t, err)
	require.Contains(t, string(output), "it#1")

	_, err = runCovdelta(t, "history", "list", "--job", "it")
	require.NoError(t, err)
	_, err = runCovdelta(t, "history", "status")
	require.NoError(t, err)
	_, err = runCovdelta(t, "cache", "status")
	require.NoError(t, err)
}
