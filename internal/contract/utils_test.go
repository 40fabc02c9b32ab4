package contract

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlainLabel(t *testing.T) {
	tests := []struct {
		name string
		pct  float64
		ok   bool
		want string
	}{
		{"full coverage", 100, true, HighValue},
		{"high boundary", 80, true, HighValue},
		{"moderate", 65.5, true, ModerateValue},
		{"low", 40, true, LowValue},
		{"critical", 12, true, CriticalValue},
		{"no data", 0, false, NoDataValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetPlainLabel(tt.pct, tt.ok))
		})
	}
}

func TestGetColorLabel(t *testing.T) {
	// Colored output wraps the plain label; the text itself must survive.
	assert.Contains(t, GetColorLabel(90, true), HighValue)
	assert.Contains(t, GetColorLabel(10, true), CriticalValue)
	assert.Equal(t, NoDataValue, GetColorLabel(0, false))
}

func TestSelectOutputFile(t *testing.T) {
	t.Run("empty path returns stdout", func(t *testing.T) {
		file, err := SelectOutputFile("")
		require.NoError(t, err)
		assert.Equal(t, os.Stdout, file)
	})

	t.Run("valid path creates file", func(t *testing.T) {
		tempFile := filepath.Join(t.TempDir(), "test_output.txt")

		file, err := SelectOutputFile(tempFile)
		require.NoError(t, err)
		assert.NotNil(t, file)
		_ = file.Close()

		_, err = os.Stat(tempFile)
		assert.NoError(t, err)
	})
}

func TestDBFilePaths(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	cachePath := GetCacheDBFilePath()
	historyPath := GetHistoryDBFilePath()

	assert.Contains(t, cachePath, ".covdelta_cache.db")
	assert.Contains(t, historyPath, ".covdelta_history.db")
	assert.NotEqual(t, cachePath, historyPath)
	assert.True(t, strings.HasPrefix(cachePath, homeDir), "path %s should start with home dir %s", cachePath, homeDir)
}

func TestTruncatePath(t *testing.T) {
	assert.Equal(t, "short.go", TruncatePath("short.go", 20))
	assert.Equal(t, "...main.go", TruncatePath("src/cmd/main.go", 10))
	assert.Equal(t, "abcdef", TruncatePath("abcdef", 3), "widths of 3 or less do not truncate")
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"yes", "TRUE", "1"} {
		got, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.True(t, got, s)
	}
	for _, s := range []string{"no", "False", "0"} {
		got, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.False(t, got, s)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	level, err := ParseLogLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLogLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	_, err = ParseLogLevel("verbose")
	assert.Error(t, err)
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo, LogFormatJSON)

	logger.Debug("hidden")
	logger.Info("delta computed", slog.String("build", "api#2"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "delta computed", record["msg"])
	assert.Equal(t, "api#2", record["build"])
	assert.Equal(t, "covdelta", record["service"])
}
