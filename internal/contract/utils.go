package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Coverage label constants.
const (
	HighValue     = "High"     // High coverage
	ModerateValue = "Moderate" // Moderate coverage
	LowValue      = "Low"      // Low coverage
	CriticalValue = "Critical" // Critical coverage gap
	NoDataValue   = "n/a"      // No data for the element
)

// Color variables for console output.
var (
	HighColor     = color.New(color.FgGreen, color.Bold) // HighColor marks well-covered elements.
	ModerateColor = color.New(color.FgCyan)              // ModerateColor is informational.
	LowColor      = color.New(color.FgYellow)            // LowColor is standard caution, not bold.
	CriticalColor = color.New(color.FgRed, color.Bold)   // CriticalColor represents standard danger.

	IncreaseColor = color.New(color.FgGreen) // IncreaseColor marks coverage gains.
	DecreaseColor = color.New(color.FgRed)   // DecreaseColor marks coverage losses.
)

// GetPlainLabel returns a plain text label for a coverage percentage.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(pct float64, ok bool) string {
	if !ok {
		return NoDataValue
	}
	switch {
	case pct >= 80:
		return HighValue
	case pct >= 60:
		return ModerateValue
	case pct >= 40:
		return LowValue
	default:
		return CriticalValue
	}
}

// GetColorLabel returns a colored label for a coverage percentage.
func GetColorLabel(pct float64, ok bool) string {
	label := GetPlainLabel(pct, ok)
	switch label {
	case HighValue:
		return HighColor.Sprint(label)
	case ModerateValue:
		return ModerateColor.Sprint(label)
	case LowValue:
		return LowColor.Sprint(label)
	case CriticalValue:
		return CriticalColor.Sprint(label)
	default:
		return label
	}
}

// SelectOutputFile returns the file handle for output based on the provided path.
// If the path is empty, it returns os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for the report cache.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".covdelta_cache.db"
	}
	return filepath.Join(homeDir, ".covdelta_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for build history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".covdelta_history.db"
	}
	return filepath.Join(homeDir, ".covdelta_history.db")
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
