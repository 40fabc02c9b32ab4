package contract

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/huangsam/covdelta/schema"
)

// Default values for configuration.
const (
	DefaultPrecision    = 1
	DefaultHistoryLimit = 25
	MaxHistoryLimit     = 1000
)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// Config holds the runtime configuration for a covdelta command.
// This struct remains the "final, validated" config.
type Config struct {
	// --- Build identity (ingest) ---
	BuildID string
	Job     string
	Number  int
	Outcome schema.Outcome
	Inputs  []schema.ReportInput

	// --- Reference selection ---
	Strategy      schema.Strategy
	ReferenceID   string
	AllowUnstable bool
	Messages      []string

	// --- Ephemeral comparison ---
	ReferenceInputs []schema.ReportInput
	CurrentInputs   []schema.ReportInput

	// --- Output ---
	Precision   int
	Output      schema.OutputMode
	OutputFile  string
	Width       int // Terminal width override (0 = auto-detect)
	UseColors   bool
	Limit       int
	MetricsFile string

	// --- Logging ---
	LogLevel  slog.Level
	LogFormat string

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext
}

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	InputArgs []string

	// --- Fields from rootCmd.PersistentFlags() ---
	OutputFile       string `mapstructure:"output-file"`
	Precision        int    `mapstructure:"precision"`
	Output           string `mapstructure:"output"`
	Width            int    `mapstructure:"width"`
	Color            string `mapstructure:"color"`
	LogLevel         string `mapstructure:"log-level"`
	LogFormat        string `mapstructure:"log-format"`
	MetricsFile      string `mapstructure:"metrics-file"`
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`

	// --- Fields from ingestCmd.Flags() ---
	BuildID       string   `mapstructure:"build-id"`
	Job           string   `mapstructure:"job"`
	Number        int      `mapstructure:"number"`
	Outcome       string   `mapstructure:"outcome"`
	Strategy      string   `mapstructure:"strategy"`
	ReferenceID   string   `mapstructure:"reference-id"`
	AllowUnstable bool     `mapstructure:"allow-unstable"`
	Messages      []string `mapstructure:"message"`

	// --- Fields from compareCmd.Flags() ---
	Reference []string `mapstructure:"reference"`
	Current   []string `mapstructure:"current"`

	// --- Fields from historyListCmd.Flags() ---
	Limit int `mapstructure:"limit"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Inputs = append([]schema.ReportInput(nil), c.Inputs...)
	clone.ReferenceInputs = append([]schema.ReportInput(nil), c.ReferenceInputs...)
	clone.CurrentInputs = append([]schema.ReportInput(nil), c.CurrentInputs...)
	clone.Messages = append([]string(nil), c.Messages...)
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processBuildInputs(cfg, input); err != nil {
		return err
	}
	if err := processReferenceSelection(cfg, input); err != nil {
		return err
	}
	return processCompareInputs(cfg, input)
}

// ProcessProfilingConfig enables profiling when a file prefix is given.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) {
	profilePrefix = strings.TrimSpace(profilePrefix)
	profile.Enabled = profilePrefix != ""
	profile.Prefix = profilePrefix
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// ParseReportInput splits an "adapter:path" argument.
func ParseReportInput(arg string) (schema.ReportInput, error) {
	adapter, path, ok := strings.Cut(arg, ":")
	adapter = strings.ToLower(strings.TrimSpace(adapter))
	path = strings.TrimSpace(path)
	if !ok || adapter == "" || path == "" {
		return schema.ReportInput{}, fmt.Errorf("invalid report %q: expected adapter:path", arg)
	}
	return schema.ReportInput{Adapter: adapter, Path: path}, nil
}

// ParseReportInputs parses every argument with ParseReportInput.
func ParseReportInputs(args []string) ([]schema.ReportInput, error) {
	inputs := make([]schema.ReportInput, 0, len(args))
	for _, arg := range args {
		in, err := ParseReportInput(arg)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return fmt.Errorf("cache backend: %w", err)
	}

	// --- History Backend Validation ---
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("history backend: %w", err)
	}

	// Cache and history must not share one SQLite file
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		historyDBPath := cfg.HistoryDBConnect
		if historyDBPath == "" {
			historyDBPath = GetHistoryDBFilePath()
		}
		if cacheDBPath == historyDBPath {
			return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}

	return nil
}

// validateSimpleInputs processes and validates output and logging fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.MetricsFile = strings.TrimSpace(input.MetricsFile)

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}

	cfg.Limit = input.Limit
	if cfg.Limit == 0 {
		cfg.Limit = DefaultHistoryLimit
	}
	if cfg.Limit < 0 || cfg.Limit > MaxHistoryLimit {
		return fmt.Errorf("limit must be greater than 0 and cannot exceed %d (received %d)", MaxHistoryLimit, input.Limit)
	}

	level, err := ParseLogLevel(input.LogLevel)
	if err != nil {
		return err
	}
	cfg.LogLevel = level

	cfg.LogFormat = strings.ToLower(strings.TrimSpace(input.LogFormat))
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = LogFormatText
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("invalid log format '%s'. must be text, json", input.LogFormat)
	}

	return nil
}

// processBuildInputs handles the build identity and positional report arguments.
func processBuildInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.BuildID = strings.TrimSpace(input.BuildID)
	cfg.Job = strings.TrimSpace(input.Job)
	cfg.Number = input.Number
	if cfg.Number < 0 {
		return fmt.Errorf("build number cannot be negative (received %d)", input.Number)
	}
	if cfg.BuildID == "" && cfg.Job != "" && cfg.Number > 0 {
		cfg.BuildID = fmt.Sprintf("%s#%d", cfg.Job, cfg.Number)
	}

	outcome := strings.ToLower(strings.TrimSpace(input.Outcome))
	if outcome == "" {
		outcome = string(schema.SuccessOutcome)
	}
	cfg.Outcome = schema.Outcome(outcome)
	if _, ok := schema.ValidOutcomes[cfg.Outcome]; !ok {
		return fmt.Errorf("invalid outcome '%s'. must be running, success, unstable, failure, aborted", input.Outcome)
	}

	inputs, err := ParseReportInputs(input.InputArgs)
	if err != nil {
		return err
	}
	cfg.Inputs = inputs
	return nil
}

// processReferenceSelection handles the reference strategy and its parameters.
func processReferenceSelection(cfg *Config, input *ConfigRawInput) error {
	strategy := strings.ToLower(strings.TrimSpace(input.Strategy))
	if strategy == "" {
		strategy = string(schema.PreviousSuccessfulStrategy)
	}
	cfg.Strategy = schema.Strategy(strategy)
	if _, ok := schema.ValidStrategies[cfg.Strategy]; !ok {
		return fmt.Errorf("invalid strategy '%s'. must be explicit, previous-successful, external", input.Strategy)
	}

	cfg.ReferenceID = strings.TrimSpace(input.ReferenceID)
	cfg.AllowUnstable = input.AllowUnstable
	cfg.Messages = nil
	for _, m := range input.Messages {
		if m = strings.TrimSpace(m); m != "" {
			cfg.Messages = append(cfg.Messages, m)
		}
	}

	switch cfg.Strategy {
	case schema.ExplicitStrategy, schema.ExternalStrategy:
		if cfg.ReferenceID == "" && cfg.BuildID != "" {
			return fmt.Errorf("--reference-id is required with the %s strategy", cfg.Strategy)
		}
	}
	if cfg.ReferenceID != "" && cfg.ReferenceID == cfg.BuildID {
		return fmt.Errorf("build %q cannot reference itself", cfg.BuildID)
	}
	return nil
}

// processCompareInputs handles the reference and current reports of the compare command.
func processCompareInputs(cfg *Config, input *ConfigRawInput) error {
	var err error
	if cfg.ReferenceInputs, err = ParseReportInputs(input.Reference); err != nil {
		return fmt.Errorf("--reference: %w", err)
	}
	if cfg.CurrentInputs, err = ParseReportInputs(input.Current); err != nil {
		return fmt.Errorf("--current: %w", err)
	}
	return nil
}
