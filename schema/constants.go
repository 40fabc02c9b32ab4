package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for history and caching.
	DatabaseBackend string

	// Strategy represents how a reference build is selected.
	Strategy string

	// Outcome represents the result of a build as reported by the host.
	Outcome string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All reference selection strategies supported.
const (
	ExplicitStrategy           Strategy = "explicit"
	PreviousSuccessfulStrategy Strategy = "previous-successful" // default
	ExternalStrategy           Strategy = "external"
)

// All build outcomes supported.
const (
	RunningOutcome  Outcome = "running"
	SuccessOutcome  Outcome = "success"
	UnstableOutcome Outcome = "unstable"
	FailureOutcome  Outcome = "failure"
	AbortedOutcome  Outcome = "aborted"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidStrategies lists all valid reference strategies.
var ValidStrategies = map[Strategy]struct{}{
	ExplicitStrategy:           {},
	PreviousSuccessfulStrategy: {},
	ExternalStrategy:           {},
}

// ValidOutcomes lists all valid build outcomes.
var ValidOutcomes = map[Outcome]struct{}{
	RunningOutcome:  {},
	SuccessOutcome:  {},
	UnstableOutcome: {},
	FailureOutcome:  {},
	AbortedOutcome:  {},
}

// IsTerminal reports whether the build has finished. Running builds are never
// eligible as reference builds.
func (o Outcome) IsTerminal() bool {
	switch o {
	case SuccessOutcome, UnstableOutcome, FailureOutcome, AbortedOutcome:
		return true
	default:
		return false
	}
}
