package iocache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/huangsam/covdelta/internal/contract"
	"github.com/huangsam/covdelta/schema"
)

// Table names for build history.
const (
	buildsTable     = "covdelta_builds"
	referencesTable = "covdelta_references"
	resultsTable    = "covdelta_results"
	summariesTable  = "covdelta_element_summaries"
)

// historyTables lists the history tables in creation order.
var historyTables = []string{buildsTable, referencesTable, resultsTable, summariesTable}

// HistoryStoreImpl implements contract.HistoryStore on SQLite, MySQL or PostgreSQL.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a HistoryStore for the backend. The none backend keeps the
// history in memory for the lifetime of the process.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	if backend == schema.NoneBackend {
		return NewMemoryHistory(), nil
	}

	db, err := openDB(backend, connStr, GetHistoryDBFilePath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history store: %w", err)
	}
	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}
	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

// createHistoryTables creates the history tables if they are missing.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	for _, table := range historyTables {
		if _, err := db.Exec(getCreateHistoryTableQuery(table, backend)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

// getCreateHistoryTableQuery returns the CREATE TABLE query of one history table.
func getCreateHistoryTableQuery(table string, backend schema.DatabaseBackend) string {
	// Column types per backend: identifier, timestamp, large text, boolean.
	id, ts, text, boolean := "TEXT", "TEXT", "TEXT", "INTEGER"
	switch backend {
	case schema.MySQLBackend:
		id, ts, text, boolean = "VARCHAR(255)", "DATETIME(6)", "LONGTEXT", "BOOLEAN"
	case schema.PostgreSQLBackend:
		ts, boolean = "TIMESTAMPTZ", "BOOLEAN"
	}
	quoted := quoteTableName(table, backend)

	switch table {
	case buildsTable:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				build_id %s PRIMARY KEY,
				job %s NOT NULL,
				build_number INTEGER NOT NULL,
				outcome VARCHAR(32) NOT NULL,
				started_at %s NOT NULL,
				finished_at %s
			);
		`, quoted, id, id, ts, ts)

	case referencesTable:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				build_id %s PRIMARY KEY,
				reference_id %s NOT NULL,
				strategy VARCHAR(32) NOT NULL,
				messages %s NOT NULL,
				resolved_at %s NOT NULL
			);
		`, quoted, id, id, text, ts)

	case resultsTable:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				build_id %s PRIMARY KEY,
				state VARCHAR(32) NOT NULL,
				result_json %s NOT NULL,
				created_at %s NOT NULL
			);
		`, quoted, id, text, ts)

	default: // summariesTable
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				build_id %s NOT NULL,
				element VARCHAR(32) NOT NULL,
				covered INTEGER NOT NULL,
				total INTEGER NOT NULL,
				delta INTEGER,
				has_delta %s NOT NULL,
				PRIMARY KEY (build_id, element)
			);
		`, quoted, id, boolean)
	}
}

// q quotes the table and rebinds placeholders for the backend.
func (hs *HistoryStoreImpl) q(format, table string) string {
	return rebind(fmt.Sprintf(format, quoteTableName(table, hs.backend)), hs.backend)
}

// insertIgnore returns an INSERT that silently skips rows whose key already exists.
func (hs *HistoryStoreImpl) insertIgnore(table, columns string, n int, key string) string {
	values := "?"
	for range n - 1 {
		values += ", ?"
	}
	quoted := quoteTableName(table, hs.backend)
	var query string
	switch hs.backend {
	case schema.MySQLBackend:
		query = fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s)", quoted, columns, values)
	case schema.PostgreSQLBackend:
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING", quoted, columns, values, key)
	default: // SQLite
		query = fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)", quoted, columns, values)
	}
	return rebind(query, hs.backend)
}

// CreateBuild appends a build to the history.
func (hs *HistoryStoreImpl) CreateBuild(ctx context.Context, b schema.BuildRecord) error {
	query := hs.insertIgnore(buildsTable, "build_id, job, build_number, outcome, started_at, finished_at", 6, "build_id")
	res, err := hs.db.ExecContext(ctx, query, b.ID, b.Job, b.Number, string(b.Outcome),
		formatTime(b.StartedAt, hs.backend), nullableTime(b.FinishedAt, hs.backend))
	if err != nil {
		return fmt.Errorf("failed to record build %s: %w", b.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("build %s is already recorded", b.ID)
	}
	return nil
}

// FinishBuild marks a build with its terminal outcome.
func (hs *HistoryStoreImpl) FinishBuild(ctx context.Context, id string, outcome schema.Outcome, finishedAt time.Time) error {
	if !outcome.IsTerminal() {
		return fmt.Errorf("outcome %q is not terminal", outcome)
	}
	query := hs.q("UPDATE %s SET outcome = ?, finished_at = ? WHERE build_id = ?", buildsTable)
	res, err := hs.db.ExecContext(ctx, query, string(outcome), formatTime(finishedAt, hs.backend), id)
	if err != nil {
		return fmt.Errorf("failed to finish build %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("build %s: %w", id, schema.ErrBuildNotFound)
	}
	return nil
}

const buildColumns = "b.build_id, b.job, b.build_number, b.outcome, b.started_at, b.finished_at, r.state"

// buildSelect joins builds with their result state.
func (hs *HistoryStoreImpl) buildSelect(where string) string {
	query := fmt.Sprintf("SELECT %s FROM %s b LEFT JOIN %s r ON r.build_id = b.build_id WHERE %s",
		buildColumns, quoteTableName(buildsTable, hs.backend), quoteTableName(resultsTable, hs.backend), where)
	return rebind(query, hs.backend)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuild(row rowScanner) (schema.BuildRecord, error) {
	var (
		b        schema.BuildRecord
		outcome  string
		state    sql.NullString
		started  timeScanner
		finished timeScanner
	)
	if err := row.Scan(&b.ID, &b.Job, &b.Number, &outcome, &started, &finished, &state); err != nil {
		return b, err
	}
	b.Outcome = schema.Outcome(outcome)
	b.State = schema.State(state.String)
	b.StartedAt = started.Time
	b.FinishedAt = finished.ptr()
	return b, nil
}

// GetBuild returns a build by id.
func (hs *HistoryStoreImpl) GetBuild(ctx context.Context, id string) (schema.BuildRecord, error) {
	b, err := scanBuild(hs.db.QueryRowContext(ctx, hs.buildSelect("b.build_id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return b, fmt.Errorf("build %s: %w", id, schema.ErrBuildNotFound)
	}
	if err != nil {
		return b, fmt.Errorf("failed to read build %s: %w", id, err)
	}
	return b, nil
}

// ListBuilds returns the builds of a job, newest first. An empty job lists all builds.
func (hs *HistoryStoreImpl) ListBuilds(ctx context.Context, job string) ([]schema.BuildRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if job == "" {
		rows, err = hs.db.QueryContext(ctx, hs.buildSelect("1 = 1")+" ORDER BY b.started_at DESC, b.build_number DESC")
	} else {
		rows, err = hs.db.QueryContext(ctx, hs.buildSelect("b.job = ?")+" ORDER BY b.build_number DESC", job)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query builds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var builds []schema.BuildRecord
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan build: %w", err)
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating builds: %w", err)
	}
	return builds, nil
}

// HasResult reports whether a result was stored for the build.
func (hs *HistoryStoreImpl) HasResult(ctx context.Context, buildID string) (bool, error) {
	var n int
	query := hs.q("SELECT COUNT(*) FROM %s WHERE build_id = ?", resultsTable)
	if err := hs.db.QueryRowContext(ctx, query, buildID).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to look up result of %s: %w", buildID, err)
	}
	return n > 0, nil
}

// GetReference returns the reference attached to a build, or nil.
func (hs *HistoryStoreImpl) GetReference(ctx context.Context, buildID string) (*schema.ReferenceBuild, error) {
	var (
		ref      schema.ReferenceBuild
		strategy string
		messages string
		resolved timeScanner
	)
	query := hs.q("SELECT build_id, reference_id, strategy, messages, resolved_at FROM %s WHERE build_id = ?", referencesTable)
	err := hs.db.QueryRowContext(ctx, query, buildID).Scan(&ref.BuildID, &ref.ReferenceID, &strategy, &messages, &resolved)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read reference of %s: %w", buildID, err)
	}
	if err := json.Unmarshal([]byte(messages), &ref.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode reference messages of %s: %w", buildID, err)
	}
	ref.Strategy = schema.Strategy(strategy)
	ref.ResolvedAt = resolved.Time
	return &ref, nil
}

// AttachReference stores the reference of a build once.
func (hs *HistoryStoreImpl) AttachReference(ctx context.Context, ref schema.ReferenceBuild) error {
	messages, err := json.Marshal(ref.Messages)
	if err != nil {
		return err
	}
	query := hs.insertIgnore(referencesTable, "build_id, reference_id, strategy, messages, resolved_at", 5, "build_id")
	res, err := hs.db.ExecContext(ctx, query, ref.BuildID, ref.ReferenceID, string(ref.Strategy), string(messages),
		formatTime(ref.ResolvedAt, hs.backend))
	if err != nil {
		return fmt.Errorf("failed to attach reference to %s: %w", ref.BuildID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("build %s: %w", ref.BuildID, schema.ErrReferenceAttached)
	}
	return nil
}

// SaveResult stores a finalized result and its summary rows in one transaction.
func (hs *HistoryStoreImpl) SaveResult(ctx context.Context, result *schema.Result) error {
	if !result.Finalized() {
		return fmt.Errorf("result of %s is not finalized (state %s)", result.BuildID(), result.State())
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result of %s: %w", result.BuildID(), err)
	}

	tx, err := hs.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := hs.insertIgnore(resultsTable, "build_id, state, result_json, created_at", 4, "build_id")
	res, err := tx.ExecContext(ctx, query, result.BuildID(), string(result.State()), string(data),
		formatTime(time.Now(), hs.backend))
	if err != nil {
		return fmt.Errorf("failed to save result of %s: %w", result.BuildID(), err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("build %s: %w", result.BuildID(), schema.ErrResultExists)
	}

	summaryQuery := hs.q("INSERT INTO %s (build_id, element, covered, total, delta, has_delta) VALUES (?, ?, ?, ?, ?, ?)", summariesTable)
	for _, row := range result.Summary() {
		var delta any
		if row.Delta != nil {
			delta = *row.Delta
		}
		if _, err := tx.ExecContext(ctx, summaryQuery, row.BuildID, row.Element.String(),
			row.Covered, row.Total, delta, row.HasDelta); err != nil {
			return fmt.Errorf("failed to save %s summary of %s: %w", row.Element, row.BuildID, err)
		}
	}
	return tx.Commit()
}

// GetResult returns the stored result of a build.
func (hs *HistoryStoreImpl) GetResult(ctx context.Context, buildID string) (*schema.Result, error) {
	var data string
	query := hs.q("SELECT result_json FROM %s WHERE build_id = ?", resultsTable)
	err := hs.db.QueryRowContext(ctx, query, buildID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("build %s: %w", buildID, schema.ErrResultNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read result of %s: %w", buildID, err)
	}
	var result schema.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("failed to decode result of %s: %w", buildID, err)
	}
	return &result, nil
}

// ListSummaries returns the summary rows of every stored result.
func (hs *HistoryStoreImpl) ListSummaries(ctx context.Context) ([]schema.ElementSummaryRecord, error) {
	query := hs.q("SELECT build_id, element, covered, total, delta, has_delta FROM %s ORDER BY build_id", summariesTable)
	rows, err := hs.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []schema.ElementSummaryRecord
	for rows.Next() {
		var (
			rec     schema.ElementSummaryRecord
			element string
			delta   sql.NullInt64
		)
		if err := rows.Scan(&rec.BuildID, &element, &rec.Covered, &rec.Total, &delta, &rec.HasDelta); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		if rec.Element, err = schema.ParseElement(element); err != nil {
			return nil, err
		}
		if delta.Valid {
			d := int(delta.Int64)
			rec.Delta = &d
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summaries: %w", err)
	}
	sortSummaries(records)
	return records, nil
}

// sortSummaries orders rows by build, then by element in hierarchy order.
func sortSummaries(records []schema.ElementSummaryRecord) {
	slices.SortStableFunc(records, func(a, b schema.ElementSummaryRecord) int {
		if a.BuildID != b.BuildID {
			if a.BuildID < b.BuildID {
				return -1
			}
			return 1
		}
		return int(a.Element) - int(b.Element)
	})
}

// Close closes the underlying DB connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if hs.db == nil {
		return status, nil
	}

	for _, table := range historyTables {
		var count int64
		row := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend)))
		if err := row.Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalBuilds = int(status.TableSizes[buildsTable])
	status.TotalReferences = int(status.TableSizes[referencesTable])
	status.TotalResults = int(status.TableSizes[resultsTable])
	if status.TotalBuilds == 0 {
		return status, nil
	}

	var last timeScanner
	row := hs.db.QueryRow(hs.q("SELECT build_id, started_at FROM %s ORDER BY started_at DESC LIMIT 1", buildsTable))
	if err := row.Scan(&status.LastBuildID, &last); err != nil {
		return status, fmt.Errorf("failed to get last build: %w", err)
	}
	status.LastBuildTime = last.Time

	var oldest timeScanner
	row = hs.db.QueryRow(hs.q("SELECT started_at FROM %s ORDER BY started_at ASC LIMIT 1", buildsTable))
	if err := row.Scan(&oldest); err != nil {
		return status, fmt.Errorf("failed to get oldest build: %w", err)
	}
	status.OldestBuildTime = oldest.Time
	return status, nil
}
