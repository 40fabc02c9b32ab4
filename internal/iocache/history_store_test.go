package iocache

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/covdelta/internal/contract"
	"github.com/huangsam/covdelta/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// historyBackends returns a fresh store of every kind that runs without a server.
func historyBackends(t *testing.T) map[string]func() contract.HistoryStore {
	return map[string]func() contract.HistoryStore{
		"memory": func() contract.HistoryStore { return NewMemoryHistory() },
		"sqlite": func() contract.HistoryStore {
			store, err := NewHistoryStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "history.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			return store
		},
	}
}

// finalizedResult builds a skipped-delta result with lines hits.
func finalizedResult(t *testing.T, buildID string, hits ...int64) *schema.Result {
	t.Helper()
	root := schema.NewNode(schema.ReportElement, "")
	file := schema.NewNode(schema.FileElement, "main.go")
	for i, h := range hits {
		require.NoError(t, file.InsertChild(schema.NewLine(i+1, h)))
	}
	require.NoError(t, root.InsertChild(file))
	result := schema.NewResult(buildID, root)
	require.NoError(t, result.AttachReference(nil))
	require.NoError(t, result.SkipDeltas())
	return result
}

func build(job string, number int, outcome schema.Outcome, started time.Time) schema.BuildRecord {
	return schema.BuildRecord{
		ID:        job + "#" + strconv.Itoa(number),
		Job:       job,
		Number:    number,
		Outcome:   outcome,
		StartedAt: started,
	}
}

func TestHistoryStore_Builds(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	for name, newStore := range historyBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()

			for i := 1; i <= 3; i++ {
				require.NoError(t, store.CreateBuild(ctx, build("api", i, schema.RunningOutcome, base.Add(time.Duration(i)*time.Minute))))
			}
			require.NoError(t, store.CreateBuild(ctx, build("web", 1, schema.SuccessOutcome, base)))
			assert.Error(t, store.CreateBuild(ctx, build("api", 1, schema.RunningOutcome, base)), "duplicate build id")

			builds, err := store.ListBuilds(ctx, "api")
			require.NoError(t, err)
			require.Len(t, builds, 3)
			assert.Equal(t, []int{3, 2, 1}, []int{builds[0].Number, builds[1].Number, builds[2].Number})

			all, err := store.ListBuilds(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 4)
			assert.Equal(t, "api#3", all[0].ID)

			finished := base.Add(time.Hour)
			require.NoError(t, store.FinishBuild(ctx, "api#2", schema.UnstableOutcome, finished))
			assert.Error(t, store.FinishBuild(ctx, "api#2", schema.RunningOutcome, finished))
			assert.ErrorIs(t, store.FinishBuild(ctx, "api#9", schema.SuccessOutcome, finished), schema.ErrBuildNotFound)

			b, err := store.GetBuild(ctx, "api#2")
			require.NoError(t, err)
			assert.Equal(t, schema.UnstableOutcome, b.Outcome)
			require.NotNil(t, b.FinishedAt)
			assert.True(t, finished.Equal(*b.FinishedAt))
			assert.True(t, b.StartedAt.Equal(base.Add(2*time.Minute)))
			assert.Empty(t, b.State)

			_, err = store.GetBuild(ctx, "nope")
			assert.ErrorIs(t, err, schema.ErrBuildNotFound)
		})
	}
}

func TestHistoryStore_References(t *testing.T) {
	ctx := context.Background()

	for name, newStore := range historyBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()

			ref, err := store.GetReference(ctx, "api#2")
			require.NoError(t, err)
			assert.Nil(t, ref)

			want := schema.ReferenceBuild{
				BuildID:     "api#2",
				ReferenceID: "api#1",
				Strategy:    schema.PreviousSuccessfulStrategy,
				Messages:    []string{"Found reference build 'api#1' for job 'api'"},
				ResolvedAt:  time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
			}
			require.NoError(t, store.AttachReference(ctx, want))

			other := want
			other.ReferenceID = "api#0"
			assert.ErrorIs(t, store.AttachReference(ctx, other), schema.ErrReferenceAttached)

			got, err := store.GetReference(ctx, "api#2")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "api#1", got.ReferenceID)
			assert.Equal(t, want.Messages, got.Messages)
			assert.Equal(t, want.Strategy, got.Strategy)
			assert.True(t, want.ResolvedAt.Equal(got.ResolvedAt))
		})
	}
}

func TestHistoryStore_Results(t *testing.T) {
	ctx := context.Background()

	for name, newStore := range historyBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()
			require.NoError(t, store.CreateBuild(ctx, build("api", 1, schema.SuccessOutcome, time.Now())))

			has, err := store.HasResult(ctx, "api#1")
			require.NoError(t, err)
			assert.False(t, has)
			_, err = store.GetResult(ctx, "api#1")
			assert.ErrorIs(t, err, schema.ErrResultNotFound)

			unfinished := schema.NewResult("api#1", schema.NewNode(schema.ReportElement, ""))
			assert.Error(t, store.SaveResult(ctx, unfinished))

			result := finalizedResult(t, "api#1", 1, 0, 3)
			require.NoError(t, store.SaveResult(ctx, result))
			assert.ErrorIs(t, store.SaveResult(ctx, finalizedResult(t, "api#1", 1)), schema.ErrResultExists)

			has, err = store.HasResult(ctx, "api#1")
			require.NoError(t, err)
			assert.True(t, has)

			got, err := store.GetResult(ctx, "api#1")
			require.NoError(t, err)
			assert.Equal(t, schema.DeltaSkippedState, got.State())
			assert.True(t, got.Root().Frozen())
			assert.True(t, result.Root().Equal(got.Root()))
			assert.Equal(t, schema.Ratio{Covered: 2, Total: 3}, got.Coverage(schema.LineElement))

			b, err := store.GetBuild(ctx, "api#1")
			require.NoError(t, err)
			assert.Equal(t, schema.DeltaSkippedState, b.State)

			summaries, err := store.ListSummaries(ctx)
			require.NoError(t, err)
			assert.Equal(t, result.Summary(), summaries)
		})
	}
}

func TestHistoryStore_Status(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	for name, newStore := range historyBackends(t) {
		t.Run(name, func(t *testing.T) {
			store := newStore()

			status, err := store.GetStatus()
			require.NoError(t, err)
			assert.True(t, status.Connected)
			assert.Zero(t, status.TotalBuilds)

			require.NoError(t, store.CreateBuild(ctx, build("api", 1, schema.SuccessOutcome, base)))
			require.NoError(t, store.CreateBuild(ctx, build("api", 2, schema.SuccessOutcome, base.Add(time.Hour))))
			require.NoError(t, store.SaveResult(ctx, finalizedResult(t, "api#1", 1)))

			status, err = store.GetStatus()
			require.NoError(t, err)
			assert.Equal(t, 2, status.TotalBuilds)
			assert.Equal(t, 1, status.TotalResults)
			assert.Equal(t, "api#2", status.LastBuildID)
			assert.True(t, base.Equal(status.OldestBuildTime))
			assert.Equal(t, int64(2), status.TableSizes[buildsTable])
		})
	}
}

func TestMemoryHistory_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryHistory()
	ref := schema.ReferenceBuild{BuildID: "api#2", ReferenceID: "api#1"}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		attached int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.AttachReference(ctx, ref) == nil {
				mu.Lock()
				attached++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, attached)
}

func TestNewHistoryStore_NoneBackend(t *testing.T) {
	store, err := NewHistoryStore(schema.NoneBackend, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryHistory{}, store)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "none", status.Backend)
}

func TestNewHistoryStore_Errors(t *testing.T) {
	_, err := NewHistoryStore("oracle", "")
	assert.Error(t, err)

	_, err = NewHistoryStore(schema.MySQLBackend, "not a dsn")
	assert.Error(t, err)
}

func TestGetCreateHistoryTableQuery(t *testing.T) {
	tests := []struct {
		backend  schema.DatabaseBackend
		contains []string
	}{
		{schema.SQLiteBackend, []string{`"covdelta_builds"`, "started_at TEXT"}},
		{schema.MySQLBackend, []string{"`covdelta_builds`", "DATETIME(6)", "VARCHAR(255)"}},
		{schema.PostgreSQLBackend, []string{`"covdelta_builds"`, "TIMESTAMPTZ"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			query := getCreateHistoryTableQuery(buildsTable, tt.backend)
			for _, s := range tt.contains {
				assert.Contains(t, query, s)
			}
		})
	}
	assert.Contains(t, getCreateHistoryTableQuery(summariesTable, schema.SQLiteBackend), "PRIMARY KEY (build_id, element)")
}

func TestInsertIgnore(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		want    string
	}{
		{schema.SQLiteBackend, `INSERT OR IGNORE INTO "t" (a, b) VALUES (?, ?)`},
		{schema.MySQLBackend, "INSERT IGNORE INTO `t` (a, b) VALUES (?, ?)"},
		{schema.PostgreSQLBackend, `INSERT INTO "t" (a, b) VALUES ($1, $2) ON CONFLICT (a) DO NOTHING`},
	}

	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			hs := &HistoryStoreImpl{backend: tt.backend}
			assert.Equal(t, tt.want, hs.insertIgnore("t", "a, b", 2, "a"))
		})
	}
}
