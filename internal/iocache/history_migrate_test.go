package iocache

import (
	"bytes"
	"context"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/covdelta/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateHistory_Unsupported(t *testing.T) {
	err := MigrateHistory(schema.NoneBackend, "", -1, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations are not supported for NoneBackend")

	assert.Error(t, MigrateHistory("oracle", "", -1, &bytes.Buffer{}))
}

func TestMigrateHistory_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	var out bytes.Buffer

	require.NoError(t, MigrateHistory(schema.SQLiteBackend, path, -1, &out))
	assert.Contains(t, out.String(), "Successfully migrated from version 0 to version 2")

	out.Reset()
	require.NoError(t, MigrateHistory(schema.SQLiteBackend, path, -1, &out))
	assert.Contains(t, out.String(), "No migration needed")

	// The migrated schema is usable by the store.
	store, err := NewHistoryStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, store.CreateBuild(context.Background(), schema.BuildRecord{
		ID: "api#1", Job: "api", Number: 1, Outcome: schema.SuccessOutcome, StartedAt: time.Now(),
	}))
	require.NoError(t, store.Close())

	out.Reset()
	require.NoError(t, MigrateHistory(schema.SQLiteBackend, path, 1, &out))
	assert.Contains(t, out.String(), "to version 1")

	out.Reset()
	require.NoError(t, MigrateHistory(schema.SQLiteBackend, path, 0, &out))
	assert.Contains(t, out.String(), "rolled back")
}

func TestMigrationsEmbedded(t *testing.T) {
	for backend := range schema.ValidDatabaseBackends {
		if backend == schema.NoneBackend {
			continue
		}
		files, err := fs.Glob(migrationsFS, "migrations/"+string(backend)+"/*.sql")
		require.NoError(t, err)
		assert.Len(t, files, 4, "up and down for each version of %s", backend)
	}
}
