//go:build database

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestCovdeltaWithMySQL tests the covdelta CLI with a MySQL backend.
func TestCovdeltaWithMySQL(t *testing.T) {
	ctx := context.Background()

	// Start MySQL container
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "covdelta",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	// Get connection details
	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/covdelta?parseTime=true", host, port.Port())

	// Set environment variables
	t.Setenv("COVDELTA_CACHE_BACKEND", "mysql")
	t.Setenv("COVDELTA_CACHE_DB_CONNECT", connStr)
	t.Setenv("COVDELTA_HISTORY_BACKEND", "mysql")
	t.Setenv("COVDELTA_HISTORY_DB_CONNECT", connStr)

	_, err = runCovdelta(t, "history", "migrate")
	require.NoError(t, err)

	exerciseHistory(t)
}

// TestCovdeltaWithPostgres tests the covdelta CLI with a PostgreSQL backend.
func TestCovdeltaWithPostgres(t *testing.T) {
	ctx := context.Background()

	// Start Postgres container
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	// Get connection details
	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())

	// Set environment variables
	t.Setenv("COVDELTA_CACHE_BACKEND", "postgresql")
	t.Setenv("COVDELTA_CACHE_DB_CONNECT", connStr)
	t.Setenv("COVDELTA_HISTORY_BACKEND", "postgresql")
	t.Setenv("COVDELTA_HISTORY_DB_CONNECT", connStr)

	_, err = runCovdelta(t, "history", "migrate")
	require.NoError(t, err)

	exerciseHistory(t)
}
