//go:build integration

package dataset

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"jiradataset/pkg/logger"
)

// setupPostgres starts a PostgreSQL container and returns its DSN
func setupPostgres(t *testing.T) (string, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "jira",
			"POSTGRES_PASSWORD": "jira",
			"POSTGRES_DB":       "dataset",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start PostgreSQL container")

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://jira:jira@%s/dataset?sslmode=disable", endpoint)
	return dsn, func() { container.Terminate(ctx) }
}

func TestPostgresSink_Integration(t *testing.T) {
	dsn, cleanup := setupPostgres(t)
	defer cleanup()

	ctx := context.Background()
	sink, err := NewPostgresSink(ctx, dsn, "", logger.NewTestLogger())
	require.NoError(t, err)
	defer sink.Close()

	records := sampleRecords()
	require.NoError(t, sink.Write(ctx, records))

	n, err := sink.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// rewriting the same keys updates in place
	records[0].Title = "updated"
	require.NoError(t, sink.Write(ctx, records))

	n, err = sink.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var title string
	require.NoError(t, sink.db.QueryRow(ctx,
		`SELECT record->>'title' FROM jira_issues WHERE issue_key = $1`, "SPARK-1").Scan(&title))
	assert.Equal(t, "updated", title)
}
