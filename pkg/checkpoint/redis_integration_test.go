//go:build integration

package checkpoint

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"jiradataset/pkg/logger"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start Redis container")

	endpoint, err := redisContainer.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	require.NoError(t, client.Ping(ctx).Err())

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}
	return client, cleanup
}

func TestRedisStore_Integration(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	log := logger.NewTestLogger()
	store := NewRedisStore(client, "test:checkpoints", log)
	ctx := context.Background()

	assert.Equal(t, 0, store.Load(ctx, "SPARK"))

	require.NoError(t, store.Save(ctx, "SPARK", 3))
	require.NoError(t, store.Save(ctx, "KAFKA", 1))
	require.NoError(t, store.Save(ctx, "SPARK", 4))

	assert.Equal(t, 4, store.Load(ctx, "SPARK"))
	assert.Equal(t, 1, store.Load(ctx, "KAFKA"))

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 4, all["SPARK"].LastFetchedPage)

	require.NoError(t, store.Reset(ctx, "SPARK"))
	assert.Equal(t, 0, store.Load(ctx, "SPARK"))

	require.NoError(t, store.Reset(ctx, ""))
	all, err = store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRedisStore_Integration_CorruptEntry(t *testing.T) {
	client, cleanup := setupRedis(t)
	defer cleanup()

	log := logger.NewTestLogger()
	store := NewRedisStore(client, "", log)
	ctx := context.Background()

	require.NoError(t, client.HSet(ctx, DefaultRedisKey, "SPARK", "{oops").Err())

	assert.Equal(t, 0, store.Load(ctx, "SPARK"))
	assert.True(t, log.HasMessageContaining("Corrupt checkpoint entry"))
}
