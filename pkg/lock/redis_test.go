package lock_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dukex/flowforge/pkg/lock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) redis.UniversalClient {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{fmt.Sprintf("%s:%s", host, port.Port())},
	})
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestRedis_AcquireRelease(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	locker := lock.NewRedis(client, "flowforge:deploy:", time.Minute)

	unlock, err := locker.Acquire(ctx, "tpl-1")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "tpl-1")
	require.ErrorIs(t, err, lock.ErrLocked)

	require.NoError(t, unlock(ctx))

	again, err := locker.Acquire(ctx, "tpl-1")
	require.NoError(t, err)
	assert.NoError(t, again(ctx))
}

func TestRedis_StaleReleaseKeepsNewHolder(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	locker := lock.NewRedis(client, "flowforge:deploy:", 100*time.Millisecond)

	stale, err := locker.Acquire(ctx, "tpl-1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := client.Get(ctx, "flowforge:deploy:tpl-1").Result()

		return err == redis.Nil
	}, 5*time.Second, 50*time.Millisecond)

	current, err := locker.Acquire(ctx, "tpl-1")
	require.NoError(t, err)

	require.NoError(t, stale(ctx))

	_, err = locker.Acquire(ctx, "tpl-1")
	require.ErrorIs(t, err, lock.ErrLocked)
	assert.NoError(t, current(ctx))
}
