//go:build integration

package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"ms-booking/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestRedisIntegration runs the verification lock against a real Redis container
func TestRedisIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	defer client.Close()

	l := NewRedis(client, 2*time.Second, logger.Discard())

	require.NoError(t, l.Acquire(ctx, "PAY_IT", "owner-a"))
	err = l.Acquire(ctx, "PAY_IT", "owner-b")
	assert.True(t, errors.Is(err, ErrHeld))

	ttl, err := client.TTL(ctx, "verify_lock:PAY_IT").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, l.Release(ctx, "PAY_IT", "owner-b"))
	assert.True(t, errors.Is(l.Acquire(ctx, "PAY_IT", "owner-b"), ErrHeld))

	require.NoError(t, l.Release(ctx, "PAY_IT", "owner-a"))
	assert.NoError(t, l.Acquire(ctx, "PAY_IT", "owner-b"))
}
