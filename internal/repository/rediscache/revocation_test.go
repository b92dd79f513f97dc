package rediscache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestRedis(t *testing.T) *RevocationCache {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client, err := Open(context.Background(), Options{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return &RevocationCache{client: client}
}

func TestRevocationCacheRoundTrip(t *testing.T) {
	cache := openTestRedis(t)
	ctx := context.Background()
	id := uuid.NewString()

	revoked, err := cache.IsRevoked(ctx, id)
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, cache.Revoke(ctx, id, time.Minute))

	revoked, err = cache.IsRevoked(ctx, id)
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestRevokeWithElapsedTTLIsNoop(t *testing.T) {
	cache := openTestRedis(t)
	ctx := context.Background()
	id := uuid.NewString()

	require.NoError(t, cache.Revoke(ctx, id, 0))

	revoked, err := cache.IsRevoked(ctx, id)
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestOpenFailsOnUnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := Open(ctx, Options{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}
