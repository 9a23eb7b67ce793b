package storage

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRegistry(t *testing.T) (*DownloadRegistry, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client)
	t.Cleanup(func() { _ = store.Close() })

	return NewDownloadRegistry(store), mr
}

func TestRedisStore_Ping(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer func() { _ = store.Close() }()

	assert.NoError(t, store.Ping(testContext(t)))
}

func TestDownloadRegistry_Expired(t *testing.T) {
	registry, _ := setupTestRegistry(t)
	ctx := testContext(t)
	now := time.Unix(1_760_000_000, 0)

	require.NoError(t, registry.Register(ctx, "old.shortcut", now.Add(-time.Minute)))
	require.NoError(t, registry.Register(ctx, "due.shortcut", now))
	require.NoError(t, registry.Register(ctx, "fresh.shortcut", now.Add(time.Hour)))

	expired, err := registry.Expired(ctx, now)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"old.shortcut", "due.shortcut"}, expired)
}

func TestDownloadRegistry_ReRegisterMovesExpiry(t *testing.T) {
	registry, _ := setupTestRegistry(t)
	ctx := testContext(t)
	now := time.Unix(1_760_000_000, 0)

	require.NoError(t, registry.Register(ctx, "a.shortcut", now.Add(-time.Minute)))
	require.NoError(t, registry.Register(ctx, "a.shortcut", now.Add(time.Hour)))

	expired, err := registry.Expired(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestDownloadRegistry_Remove(t *testing.T) {
	registry, mr := setupTestRegistry(t)
	ctx := testContext(t)
	now := time.Unix(1_760_000_000, 0)

	require.NoError(t, registry.Register(ctx, "a.shortcut", now))
	require.NoError(t, registry.Register(ctx, "b.shortcut", now))
	require.NoError(t, registry.Remove(ctx, "a.shortcut"))
	require.NoError(t, registry.Remove(ctx))

	members, err := mr.ZMembers(downloadsKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.shortcut"}, members)
}

func TestDownloadRegistry_RedisDown(t *testing.T) {
	registry, mr := setupTestRegistry(t)
	mr.Close()

	err := registry.Register(testContext(t), "a.shortcut", time.Now())
	assert.Error(t, err)
}
