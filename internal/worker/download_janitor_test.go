package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/earnings-tracker/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestJanitor(t *testing.T, interval time.Duration) (*DownloadJanitor, *storage.DownloadRegistry, string) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	registry := storage.NewDownloadRegistry(storage.NewRedisStoreFromClient(client))

	dir := t.TempDir()
	janitor, err := NewDownloadJanitor(&DownloadJanitorConfig{Registry: registry, Dir: dir, Interval: interval})
	require.NoError(t, err)
	return janitor, registry, dir
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("bplist00"), 0o600))
	return p
}

func TestNewDownloadJanitor_Validation(t *testing.T) {
	_, err := NewDownloadJanitor(&DownloadJanitorConfig{Dir: "temp", Interval: time.Second})
	assert.Error(t, err)
}

func TestDownloadJanitor_Sweep(t *testing.T) {
	janitor, registry, dir := setupTestJanitor(t, time.Minute)
	ctx := context.Background()
	now := time.Now()

	expired := writeFile(t, dir, "expired.shortcut")
	fresh := writeFile(t, dir, "fresh.shortcut")
	require.NoError(t, registry.Register(ctx, "expired.shortcut", now.Add(-time.Second)))
	require.NoError(t, registry.Register(ctx, "vanished.shortcut", now.Add(-time.Second)))
	require.NoError(t, registry.Register(ctx, "fresh.shortcut", now.Add(time.Hour)))

	removed, err := janitor.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.NoFileExists(t, expired)
	assert.FileExists(t, fresh)

	left, err := registry.Expired(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh.shortcut"}, left)
}

func TestDownloadJanitor_StartStop(t *testing.T) {
	janitor, registry, dir := setupTestJanitor(t, 10*time.Millisecond)
	ctx := context.Background()

	p := writeFile(t, dir, "old.shortcut")
	require.NoError(t, registry.Register(ctx, "old.shortcut", time.Now().Add(-time.Minute)))

	require.NoError(t, janitor.Start(ctx))
	assert.Error(t, janitor.Start(ctx), "second start must fail")

	assert.Eventually(t, func() bool {
		_, err := os.Stat(p)
		return os.IsNotExist(err)
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, janitor.Stop(stopCtx))
	assert.Error(t, janitor.Stop(stopCtx))
}
