package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// downloadsKey is the sorted set of transient shortcut files scored by expiry (unix seconds)
const downloadsKey = "shortcuts:downloads"

// DownloadRegistry tracks when generated shortcut files stop being downloadable
type DownloadRegistry struct {
	redis *RedisStore
	key   string
}

// NewDownloadRegistry creates a registry backed by Redis
func NewDownloadRegistry(store *RedisStore) *DownloadRegistry {
	return &DownloadRegistry{redis: store, key: downloadsKey}
}

// Register records a file that may be downloaded until expiresAt.
// Registering the same name again moves its expiry.
func (r *DownloadRegistry) Register(ctx context.Context, fileName string, expiresAt time.Time) error {
	err := r.redis.Client().ZAdd(ctx, r.key, redis.Z{
		Score:  float64(expiresAt.Unix()),
		Member: fileName,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to register download %s: %w", fileName, err)
	}
	return nil
}

// Expired lists the files whose expiry is at or before now
func (r *DownloadRegistry) Expired(ctx context.Context, now time.Time) ([]string, error) {
	names, err := r.redis.Client().ZRangeByScore(ctx, r.key, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list expired downloads: %w", err)
	}
	return names, nil
}

// Remove forgets the given files
func (r *DownloadRegistry) Remove(ctx context.Context, fileNames ...string) error {
	if len(fileNames) == 0 {
		return nil
	}
	members := make([]interface{}, len(fileNames))
	for i, name := range fileNames {
		members[i] = name
	}
	if err := r.redis.Client().ZRem(ctx, r.key, members...).Err(); err != nil {
		return fmt.Errorf("failed to remove downloads: %w", err)
	}
	return nil
}
