package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStatusCache caches the caller-independent status of a gathering for a
// TTL shorter than the waiting-room poll interval, so high-frequency polls for
// a popular gathering collapse into one database read per window. Misses and
// Redis failures degrade to the database path.
type RedisStatusCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

// NewRedisStatusCache creates a Redis-backed status cache.
func NewRedisStatusCache(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *RedisStatusCache {
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &RedisStatusCache{rdb: rdb, ttl: ttl, log: log}
}

func statusKey(gatheringID string) string { return "session-status:" + gatheringID }

func (c *RedisStatusCache) Get(ctx context.Context, gatheringID string) (*CachedStatus, bool) {
	raw, err := c.rdb.Get(ctx, statusKey(gatheringID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("status cache get failed", zap.Error(err))
		}
		return nil, false
	}
	var st CachedStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, false
	}
	return &st, true
}

func (c *RedisStatusCache) Set(ctx context.Context, gatheringID string, st *CachedStatus) {
	raw, err := json.Marshal(st)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, statusKey(gatheringID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("status cache set failed", zap.Error(err))
	}
}

func (c *RedisStatusCache) Invalidate(ctx context.Context, gatheringID string) {
	if err := c.rdb.Del(ctx, statusKey(gatheringID)).Err(); err != nil {
		c.log.Warn("status cache invalidate failed", zap.Error(err))
	}
}
