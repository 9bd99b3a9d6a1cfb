package timeslots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AvailabilityCache stores the open-slot list per doctor and date.
type AvailabilityCache interface {
	Get(ctx context.Context, doctorID int64, date string) ([]Available, bool, error)
	Set(ctx context.Context, doctorID int64, date string, slots []Available) error
	Invalidate(ctx context.Context, doctorID int64, date string) error
}

// RedisCache is the Redis-backed AvailabilityCache.
type RedisCache struct {
	redis redis.Cmdable
	ttl   time.Duration
}

// NewRedisCache creates a cache with the given entry TTL.
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCache{redis: client, ttl: ttl}
}

// CacheKey is the Redis key holding a doctor's open slots for a date.
func CacheKey(doctorID int64, date string) string {
	return fmt.Sprintf("timeslots:available:%d:%s", doctorID, date)
}

func (c *RedisCache) Get(ctx context.Context, doctorID int64, date string) ([]Available, bool, error) {
	data, err := c.redis.Get(ctx, CacheKey(doctorID, date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("timeslots: cache get: %w", err)
	}
	var slots []Available
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, false, fmt.Errorf("timeslots: cache decode: %w", err)
	}
	return slots, true, nil
}

func (c *RedisCache) Set(ctx context.Context, doctorID int64, date string, slots []Available) error {
	if slots == nil {
		slots = []Available{}
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("timeslots: cache encode: %w", err)
	}
	if err := c.redis.Set(ctx, CacheKey(doctorID, date), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("timeslots: cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, doctorID int64, date string) error {
	if err := c.redis.Del(ctx, CacheKey(doctorID, date)).Err(); err != nil {
		return fmt.Errorf("timeslots: cache invalidate: %w", err)
	}
	return nil
}
