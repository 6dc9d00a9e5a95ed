package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cmrp/models"

	"github.com/redis/go-redis/v9"
)

const analyticsCacheKey = "cmrp:analytics:public"

// AnalyticsCache keeps the public analytics snapshot in Redis for a short TTL
type AnalyticsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewAnalyticsCache creates a cache; ttl <= 0 disables writes
func NewAnalyticsCache(rdb *redis.Client, ttl time.Duration) *AnalyticsCache {
	return &AnalyticsCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached snapshot; ok is false on a miss
func (c *AnalyticsCache) Get(ctx context.Context) (*models.Analytics, bool, error) {
	raw, err := c.rdb.Get(ctx, analyticsCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read analytics cache: %w", err)
	}

	var a models.Analytics
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, false, fmt.Errorf("failed to decode analytics cache: %w", err)
	}
	return &a, true, nil
}

// Set stores the snapshot
func (c *AnalyticsCache) Set(ctx context.Context, a *models.Analytics) error {
	if c.ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode analytics: %w", err)
	}
	if err := c.rdb.Set(ctx, analyticsCacheKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write analytics cache: %w", err)
	}
	return nil
}

// Invalidate drops the snapshot after a write that changes counts
func (c *AnalyticsCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Del(ctx, analyticsCacheKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate analytics cache: %w", err)
	}
	return nil
}
