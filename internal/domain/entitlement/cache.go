package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/lazone/lazone-api/internal/pkg/logger"
)

const keyPrefixSummary = "entitlement:summary:"

// Cache stores entitlement summaries between mutations.
type Cache interface {
	Get(ctx context.Context, userID uuid.UUID) (*Summary, bool)
	Set(ctx context.Context, userID uuid.UUID, s *Summary)
	Invalidate(ctx context.Context, userID uuid.UUID)
}

// RedisCache is a Cache backed by Redis. Failures degrade to cache misses.
type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisCache creates a summary cache
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{redis: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, userID uuid.UUID) (*Summary, bool) {
	raw, err := c.redis.Get(ctx, keyPrefixSummary+userID.String()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.FromContext(ctx).Warn().Err(err).Msg("entitlement cache read failed")
		}
		return nil, false
	}

	var s Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	return &s, true
}

func (c *RedisCache) Set(ctx context.Context, userID uuid.UUID, s *Summary) {
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, keyPrefixSummary+userID.String(), raw, c.ttl).Err(); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("entitlement cache write failed")
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, userID uuid.UUID) {
	if err := c.redis.Del(ctx, keyPrefixSummary+userID.String()).Err(); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("entitlement cache invalidation failed")
	}
}

type noopCache struct{}

func (noopCache) Get(context.Context, uuid.UUID) (*Summary, bool) { return nil, false }
func (noopCache) Set(context.Context, uuid.UUID, *Summary)        {}
func (noopCache) Invalidate(context.Context, uuid.UUID)           {}
