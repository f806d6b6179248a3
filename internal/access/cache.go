package access

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// membership lookups run on every authorized request, so a short-TTL cache
// in front of the repository keeps them off the hot path. Stale entries can
// outlive a revoked membership for at most the TTL.
const defaultCacheTTL = 30 * time.Second

type cachedAccess struct {
	next   ProjectAccess
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedAccess wraps a ProjectAccess with a redis-backed cache. A nil
// client degrades to pass-through.
func NewCachedAccess(next ProjectAccess, client *redis.Client, logger *zap.Logger) ProjectAccess {
	if client == nil {
		return next
	}
	return &cachedAccess{next: next, client: client, ttl: defaultCacheTTL, logger: logger}
}

func (c *cachedAccess) ProjectExists(ctx context.Context, projectID string) (bool, error) {
	return c.cached(ctx, "access:project:"+projectID, func() (bool, error) {
		return c.next.ProjectExists(ctx, projectID)
	})
}

func (c *cachedAccess) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	return c.cached(ctx, "access:member:"+projectID+":"+userID, func() (bool, error) {
		return c.next.IsMember(ctx, projectID, userID)
	})
}

func (c *cachedAccess) IsManager(ctx context.Context, projectID, userID string) (bool, error) {
	return c.cached(ctx, "access:manager:"+projectID+":"+userID, func() (bool, error) {
		return c.next.IsManager(ctx, projectID, userID)
	})
}

func (c *cachedAccess) IsEngineer(ctx context.Context, projectID, userID string) (bool, error) {
	return c.cached(ctx, "access:engineer:"+projectID+":"+userID, func() (bool, error) {
		return c.next.IsEngineer(ctx, projectID, userID)
	})
}

func (c *cachedAccess) UserExists(ctx context.Context, userID string) (bool, error) {
	return c.cached(ctx, "access:user:"+userID, func() (bool, error) {
		return c.next.UserExists(ctx, userID)
	})
}

func (c *cachedAccess) cached(ctx context.Context, key string, load func() (bool, error)) (bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == nil {
		return val == "1", nil
	}
	if err != redis.Nil {
		c.logger.Debug("membership cache read failed", zap.String("key", key), zap.Error(err))
	}

	result, err := load()
	if err != nil {
		return false, err
	}

	stored := "0"
	if result {
		stored = "1"
	}
	if err := c.client.Set(ctx, key, stored, c.ttl).Err(); err != nil {
		c.logger.Debug("membership cache write failed", zap.String("key", key), zap.Error(err))
	}
	return result, nil
}
