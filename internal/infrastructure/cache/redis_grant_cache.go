package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/matrix"
	"github.com/redis/go-redis/v9"
)

const grantKeyPrefix = "governance:grant:"

// RedisGrantCache stores resolved access grants in Redis with a TTL.
// Implements the access service's GrantCache port.
type RedisGrantCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGrantCache creates a Redis-backed grant cache
func NewRedisGrantCache(client *redis.Client, ttl time.Duration) *RedisGrantCache {
	return &RedisGrantCache{client: client, ttl: ttl}
}

// Get returns the cached grant for the principal, (zero, false, nil) on miss
func (c *RedisGrantCache) Get(ctx context.Context, principalID uuid.UUID) (matrix.AccessGrant, bool, error) {
	data, err := c.client.Get(ctx, grantKeyPrefix+principalID.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return matrix.AccessGrant{}, false, nil
		}
		return matrix.AccessGrant{}, false, err
	}
	var grant matrix.AccessGrant
	if err := json.Unmarshal(data, &grant); err != nil {
		// Treat a corrupt entry as a miss; it will be rewritten.
		return matrix.AccessGrant{}, false, nil
	}
	return grant, true, nil
}

// Set stores the grant under the principal's key
func (c *RedisGrantCache) Set(ctx context.Context, grant matrix.AccessGrant) error {
	data, err := json.Marshal(grant)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, grantKeyPrefix+grant.PrincipalID.String(), data, c.ttl).Err()
}

// Invalidate drops the principal's cached grant
func (c *RedisGrantCache) Invalidate(ctx context.Context, principalID uuid.UUID) error {
	return c.client.Del(ctx, grantKeyPrefix+principalID.String()).Err()
}
