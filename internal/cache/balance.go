package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// balanceCachePrefix is the Redis key prefix for cached credit balances.
const balanceCachePrefix = "credits:balance:"

// GetBalance returns the cached balance of a user.
// The second return value is false on a cache miss.
func (c *Cache) GetBalance(ctx context.Context, userID string) (int64, bool, error) {
	val, err := c.client.Get(ctx, balanceKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	balance, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// Corrupted cache entry - treat as miss
		return 0, false, nil //nolint:nilerr
	}

	return balance, true, nil
}

// SetBalance caches the balance of a user, replacing any cached value.
// Called with the balance a committed mutation returned.
func (c *Cache) SetBalance(ctx context.Context, userID string, balance int64, ttl time.Duration) error {
	return c.client.Set(ctx, balanceKey(userID), strconv.FormatInt(balance, 10), ttl).Err()
}

// FillBalance caches a balance read from the store only when nothing is
// cached yet, so a slow read never replaces a value written by a mutation.
func (c *Cache) FillBalance(ctx context.Context, userID string, balance int64, ttl time.Duration) error {
	return c.client.SetNX(ctx, balanceKey(userID), strconv.FormatInt(balance, 10), ttl).Err()
}

// InvalidateBalance drops the cached balance of a user.
func (c *Cache) InvalidateBalance(ctx context.Context, userID string) error {
	return c.client.Del(ctx, balanceKey(userID)).Err()
}

func balanceKey(userID string) string {
	return balanceCachePrefix + userID
}
