package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// sessionKeyPrefix is the Redis key prefix for session token bindings.
const sessionKeyPrefix = "session:token:"

// ErrSessionNotFound indicates the token is unknown or has expired.
var ErrSessionNotFound = errors.New("session not found")

// PutSession records a token -> username binding with the given TTL.
// Redis expiry is the sole source of session lifetime; the service never
// revisits a binding to check it by hand.
func (c *Cache) PutSession(ctx context.Context, token, username string, ttl time.Duration) error {
	key := sessionKeyPrefix + token
	if err := c.client.Set(ctx, key, username, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// ResolveSession returns the username bound to a token.
// Returns ErrSessionNotFound for unknown or expired tokens.
func (c *Cache) ResolveSession(ctx context.Context, token string) (string, error) {
	key := sessionKeyPrefix + token

	username, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("resolve session: %w", err)
	}

	return username, nil
}

// SessionTTL reports the remaining lifetime of a token binding.
// Returns ErrSessionNotFound for unknown or expired tokens.
func (c *Cache) SessionTTL(ctx context.Context, token string) (time.Duration, error) {
	key := sessionKeyPrefix + token

	ttl, err := c.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("session ttl: %w", err)
	}
	if ttl < 0 {
		// -2: key does not exist, -1: key exists without expiry (never minted by us)
		return 0, ErrSessionNotFound
	}

	return ttl, nil
}
