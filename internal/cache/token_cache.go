package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenCache is the refresh-token allowlist. A refresh token is only
// honored while its ID is present; logout deletes the key, which kills the
// token even though its signature stays valid.
type TokenCache interface {
	Add(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error
	UserID(ctx context.Context, tokenID string) (int64, bool, error)
	Remove(ctx context.Context, tokenID string) error
}

type tokenCache struct {
	client *redis.Client
}

// NewTokenCache creates a new refresh-token allowlist
func NewTokenCache(client *redis.Client) TokenCache {
	return &tokenCache{client: client}
}

func (c *tokenCache) key(tokenID string) string {
	return fmt.Sprintf("refresh:%s", tokenID)
}

func (c *tokenCache) Add(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(tokenID), userID, ttl).Err()
}

func (c *tokenCache) UserID(ctx context.Context, tokenID string) (int64, bool, error) {
	data, err := c.client.Get(ctx, c.key(tokenID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	userID, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return userID, true, nil
}

func (c *tokenCache) Remove(ctx context.Context, tokenID string) error {
	return c.client.Del(ctx, c.key(tokenID)).Err()
}
