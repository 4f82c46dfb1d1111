package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// BalanceCache keeps a disposable copy of balances in Redis for the read
// path. It is never authoritative: every mutation deletes the key and the
// next read warms it from the store.
type BalanceCache struct {
	client *redis.Client
}

func NewBalanceCache(client *redis.Client) *BalanceCache {
	return &BalanceCache{client: client}
}

func balanceKey(accountID string) string {
	return fmt.Sprintf("balance:%s", accountID)
}

func (c *BalanceCache) Get(ctx context.Context, accountID string) (int64, error) {
	balance, err := c.client.Get(ctx, balanceKey(accountID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, fmt.Errorf("cache get: %w", err)
	}
	return balance, nil
}

// Warm stores a balance read from the authoritative store. No TTL: the key
// lives until the next mutation deletes it.
func (c *BalanceCache) Warm(ctx context.Context, accountID string, balance int64) error {
	if err := c.client.Set(ctx, balanceKey(accountID), balance, 0).Err(); err != nil {
		return fmt.Errorf("cache warm: %w", err)
	}
	return nil
}

// Invalidate drops the cached balance after a mutation.
func (c *BalanceCache) Invalidate(ctx context.Context, accountID string) error {
	if err := c.client.Del(ctx, balanceKey(accountID)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}
