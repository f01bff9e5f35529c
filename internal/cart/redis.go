package cart

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache backs the badge count with Redis so replicas of the storefront
// share one badge view per identity. TTL keeps the staleness window bounded;
// jitter spreads expirations.
type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
	}
}

func (r *RedisCache) Get(ctx context.Context, identity string) (int, error) {
	val, err := r.client.Get(ctx, countKey(identity)).Result()
	if err == redis.Nil {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, fmt.Errorf("redis get failed: %w", err)
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parse cached count: %w", err)
	}
	return count, nil
}

func (r *RedisCache) Set(ctx context.Context, identity string, count int) error {
	jitter := time.Duration(rand.Intn(5)) * time.Minute
	if err := r.client.Set(ctx, countKey(identity), count, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, identity string) error {
	if err := r.client.Del(ctx, countKey(identity)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func countKey(identity string) string {
	return fmt.Sprintf("cartcount:%s", identity)
}
