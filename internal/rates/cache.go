package rates

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RedisCache shares the rate across instances
type RedisCache struct {
	rdb redis.UniversalClient
}

func NewRedisCache(rdb redis.UniversalClient) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, key string) (decimal.Decimal, bool, error) {
	s, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, rate decimal.Decimal, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, rate.String(), ttl).Err()
}

// MemoryCache is the in-process fallback when Redis is not configured
type MemoryCache struct {
	c *gocache.Cache
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{c: gocache.New(time.Minute, 5*time.Minute)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (decimal.Decimal, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return decimal.Zero, false, nil
	}
	d, ok := v.(decimal.Decimal)
	return d, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, rate decimal.Decimal, ttl time.Duration) error {
	m.c.Set(key, rate, ttl)
	return nil
}
