package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent or caching is disabled.
var ErrMiss = errors.New("cache miss")

// Store is what services depend on; *Cache and Noop satisfy it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value any) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(addr, password string, db int, ttl time.Duration) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

// Set stores value JSON-encoded under key with the cache TTL.
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) DeleteByPrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error { return c.client.Close() }

// Noop is used when REDIS_ADDR is empty. Every read misses.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, error)  { return nil, ErrMiss }
func (Noop) Set(context.Context, string, any) error       { return nil }
func (Noop) DeleteByPrefix(context.Context, string) error { return nil }

// Load reads key into dst. It reports false on a miss or an undecodable value.
func Load(ctx context.Context, s Store, key string, dst any) bool {
	b, err := s.Get(ctx, key)
	if err != nil {
		return false
	}
	return json.Unmarshal(b, dst) == nil
}
