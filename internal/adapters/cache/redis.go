package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of *redis.Client the cache uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// Redis caches bodies in Redis with a server-side expiry.
type Redis struct {
	client RedisClient
	ttl    time.Duration
	prefix string
}

// NewRedis wraps an existing client.
func NewRedis(client RedisClient, ttl time.Duration, opts ...RedisOption) *Redis {
	r := &Redis{client: client, ttl: ttl, prefix: "hockeyplots:feed:"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OpenRedis connects to the server at url (redis://host:port/db) and pings it.
func OpenRedis(ctx context.Context, url string, ttl time.Duration, opts ...RedisOption) (*Redis, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(o)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedis(client, ttl, opts...), nil
}

// Get returns the cached body, or false when the key is absent or expired.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set stores body under key for the configured TTL.
func (r *Redis) Set(ctx context.Context, key string, body []byte) error {
	return r.client.Set(ctx, r.prefix+key, body, r.ttl).Err()
}

// Close closes the underlying client.
func (r *Redis) Close() error { return r.client.Close() }
