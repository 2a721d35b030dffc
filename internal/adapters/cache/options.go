package cache

import "time"

// RedisOption applies a configuration option to the Redis cache.
type RedisOption func(*Redis)

// WithKeyPrefix namespaces cache keys in a shared Redis.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

// FileOption applies a configuration option to the File cache.
type FileOption func(*File)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) FileOption {
	return func(f *File) {
		if now != nil {
			f.now = now
		}
	}
}
