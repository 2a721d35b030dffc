// Package cache stores raw feed response bodies between fetches.
package cache

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache closed")

// Cache is a byte cache keyed by request identity. Entries expire after the
// backend's TTL; an expired entry reads as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte) error
	Close() error
}
