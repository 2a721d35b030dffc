package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// File caches bodies as files under a directory, one per key. Freshness is
// judged by modification time.
type File struct {
	dir    string
	ttl    time.Duration
	now    func() time.Time
	closed atomic.Bool
}

// NewFile creates dir if needed.
func NewFile(dir string, ttl time.Duration, opts ...FileOption) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	f := &File{dir: dir, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *File) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:])+".json")
}

// Get returns the body when the file exists and is younger than the TTL.
func (f *File) Get(_ context.Context, key string) ([]byte, bool, error) {
	if f.closed.Load() {
		return nil, false, ErrClosed
	}
	p := f.path(key)
	st, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if f.ttl > 0 && f.now().Sub(st.ModTime()) > f.ttl {
		return nil, false, nil
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set writes through a temp file so readers never see a partial body.
func (f *File) Set(_ context.Context, key string, body []byte) error {
	if f.closed.Load() {
		return ErrClosed
	}
	tmp, err := os.CreateTemp(f.dir, "partial-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	p := f.path(key)
	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	now := f.now()
	return os.Chtimes(p, now, now)
}

// Close marks the cache closed. Files are left in place.
func (f *File) Close() error {
	f.closed.Store(true)
	return nil
}
