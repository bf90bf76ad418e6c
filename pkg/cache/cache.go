package cache

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("cache: key not found")

// Cache is the shared state store. The monitor writes JSON snapshots here on
// an interval; the API and the exporter read them back, so neither has to
// reach into live components.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	GetAll(ctx context.Context, pattern string) (map[string][]byte, error)
	Delete(ctx context.Context, key string) error
	Scan(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error)
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Close() error
}
