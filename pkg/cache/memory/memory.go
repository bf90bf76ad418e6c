package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/raccoonforest/ailink/pkg/cache"
)

type item struct {
	value      []byte
	expiration time.Time
}

type Cache struct {
	items map[string]*item
	mu    sync.RWMutex
	stop  chan struct{}
	once  sync.Once
}

func New() cache.Cache {
	c := &Cache{
		items: make(map[string]*item),
		stop:  make(chan struct{}),
	}

	go c.cleanup()

	return c
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiration time.Time
	if ttl > 0 {
		expiration = time.Now().Add(ttl)
	}

	c.items[key] = &item{
		value:      append([]byte(nil), value...),
		expiration: expiration,
	}

	return nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, exists := c.items[key]
	if !exists {
		return nil, fmt.Errorf("%w: %s", cache.ErrNotFound, key)
	}

	if !it.expiration.IsZero() && time.Now().After(it.expiration) {
		return nil, fmt.Errorf("%w: %s (expired)", cache.ErrNotFound, key)
	}

	return it.value, nil
}

func (c *Cache) GetAll(ctx context.Context, pattern string) (map[string][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	result := make(map[string][]byte)
	for key, it := range c.items {
		if !it.expiration.IsZero() && now.After(it.expiration) {
			continue
		}
		if matchPattern(pattern, key) {
			result[key] = it.value
		}
	}

	return result, nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

func (c *Cache) Scan(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := make([]string, 0, len(c.items))
	now := time.Now()
	for key, it := range c.items {
		if !it.expiration.IsZero() && now.After(it.expiration) {
			continue
		}
		if matchPattern(pattern, key) {
			all = append(all, key)
		}
	}
	sort.Strings(all)

	if cursor >= uint64(len(all)) {
		return nil, 0, nil
	}

	end := cursor + uint64(count)
	if end >= uint64(len(all)) {
		return all[cursor:], 0, nil
	}
	return all[cursor:end], end, nil
}

func (c *Cache) Incr(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int64
	if it, exists := c.items[key]; exists {
		parsed, err := strconv.ParseInt(string(it.value), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("incr non-numeric key %s: %w", key, err)
		}
		n = parsed
	}
	n++

	c.items[key] = &item{value: []byte(strconv.FormatInt(n, 10))}
	return n, nil
}

func (c *Cache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, exists := c.items[key]
	if !exists {
		return fmt.Errorf("%w: %s", cache.ErrNotFound, key)
	}

	if ttl > 0 {
		it.expiration = time.Now().Add(ttl)
	} else {
		it.expiration = time.Time{}
	}
	return nil
}

func (c *Cache) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

func (c *Cache) cleanup() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for key, it := range c.items {
				if !it.expiration.IsZero() && now.After(it.expiration) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// matchPattern supports the redis-style globs the callers actually use:
// "*", "prefix*" and exact keys.
func matchPattern(pattern, key string) bool {
	if pattern == "*" || pattern == "" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(key, strings.TrimSuffix(pattern, "*"))
	}
	return pattern == key
}
