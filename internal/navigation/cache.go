package navigation

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultCacheSize = 1024
	DefaultCacheTTL  = 5 * time.Minute
)

// CacheConfig sizes a Cache. Zero values take the defaults.
type CacheConfig struct {
	Capacity       int
	TTL            time.Duration
	RequestTimeout time.Duration // bound on each fetch
}

// cacheEntry is a cached payload with the file mtime it was computed against
type cacheEntry struct {
	value    any
	mtime    time.Time
	cachedAt time.Time
}

// CacheStats counts lookups since the cache was created
type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Cache memoizes navigation lookups per file. An entry is served only while
// its file's mtime is unchanged and it is younger than the TTL. Failed
// fetches are never stored.
type Cache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, cacheEntry]
	ttl     time.Duration
	timeout time.Duration
	hits    int64
	misses  int64

	now  func() time.Time
	stat func(path string) (time.Time, error)
}

// NewCache creates a cache
func NewCache(cfg CacheConfig) (*Cache, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCacheSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultCacheTTL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	entries, err := lru.New[string, cacheEntry](cfg.Capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	return &Cache{
		entries: entries,
		ttl:     cfg.TTL,
		timeout: cfg.RequestTimeout,
		now:     time.Now,
		stat:    modTime,
	}, nil
}

func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// GetOrFetch returns the cached value for key when still valid for filePath,
// otherwise calls fetch under the cache's request timeout and stores a
// successful result. When filePath cannot be stat'ed the result is fetched
// and not cached.
func GetOrFetch[T any](ctx context.Context, c *Cache, key, filePath string, fetch func(ctx context.Context) (T, error)) (T, error) {
	mtime, statErr := c.stat(filePath)

	if statErr == nil {
		if v, ok := c.lookup(key, mtime); ok {
			if typed, ok := v.(T); ok {
				return typed, nil
			}
			c.evictMismatch(key)
		}
	} else {
		c.countMiss()
	}

	fctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	value, err := fetch(fctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if statErr == nil {
		c.mu.Lock()
		c.entries.Add(key, cacheEntry{value: value, mtime: mtime, cachedAt: c.now()})
		c.mu.Unlock()
	}
	return value, nil
}

func (c *Cache) lookup(key string, mtime time.Time) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Get(key)
	if !ok {
		c.misses++
		return nil, false
	}
	if !entry.mtime.Equal(mtime) || c.now().Sub(entry.cachedAt) > c.ttl {
		c.entries.Remove(key)
		c.misses++
		return nil, false
	}
	c.hits++
	return entry.value, true
}

// evictMismatch drops an entry stored under key with another payload type
// and recounts the lookup as a miss
func (c *Cache) evictMismatch(key string) {
	c.mu.Lock()
	c.entries.Remove(key)
	c.hits--
	c.misses++
	c.mu.Unlock()
}

func (c *Cache) countMiss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
}

// Len returns the number of entries currently held
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Purge drops every entry
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries.Purge()
	c.mu.Unlock()
}

func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Entries: c.entries.Len()}
}
