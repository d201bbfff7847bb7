// Package embedcache caches query embeddings keyed by content hash.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMaxEntries bounds cache size before oldest entries are evicted.
	DefaultMaxEntries = 4096
	// DefaultTTL is how long a cached embedding stays valid.
	DefaultTTL = 15 * time.Minute
)

// Provider generates an embedding for a piece of text.
type Provider interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type entry struct {
	vector    []float32
	createdAt time.Time
}

// Cache wraps an embedding provider with a content-addressed cache.
// Concurrent lookups for the same text are coalesced so the provider sees
// at most one in-flight call per distinct input.
type Cache struct {
	provider   Provider
	group      singleflight.Group
	mu         sync.Mutex
	entries    map[string]entry
	order      []string
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	hits   uint64
	misses uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxEntries sets the eviction bound.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithTTL sets the entry time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// New creates a Cache in front of the given provider.
func New(provider Provider, opts ...Option) *Cache {
	c := &Cache{
		provider:   provider,
		entries:    make(map[string]entry),
		maxEntries: DefaultMaxEntries,
		ttl:        DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the cache key for a text: hex sha256 of its exact bytes.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// GenerateEmbedding returns the cached embedding for text, or calls the
// underlying provider on a miss. Provider errors are never cached.
func (c *Cache) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	key := Key(text)

	if vec, ok := c.lookup(key); ok {
		return vec, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another caller may have filled the entry while we waited.
		if vec, ok := c.lookup(key); ok {
			return vec, nil
		}
		vec, err := c.provider.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		c.store(key, vec)
		return vec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// Stats reports cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cache) lookup(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.now().Sub(e.createdAt) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.vector, true
}

func (c *Cache) store(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = entry{vector: vec, createdAt: c.now()}

	for len(c.entries) > c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// removeFromOrder keeps order and entries in step when an entry is deleted
// outside eviction. A stale key left at the front would evict a fresher
// re-stored entry ahead of older ones.
func (c *Cache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
