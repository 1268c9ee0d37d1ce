// Package cache provides the content+resolution keyed embedding cache.
//
// Identical text embedded at the same dimensionality within the TTL is
// served from memory instead of recomputed by the provider. The
// dimensionality is part of the key: the same text at two resolutions
// produces unrelated vectors and must never collide.
package cache

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Config holds cache sizing and expiry.
type Config struct {
	// TTL is how long an entry stays valid. Entries older than the TTL
	// behave as misses.
	TTL time.Duration

	// MaxEntries caps how many vectors the cache holds.
	MaxEntries int64
}

// DefaultConfig matches the reference pipeline: 24h expiry.
var DefaultConfig = &Config{
	TTL:        24 * time.Hour,
	MaxEntries: 10000,
}

// Cache is a ristretto-backed TTL cache for embedding vectors.
type Cache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// New creates a cache with the given config (nil for defaults).
func New(cfg *Config) (*Cache, error) {
	if cfg == nil {
		cfg = DefaultConfig
	}
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.MaxEntries * 10,
		MaxCost:     cfg.MaxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}
	return &Cache{cache: rc, ttl: cfg.TTL}, nil
}

// Get returns the cached vector for (text, dimensions), or false on
// miss. Expired entries are evicted by the lookup itself.
func (c *Cache) Get(text string, dimensions int) ([]float32, bool) {
	value, ok := c.cache.Get(key(text, dimensions))
	if !ok {
		return nil, false
	}
	vec, ok := value.([]float32)
	return vec, ok
}

// Put stores a vector under (text, dimensions) for the configured TTL.
func (c *Cache) Put(text string, dimensions int, vec []float32) {
	c.cache.SetWithTTL(key(text, dimensions), vec, 1, c.ttl)
}

// Invalidate drops the entry for (text, dimensions), if any.
func (c *Cache) Invalidate(text string, dimensions int) {
	c.cache.Del(key(text, dimensions))
}

// Wait blocks until buffered writes are applied. Ristretto admits
// entries asynchronously; callers that need read-your-write semantics
// (tests, warmup) call this after Put.
func (c *Cache) Wait() {
	c.cache.Wait()
}

// Close releases the cache's resources.
func (c *Cache) Close() {
	c.cache.Close()
}

// key hashes text together with the dimensionality. A cryptographic
// hash keeps arbitrarily long analysis texts out of the key space.
func key(text string, dimensions int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", text, dimensions)))
	return fmt.Sprintf("%x", sum)
}
