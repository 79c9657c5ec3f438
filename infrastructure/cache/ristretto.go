// Package cache provides the hot node read cache.
package cache

import (
	"context"
	"time"

	"memgraph/application/ports"
	pkgerrors "memgraph/pkg/errors"

	"github.com/dgraph-io/ristretto"
)

// RistrettoCache implements ports.Cache on a ristretto admission
// cache. Admission is probabilistic, so Set is best effort; callers
// must treat every Get as a possible miss.
type RistrettoCache struct {
	cache *ristretto.Cache
}

// NewRistrettoCache creates a cache sized for maxItems entries
func NewRistrettoCache(maxItems int64) (*RistrettoCache, error) {
	if maxItems <= 0 {
		return nil, pkgerrors.NewValidationError("cache size must be positive")
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "creating ristretto cache")
	}

	return &RistrettoCache{cache: c}, nil
}

var _ ports.Cache = (*RistrettoCache)(nil)

// Get retrieves a value from cache
func (c *RistrettoCache) Get(ctx context.Context, key string) (interface{}, bool) {
	return c.cache.Get(key)
}

// Set stores a value with a TTL; each entry costs one unit
func (c *RistrettoCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.cache.SetWithTTL(key, value, 1, ttl)
	return nil
}

// Delete removes a value from cache
func (c *RistrettoCache) Delete(ctx context.Context, key string) error {
	c.cache.Del(key)
	return nil
}

// Close releases the cache's background goroutines
func (c *RistrettoCache) Close() {
	c.cache.Close()
}
