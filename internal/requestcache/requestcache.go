// Package requestcache memoizes API responses for a bounded time window,
// keyed on a canonical encoding of the request that produced them.
package requestcache

import (
	"context"
	"net/url"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/maypok86/otter/v2/stats"
)

// Cache is a bounded in-memory response cache backed by otter. Entries
// expire a fixed TTL after insertion; when the cache is full the
// least-recently-used entry is evicted. The generic type T is the response
// type being cached.
//
// The cache is non-locking across the check/compute/insert sequence:
// concurrent calls for the same key may each invoke compute and each store
// their result, with the last write winning. Requests for the same arguments
// rarely race in practice, and the occasional duplicate API call is
// preferred over serializing all lookups.
type Cache[T any] struct {
	cache   *otter.Cache[string, T]
	ttl     time.Duration
	counter *stats.Counter
}

// New creates a cache with the given TTL and maximum entry count.
func New[T any](ttl time.Duration, maxSize int) *Cache[T] {
	counter := stats.NewCounter()
	cache := otter.Must(&otter.Options[string, T]{
		MaximumSize:      maxSize,
		StatsRecorder:    counter,
		ExpiryCalculator: otter.ExpiryCreating[string, T](ttl),
	})

	return &Cache[T]{
		cache:   cache,
		ttl:     ttl,
		counter: counter,
	}
}

// GetOrCompute returns the live cached value for key, or invokes compute and
// caches its result. A compute error is returned as-is and nothing is
// stored, so the next call for the same key will try again.
func (c *Cache[T]) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (T, error)) (T, error) {
	if entry, ok := c.cache.GetEntry(key); ok {
		return entry.Value, nil
	}

	value, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.cache.Set(key, value)
	return value, nil
}

// Invalidate removes the entry for key, if present.
func (c *Cache[T]) Invalidate(key string) {
	c.cache.Invalidate(key)
}

// Stats reports the hit and miss counts recorded so far.
func (c *Cache[T]) Stats() (hits, misses uint64) {
	snapshot := c.counter.Snapshot()
	return snapshot.Hits, snapshot.Misses
}

// Key builds the canonical cache key for one operation invocation. Params
// are expected to hold the fully-normalized argument values; url.Values
// encoding sorts and escapes them, so invocations with identical normalized
// arguments always map to the same key and distinct arguments never collide.
func Key(operation string, params url.Values) string {
	return operation + "?" + params.Encode()
}
