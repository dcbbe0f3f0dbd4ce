// Package cache provides a stale-while-revalidate cache with per-key request
// coalescing.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/singleflight"

	"github.com/okian/clashintel/pkg/logger"
	"github.com/okian/clashintel/pkg/metrics"
)

// Loader fetches the current value for key.
type Loader[V any] func(ctx context.Context, key string) (V, error)

// Lookup results, as reported to metrics.
const (
	ResultHit   = "hit"
	ResultStale = "stale"
	ResultMiss  = "miss"
)

type item[V any] struct {
	value    V
	storedAt time.Time
}

// SWR serves fresh entries directly, serves stale entries while refreshing
// them in the background, and loads missing entries once per key no matter
// how many callers ask concurrently.
type SWR[V any] struct {
	name     string
	load     Loader[V]
	ttl      time.Duration
	staleTTL time.Duration
	now      func() time.Time

	entries *xsync.Map[string, item[V]]
	flight  singleflight.Group
	// generation is bumped by Invalidate so in-flight loads do not resurrect
	// dropped entries.
	generation *xsync.Map[string, uint64]
	log        logger.Logger
}

// Option applies a configuration option to the cache.
type Option[V any] func(*SWR[V])

// WithTTL sets how long an entry is fresh.
func WithTTL[V any](ttl time.Duration) Option[V] {
	return func(c *SWR[V]) {
		if ttl >= 0 {
			c.ttl = ttl
		}
	}
}

// WithStaleTTL sets how long past its TTL an entry may still be served.
func WithStaleTTL[V any](stale time.Duration) Option[V] {
	return func(c *SWR[V]) {
		if stale >= 0 {
			c.staleTTL = stale
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *SWR[V]) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a cache backed by load.
func New[V any](name string, load Loader[V], opts ...Option[V]) *SWR[V] {
	c := &SWR[V]{
		name:       name,
		load:       load,
		ttl:        30 * time.Second,
		staleTTL:   5 * time.Minute,
		now:        time.Now,
		entries:    xsync.NewMap[string, item[V]](),
		generation: xsync.NewMap[string, uint64](),
		log:        logger.Named("cache." + name),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the value for key.
func (c *SWR[V]) Get(ctx context.Context, key string) (V, error) {
	if it, ok := c.entries.Load(key); ok {
		age := c.now().Sub(it.storedAt)
		switch {
		case age < c.ttl:
			metrics.RecordCacheRequest(ResultHit)
			return it.value, nil
		case age < c.ttl+c.staleTTL:
			metrics.RecordCacheRequest(ResultStale)
			c.refresh(key)
			return it.value, nil
		}
	}

	metrics.RecordCacheRequest(ResultMiss)
	v, err := c.fetch(ctx, key)
	if err != nil {
		var zero V
		return zero, err
	}
	return v, nil
}

// fetch loads key once for all concurrent callers of the same generation and
// stores the result. Callers arriving after Invalidate start a new load.
func (c *SWR[V]) fetch(ctx context.Context, key string) (V, error) {
	gen, _ := c.generation.Load(key)
	res, err, _ := c.flight.Do(key+"\x00"+strconv.FormatUint(gen, 10), func() (any, error) {
		v, err := c.load(ctx, key)
		if err != nil {
			return v, err
		}
		c.storeIfCurrent(key, gen, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, fmt.Errorf("cache %s: %w", c.name, err)
	}
	return res.(V), nil
}

// storeIfCurrent stores v unless key was invalidated after gen was read. It
// runs under the generation entry's lock, as does Invalidate.
func (c *SWR[V]) storeIfCurrent(key string, gen uint64, v V) {
	c.generation.Compute(key, func(cur uint64, _ bool) (uint64, xsync.ComputeOp) {
		if cur == gen {
			c.entries.Store(key, item[V]{value: v, storedAt: c.now()})
		}
		return cur, xsync.UpdateOp
	})
}

// refresh reloads key in the background, detached from the caller's context.
func (c *SWR[V]) refresh(key string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := c.fetch(ctx, key); err != nil {
			metrics.RecordCacheRefresh("error")
			c.log.Warn(ctx, "background refresh failed", logger.String("key", key), logger.Error(err))
			return
		}
		metrics.RecordCacheRefresh("ok")
	}()
}

// Invalidate drops key so the next Get loads it again.
func (c *SWR[V]) Invalidate(key string) {
	c.generation.Compute(key, func(old uint64, _ bool) (uint64, xsync.ComputeOp) {
		c.entries.Delete(key)
		return old + 1, xsync.UpdateOp
	})
}

// Purge drops every entry.
func (c *SWR[V]) Purge() {
	c.entries.Range(func(key string, _ item[V]) bool {
		c.Invalidate(key)
		return true
	})
}

// Len returns the number of cached entries, fresh or not.
func (c *SWR[V]) Len() int { return c.entries.Size() }
