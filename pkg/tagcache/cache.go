package tagcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"mercator-hq/tagstream/pkg/metric"
)

// DefaultCapacity is the number of resources cached when no capacity is
// configured.
const DefaultCapacity = 128

// ErrFetchPanic wraps a panic raised by a FetchFunc.
var ErrFetchPanic = errors.New("tag fetch panicked")

// FetchFunc loads the tags of one resource on a cache miss.
type FetchFunc func(ctx context.Context) (metric.TagSet, error)

// Observer receives cache statistics. *metrics.Collector implements it.
type Observer interface {
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
	RecordCacheEviction(cache string)
	UpdateCacheSize(cache string, size int)
}

// Config configures a Cache.
type Config struct {
	// Name labels the cache in metrics and logs. Default "tags".
	Name string

	// Capacity is the maximum number of entries. Default DefaultCapacity.
	Capacity int

	// Algorithm selects the eviction policy. Default AlgorithmLFU.
	Algorithm Algorithm

	// TTL is the entry lifetime for AlgorithmLRUTTL.
	TTL time.Duration

	// FetchTimeout bounds a single fetch. A fetch is shared by every caller
	// waiting on the key, so it does not inherit any caller's cancellation;
	// zero means the fetch is only bounded by the FetchFunc itself.
	FetchTimeout time.Duration

	// Observer receives hit, miss and eviction counts. Optional.
	Observer Observer

	// Logger is used for eviction and purge diagnostics. Default slog.Default().
	Logger *slog.Logger
}

// Cache memoizes resource tags. Concurrent misses on the same key share a
// single fetch; failed fetches are returned to every waiter and never stored.
//
// The mutex guards only the policy. It is never held while a fetch runs, so
// fetches for different keys proceed in parallel.
type Cache struct {
	name         string
	fetchTimeout time.Duration
	observer     Observer
	logger       *slog.Logger

	mu     sync.Mutex
	policy Policy

	group singleflight.Group
}

// New creates a cache from cfg.
func New(cfg Config) (*Cache, error) {
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCapacity
	}
	policy, err := NewPolicy(cfg.Algorithm, cfg.Capacity, cfg.TTL)
	if err != nil {
		return nil, err
	}
	return NewWithPolicy(cfg, policy), nil
}

// NewWithPolicy creates a cache backed by a caller supplied policy.
// cfg.Capacity, cfg.Algorithm and cfg.TTL are ignored.
func NewWithPolicy(cfg Config, policy Policy) *Cache {
	if cfg.Name == "" {
		cfg.Name = "tags"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Cache{
		name:         cfg.Name,
		fetchTimeout: cfg.FetchTimeout,
		observer:     cfg.Observer,
		logger:       cfg.Logger.With("component", "tagcache", "cache", cfg.Name),
		policy:       policy,
	}
}

// Get returns the cached tags for key, counting a reference on a hit.
// The returned set is a copy owned by the caller.
func (c *Cache) Get(key ResourceKey) (metric.TagSet, bool) {
	v, ok := c.lookup(key)
	if !ok {
		return nil, false
	}
	return v.Clone(), true
}

// GetOrFetch returns the cached tags for key or runs fetch to load them.
//
// At most one fetch per key is in flight at a time. Concurrent callers for
// the same key wait for it and receive its result, errors included: waiters
// on a failed fetch do not retry, and the failure is never stored. If ctx is
// done before the shared fetch finishes, GetOrFetch returns ctx.Err() and
// the fetch keeps running for the other waiters.
func (c *Cache) GetOrFetch(ctx context.Context, key ResourceKey, fetch FetchFunc) (metric.TagSet, error) {
	if v, ok := c.lookup(key); ok {
		c.recordHit()
		return v.Clone(), nil
	}
	c.recordMiss()

	ch := c.group.DoChan(key.String(), func() (any, error) {
		// A previous flight may have stored the key between our miss and
		// joining the group.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		v, err := c.runFetch(ctx, fetch)
		if err != nil {
			return nil, err
		}
		c.store(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(metric.TagSet).Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runFetch calls fetch detached from the caller's cancellation and converts
// a panic into an error so it cannot take down the shared flight.
func (c *Cache) runFetch(ctx context.Context, fetch FetchFunc) (tags metric.TagSet, err error) {
	fctx := context.WithoutCancel(ctx)
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(fctx, c.fetchTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("tag fetch panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			tags, err = nil, fmt.Errorf("%w: %v", ErrFetchPanic, r)
		}
	}()

	v, err := fetch(fctx)
	if err != nil {
		return nil, err
	}
	// Own a private copy so later mutation by the fetcher cannot leak in.
	return v.Clone(), nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy.Len()
}

// Purge drops every cached entry. In-flight fetches still store their result.
func (c *Cache) Purge() {
	c.mu.Lock()
	n := c.policy.Len()
	c.policy.Purge()
	c.mu.Unlock()

	c.logger.Debug("cache purged", "entries", n)
	if c.observer != nil {
		c.observer.UpdateCacheSize(c.name, 0)
	}
}

func (c *Cache) lookup(key ResourceKey) (metric.TagSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy.Get(key)
}

func (c *Cache) store(key ResourceKey, v metric.TagSet) {
	c.mu.Lock()
	evicted := c.policy.Add(key, v)
	size := c.policy.Len()
	c.mu.Unlock()

	if c.observer == nil {
		return
	}
	if evicted {
		c.observer.RecordCacheEviction(c.name)
	}
	c.observer.UpdateCacheSize(c.name, size)
}

func (c *Cache) recordHit() {
	if c.observer != nil {
		c.observer.RecordCacheHit(c.name)
	}
}

func (c *Cache) recordMiss() {
	if c.observer != nil {
		c.observer.RecordCacheMiss(c.name)
	}
}
