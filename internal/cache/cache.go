package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/homematch/internal/domain/recommendation"
)

// ComputeFunc produces a recommendation page on a cache miss.
type ComputeFunc func(ctx context.Context) (recommendation.Result, error)

type item struct {
	key       string
	result    recommendation.Result
	expiresAt time.Time
}

// Cache is a bounded in-memory LRU with per-entry TTL and single-flight
// computation dedupe. Failed computations are never stored. Safe for
// concurrent use.
type Cache struct {
	capacity int
	ttl      time.Duration

	mu    sync.Mutex
	ll    *list.List // front = most recently used
	items map[string]*list.Element

	group singleflight.Group

	lookupTotal *prometheus.CounterVec
	sizeGauge   prometheus.Gauge
	logger      *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// New creates a cache. capacity and ttl must be positive. A positive
// janitorInterval starts a background sweep of expired entries; zero
// disables it and expiry happens lazily on access.
// lookupTotal is a counter vec with label "result" ("hit"/"miss") and
// sizeGauge tracks the entry count; both may be nil.
func New(
	capacity int,
	ttl time.Duration,
	janitorInterval time.Duration,
	lookupTotal *prometheus.CounterVec,
	sizeGauge prometheus.Gauge,
	logger *zap.Logger,
) (*Cache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive, got %v", ttl)
	}

	c := &Cache{
		capacity:    capacity,
		ttl:         ttl,
		ll:          list.New(),
		items:       make(map[string]*list.Element),
		lookupTotal: lookupTotal,
		sizeGauge:   sizeGauge,
		logger:      logger,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}

	if janitorInterval > 0 {
		go c.janitor(janitorInterval)
	} else {
		close(c.done)
	}
	return c, nil
}

// GetOrCompute returns the cached page for key, or computes and stores it.
// Concurrent callers for the same key share a single computation. The shared
// computation runs detached from any one caller's cancellation: a caller
// whose context ends gets its context error, while the computation finishes
// and serves the remaining waiters.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute ComputeFunc) (recommendation.Result, error) {
	if res, ok := c.get(key); ok {
		c.incLookup("hit")
		return res, nil
	}
	c.incLookup("miss")

	ch := c.group.DoChan(key, func() (any, error) {
		// Re-check under single flight: a concurrent caller may have
		// stored the entry between our miss and this call.
		if res, ok := c.get(key); ok {
			return res, nil
		}

		res, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return recommendation.Result{}, err
		}
		return c.put(key, res), nil
	})

	select {
	case <-ctx.Done():
		return recommendation.Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return recommendation.Result{}, r.Err
		}
		return r.Val.(recommendation.Result), nil
	}
}

// Invalidate drops the entry for key if present.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeLocked(el)
	}
}

// Len returns the number of stored entries, including not-yet-swept expired ones.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Close stops the background janitor and waits for it to exit.
func (c *Cache) Close() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
	<-c.done
}

func (c *Cache) get(key string) (recommendation.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return recommendation.Result{}, false
	}
	it := el.Value.(*item)
	if time.Now().After(it.expiresAt) {
		c.removeLocked(el)
		return recommendation.Result{}, false
	}
	c.ll.MoveToFront(el)
	return it.result, true
}

func (c *Cache) put(key string, res recommendation.Result) recommendation.Result {
	res.Key = key
	res.ExpiresAt = time.Now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*item).result = res
		el.Value.(*item).expiresAt = res.ExpiresAt
		c.ll.MoveToFront(el)
		return res
	}

	el := c.ll.PushFront(&item{key: key, result: res, expiresAt: res.ExpiresAt})
	c.items[key] = el

	for c.ll.Len() > c.capacity {
		c.removeLocked(c.ll.Back())
	}
	c.updateSizeLocked()
	return res
}

func (c *Cache) removeLocked(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*item).key)
	c.updateSizeLocked()
}

func (c *Cache) janitor(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if n := c.sweep(); n > 0 && c.logger != nil {
				c.logger.Debug("Swept expired cache entries", zap.Int("count", n))
			}
		}
	}
}

func (c *Cache) sweep() int {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	var swept int
	for el := c.ll.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*item).expiresAt) {
			c.removeLocked(el)
			swept++
		}
		el = prev
	}
	return swept
}

func (c *Cache) incLookup(result string) {
	if c.lookupTotal != nil {
		c.lookupTotal.WithLabelValues(result).Inc()
	}
}

func (c *Cache) updateSizeLocked() {
	if c.sizeGauge != nil {
		c.sizeGauge.Set(float64(c.ll.Len()))
	}
}
