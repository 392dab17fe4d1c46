package googlemaps

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/route-directions/internal/domain"
	"github.com/couchcryptid/route-directions/internal/observability"
)

// CachedDirections wraps a DirectionsFetcher with an in-memory LRU cache.
// Entries expire after ttl; only successful responses are stored.
type CachedDirections struct {
	inner   domain.DirectionsFetcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedDirections creates a cache decorator around a fetcher.
func NewCachedDirections(inner domain.DirectionsFetcher, maxEntries int, ttl time.Duration, metrics *observability.Metrics) *CachedDirections {
	return newCachedDirections(inner, maxEntries, ttl, metrics, clockwork.NewRealClock())
}

func newCachedDirections(inner domain.DirectionsFetcher, maxEntries int, ttl time.Duration, metrics *observability.Metrics, clk clockwork.Clock) *CachedDirections {
	return &CachedDirections{
		inner:   inner,
		cache:   newLRUCache(maxEntries, ttl, clk),
		metrics: metrics,
	}
}

// FetchDirections serves successful responses from the cache. A hit shares
// its slices and fare with every other hit for the same request, so callers
// must treat the response as read-only; AggregateRoute copies what it keeps.
func (c *CachedDirections) FetchDirections(ctx context.Context, req domain.RouteRequest) (domain.DirectionsResponse, error) {
	key := cacheKey(req)
	if resp, ok := c.cache.get(key); ok {
		c.metrics.DirectionsCache.WithLabelValues("hit").Inc()
		return resp, nil
	}
	c.metrics.DirectionsCache.WithLabelValues("miss").Inc()

	resp, err := c.inner.FetchDirections(ctx, req)
	if err != nil {
		return resp, err
	}
	c.cache.put(key, resp)
	return resp, nil
}

func cacheKey(req domain.RouteRequest) string {
	return strings.Join([]string{
		req.Origin,
		req.Destination,
		strings.Join(req.Waypoints, "|"),
		strconv.FormatBool(req.OptimizeWaypoints),
		string(req.Mode),
		req.Language,
		req.Region,
		req.APIKey,
		req.BaseURL,
	}, "\x1f")
}

// lruCache is a thread-safe LRU cache with per-entry expiry.
type lruCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key       string
	value     domain.DirectionsResponse
	expiresAt time.Time
	prev      *entry
	next      *entry
}

func newLRUCache(maxEntries int, ttl time.Duration, clk clockwork.Clock) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clk,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.DirectionsResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.DirectionsResponse{}, false
	}
	if c.ttl > 0 && !c.clock.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.remove(e)
		return domain.DirectionsResponse{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.DirectionsResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, expiresAt: expiresAt}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
