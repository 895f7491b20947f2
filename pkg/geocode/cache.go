package geocode

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"climatelens/pkg/geo"
	"climatelens/pkg/logging"
	"climatelens/pkg/model"
	"climatelens/pkg/tracker"
)

// CachedResolver wraps a Resolver with an in-memory LRU cache keyed by H3 cell,
// so fixes a few meters apart share one lookup.
type CachedResolver struct {
	inner   Resolver
	res     int
	cache   *lruCache
	store   PlaceStore
	tracker *tracker.Tracker
}

// PlaceStore is a persistent key-value tier behind the in-memory cache.
type PlaceStore interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

const storeKeyPrefix = "geocode:"

// NewCachedResolver creates a cache decorator around a resolver.
// res is the H3 resolution of the cache key.
func NewCachedResolver(inner Resolver, maxEntries, res int, t *tracker.Tracker) *CachedResolver {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &CachedResolver{
		inner:   inner,
		res:     res,
		cache:   newLRUCache(maxEntries),
		tracker: t,
	}
}

// WithStore adds a persistent tier so resolved places survive restarts.
func (c *CachedResolver) WithStore(s PlaceStore) *CachedResolver {
	c.store = s
	return c
}

// Resolve returns a cached place or delegates to the inner resolver.
func (c *CachedResolver) Resolve(ctx context.Context, coords model.Coordinates) Resolution {
	key, err := geo.CellKey(coords, c.res)
	if err != nil {
		return c.inner.Resolve(ctx, coords)
	}
	if p, ok := c.cache.get(key); ok {
		c.track(true)
		logging.TraceDefault("Geocode cache hit", "cell", key, "city", p.City)
		return Resolved(p)
	}
	if p, ok := c.load(ctx, key); ok {
		c.track(true)
		c.cache.put(key, p)
		return Resolved(p)
	}
	c.track(false)

	r := c.inner.Resolve(ctx, coords)
	// Only cache real names so a transient failure can be retried by the next fix.
	if r.Resolved {
		c.cache.put(key, r.Place)
		c.save(ctx, key, r.Place)
	}
	return r
}

func (c *CachedResolver) load(ctx context.Context, key string) (model.PlaceDescriptor, bool) {
	if c.store == nil {
		return model.PlaceDescriptor{}, false
	}
	data, ok := c.store.GetCache(ctx, storeKeyPrefix+key)
	if !ok {
		return model.PlaceDescriptor{}, false
	}
	var p model.PlaceDescriptor
	if err := json.Unmarshal(data, &p); err != nil || p.IsSentinel() {
		return model.PlaceDescriptor{}, false
	}
	return p, true
}

func (c *CachedResolver) save(ctx context.Context, key string, p model.PlaceDescriptor) {
	if c.store == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.store.SetCache(ctx, storeKeyPrefix+key, data); err != nil {
		slog.Warn("Geocode: failed to persist place", "key", key, "error", err)
	}
}

// Len returns the number of cached cells.
func (c *CachedResolver) Len() int {
	return c.cache.len()
}

func (c *CachedResolver) track(hit bool) {
	if c.tracker == nil {
		return
	}
	if hit {
		c.tracker.TrackCacheHit("geocode")
	} else {
		c.tracker.TrackCacheMiss("geocode")
	}
}

// lruCache is a thread-safe LRU cache of place descriptors.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value model.PlaceDescriptor
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) get(key string) (model.PlaceDescriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return model.PlaceDescriptor{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value model.PlaceDescriptor) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
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
	c.unlink(e)
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

func (c *lruCache) unlink(e *entry) {
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
	c.unlink(c.tail)
}
