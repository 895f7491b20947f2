package geocode

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"climatelens/pkg/geo"
	"climatelens/pkg/model"
	"climatelens/pkg/tracker"
)

type countingResolver struct {
	calls  int
	result Resolution
}

func (m *countingResolver) Resolve(_ context.Context, _ model.Coordinates) Resolution {
	m.calls++
	return m.result
}

func TestCachedResolver_SameCellHit(t *testing.T) {
	inner := &countingResolver{result: Resolved(model.PlaceDescriptor{City: "Kathmandu", Country: "NP"})}
	tr := tracker.New()
	cached := NewCachedResolver(inner, 10, geo.CacheResolution, tr)

	r1 := cached.Resolve(context.Background(), kathmandu)
	r2 := cached.Resolve(context.Background(), model.Coordinates{Latitude: 27.7173, Longitude: 85.3241})

	assert.Equal(t, "Kathmandu", r1.Place.City)
	assert.Equal(t, "Kathmandu", r2.Place.City)
	assert.True(t, r2.Resolved)
	assert.Equal(t, 1, inner.calls, "should only call inner once")

	stats := tr.Snapshot()["geocode"]
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)
}

func TestCachedResolver_FailuresNotCached(t *testing.T) {
	inner := &countingResolver{result: Unresolved(errors.New("timeout"))}
	cached := NewCachedResolver(inner, 10, geo.CacheResolution, nil)

	cached.Resolve(context.Background(), kathmandu)
	r := cached.Resolve(context.Background(), kathmandu)

	assert.Equal(t, 2, inner.calls)
	assert.False(t, r.Resolved)
	assert.Equal(t, 0, cached.Len())
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", model.PlaceDescriptor{City: "A"})
	c.put("b", model.PlaceDescriptor{City: "B"})

	// touch "a" so "b" becomes least recently used
	_, _ = c.get("a")
	c.put("c", model.PlaceDescriptor{City: "C"})

	_, okA := c.get("a")
	_, okB := c.get("b")
	_, okC := c.get("c")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.True(t, okC)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", model.PlaceDescriptor{City: "Old"})
	c.put("a", model.PlaceDescriptor{City: "New"})
	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "New", v.City)
	assert.Equal(t, 1, c.len())
}

type mapStore map[string][]byte

func (m mapStore) GetCache(_ context.Context, key string) ([]byte, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapStore) SetCache(_ context.Context, key string, val []byte) error {
	m[key] = val
	return nil
}

func TestCachedResolver_PersistentTier(t *testing.T) {
	store := mapStore{}
	inner := &countingResolver{result: Resolved(model.PlaceDescriptor{City: "Kathmandu", Country: "NP"})}

	first := NewCachedResolver(inner, 10, geo.CacheResolution, nil).WithStore(store)
	first.Resolve(context.Background(), kathmandu)
	assert.Len(t, store, 1)

	// A fresh resolver (empty LRU) is served from the store.
	second := NewCachedResolver(inner, 10, geo.CacheResolution, nil).WithStore(store)
	r := second.Resolve(context.Background(), kathmandu)

	assert.True(t, r.Resolved)
	assert.Equal(t, "Kathmandu", r.Place.City)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, second.Len())
}
