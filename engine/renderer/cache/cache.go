// Package cache provides the renderer's bounded least-recently-used store of
// constructed GPU objects (pipelines, bind groups, texture bindings) keyed by
// their description.
//
// GPU objects are expensive to create but cheap to re-create from their
// cached source description, so the cache trades a fixed amount of memory for
// avoiding redundant GPU-object construction on every frame when the working
// set of (texture, pipeline) combinations is stable.
//
// The cache is confined to the single render thread and is deliberately
// unlocked: eviction and handle creation are not safe under concurrent
// mutation, and no two frames may encode against the same cache concurrently.
// Only the reference counts on Shared handles are atomic, so handles may be
// passed to the asset/upload path.
package cache

import "fmt"

// cacheEntry pairs a cached value with its recency node.
type cacheEntry[K comparable, V any] struct {
	value V
	node  *lruNode[K]
}

// Cache is a fixed-capacity LRU mapping from a resource key to a shared GPU
// resource handle. Inserting into a full cache evicts exactly the least
// recently used entry — never the entry being inserted.
type Cache[K comparable, V any] struct {
	entries  map[K]*cacheEntry[K, V]
	lru      *lruList[K]
	capacity int

	// onEvict runs for every entry dropped by eviction or Clear; the renderer
	// uses it to release the cache's reference on the evicted handle.
	onEvict func(K, V)
}

// New creates a cache with the given fixed capacity.
//
// Parameters:
//   - capacity: maximum entry count; must be at least 1
//   - onEvict: called for each evicted/cleared entry, or nil
//
// Returns:
//   - *Cache[K, V]: the newly created cache
//   - error: an error if capacity is not positive
func New[K comparable, V any](capacity int, onEvict func(K, V)) (*Cache[K, V], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("cache: capacity must be at least 1, got %d", capacity)
	}
	return &Cache[K, V]{
		entries:  make(map[K]*cacheEntry[K, V], capacity),
		lru:      newLRUList[K](),
		capacity: capacity,
		onEvict:  onEvict,
	}, nil
}

// GetOrInsert returns the cached value for key, marking it most recently
// used. On a miss the factory builds the value, which is inserted after the
// least-recently-used entry has been evicted if the cache is at capacity, so
// the just-inserted entry is never the eviction victim.
//
// If the factory fails the error propagates to the caller and nothing is
// inserted — the cache remains consistent with no partial entries.
//
// Parameters:
//   - key: the resource key to look up
//   - factory: builds the value on a miss
//
// Returns:
//   - V: the cached or newly built value
//   - error: the factory's error on a failed miss, otherwise nil
func (c *Cache[K, V]) GetOrInsert(key K, factory func() (V, error)) (V, error) {
	if entry, ok := c.entries[key]; ok {
		c.lru.MoveToFront(entry.node)
		return entry.value, nil
	}

	value, err := factory()
	if err != nil {
		var zero V
		return zero, err
	}

	if len(c.entries) >= c.capacity {
		c.evictOldest()
	}

	c.entries[key] = &cacheEntry[K, V]{
		value: value,
		node:  c.lru.PushFront(key),
	}
	return value, nil
}

// Contains reports whether key is cached. It does not bump recency: a query
// is not a use.
//
// Parameters:
//   - key: the resource key to check
//
// Returns:
//   - bool: true if the key is present
func (c *Cache[K, V]) Contains(key K) bool {
	_, ok := c.entries[key]
	return ok
}

// Clear drops all entries, running the eviction callback for each. Used on
// context loss, after which entries are rebuilt lazily on next use.
func (c *Cache[K, V]) Clear() {
	if c.onEvict != nil {
		for key, entry := range c.entries {
			c.onEvict(key, entry.value)
		}
	}
	c.entries = make(map[K]*cacheEntry[K, V], c.capacity)
	c.lru.Clear()
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	return len(c.entries)
}

// Capacity returns the fixed capacity set at construction.
func (c *Cache[K, V]) Capacity() int {
	return c.capacity
}

// evictOldest drops exactly the least recently used entry.
func (c *Cache[K, V]) evictOldest() {
	key, ok := c.lru.RemoveOldest()
	if !ok {
		return
	}
	entry := c.entries[key]
	delete(c.entries, key)
	if c.onEvict != nil && entry != nil {
		c.onEvict(key, entry.value)
	}
}
