// Package handle memoizes opened backend resources (directories, cache
// artifact files, per-file write queues) by path.
//
// Concurrent first lookups of the same key share one open call, so a
// resource is never created twice.
package handle

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache maps keys to opened handles of type V. The zero value is not usable;
// create caches with New.
type Cache[V any] struct {
	mu    sync.Mutex
	items map[string]V
	gen   uint64
	group singleflight.Group
}

// New creates an empty Cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{items: make(map[string]V)}
}

// Get returns the handle for key, calling open at most once across
// concurrent callers when it is missing. Failed opens are not cached.
func (c *Cache[V]) Get(key string, open func() (V, error)) (V, error) {
	c.mu.Lock()
	if v, ok := c.items[key]; ok {
		c.mu.Unlock()
		return v, nil
	}
	gen := c.gen
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		c.mu.Lock()
		if v, ok := c.items[key]; ok {
			c.mu.Unlock()
			return v, nil
		}
		c.mu.Unlock()

		v, err := open()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		// A Drain since the lookup started invalidates what we opened, but
		// the caller still gets a usable handle.
		if c.gen == gen {
			c.items[key] = v
		}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Peek returns the handle for key without opening it.
func (c *Cache[V]) Peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

// Put stores v under key, replacing any existing handle.
func (c *Cache[V]) Put(key string, v V) {
	c.mu.Lock()
	c.items[key] = v
	c.mu.Unlock()
}

// Delete removes and returns the handle for key.
func (c *Cache[V]) Delete(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	if ok {
		delete(c.items, key)
	}
	return v, ok
}

// DeleteIf removes the handle for key when match reports true for it. It
// reports whether a handle was removed.
func (c *Cache[V]) DeleteIf(key string, match func(V) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	if !ok || !match(v) {
		return false
	}
	delete(c.items, key)
	return true
}

// Drain removes every handle and returns them. Opens that are in flight when
// Drain runs will not be cached.
func (c *Cache[V]) Drain() map[string]V {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := c.items
	c.items = make(map[string]V)
	c.gen++
	return items
}

// Len returns the number of cached handles.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
