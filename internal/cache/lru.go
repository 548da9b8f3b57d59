package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/chunkstore/internal/resource"
)

// LRU is a byte-bounded least-recently-used cache of chunks.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[int]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	index int
	value []byte
}

// NewLRU creates a new LRU with the given capacity in bytes.
// If rc is provided, it will be used to track memory usage.
func NewLRU(capacity int64, rc *resource.Controller) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[int]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// Get returns a copy of the cached chunk.
func (c *LRU) Get(index int) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[index]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return clone(ent.Value.(*entry).value), true
	}
	c.misses.Add(1)
	return nil, false
}

// Set caches a copy of b under index, replacing any previous value.
// Chunks larger than the capacity, or denied by the memory limit, are not
// cached.
func (c *LRU) Set(index int, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[index]; ok {
		c.removeElement(ent)
	}

	itemSize := int64(len(b))
	if itemSize > c.capacity {
		return
	}

	// Evict locally first so released memory is visible to the controller.
	for c.size+itemSize > c.capacity {
		ent := c.evictList.Back()
		if ent == nil {
			break
		}
		c.removeElement(ent)
	}

	if err := c.rc.AcquireMemory(itemSize); err != nil {
		return
	}

	element := c.evictList.PushFront(&entry{index: index, value: clone(b)})
	c.items[index] = element
	c.size += itemSize
}

// Invalidate drops the chunk at index.
func (c *LRU) Invalidate(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[index]; ok {
		c.removeElement(ent)
	}
}

// Clear drops every chunk and returns their memory to the controller.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.evictList.Len() > 0 {
		c.removeElement(c.evictList.Back())
	}
}

// Stats returns hit and miss counts.
func (c *LRU) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached chunks.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Size returns the current size of the cache in bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *LRU) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	kv := e.Value.(*entry)
	delete(c.items, kv.index)
	itemSize := int64(len(kv.value))
	c.size -= itemSize
	c.rc.ReleaseMemory(itemSize)
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
