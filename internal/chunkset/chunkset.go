// Package chunkset tracks which chunk indices currently have a cache artifact.
package chunkset

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// Set is a goroutine-safe set of chunk indices backed by a 32-bit Roaring
// bitmap.
type Set struct {
	mu sync.RWMutex
	rb *roaring.Bitmap
}

// New creates an empty Set.
func New() *Set {
	return &Set{rb: roaring.New()}
}

// Add marks index as present.
func (s *Set) Add(index uint32) {
	s.mu.Lock()
	s.rb.Add(index)
	s.mu.Unlock()
}

// Remove clears index.
func (s *Set) Remove(index uint32) {
	s.mu.Lock()
	s.rb.Remove(index)
	s.mu.Unlock()
}

// Contains reports whether index is present.
func (s *Set) Contains(index uint32) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rb.Contains(index)
}

// Len returns the number of indices in the set.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int(s.rb.GetCardinality())
}

// Clear removes every index.
func (s *Set) Clear() {
	s.mu.Lock()
	s.rb.Clear()
	s.mu.Unlock()
}

// ToArray returns the indices in ascending order.
func (s *Set) ToArray() []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rb.ToArray()
}
