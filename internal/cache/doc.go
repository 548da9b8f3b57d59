// Package cache provides the in-memory hot-chunk tier.
//
// LRU holds whole chunks keyed by chunk index, bounded by a byte capacity
// and, when a resource.Controller is supplied, by its global memory limit.
// Entries are copied in and out so callers may reuse their buffers.
package cache
