// Package resource governs the shared budgets of a chunk store.
//
//   - Memory: bytes held by the in-memory chunk tier (non-blocking, fail-fast)
//   - Write slots: how many backend writes one Put may have in flight
//   - IO: a token bucket limiting bytes per second written to the backend
//
// A nil *Controller is valid and imposes no limits, so callers never need to
// branch on whether limits were configured:
//
//	var rc *resource.Controller
//	_ = rc.AcquireIO(ctx, len(p)) // no-op
//
// Memory acquisition never blocks; callers decide whether to evict or skip
// caching on ErrMemoryLimitExceeded.
package resource
