package chunkstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/chunkstore/backend"
)

// PurgeCache removes the cache artifacts of every store below root. Chunks
// remain readable from their files. It is meant for stale caches left behind
// by crashed processes and should not race with open stores.
func PurgeCache(ctx context.Context, root backend.Dir) error {
	if err := root.Remove(ctx, CacheDirName, true); err != nil && !errors.Is(err, backend.ErrNotFound) {
		return fmt.Errorf("purge cache: %w", err)
	}
	return nil
}

// pruneCacheRoot removes the cache of one store and the cache root itself
// once no other store uses it.
func pruneCacheRoot(ctx context.Context, root backend.Dir, name string) error {
	cacheRoot, err := root.Dir(ctx, CacheDirName, false)
	if errors.Is(err, backend.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open cache root: %w", err)
	}
	if err := cacheRoot.Remove(ctx, name, true); err != nil && !errors.Is(err, backend.ErrNotFound) {
		return fmt.Errorf("remove cache directory: %w", err)
	}

	rest, err := cacheRoot.List(ctx)
	if err != nil {
		return fmt.Errorf("list cache root: %w", err)
	}
	if len(rest) == 0 {
		if err := root.Remove(ctx, CacheDirName, false); err != nil && !errors.Is(err, backend.ErrNotFound) && !errors.Is(err, backend.ErrNotEmpty) {
			return fmt.Errorf("remove cache root: %w", err)
		}
	}
	return nil
}
