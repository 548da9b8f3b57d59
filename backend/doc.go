// Package backend defines the hierarchical storage contract the chunk store
// runs on, plus local-filesystem and in-memory implementations.
//
// A backend is a tree of directories ([Dir]) holding files ([File]). Files
// support positional writes and hand out immutable read [Snapshot]s:
//
//	type Dir interface {
//	    Dir(ctx, name, create) (Dir, error)    // open or create a child directory
//	    File(ctx, name, create) (File, error)  // open or create a child file
//	    List(ctx) ([]string, error)            // child names
//	    Remove(ctx, name, recursive) error     // delete a child
//	}
//
// Implementations must be safe for concurrent use. Lookups of missing entries
// with create=false return an error satisfying errors.Is(err, ErrNotFound).
//
// # Built-in Implementations
//
//   - Local: local filesystem through internal/fs (fault injectable)
//   - Memory: in-memory tree for tests
//   - ObjectDir: any flat key/value object store; see backend/minio and
//     backend/s3
package backend
