// Package chunkstore stores fixed-size chunks over one or more logical files.
//
// A Store presents "chunk index + chunk length" addressing on top of a
// hierarchical backend. Without files every chunk is its own object. With
// files the store's address space is the files laid end to end, chunks are
// written into whichever files they overlap, and per-chunk cache artifacts
// are kept on the side for fast chunk-shaped reads.
//
// # Quick Start
//
//	ctx := context.Background()
//	root := backend.NewLocal("./data")
//
//	s, _ := chunkstore.New(ctx, root, 16<<10,
//	    chunkstore.WithName("movie"),
//	    chunkstore.WithFiles(
//	        chunkstore.LogicalFile{Path: "movie.mkv", Length: 700 << 20},
//	        chunkstore.LogicalFile{Path: "subs/en.srt", Length: 40 << 10},
//	    ),
//	)
//	defer s.Close(ctx)
//
//	_ = s.Put(ctx, 0, chunk)
//	data, _ := s.Get(ctx, 0, nil)
//
// # Partial Reads
//
//	length := int64(3)
//	b, _ := s.Get(ctx, 0, &chunkstore.GetOptions{Offset: 2, Length: &length})
//
// # Cache Lifecycle
//
// Cache artifacts are disposable. Cleanup drops them all and closes every
// open file; later reads are rebuilt from the files:
//
//	_ = s.Cleanup(ctx)
//	data, _ = s.Get(ctx, 0, nil) // served from movie.mkv
//
// Close implies Cleanup for stores with files. Destroy closes the store and
// removes everything it persisted. PurgeCache removes cache artifacts left
// behind by processes that did not close their stores.
//
// # Concurrency
//
// All methods are safe for concurrent use. Writes to the same file are
// applied in submission order through one write queue per file. Cleanup and
// Close wait for in-flight Put and Get calls.
//
// # Consistency
//
// Put is not atomic: if one target write fails, other targets may already
// hold the new bytes. Callers that need all-or-nothing chunks must retry the
// Put until it succeeds.
package chunkstore
