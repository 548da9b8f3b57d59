package chunkstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/chunkstore/backend"
	"github.com/hupe1980/chunkstore/internal/cache"
	"github.com/hupe1980/chunkstore/internal/cachecodec"
	"github.com/hupe1980/chunkstore/internal/chunkset"
	"github.com/hupe1980/chunkstore/internal/handle"
	"github.com/hupe1980/chunkstore/internal/rangemap"
	"github.com/hupe1980/chunkstore/internal/resource"
	"github.com/hupe1980/chunkstore/internal/writequeue"
)

// CacheDirName is the directory below the backend root that holds the cache
// artifacts of every store configured with files.
const CacheDirName = ".chunkcache"

const (
	dirStore = "store"
	dirCache = "cache"
)

// State is the lifecycle state of a Store.
type State int32

const (
	StateOpen State = iota
	StateClosing
	StateClosed
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// GetOptions selects a window of a chunk. The zero value reads the whole
// chunk.
type GetOptions struct {
	// Offset is the first byte of the window within the chunk.
	Offset int64
	// Length is the window size. Nil reads up to the end of the chunk.
	Length *int64
}

// Store is a fixed-size-chunk view over a backend directory. It is safe for
// concurrent use.
type Store struct {
	root        backend.Dir
	name        string
	chunkLength int
	totalLength int64 // -1 when unbounded
	numChunks   int   // -1 when unbounded
	lastLength  int
	rmap        *rangemap.Map // nil without files

	logger  *Logger
	metrics MetricsCollector
	codec   cachecodec.Codec
	rc      *resource.Controller
	mem     *cache.LRU // nil when disabled
	cached  *chunkset.Set

	// mu is held shared by Put and Get and exclusively by Cleanup and Close.
	mu    sync.RWMutex
	state atomic.Int32

	dirs      *handle.Cache[backend.Dir]
	artifacts *handle.Cache[backend.File]
	queues    *handle.Cache[*writequeue.Queue]
	snapshots *handle.Cache[*fileSnapshot]

	// snapMu guards the per-file put generations and the retired snapshots.
	snapMu  sync.Mutex
	fileGen map[string]uint64
	retired []backend.Snapshot
}

// fileSnapshot is a read snapshot tagged with the put generation of its file
// at the time it was opened.
type fileSnapshot struct {
	backend.Snapshot
	gen uint64
}

// New opens the store named by WithName (a random UUID by default) below
// root.
//
// Without files every chunk is kept at <name>/<index>. With files the chunks
// are written into the files at <name>/<path>, and per-chunk cache artifacts
// live in CacheDirName/<name>/<index>. That cache is reset by New.
func New(ctx context.Context, root backend.Dir, chunkLength int, optFns ...Option) (*Store, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	if root == nil {
		return nil, fmt.Errorf("%w: nil backend", ErrInvalidConfiguration)
	}
	if chunkLength <= 0 {
		return nil, fmt.Errorf("%w: chunk length must be positive, got %d", ErrInvalidConfiguration, chunkLength)
	}
	if o.name == "" {
		o.name = uuid.NewString()
	}
	if err := backend.ValidName(o.name); err != nil || o.name == CacheDirName {
		return nil, fmt.Errorf("%w: store name %q", ErrInvalidConfiguration, o.name)
	}
	switch o.compression {
	case CompressionNone, CompressionLZ4, CompressionZSTD:
	default:
		return nil, fmt.Errorf("%w: unknown cache compression %s", ErrInvalidConfiguration, o.compression)
	}
	if o.totalLength < -1 {
		return nil, fmt.Errorf("%w: negative total length %d", ErrInvalidConfiguration, o.totalLength)
	}

	s := &Store{
		root:        root,
		name:        o.name,
		chunkLength: chunkLength,
		logger:      o.logger.WithStore(o.name),
		metrics:     o.metricsCollector,
		codec:       o.compression,
		cached:      chunkset.New(),
		dirs:        handle.New[backend.Dir](),
		artifacts:   handle.New[backend.File](),
		queues:      handle.New[*writequeue.Queue](),
		snapshots:   handle.New[*fileSnapshot](),
		fileGen:     make(map[string]uint64),
	}

	extent := o.totalLength
	if len(o.files) > 0 {
		specs := make([]rangemap.FileSpec, len(o.files))
		for i, f := range o.files {
			specs[i] = rangemap.FileSpec{Path: f.Path, Length: f.Length, Offset: f.Offset}
		}
		m, err := rangemap.Build(int64(chunkLength), specs)
		if err != nil {
			return nil, translateError(err)
		}
		if o.totalLength >= 0 && o.totalLength != m.Length() {
			return nil, fmt.Errorf("%w: total length %d does not match the files (%d bytes)", ErrInvalidConfiguration, o.totalLength, m.Length())
		}
		s.rmap = m
		s.totalLength = m.Length()

		// Explicit offsets may leave gaps; chunks cover the full extent.
		extent = 0
		for _, f := range m.Files() {
			extent = max(extent, f.End())
		}
	} else {
		s.totalLength = o.totalLength
	}

	s.numChunks = -1
	if extent >= 0 {
		cl := int64(chunkLength)
		s.numChunks = 0
		if extent > 0 {
			s.numChunks = int((extent-1)/cl) + 1
			s.lastLength = int(extent - int64(s.numChunks-1)*cl)
		}
	}

	s.rc = resource.NewController(resource.Config{
		MemoryLimitBytes:    o.memoryLimitBytes,
		MaxConcurrentWrites: o.maxConcurrentWrites,
		IOLimitBytesPerSec:  o.ioLimitBytesPerSec,
	})
	if o.memoryCacheBytes > 0 {
		s.mem = cache.NewLRU(o.memoryCacheBytes, s.rc)
	}

	if _, err := s.dir(ctx, dirStore); err != nil {
		return nil, fmt.Errorf("open store directory: %w", err)
	}
	if s.rmap != nil {
		if err := s.resetCacheDir(ctx, true); err != nil {
			return nil, err
		}
	}

	s.logger.InfoContext(ctx, "store opened",
		"chunk_length", chunkLength,
		"total_length", s.totalLength,
		"files", len(o.files),
		"compression", s.codec.String(),
	)
	return s, nil
}

// Name returns the name of the store's directory.
func (s *Store) Name() string {
	return s.name
}

// ChunkLength returns the configured chunk length.
func (s *Store) ChunkLength() int {
	return s.chunkLength
}

// State returns the current lifecycle state.
func (s *Store) State() State {
	return State(s.state.Load())
}

// Put stores buf as chunk index.
//
// buf must be exactly one chunk long, or the last-chunk length for the last
// chunk of a bounded store. The cache artifact and every overlapping file are
// written concurrently. Put is not atomic: when one target fails the others
// may already hold the new bytes.
func (s *Store) Put(ctx context.Context, index int, buf []byte) error {
	start := time.Now()
	err := s.put(ctx, index, buf)
	s.metrics.RecordPut(len(buf), time.Since(start), err)
	s.logger.LogPut(ctx, index, len(buf), err)
	return err
}

func (s *Store) put(ctx context.Context, index int, buf []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.checkIndex(index); err != nil {
		return err
	}
	if want := s.chunkLen(index); len(buf) != want {
		return &ChunkLengthError{Index: index, Expected: want, Actual: len(buf)}
	}

	var entries []rangemap.Entry
	if s.rmap != nil {
		entries = s.rmap.Entries(index)
		if len(entries) == 0 {
			return fmt.Errorf("chunk %d: %w", index, ErrNoMatchingFiles)
		}
	}

	artifact, err := cachecodec.Encode(s.codec, buf)
	if err != nil {
		return fmt.Errorf("chunk %d: encode cache artifact: %w", index, err)
	}

	if s.mem != nil {
		s.mem.Invalidate(index)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.rc.WriteLimit())
	g.Go(func() error {
		return s.writeArtifact(gctx, index, artifact)
	})
	for _, e := range entries {
		g.Go(func() error {
			return s.writeFile(gctx, e.File, buf[e.From:e.To], e.FileOffset)
		})
	}
	err = g.Wait()

	s.retireSnapshots(entries)
	if err != nil {
		return translateError(err)
	}

	if s.mem != nil {
		s.mem.Set(index, buf)
	}
	return nil
}

func (s *Store) writeArtifact(ctx context.Context, index int, data []byte) error {
	key := strconv.Itoa(index)
	f, err := s.artifacts.Get(key, func() (backend.File, error) {
		dir, err := s.chunkDir(ctx)
		if err != nil {
			return nil, err
		}
		return dir.File(ctx, key, true)
	})
	if err != nil {
		return fmt.Errorf("chunk %d: open cache artifact: %w", index, err)
	}
	if err := s.rc.AcquireIO(ctx, len(data)); err != nil {
		return err
	}
	if err := f.Overwrite(ctx, data); err != nil {
		return fmt.Errorf("chunk %d: write cache artifact: %w", index, err)
	}
	s.cached.Add(uint32(index))
	return nil
}

func (s *Store) writeFile(ctx context.Context, f *rangemap.File, p []byte, off int64) error {
	q, err := s.queue(ctx, f)
	if err != nil {
		return fmt.Errorf("file %s: open: %w", f.Path, err)
	}
	if err := q.Write(ctx, p, off); err != nil {
		return fmt.Errorf("file %s: write at %d: %w", f.Path, off, err)
	}
	return nil
}

// queue returns the write queue of f, opening the file on first use.
func (s *Store) queue(ctx context.Context, f *rangemap.File) (*writequeue.Queue, error) {
	return s.queues.Get(f.Path, func() (*writequeue.Queue, error) {
		dir, err := s.dir(ctx, dirStore)
		if err != nil {
			return nil, err
		}
		file, err := backend.OpenFile(ctx, dir, f.Path, true)
		if err != nil {
			return nil, err
		}
		if p, ok := file.(backend.Preallocator); ok {
			if err := p.Preallocate(ctx, f.Length); err != nil {
				s.logger.WarnContext(ctx, "preallocation failed", "file", f.Path, "error", err)
			}
		}
		return writequeue.New(&throttledFile{File: file, rc: s.rc}), nil
	})
}

// Get reads chunk index, or the window of it selected by opts.
//
// Chunks are served from the memory tier, then from their cache artifact and,
// with files configured, rebuilt from the files when the artifact is gone.
func (s *Store) Get(ctx context.Context, index int, opts *GetOptions) ([]byte, error) {
	start := time.Now()
	data, source, err := s.get(ctx, index, opts)
	s.metrics.RecordGet(len(data), source == "memory" || source == "cache", time.Since(start), err)
	s.logger.LogGet(ctx, index, source, len(data), err)
	return data, err
}

func (s *Store) get(ctx context.Context, index int, opts *GetOptions) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkOpen(); err != nil {
		return nil, "", err
	}
	if err := s.checkIndex(index); err != nil {
		return nil, "", err
	}

	chunkLen := int64(s.chunkLen(index))
	var off int64
	if opts != nil {
		off = opts.Offset
	}
	length := chunkLen - off
	if opts != nil && opts.Length != nil {
		length = *opts.Length
	}
	// Compared against the remainder so huge lengths cannot overflow.
	if off < 0 || off > chunkLen || length < 0 || length > chunkLen-off {
		return nil, "", &RangeError{Index: index, Offset: off, Length: length, Limit: chunkLen}
	}
	if length == 0 {
		return []byte{}, "", nil
	}
	lo, hi := off, off+length

	if s.mem != nil {
		if b, ok := s.mem.Get(index); ok && int64(len(b)) >= hi {
			return b[lo:hi], "memory", nil
		}
	}

	if s.rmap == nil || s.cached.Contains(uint32(index)) {
		data, err := s.readArtifact(ctx, index, lo, hi)
		switch {
		case err == nil && len(data) > 0:
			return data, "cache", nil
		case err == nil || errors.Is(err, backend.ErrNotFound):
			if s.rmap == nil {
				return nil, "", fmt.Errorf("chunk %d: %w", index, ErrNotFound)
			}
		case errors.Is(err, cachecodec.ErrCorrupt) && s.rmap != nil:
			s.logger.WarnContext(ctx, "rebuilding chunk from files", "index", index, "error", err)
			s.cached.Remove(uint32(index))
		default:
			return nil, "", translateError(err)
		}
	}

	data, err := s.reconstruct(ctx, index, lo, hi)
	if err != nil {
		return nil, "", translateError(err)
	}
	return data, "files", nil
}

// readArtifact returns bytes [lo, hi) of the cache artifact of index. A
// missing or empty artifact yields no bytes.
func (s *Store) readArtifact(ctx context.Context, index int, lo, hi int64) ([]byte, error) {
	key := strconv.Itoa(index)
	f, ok := s.artifacts.Peek(key)
	if !ok {
		dir, err := s.chunkDir(ctx)
		if err != nil {
			return nil, err
		}
		f, err = dir.File(ctx, key, false)
		if err != nil {
			return nil, err
		}
		defer f.Close()
	}

	snap, err := f.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer snap.Close()

	if s.codec.Ranged() {
		return snap.ReadRange(ctx, lo, hi)
	}

	chunkLen := s.chunkLen(index)
	if limit := int64(cachecodec.MaxFrameSize(s.codec, chunkLen)); snap.Size() > limit {
		return nil, fmt.Errorf("chunk %d: %w: artifact is %d bytes, limit %d", index, cachecodec.ErrCorrupt, snap.Size(), limit)
	}
	frame, err := snap.ReadRange(ctx, 0, snap.Size())
	if err != nil || len(frame) == 0 {
		return frame, err
	}
	raw, err := cachecodec.Decode(s.codec, frame, chunkLen)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", index, err)
	}
	hi = min(hi, int64(len(raw)))
	if lo >= hi {
		return []byte{}, nil
	}
	return raw[lo:hi], nil
}

// reconstruct rebuilds bytes [lo, hi) of chunk index from the files. Pieces
// that are not readable yet are skipped, so the result may be short.
func (s *Store) reconstruct(ctx context.Context, index int, lo, hi int64) ([]byte, error) {
	var clipped []rangemap.Entry
	for _, e := range s.rmap.Entries(index) {
		if c, ok := e.Clip(lo, hi); ok {
			clipped = append(clipped, c)
		}
	}
	if len(clipped) == 0 {
		return nil, fmt.Errorf("chunk %d: %w", index, ErrNotFound)
	}

	pieces := make([][]byte, len(clipped))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range clipped {
		g.Go(func() error {
			snap, err := s.snapshot(gctx, c.File)
			if errors.Is(err, backend.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("file %s: %w", c.File.Path, err)
			}
			pieces[i], err = snap.ReadRange(gctx, c.FileOffset, c.FileOffset+c.Len())
			if err != nil {
				return fmt.Errorf("file %s: read: %w", c.File.Path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]byte, 0, hi-lo)
	for _, p := range pieces {
		out = append(out, p...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("chunk %d: %w", index, ErrNotFound)
	}
	return out, nil
}

// snapshot returns the read snapshot of f, taking it on first use. A
// snapshot opened before a put to f completed is retired and taken again.
func (s *Store) snapshot(ctx context.Context, f *rangemap.File) (backend.Snapshot, error) {
	for {
		snap, err := s.snapshots.Get(f.Path, func() (*fileSnapshot, error) {
			gen := s.generation(f.Path)
			dir, err := s.dir(ctx, dirStore)
			if err != nil {
				return nil, err
			}
			file, err := backend.OpenFile(ctx, dir, f.Path, false)
			if err != nil {
				return nil, err
			}
			defer file.Close()
			sn, err := file.Snapshot(ctx)
			if err != nil {
				return nil, err
			}
			return &fileSnapshot{Snapshot: sn, gen: gen}, nil
		})
		if err != nil {
			return nil, err
		}
		if snap.gen == s.generation(f.Path) {
			return snap, nil
		}

		if s.snapshots.DeleteIf(f.Path, func(v *fileSnapshot) bool { return v == snap }) {
			s.retire(snap)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

func (s *Store) generation(path string) uint64 {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	return s.fileGen[path]
}

func (s *Store) retire(snap backend.Snapshot) {
	s.snapMu.Lock()
	s.retired = append(s.retired, snap)
	s.snapMu.Unlock()
}

// retireSnapshots advances the generation of every file touched by a put and
// drops their snapshots. Dropped snapshots stay open until the next cleanup
// since concurrent gets may still read them.
func (s *Store) retireSnapshots(entries []rangemap.Entry) {
	for _, e := range entries {
		s.snapMu.Lock()
		s.fileGen[e.File.Path]++
		s.snapMu.Unlock()

		if snap, ok := s.snapshots.Delete(e.File.Path); ok {
			s.retire(snap)
		}
	}
}

// Cleanup discards every cache artifact and reopens all files, leaving the
// files as the only copy of the data. It requires files and an open store.
//
// All write queues are closed even if some fail; the failures are joined.
func (s *Store) Cleanup(ctx context.Context) error {
	if s.rmap == nil {
		return fmt.Errorf("%w: cleanup requires files", ErrInvalidConfiguration)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.cleanupLocked(ctx, true)
}

func (s *Store) cleanupLocked(ctx context.Context, reopen bool) error {
	start := time.Now()

	queues := s.queues.Drain()
	artifacts := s.artifacts.Drain()

	var errs []error
	for path, q := range queues {
		if err := q.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close write queue %s: %w", path, err))
		}
	}
	errs = append(errs, closeAll(artifacts)...)
	errs = append(errs, s.closeSnapshots()...)

	s.cached.Clear()
	if s.mem != nil {
		s.mem.Clear()
	}

	if err := s.resetCacheDir(ctx, reopen); err != nil {
		errs = append(errs, err)
	} else if reopen {
		if err := s.refreshSnapshots(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	elapsed := time.Since(start)
	s.metrics.RecordCleanup(elapsed, err)
	s.logger.LogCleanup(ctx, len(artifacts), len(queues), elapsed, err)
	return err
}

// resetCacheDir removes the cache directory and, when recreate is set, opens
// a fresh empty one.
func (s *Store) resetCacheDir(ctx context.Context, recreate bool) error {
	s.dirs.Delete(dirCache)

	cacheRoot, err := s.root.Dir(ctx, CacheDirName, true)
	if err != nil {
		return fmt.Errorf("open cache root: %w", err)
	}
	if err := cacheRoot.Remove(ctx, s.name, true); err != nil && !errors.Is(err, backend.ErrNotFound) {
		return fmt.Errorf("remove cache directory: %w", err)
	}
	if !recreate {
		return nil
	}
	if _, err := s.dir(ctx, dirCache); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	return nil
}

func (s *Store) refreshSnapshots(ctx context.Context) error {
	files := s.rmap.Files()
	g, gctx := errgroup.WithContext(ctx)
	for i := range files {
		f := &files[i]
		g.Go(func() error {
			_, err := s.snapshot(gctx, f)
			if err != nil && !errors.Is(err, backend.ErrNotFound) {
				return fmt.Errorf("snapshot %s: %w", f.Path, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Store) closeSnapshots() []error {
	errs := closeAll(s.snapshots.Drain())

	s.snapMu.Lock()
	retired := s.retired
	s.retired = nil
	s.snapMu.Unlock()

	for _, snap := range retired {
		if err := snap.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Close flushes and releases every handle. With files configured the cache is
// discarded as by Cleanup. Close waits for in-flight operations; a second
// call returns ErrAlreadyClosed.
func (s *Store) Close(ctx context.Context) error {
	err := s.close(ctx)
	s.logger.LogClose(ctx, false, err)
	return err
}

func (s *Store) close(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateOpen), int32(StateClosing)) {
		return ErrAlreadyClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.rmap != nil {
		err = s.cleanupLocked(ctx, false)
	} else {
		err = errors.Join(closeAll(s.artifacts.Drain())...)
		if s.mem != nil {
			s.mem.Clear()
		}
	}
	s.dirs.Drain()

	s.state.Store(int32(StateClosed))
	return err
}

// Destroy closes the store and removes its directory and cache. A later
// lookup of the store's directory reports backend.ErrNotFound.
func (s *Store) Destroy(ctx context.Context) error {
	err := s.destroy(ctx)
	s.logger.LogClose(ctx, true, err)
	return err
}

func (s *Store) destroy(ctx context.Context) error {
	if err := s.close(ctx); err != nil {
		return err
	}

	if err := s.root.Remove(ctx, s.name, true); err != nil && !errors.Is(err, backend.ErrNotFound) {
		return fmt.Errorf("remove store directory: %w", err)
	}
	if s.rmap != nil {
		if err := pruneCacheRoot(ctx, s.root, s.name); err != nil {
			return err
		}
	}

	s.state.Store(int32(StateDestroyed))
	return nil
}

// Stats is a point-in-time view of a Store.
type Stats struct {
	Name        string
	State       State
	ChunkLength int
	// TotalLength is -1 for unbounded stores.
	TotalLength int64
	// NumChunks is -1 for unbounded stores.
	NumChunks       int
	Files           int
	CachedChunks    int
	MemoryChunks    int
	MemoryBytes     int64
	OpenWriteQueues int
}

// Stats returns the current store statistics.
func (s *Store) Stats() Stats {
	st := Stats{
		Name:            s.name,
		State:           s.State(),
		ChunkLength:     s.chunkLength,
		TotalLength:     s.totalLength,
		NumChunks:       s.numChunks,
		CachedChunks:    s.cached.Len(),
		OpenWriteQueues: s.queues.Len(),
	}
	if s.rmap != nil {
		st.Files = len(s.rmap.Files())
	}
	if s.mem != nil {
		st.MemoryChunks = s.mem.Len()
		st.MemoryBytes = s.mem.Size()
	}
	return st
}

func (s *Store) checkOpen() error {
	if State(s.state.Load()) != StateOpen {
		return ErrStoreClosed
	}
	return nil
}

func (s *Store) checkIndex(index int) error {
	if index < 0 || uint64(index) > math.MaxUint32 {
		return &RangeError{Index: index, Limit: math.MaxUint32}
	}
	if s.rmap == nil && s.numChunks >= 0 && index >= s.numChunks {
		return &RangeError{Index: index, Limit: int64(s.numChunks)}
	}
	return nil
}

// chunkLen returns the effective length of chunk index.
func (s *Store) chunkLen(index int) int {
	if s.numChunks > 0 && index == s.numChunks-1 {
		return s.lastLength
	}
	return s.chunkLength
}

// chunkDir returns the directory holding the per-chunk files.
func (s *Store) chunkDir(ctx context.Context) (backend.Dir, error) {
	if s.rmap == nil {
		return s.dir(ctx, dirStore)
	}
	return s.dir(ctx, dirCache)
}

func (s *Store) dir(ctx context.Context, key string) (backend.Dir, error) {
	return s.dirs.Get(key, func() (backend.Dir, error) {
		if key == dirStore {
			return s.root.Dir(ctx, s.name, true)
		}
		cacheRoot, err := s.root.Dir(ctx, CacheDirName, true)
		if err != nil {
			return nil, err
		}
		return cacheRoot.Dir(ctx, s.name, true)
	})
}

func closeAll[V interface{ Close() error }](items map[string]V) []error {
	var errs []error
	for key, v := range items {
		if err := v.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", key, err))
		}
	}
	return errs
}

// throttledFile charges writes against the IO limit.
type throttledFile struct {
	backend.File
	rc *resource.Controller
}

func (f *throttledFile) WriteAt(ctx context.Context, p []byte, off int64) error {
	if err := f.rc.AcquireIO(ctx, len(p)); err != nil {
		return err
	}
	return f.File.WriteAt(ctx, p, off)
}
