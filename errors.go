package chunkstore

import (
	"errors"
	"fmt"

	"github.com/hupe1980/chunkstore/backend"
	"github.com/hupe1980/chunkstore/internal/cachecodec"
	"github.com/hupe1980/chunkstore/internal/rangemap"
)

var (
	// ErrInvalidConfiguration is returned by New for a bad chunk length, a
	// malformed file list or a total length that disagrees with the files.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrChunkLengthMismatch is returned by Put when the buffer length does not
	// match the chunk's length.
	ErrChunkLengthMismatch = errors.New("chunk length mismatch")

	// ErrRangeOutOfBounds is returned when a requested range or chunk index
	// lies outside the store.
	ErrRangeOutOfBounds = errors.New("range out of bounds")

	// ErrNoMatchingFiles is returned by Put when no file overlaps the chunk.
	ErrNoMatchingFiles = errors.New("no files matching the request range")

	// ErrNotFound is returned by Get for chunks that were never written.
	ErrNotFound = errors.New("chunk not found")

	// ErrStoreClosed is returned by every operation once Close has started.
	ErrStoreClosed = errors.New("store is closed")

	// ErrAlreadyClosed is returned by a second Close.
	ErrAlreadyClosed = errors.New("store already closed")

	// ErrCorruptCache is returned when a cache artifact fails to decode and
	// no files are available to rebuild the chunk from.
	ErrCorruptCache = errors.New("corrupt cache artifact")
)

// ChunkLengthError carries the expected and actual length of a rejected Put.
//
// It matches ErrChunkLengthMismatch with errors.Is.
type ChunkLengthError struct {
	Index    int
	Expected int
	Actual   int
}

func (e *ChunkLengthError) Error() string {
	return fmt.Sprintf("chunk %d: length mismatch: expected %d, got %d", e.Index, e.Expected, e.Actual)
}

func (e *ChunkLengthError) Unwrap() error { return ErrChunkLengthMismatch }

// RangeError describes a rejected read window or chunk index.
//
// It matches ErrRangeOutOfBounds with errors.Is.
type RangeError struct {
	Index  int
	Offset int64
	Length int64
	// Limit is the effective length of the chunk, or the number of chunks
	// when the index itself is out of range.
	Limit int64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("chunk %d: range [%d, %d) out of bounds (limit %d)", e.Index, e.Offset, e.Offset+e.Length, e.Limit)
}

func (e *RangeError) Unwrap() error { return ErrRangeOutOfBounds }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, backend.ErrNotFound) && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	if errors.Is(err, cachecodec.ErrCorrupt) && !errors.Is(err, ErrCorruptCache) {
		return fmt.Errorf("%w: %w", ErrCorruptCache, err)
	}

	if errors.Is(err, rangemap.ErrInvalidFile) && !errors.Is(err, ErrInvalidConfiguration) {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	return err
}
