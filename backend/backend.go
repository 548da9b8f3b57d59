package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	// ErrNotFound is returned when a file or directory does not exist.
	//
	// The default maps to `os.ErrNotExist`.
	ErrNotFound = os.ErrNotExist

	// ErrNotEmpty is returned by a non-recursive Remove of a non-empty directory.
	ErrNotEmpty = errors.New("directory not empty")

	// ErrInvalidName is returned for names that are empty, "." or "..", or
	// contain a path separator.
	ErrInvalidName = errors.New("invalid entry name")
)

// Dir is a directory in a hierarchical backend.
type Dir interface {
	// Path returns the slash-separated path of the directory relative to the
	// backend root ("" for the root).
	Path() string
	// Dir opens the child directory name, creating it when create is set.
	Dir(ctx context.Context, name string, create bool) (Dir, error)
	// File opens the child file name, creating it empty when create is set.
	File(ctx context.Context, name string, create bool) (File, error)
	// List returns the names of all children in lexical order.
	List(ctx context.Context) ([]string, error)
	// Remove deletes the child name. Directories with children require
	// recursive.
	Remove(ctx context.Context, name string, recursive bool) error
}

// File is an open, writable file.
type File interface {
	io.Closer
	// Path returns the slash-separated path of the file relative to the
	// backend root.
	Path() string
	// WriteAt writes p at byte position off, extending the file if needed.
	WriteAt(ctx context.Context, p []byte, off int64) error
	// Overwrite replaces the whole content of the file with p.
	Overwrite(ctx context.Context, p []byte) error
	// Snapshot returns a read view of the file's current content.
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Snapshot is a read-only view of a file taken at one point in time. Its size
// never changes.
type Snapshot interface {
	io.Closer
	// Size returns the size of the file when the snapshot was taken.
	Size() int64
	// ReadRange returns bytes [from, to) clipped to Size. Reading at or past
	// Size returns an empty slice.
	ReadRange(ctx context.Context, from, to int64) ([]byte, error)
}

// Preallocator is implemented by files that can reserve space up front.
type Preallocator interface {
	Preallocate(ctx context.Context, size int64) error
}

// ValidName checks that name is a single path element.
func ValidName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// SplitPath splits a slash-separated relative path into its elements.
func SplitPath(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s != "" && s != "." {
			parts = append(parts, s)
		}
	}
	return parts
}

// WalkDir opens the directory at the slash-separated path below d.
func WalkDir(ctx context.Context, d Dir, p string, create bool) (Dir, error) {
	for _, name := range SplitPath(p) {
		next, err := d.Dir(ctx, name, create)
		if err != nil {
			return nil, err
		}
		d = next
	}
	return d, nil
}

// OpenFile opens the file at the slash-separated path below d, creating
// missing parent directories when create is set.
func OpenFile(ctx context.Context, d Dir, p string, create bool) (File, error) {
	parts := SplitPath(p)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty file path", ErrInvalidName)
	}
	parent, err := WalkDir(ctx, d, strings.Join(parts[:len(parts)-1], "/"), create)
	if err != nil {
		return nil, err
	}
	return parent.File(ctx, parts[len(parts)-1], create)
}

// ReadAll returns the full content of the file at p below d.
func ReadAll(ctx context.Context, d Dir, p string) ([]byte, error) {
	f, err := OpenFile(ctx, d, p, false)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	snap, err := f.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	defer snap.Close()
	return snap.ReadRange(ctx, 0, snap.Size())
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// clipRange clamps [from, to) to [0, size).
func clipRange(from, to, size int64) (int64, int64) {
	from = max(from, 0)
	to = min(to, size)
	if from >= to {
		return 0, 0
	}
	return from, to
}
