package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hupe1980/chunkstore/internal/fs"
)

// Local implements Dir on a local directory tree.
type Local struct {
	fsys fs.FileSystem
	root string
	rel  string
}

// LocalOption configures a Local backend.
type LocalOption func(*Local)

// WithFileSystem replaces the filesystem used by Local, e.g. with a
// fault-injecting fs.FaultyFS.
func WithFileSystem(fsys fs.FileSystem) LocalOption {
	return func(l *Local) {
		if fsys != nil {
			l.fsys = fsys
		}
	}
}

// NewLocal creates a Local backend rooted at the given directory. The
// directory is created on first use.
func NewLocal(root string, optFns ...LocalOption) *Local {
	l := &Local{fsys: fs.Default, root: root}
	for _, fn := range optFns {
		fn(l)
	}
	return l
}

func (l *Local) osPath(rel string) string {
	return filepath.Join(l.root, filepath.FromSlash(rel))
}

// Path implements Dir.
func (l *Local) Path() string { return l.rel }

// Dir implements Dir.
func (l *Local) Dir(_ context.Context, name string, create bool) (Dir, error) {
	if err := ValidName(name); err != nil {
		return nil, err
	}
	rel := joinPath(l.rel, name)
	p := l.osPath(rel)

	info, err := l.fsys.Stat(p)
	switch {
	case err == nil && !info.IsDir():
		return nil, fmt.Errorf("%s: not a directory", rel)
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && create:
		if err := l.fsys.MkdirAll(p, 0o755); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%s: %w", rel, ErrNotFound)
	default:
		return nil, err
	}
	return &Local{fsys: l.fsys, root: l.root, rel: rel}, nil
}

// File implements Dir.
func (l *Local) File(_ context.Context, name string, create bool) (File, error) {
	if err := ValidName(name); err != nil {
		return nil, err
	}
	rel := joinPath(l.rel, name)
	p := l.osPath(rel)

	flag := os.O_RDWR
	if create {
		if err := l.fsys.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, err
		}
		flag |= os.O_CREATE
	}
	f, err := l.fsys.OpenFile(p, flag, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", rel, ErrNotFound)
		}
		return nil, err
	}
	return &localFile{fsys: l.fsys, f: f, path: p, rel: rel}, nil
}

// List implements Dir.
func (l *Local) List(_ context.Context) ([]string, error) {
	entries, err := l.fsys.ReadDir(l.osPath(l.rel))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", l.rel, ErrNotFound)
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Remove implements Dir.
func (l *Local) Remove(_ context.Context, name string, recursive bool) error {
	if err := ValidName(name); err != nil {
		return err
	}
	p := l.osPath(joinPath(l.rel, name))
	if _, err := l.fsys.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", joinPath(l.rel, name), ErrNotFound)
		}
		return err
	}
	if recursive {
		return l.fsys.RemoveAll(p)
	}
	if err := l.fsys.Remove(p); err != nil {
		if entries, rerr := l.fsys.ReadDir(p); rerr == nil && len(entries) > 0 {
			return fmt.Errorf("%s: %w", joinPath(l.rel, name), ErrNotEmpty)
		}
		return err
	}
	return nil
}

type localFile struct {
	fsys fs.FileSystem
	path string
	rel  string

	// mu orders Overwrite against WriteAt on the shared descriptor.
	mu sync.Mutex
	f  fs.File
}

func (f *localFile) Path() string { return f.rel }

func (f *localFile) WriteAt(_ context.Context, p []byte, off int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.f.WriteAt(p, off)
	return err
}

func (f *localFile) Overwrite(_ context.Context, p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.f.WriteAt(p, 0); err != nil {
		return err
	}
	return f.f.Truncate(int64(len(p)))
}

func (f *localFile) Preallocate(_ context.Context, size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fs.Preallocate(f.f, size)
}

func (f *localFile) Snapshot(_ context.Context) (Snapshot, error) {
	r, err := f.fsys.OpenFile(f.path, os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", f.rel, ErrNotFound)
		}
		return nil, err
	}
	info, err := r.Stat()
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	return &localSnapshot{f: r, size: info.Size()}, nil
}

func (f *localFile) Close() error {
	return f.f.Close()
}

type localSnapshot struct {
	f    fs.File
	size int64
}

func (s *localSnapshot) Size() int64 { return s.size }

func (s *localSnapshot) ReadRange(_ context.Context, from, to int64) ([]byte, error) {
	from, to = clipRange(from, to, s.size)
	buf := make([]byte, to-from)
	if len(buf) == 0 {
		return buf, nil
	}
	n, err := s.f.ReadAt(buf, from)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	// The file may have been truncated since the snapshot was taken.
	return buf[:n], nil
}

func (s *localSnapshot) Close() error {
	return s.f.Close()
}
