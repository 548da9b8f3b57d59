package backend

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
)

// ObjectClient is the flat key/value API of an object store. Keys use "/" as
// separator; a zero-length object whose key ends in "/" marks a directory.
type ObjectClient interface {
	// Stat returns the size of the object at key or ErrNotFound.
	Stat(ctx context.Context, key string) (int64, error)
	// Get returns bytes [from, to) of the object at key. to < 0 reads to the
	// end of the object.
	Get(ctx context.Context, key string, from, to int64) ([]byte, error)
	// Put stores data at key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes the objects at keys. Missing keys are ignored.
	Delete(ctx context.Context, keys []string) error
	// List returns the keys below prefix. Without recursive, deeper keys are
	// collapsed into their first-level "dir/" prefix.
	List(ctx context.Context, prefix string, recursive bool) ([]string, error)
}

// ObjectDir implements Dir on top of an ObjectClient.
//
// Positional writes are emulated with read-modify-write of the whole object,
// so writes to one file must not race; the chunk store serializes them per
// file.
type ObjectDir struct {
	c      ObjectClient
	prefix string
	rel    string
}

// NewObjectDir returns the root directory of an object store below
// rootPrefix (e.g. "torrents/").
func NewObjectDir(c ObjectClient, rootPrefix string) *ObjectDir {
	return &ObjectDir{c: c, prefix: strings.Trim(rootPrefix, "/")}
}

func (d *ObjectDir) key(rel string) string {
	return path.Join(d.prefix, rel)
}

// dirPrefix returns the key prefix of all children of rel.
func (d *ObjectDir) dirPrefix(rel string) string {
	k := d.key(rel)
	if k == "" {
		return ""
	}
	return k + "/"
}

// Path implements Dir.
func (d *ObjectDir) Path() string { return d.rel }

func (d *ObjectDir) exists(ctx context.Context, key string) (bool, error) {
	_, err := d.c.Stat(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (d *ObjectDir) dirExists(ctx context.Context, rel string) (bool, error) {
	prefix := d.dirPrefix(rel)
	if ok, err := d.exists(ctx, prefix); ok || err != nil {
		return ok, err
	}
	keys, err := d.c.List(ctx, prefix, false)
	if err != nil {
		return false, err
	}
	return len(keys) > 0, nil
}

// Dir implements Dir.
func (d *ObjectDir) Dir(ctx context.Context, name string, create bool) (Dir, error) {
	if err := ValidName(name); err != nil {
		return nil, err
	}
	rel := joinPath(d.rel, name)

	if isFile, err := d.exists(ctx, d.key(rel)); err != nil {
		return nil, err
	} else if isFile {
		return nil, fmt.Errorf("%s: not a directory", rel)
	}

	ok, err := d.dirExists(ctx, rel)
	if err != nil {
		return nil, err
	}
	if !ok {
		if !create {
			return nil, fmt.Errorf("%s: %w", rel, ErrNotFound)
		}
		if err := d.c.Put(ctx, d.dirPrefix(rel), nil); err != nil {
			return nil, err
		}
	}
	return &ObjectDir{c: d.c, prefix: d.prefix, rel: rel}, nil
}

// File implements Dir.
func (d *ObjectDir) File(ctx context.Context, name string, create bool) (File, error) {
	if err := ValidName(name); err != nil {
		return nil, err
	}
	rel := joinPath(d.rel, name)
	key := d.key(rel)

	ok, err := d.exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		if !create {
			return nil, fmt.Errorf("%s: %w", rel, ErrNotFound)
		}
		if err := d.c.Put(ctx, key, nil); err != nil {
			return nil, err
		}
	}
	return &objectFile{c: d.c, key: key, rel: rel}, nil
}

// List implements Dir.
func (d *ObjectDir) List(ctx context.Context) ([]string, error) {
	prefix := d.dirPrefix(d.rel)
	keys, err := d.c.List(ctx, prefix, false)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 && d.rel != "" {
		if ok, err := d.exists(ctx, prefix); err != nil {
			return nil, err
		} else if !ok {
			return nil, fmt.Errorf("%s: %w", d.rel, ErrNotFound)
		}
	}

	names := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		name := strings.TrimSuffix(strings.TrimPrefix(k, prefix), "/")
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}

// Remove implements Dir.
func (d *ObjectDir) Remove(ctx context.Context, name string, recursive bool) error {
	if err := ValidName(name); err != nil {
		return err
	}
	rel := joinPath(d.rel, name)
	key := d.key(rel)

	if ok, err := d.exists(ctx, key); err != nil {
		return err
	} else if ok {
		return d.c.Delete(ctx, []string{key})
	}

	prefix := d.dirPrefix(rel)
	keys, err := d.c.List(ctx, prefix, true)
	if err != nil {
		return err
	}
	marker, err := d.exists(ctx, prefix)
	if err != nil {
		return err
	}
	if len(keys) == 0 && !marker {
		return fmt.Errorf("%s: %w", rel, ErrNotFound)
	}
	hasMarker := false
	for _, k := range keys {
		if k == prefix {
			hasMarker = true
		} else if !recursive {
			return fmt.Errorf("%s: %w", rel, ErrNotEmpty)
		}
	}
	if marker && !hasMarker {
		keys = append(keys, prefix)
	}
	return d.c.Delete(ctx, keys)
}

type objectFile struct {
	c   ObjectClient
	key string
	rel string
	mu  sync.Mutex
}

func (f *objectFile) Path() string { return f.rel }

func (f *objectFile) WriteAt(ctx context.Context, p []byte, off int64) error {
	if off < 0 {
		return fmt.Errorf("%s: negative offset %d", f.rel, off)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	cur, err := f.c.Get(ctx, f.key, 0, -1)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if end := off + int64(len(p)); end > int64(len(cur)) {
		grown := make([]byte, end)
		copy(grown, cur)
		cur = grown
	}
	copy(cur[off:], p)
	return f.c.Put(ctx, f.key, cur)
}

func (f *objectFile) Overwrite(ctx context.Context, p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.c.Put(ctx, f.key, p)
}

func (f *objectFile) Snapshot(ctx context.Context) (Snapshot, error) {
	size, err := f.c.Stat(ctx, f.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", f.rel, ErrNotFound)
		}
		return nil, err
	}
	return &objectSnapshot{c: f.c, key: f.key, size: size}, nil
}

func (f *objectFile) Close() error {
	return nil
}

type objectSnapshot struct {
	c    ObjectClient
	key  string
	size int64
}

func (s *objectSnapshot) Size() int64 { return s.size }

func (s *objectSnapshot) ReadRange(ctx context.Context, from, to int64) ([]byte, error) {
	from, to = clipRange(from, to, s.size)
	if from == to {
		return []byte{}, nil
	}
	return s.c.Get(ctx, s.key, from, to)
}

func (s *objectSnapshot) Close() error {
	return nil
}
