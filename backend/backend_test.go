package backend

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeObjects is an in-memory ObjectClient.
type fakeObjects struct {
	mu   sync.Mutex
	objs map[string][]byte
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objs: make(map[string][]byte)}
}

func (f *fakeObjects) Stat(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objs[key]
	if !ok {
		return 0, ErrNotFound
	}
	return int64(len(data)), nil
}

func (f *fakeObjects) Get(_ context.Context, key string, from, to int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objs[key]
	if !ok {
		return nil, ErrNotFound
	}
	if to < 0 || to > int64(len(data)) {
		to = int64(len(data))
	}
	return append([]byte(nil), data[from:to]...), nil
}

func (f *fakeObjects) Put(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objs[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeObjects) Delete(_ context.Context, keys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.objs, k)
	}
	return nil
}

func (f *fakeObjects) List(_ context.Context, prefix string, recursive bool) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]struct{})
	for k := range f.objs {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if !recursive {
			rest := k[len(prefix):]
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				k = prefix + rest[:i+1]
			}
		}
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func backends(t *testing.T) map[string]Dir {
	return map[string]Dir{
		"Local":  NewLocal(t.TempDir()),
		"Memory": NewMemory(),
		"Object": NewObjectDir(newFakeObjects(), "root/"),
	}
}

func TestBackend_Lifecycle(t *testing.T) {
	ctx := context.Background()

	for name, root := range backends(t) {
		t.Run(name, func(t *testing.T) {
			// 1. Missing entries
			_, err := root.Dir(ctx, "store", false)
			require.ErrorIs(t, err, ErrNotFound)
			_, err = root.File(ctx, "nope", false)
			require.ErrorIs(t, err, ErrNotFound)

			// 2. Create nested file and write at positions
			f, err := OpenFile(ctx, root, "store/sub/data.bin", true)
			require.NoError(t, err)
			assert.Equal(t, "store/sub/data.bin", f.Path())

			require.NoError(t, f.WriteAt(ctx, []byte("world"), 5))
			require.NoError(t, f.WriteAt(ctx, []byte("hello"), 0))

			snap, err := f.Snapshot(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(10), snap.Size())
			got, err := snap.ReadRange(ctx, 3, 7)
			require.NoError(t, err)
			assert.Equal(t, "lowo", string(got))
			got, err = snap.ReadRange(ctx, 8, 100)
			require.NoError(t, err)
			assert.Equal(t, "ld", string(got))
			got, err = snap.ReadRange(ctx, 10, 12)
			require.NoError(t, err)
			assert.Empty(t, got)
			require.NoError(t, snap.Close())

			// 3. Overwrite shrinks
			require.NoError(t, f.Overwrite(ctx, []byte("abc")))
			data, err := ReadAll(ctx, root, "store/sub/data.bin")
			require.NoError(t, err)
			assert.Equal(t, "abc", string(data))
			require.NoError(t, f.Close())

			// 4. List
			store, err := root.Dir(ctx, "store", false)
			require.NoError(t, err)
			_, err = OpenFile(ctx, store, "a.bin", true)
			require.NoError(t, err)
			names, err := store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"a.bin", "sub"}, names)

			// 5. Remove
			assert.ErrorIs(t, store.Remove(ctx, "sub", false), ErrNotEmpty)
			require.NoError(t, store.Remove(ctx, "a.bin", false))
			require.NoError(t, root.Remove(ctx, "store", true))

			_, err = root.Dir(ctx, "store", false)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, root.Remove(ctx, "store", true), ErrNotFound)
		})
	}
}

func TestBackend_EmptyDir(t *testing.T) {
	ctx := context.Background()
	for name, root := range backends(t) {
		t.Run(name, func(t *testing.T) {
			d, err := root.Dir(ctx, "empty", true)
			require.NoError(t, err)
			assert.Equal(t, "empty", d.Path())

			names, err := d.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, names)

			// Lookup without create sees the empty directory.
			_, err = root.Dir(ctx, "empty", false)
			require.NoError(t, err)

			require.NoError(t, root.Remove(ctx, "empty", false))
			_, err = root.Dir(ctx, "empty", false)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestBackend_SnapshotIsStable(t *testing.T) {
	ctx := context.Background()
	for name, root := range backends(t) {
		if name == "Object" {
			// Object snapshots read through to the live object.
			continue
		}
		t.Run(name, func(t *testing.T) {
			f, err := root.File(ctx, "f", true)
			require.NoError(t, err)
			defer f.Close()
			require.NoError(t, f.WriteAt(ctx, []byte("1234"), 0))

			snap, err := f.Snapshot(ctx)
			require.NoError(t, err)
			defer snap.Close()

			require.NoError(t, f.WriteAt(ctx, []byte("5678"), 4))
			assert.Equal(t, int64(4), snap.Size())
			got, err := snap.ReadRange(ctx, 0, 8)
			require.NoError(t, err)
			assert.Len(t, got, 4)
		})
	}
}

func TestBackend_InvalidNames(t *testing.T) {
	ctx := context.Background()
	for name, root := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, bad := range []string{"", ".", "..", "a/b"} {
				_, err := root.Dir(ctx, bad, true)
				assert.ErrorIs(t, err, ErrInvalidName)
				_, err = root.File(ctx, bad, true)
				assert.ErrorIs(t, err, ErrInvalidName)
			}
		})
	}
}

func TestBackend_FileIsNotDir(t *testing.T) {
	ctx := context.Background()
	for name, root := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := root.File(ctx, "x", true)
			require.NoError(t, err)
			_, err = root.Dir(ctx, "x", true)
			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrNotFound))
		})
	}
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitPath("/a//b/./c/"))
	assert.Empty(t, SplitPath(""))
}
