package backend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type memTree struct {
	mu    sync.RWMutex
	dirs  map[string]struct{}
	files map[string][]byte
}

// Memory is an in-memory Dir implementation for testing.
// It is safe for concurrent use.
type Memory struct {
	t   *memTree
	rel string
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{t: &memTree{
		dirs:  map[string]struct{}{"": {}},
		files: make(map[string][]byte),
	}}
}

// Path implements Dir.
func (m *Memory) Path() string { return m.rel }

func (m *Memory) aliveLocked() error {
	if _, ok := m.t.dirs[m.rel]; !ok {
		return fmt.Errorf("%s: %w", m.rel, ErrNotFound)
	}
	return nil
}

// Dir implements Dir.
func (m *Memory) Dir(_ context.Context, name string, create bool) (Dir, error) {
	if err := ValidName(name); err != nil {
		return nil, err
	}
	key := joinPath(m.rel, name)

	m.t.mu.Lock()
	defer m.t.mu.Unlock()

	if err := m.aliveLocked(); err != nil {
		return nil, err
	}
	if _, ok := m.t.files[key]; ok {
		return nil, fmt.Errorf("%s: not a directory", key)
	}
	if _, ok := m.t.dirs[key]; !ok {
		if !create {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		m.t.dirs[key] = struct{}{}
	}
	return &Memory{t: m.t, rel: key}, nil
}

// File implements Dir.
func (m *Memory) File(_ context.Context, name string, create bool) (File, error) {
	if err := ValidName(name); err != nil {
		return nil, err
	}
	key := joinPath(m.rel, name)

	m.t.mu.Lock()
	defer m.t.mu.Unlock()

	if err := m.aliveLocked(); err != nil {
		return nil, err
	}
	if _, ok := m.t.dirs[key]; ok {
		return nil, fmt.Errorf("%s: is a directory", key)
	}
	if _, ok := m.t.files[key]; !ok {
		if !create {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		m.t.files[key] = []byte{}
	}
	return &memFile{t: m.t, key: key}, nil
}

func (m *Memory) childrenLocked(key string) []string {
	prefix := key + "/"
	if key == "" {
		prefix = ""
	}
	seen := make(map[string]struct{})
	collect := func(p string) {
		if p == key || !strings.HasPrefix(p, prefix) {
			return
		}
		rest := p[len(prefix):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		seen[rest] = struct{}{}
	}
	for p := range m.t.dirs {
		collect(p)
	}
	for p := range m.t.files {
		collect(p)
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// List implements Dir.
func (m *Memory) List(_ context.Context) ([]string, error) {
	m.t.mu.RLock()
	defer m.t.mu.RUnlock()
	if err := m.aliveLocked(); err != nil {
		return nil, err
	}
	return m.childrenLocked(m.rel), nil
}

// Remove implements Dir.
func (m *Memory) Remove(_ context.Context, name string, recursive bool) error {
	if err := ValidName(name); err != nil {
		return err
	}
	key := joinPath(m.rel, name)

	m.t.mu.Lock()
	defer m.t.mu.Unlock()

	if _, ok := m.t.files[key]; ok {
		delete(m.t.files, key)
		return nil
	}
	if _, ok := m.t.dirs[key]; !ok {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if !recursive && len(m.childrenLocked(key)) > 0 {
		return fmt.Errorf("%s: %w", key, ErrNotEmpty)
	}
	prefix := key + "/"
	for p := range m.t.dirs {
		if strings.HasPrefix(p, prefix) {
			delete(m.t.dirs, p)
		}
	}
	for p := range m.t.files {
		if strings.HasPrefix(p, prefix) {
			delete(m.t.files, p)
		}
	}
	delete(m.t.dirs, key)
	return nil
}

// memFile implements File for in-memory data.
type memFile struct {
	t   *memTree
	key string
}

func (f *memFile) Path() string { return f.key }

func (f *memFile) WriteAt(_ context.Context, p []byte, off int64) error {
	if off < 0 {
		return fmt.Errorf("%s: negative offset %d", f.key, off)
	}
	f.t.mu.Lock()
	defer f.t.mu.Unlock()

	data, ok := f.t.files[f.key]
	if !ok {
		return fmt.Errorf("%s: %w", f.key, ErrNotFound)
	}
	if end := off + int64(len(p)); end > int64(len(data)) {
		grown := make([]byte, end)
		copy(grown, data)
		data = grown
	}
	copy(data[off:], p)
	f.t.files[f.key] = data
	return nil
}

func (f *memFile) Overwrite(_ context.Context, p []byte) error {
	f.t.mu.Lock()
	defer f.t.mu.Unlock()

	if _, ok := f.t.files[f.key]; !ok {
		return fmt.Errorf("%s: %w", f.key, ErrNotFound)
	}
	f.t.files[f.key] = append([]byte(nil), p...)
	return nil
}

func (f *memFile) Snapshot(_ context.Context) (Snapshot, error) {
	f.t.mu.RLock()
	defer f.t.mu.RUnlock()

	data, ok := f.t.files[f.key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", f.key, ErrNotFound)
	}
	return &memSnapshot{data: append([]byte(nil), data...)}, nil
}

func (f *memFile) Close() error {
	return nil
}

type memSnapshot struct {
	data []byte
}

func (s *memSnapshot) Size() int64 { return int64(len(s.data)) }

func (s *memSnapshot) ReadRange(_ context.Context, from, to int64) ([]byte, error) {
	from, to = clipRange(from, to, int64(len(s.data)))
	return append([]byte{}, s.data[from:to]...), nil
}

func (s *memSnapshot) Close() error {
	return nil
}
