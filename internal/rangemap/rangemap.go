package rangemap

import (
	"errors"
	"fmt"
	"math"
	"path"
	"sort"
	"strings"
)

// ErrInvalidFile is returned for malformed file descriptors.
var ErrInvalidFile = errors.New("invalid file")

// MaxChunkIndex is the highest chunk index a file may reach.
const MaxChunkIndex = math.MaxUint32

// FileSpec describes a logical file as configured by the caller.
type FileSpec struct {
	Path   string
	Length int64
	// Offset is the file's start in the store's address space. Nil places the
	// file directly after the previous one.
	Offset *int64
}

// File is a logical file with its resolved offset.
type File struct {
	Index  int
	Path   string
	Length int64
	Offset int64
}

// End returns the first byte position after the file.
func (f File) End() int64 {
	return f.Offset + f.Length
}

// Entry is the part of one chunk that overlaps one file: chunk bytes
// [From, To) are stored at FileOffset within File.
type Entry struct {
	File       *File
	From       int64
	To         int64
	FileOffset int64
}

// Len returns the number of bytes covered by the entry.
func (e Entry) Len() int64 {
	return e.To - e.From
}

// Clip restricts e to the chunk window [lo, hi). ok is false when the entry
// does not intersect the window.
func (e Entry) Clip(lo, hi int64) (Entry, bool) {
	from := max(e.From, lo)
	to := min(e.To, hi)
	if from >= to {
		return Entry{}, false
	}
	return Entry{
		File:       e.File,
		From:       from,
		To:         to,
		FileOffset: e.FileOffset + (from - e.From),
	}, true
}

// Map is the immutable chunk index -> entries table. Entries are derived on
// lookup from the files ordered by offset, so memory grows with the number of
// files rather than with the address space they cover.
type Map struct {
	chunkLength int64
	length      int64
	numChunks   int
	files       []File
	byOffset    []int   // file indices ordered by Offset
	maxEnd      []int64 // maxEnd[i] is the highest End of byOffset[:i+1]
}

// Build resolves file offsets and computes the entries of every chunk.
func Build(chunkLength int64, specs []FileSpec) (*Map, error) {
	if chunkLength <= 0 {
		return nil, fmt.Errorf("chunk length must be positive, got %d", chunkLength)
	}

	m := &Map{
		chunkLength: chunkLength,
		files:       make([]File, len(specs)),
	}

	seen := make(map[string]int, len(specs))
	var next int64
	for i, in := range specs {
		p, err := CleanPath(in.Path)
		if err != nil {
			return nil, fmt.Errorf("file %d: %w", i, err)
		}
		if prev, ok := seen[p]; ok {
			return nil, fmt.Errorf("%w: file %d: duplicate path %q (also file %d)", ErrInvalidFile, i, p, prev)
		}
		seen[p] = i
		if in.Length <= 0 {
			return nil, fmt.Errorf("%w: file %d (%s): length must be positive, got %d", ErrInvalidFile, i, p, in.Length)
		}

		offset := next
		if in.Offset != nil {
			offset = *in.Offset
			if offset < 0 {
				return nil, fmt.Errorf("%w: file %d (%s): negative offset %d", ErrInvalidFile, i, p, offset)
			}
		}

		if offset > math.MaxInt64-in.Length {
			return nil, fmt.Errorf("%w: file %d (%s): offset %d plus length %d overflows", ErrInvalidFile, i, p, offset, in.Length)
		}
		if last := (offset + in.Length - 1) / chunkLength; last > MaxChunkIndex {
			return nil, fmt.Errorf("%w: file %d (%s): ends in chunk %d, past the last chunk index %d", ErrInvalidFile, i, p, last, int64(MaxChunkIndex))
		}
		if m.length > math.MaxInt64-in.Length {
			return nil, fmt.Errorf("%w: file %d (%s): total length overflows", ErrInvalidFile, i, p)
		}

		m.files[i] = File{Index: i, Path: p, Length: in.Length, Offset: offset}
		m.length += in.Length
		next = offset + in.Length
	}

	m.byOffset = make([]int, len(m.files))
	for i := range m.byOffset {
		m.byOffset[i] = i
	}
	sort.SliceStable(m.byOffset, func(a, b int) bool {
		return m.files[m.byOffset[a]].Offset < m.files[m.byOffset[b]].Offset
	})

	var end int64
	m.maxEnd = make([]int64, len(m.byOffset))
	for i, fi := range m.byOffset {
		end = max(end, m.files[fi].End())
		m.maxEnd[i] = end
	}
	if end > 0 {
		m.numChunks = int((end-1)/chunkLength) + 1
	}

	return m, nil
}

// CleanPath normalizes a slash-separated relative path and rejects paths that
// are empty, absolute or escape their root.
func CleanPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("%w: missing path", ErrInvalidFile)
	}
	if strings.ContainsRune(p, '\\') || strings.ContainsRune(p, 0) {
		return "", fmt.Errorf("%w: path %q contains an invalid character", ErrInvalidFile, p)
	}
	if path.IsAbs(p) {
		return "", fmt.Errorf("%w: path %q must be relative", ErrInvalidFile, p)
	}
	c := path.Clean(p)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", fmt.Errorf("%w: path %q escapes the store", ErrInvalidFile, p)
	}
	return c, nil
}

// ChunkLength returns the chunk length the map was built with.
func (m *Map) ChunkLength() int64 {
	return m.chunkLength
}

// Length returns the sum of all file lengths.
func (m *Map) Length() int64 {
	return m.length
}

// Files returns the resolved files in configuration order. The slice must not
// be modified.
func (m *Map) Files() []File {
	return m.files
}

// NumChunks returns one past the highest chunk index covered by any file.
func (m *Map) NumChunks() int {
	return m.numChunks
}

// Entries returns the entries of chunk index in file order, or nil when no
// file overlaps the chunk.
func (m *Map) Entries(index int) []Entry {
	if index < 0 || index >= m.numChunks {
		return nil
	}
	cl := m.chunkLength
	start := int64(index) * cl

	// Files starting at or after the chunk end cannot overlap it.
	n := sort.Search(len(m.byOffset), func(i int) bool {
		return m.files[m.byOffset[i]].Offset-start >= cl
	})

	var out []Entry
	for i := n - 1; i >= 0 && m.maxEnd[i] > start; i-- {
		f := &m.files[m.byOffset[i]]
		if f.End() <= start {
			continue
		}
		out = append(out, Entry{
			File:       f,
			From:       max(0, f.Offset-start),
			To:         min(cl, f.End()-start),
			FileOffset: max(0, start-f.Offset),
		})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].File.Index < out[b].File.Index })
	return out
}
