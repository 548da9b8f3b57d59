//go:build !linux

package fs

func preallocate(f File, _, size int64) error {
	return f.Truncate(size)
}
