//go:build linux

package fs

import (
	"errors"

	"golang.org/x/sys/unix"
)

type fder interface {
	Fd() uintptr
}

func preallocate(f File, cur, size int64) error {
	fd, ok := f.(fder)
	if !ok {
		return f.Truncate(size)
	}
	err := unix.Fallocate(int(fd.Fd()), 0, cur, size-cur)
	if errors.Is(err, unix.EOPNOTSUPP) || errors.Is(err, unix.ENOSYS) {
		// tmpfs on older kernels and some FUSE mounts
		return f.Truncate(size)
	}
	return err
}
