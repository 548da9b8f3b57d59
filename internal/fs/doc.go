// Package fs is the thin filesystem layer under the local backend. It exists so
// tests can swap in fault injection and so file handles can be preallocated.
//
// The package defines two key interfaces:
//
//   - [File]: an open file with positional read/write, truncate and sync
//   - [FileSystem]: filesystem operations (open, remove, mkdir, list, ...)
//
// # Implementations
//
//   - [LocalFS]: production implementation using the standard os package
//   - [FaultyFS]: test utility for fault injection (simulate I/O errors)
//
// # Usage
//
// Production code should use fs.Default (which is [LocalFS]):
//
//	file, err := fs.Default.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
//
// Tests can inject [FaultyFS] to simulate failures:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("*.bin", fs.FailWrites(0))
//	store := backend.NewLocal(root, backend.WithFileSystem(ffs))
//
// Rules match on the base name of a path using [filepath.Match] patterns.
//
// There is no context.Context here; local syscalls cannot be interrupted.
package fs
