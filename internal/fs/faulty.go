package fs

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// ErrInjected is returned by an injected fault that carries no error of its own.
var ErrInjected = errors.New("fs: injected fault")

// Op selects the operations a Fault applies to.
type Op uint8

const (
	OpWrite Op = 1 << iota
	OpRead
	OpSync
	OpClose
	OpRemove
	OpOpen

	OpAll = OpWrite | OpRead | OpSync | OpClose | OpRemove | OpOpen
)

// Fault describes an injected failure.
//
// Writes are admitted until a file has received WriteBudget bytes; a
// negative budget never fails writes. The remaining operations in Ops fail
// unconditionally.
type Fault struct {
	Ops         Op
	WriteBudget int64
	Err         error
}

// FailWrites returns a fault that rejects writes once budget bytes were
// written to a matching file.
func FailWrites(budget int64) Fault {
	return Fault{Ops: OpWrite, WriteBudget: budget}
}

// FailOn returns a fault that rejects every operation in ops.
func FailOn(ops Op) Fault {
	return Fault{Ops: ops, WriteBudget: -1}
}

// WithErr returns a copy of f that fails with err instead of ErrInjected.
func (f Fault) WithErr(err error) Fault {
	f.Err = err
	return f
}

func (f Fault) fails(op Op) error {
	if f.Ops&op == 0 {
		return nil
	}
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

type rule struct {
	pattern string
	fault   Fault
}

// FaultyFS wraps a FileSystem and fails operations on paths whose base name
// matches a registered glob pattern. The last matching rule wins.
type FaultyFS struct {
	inner FileSystem

	mu      sync.Mutex
	rules   []rule
	written int64
	budget  int64
}

// NewFaultyFS wraps inner, or the local filesystem when inner is nil.
func NewFaultyFS(inner FileSystem) *FaultyFS {
	if inner == nil {
		inner = Default
	}
	return &FaultyFS{inner: inner, budget: -1}
}

// AddRule registers fault for paths whose base name matches the
// filepath.Match pattern.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{pattern: pattern, fault: fault})
}

// SetWriteBudget fails every write once the bytes written across all files
// would exceed budget. A negative budget disables the limit.
func (f *FaultyFS) SetWriteBudget(budget int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.budget = budget
}

// Reset drops all rules and the global write budget.
func (f *FaultyFS) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = nil
	f.budget = -1
}

// Written reports the bytes admitted across all files.
func (f *FaultyFS) Written() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written
}

func (f *FaultyFS) lookup(name string) (Fault, bool) {
	base := filepath.Base(name)
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.rules) - 1; i >= 0; i-- {
		if ok, _ := filepath.Match(f.rules[i].pattern, base); ok {
			return f.rules[i].fault, true
		}
	}
	return Fault{}, false
}

func (f *FaultyFS) charge(n int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.budget >= 0 && f.written+n > f.budget {
		return false
	}
	f.written += n
	return true
}

// OpenFile implements FileSystem.
func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	fault, ok := f.lookup(name)
	if ok {
		if err := fault.fails(OpOpen); err != nil {
			return nil, err
		}
	}
	file, err := f.inner.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	if !ok {
		fault = FailOn(0)
	}
	return &faultyFile{File: file, owner: f, fault: fault}, nil
}

// Remove implements FileSystem.
func (f *FaultyFS) Remove(name string) error {
	if fault, ok := f.lookup(name); ok {
		if err := fault.fails(OpRemove); err != nil {
			return err
		}
	}
	return f.inner.Remove(name)
}

// RemoveAll implements FileSystem.
func (f *FaultyFS) RemoveAll(path string) error {
	if fault, ok := f.lookup(path); ok {
		if err := fault.fails(OpRemove); err != nil {
			return err
		}
	}
	return f.inner.RemoveAll(path)
}

// Stat implements FileSystem.
func (f *FaultyFS) Stat(name string) (os.FileInfo, error) { return f.inner.Stat(name) }

// MkdirAll implements FileSystem.
func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error {
	return f.inner.MkdirAll(path, perm)
}

// ReadDir implements FileSystem.
func (f *FaultyFS) ReadDir(name string) ([]os.DirEntry, error) { return f.inner.ReadDir(name) }

type faultyFile struct {
	File
	owner *FaultyFS
	fault Fault

	mu      sync.Mutex
	written int64
}

func (ff *faultyFile) admit(n int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if ff.fault.WriteBudget >= 0 && ff.written+int64(n) > ff.fault.WriteBudget {
		if err := ff.fault.fails(OpWrite); err != nil {
			return err
		}
	}
	if !ff.owner.charge(int64(n)) {
		return ErrInjected
	}
	ff.written += int64(n)
	return nil
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	if err := ff.admit(len(p)); err != nil {
		return 0, err
	}
	return ff.File.Write(p)
}

func (ff *faultyFile) WriteAt(p []byte, off int64) (int, error) {
	if err := ff.admit(len(p)); err != nil {
		return 0, err
	}
	return ff.File.WriteAt(p, off)
}

func (ff *faultyFile) Read(p []byte) (int, error) {
	if err := ff.fault.fails(OpRead); err != nil {
		return 0, err
	}
	return ff.File.Read(p)
}

func (ff *faultyFile) ReadAt(p []byte, off int64) (int, error) {
	if err := ff.fault.fails(OpRead); err != nil {
		return 0, err
	}
	return ff.File.ReadAt(p, off)
}

func (ff *faultyFile) Sync() error {
	if err := ff.fault.fails(OpSync); err != nil {
		return err
	}
	return ff.File.Sync()
}

// Close always releases the underlying file, even when failing.
func (ff *faultyFile) Close() error {
	err := ff.File.Close()
	if ferr := ff.fault.fails(OpClose); ferr != nil {
		return ferr
	}
	return err
}
