// Package fsutil provides the filesystem abstraction capture datasets are read through.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// ErrFileTooLarge is returned by ReadFileLimit when a file exceeds the limit.
var ErrFileTooLarge = errors.New("file too large")

// FileSystem is the set of file operations capture loading, dataset
// generation and the frame cache need. OSFileSystem backs production;
// MemoryFileSystem backs tests.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	Stat(name string) (fs.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	Exists(name string) bool
}

// ReadFileLimit stats name and refuses to read it when it is larger than
// limit bytes. The returned error wraps ErrFileTooLarge in that case.
func ReadFileLimit(fsys FileSystem, name string, limit int64) ([]byte, error) {
	info, err := fsys.Stat(name)
	if err != nil {
		return nil, err
	}
	if info.Size() > limit {
		return nil, fmt.Errorf("%s: %w: %d bytes (max %d)", filepath.Base(name), ErrFileTooLarge, info.Size(), limit)
	}
	return fsys.ReadFile(name)
}

// OSFileSystem forwards to the os package.
type OSFileSystem struct{}

func (OSFileSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

func (OSFileSystem) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// MemoryFileSystem keeps files in a map and counts reads per path, so
// tests can assert that frame bytes are cached.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	data  map[string][]byte
	modes map[string]os.FileMode
	dirs  map[string]struct{}
	reads map[string]int
}

// NewMemoryFileSystem returns an empty MemoryFileSystem.
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{
		data:  map[string][]byte{},
		modes: map[string]os.FileMode{},
		dirs:  map[string]struct{}{},
		reads: map[string]int{},
	}
}

// ReadFile returns a copy of the stored bytes.
func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	name = filepath.Clean(name)

	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[name]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	m.reads[name]++
	return append([]byte(nil), b...), nil
}

// WriteFile stores a copy of data; parent directories appear implicitly.
func (m *MemoryFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	name = filepath.Clean(name)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = append([]byte(nil), data...)
	m.modes[name] = perm
	m.markParents(name)
	return nil
}

func (m *MemoryFileSystem) Stat(name string) (fs.FileInfo, error) {
	name = filepath.Clean(name)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.dirs[name]; ok {
		return memInfo{name: filepath.Base(name), mode: fs.ModeDir | 0755}, nil
	}
	b, ok := m.data[name]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return memInfo{name: filepath.Base(name), size: int64(len(b)), mode: m.modes[name]}, nil
}

func (m *MemoryFileSystem) MkdirAll(path string, _ os.FileMode) error {
	path = filepath.Clean(path)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[path] = struct{}{}
	m.markParents(path)
	return nil
}

func (m *MemoryFileSystem) Exists(name string) bool {
	name = filepath.Clean(name)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.data[name]; ok {
		return true
	}
	_, ok := m.dirs[name]
	return ok
}

// Reads reports how many successful ReadFile calls hit name.
func (m *MemoryFileSystem) Reads(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reads[filepath.Clean(name)]
}

// Files lists stored file paths, sorted.
func (m *MemoryFileSystem) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.data))
	for name := range m.data {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// markParents requires mu held for writing.
func (m *MemoryFileSystem) markParents(path string) {
	for p := filepath.Dir(path); p != "." && p != "/"; p = filepath.Dir(p) {
		if _, seen := m.dirs[p]; seen {
			return
		}
		m.dirs[p] = struct{}{}
	}
}

type memInfo struct {
	name string
	size int64
	mode os.FileMode
}

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return i.size }
func (i memInfo) Mode() os.FileMode  { return i.mode }
func (i memInfo) ModTime() time.Time { return time.Time{} }
func (i memInfo) IsDir() bool        { return i.mode.IsDir() }
func (i memInfo) Sys() any           { return nil }
