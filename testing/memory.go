// Package testing provides an in-memory fs.FS for template tree tests.
//
// Import it under an alias, since it shadows the standard library package:
//
//	import treetest "github.com/cpcf/treegen/testing"
package testing

import (
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryFS is a writable fs.FS held in memory. Parent directories are
// created implicitly by WriteFile. It is safe for concurrent use.
type MemoryFS struct {
	mu    sync.RWMutex
	files map[string]*MemoryFile
}

type MemoryFile struct {
	name    string
	content []byte
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func NewMemoryFS() *MemoryFS {
	mfs := &MemoryFS{
		files: make(map[string]*MemoryFile),
	}
	mfs.files["."] = newDir(".")
	return mfs
}

// NewMemoryFSFromMap creates a MemoryFS holding one file per entry.
func NewMemoryFSFromMap(files map[string]string) *MemoryFS {
	mfs := NewMemoryFS()
	for name, content := range files {
		mfs.WriteFile(name, []byte(content))
	}
	return mfs
}

func newDir(name string) *MemoryFile {
	return &MemoryFile{
		name:    name,
		mode:    0o755 | fs.ModeDir,
		modTime: time.Now(),
		isDir:   true,
	}
}

func (mfs *MemoryFS) WriteFile(name string, data []byte) {
	name = clean(name)

	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	mfs.files[name] = &MemoryFile{
		name:    name,
		content: append([]byte(nil), data...),
		mode:    0o644,
		modTime: time.Now(),
	}
	mfs.ensureDir(path.Dir(name))
}

// WriteString is WriteFile for string content.
func (mfs *MemoryFS) WriteString(name, content string) {
	mfs.WriteFile(name, []byte(content))
}

func (mfs *MemoryFS) ensureDir(dir string) {
	if dir == "." || dir == "/" {
		return
	}

	if _, exists := mfs.files[dir]; !exists {
		mfs.files[dir] = newDir(dir)
		mfs.ensureDir(path.Dir(dir))
	}
}

func (mfs *MemoryFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	mfs.mu.RLock()
	file, exists := mfs.files[clean(name)]
	mfs.mu.RUnlock()
	if !exists {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return &memoryFileHandle{file: file, mfs: mfs, path: clean(name)}, nil
}

func (mfs *MemoryFS) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrInvalid}
	}

	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	file, exists := mfs.files[clean(name)]
	if !exists {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	if file.isDir {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrInvalid}
	}
	return append([]byte(nil), file.content...), nil
}

func (mfs *MemoryFS) ReadDir(name string) ([]fs.DirEntry, error) {
	name = clean(name)

	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	dir, exists := mfs.files[name]
	if !exists {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	if !dir.isDir {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}

	var entries []fs.DirEntry
	for filePath, file := range mfs.files {
		if filePath != "." && path.Dir(filePath) == name {
			entries = append(entries, &memoryDirEntry{file})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	return entries, nil
}

func clean(name string) string {
	name = path.Clean(strings.TrimPrefix(name, "/"))
	if name == "" {
		return "."
	}
	return name
}

type memoryFileHandle struct {
	file    *MemoryFile
	mfs     *MemoryFS
	path    string
	offset  int
	entries []fs.DirEntry
	listed  bool
}

func (f *memoryFileHandle) Read(b []byte) (int, error) {
	if f.file.isDir {
		return 0, &fs.PathError{Op: "read", Path: f.path, Err: fs.ErrInvalid}
	}

	if f.offset >= len(f.file.content) {
		return 0, io.EOF
	}

	n := copy(b, f.file.content[f.offset:])
	f.offset += n
	return n, nil
}

func (f *memoryFileHandle) Stat() (fs.FileInfo, error) {
	return f.file, nil
}

func (f *memoryFileHandle) Close() error {
	return nil
}

func (f *memoryFileHandle) ReadDir(n int) ([]fs.DirEntry, error) {
	if !f.file.isDir {
		return nil, &fs.PathError{Op: "readdir", Path: f.path, Err: fs.ErrInvalid}
	}

	if !f.listed {
		entries, err := f.mfs.ReadDir(f.path)
		if err != nil {
			return nil, err
		}
		f.entries = entries
		f.listed = true
	}

	if n <= 0 {
		entries := f.entries
		f.entries = nil
		return entries, nil
	}

	if len(f.entries) == 0 {
		return nil, io.EOF
	}
	if n > len(f.entries) {
		n = len(f.entries)
	}

	entries := f.entries[:n]
	f.entries = f.entries[n:]
	return entries, nil
}

type memoryDirEntry struct {
	file *MemoryFile
}

func (e *memoryDirEntry) Name() string {
	return path.Base(e.file.name)
}

func (e *memoryDirEntry) IsDir() bool {
	return e.file.isDir
}

func (e *memoryDirEntry) Type() fs.FileMode {
	return e.file.mode.Type()
}

func (e *memoryDirEntry) Info() (fs.FileInfo, error) {
	return e.file, nil
}

func (f *MemoryFile) Name() string {
	return path.Base(f.name)
}

func (f *MemoryFile) Size() int64 {
	return int64(len(f.content))
}

func (f *MemoryFile) Mode() fs.FileMode {
	return f.mode
}

func (f *MemoryFile) ModTime() time.Time {
	return f.modTime
}

func (f *MemoryFile) IsDir() bool {
	return f.isDir
}

func (f *MemoryFile) Sys() any {
	return nil
}
