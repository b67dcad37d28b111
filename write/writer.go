// Package write persists rendered output and prepares output directories.
package write

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/natefinch/atomic"
)

var ErrFileExists = errors.New("file already exists")

type Writer interface {
	Write(path string, content []byte, options WriteOptions) error
}

type WriteOptions struct {
	// CreateDirs creates missing parent directories before writing.
	CreateDirs bool
	// Overwrite replaces an existing file. Without it an existing file
	// fails the write with ErrFileExists.
	Overwrite bool
	// Atomic writes to a temporary file and renames it into place, so
	// readers never observe a partially written file.
	Atomic bool
}

// DefaultOptions are the options the engine writes output with.
func DefaultOptions() WriteOptions {
	return WriteOptions{Overwrite: true}
}

// BaseWriter writes to the host filesystem.
type BaseWriter struct{}

func NewBaseWriter() *BaseWriter {
	return &BaseWriter{}
}

func (bw *BaseWriter) Write(path string, content []byte, options WriteOptions) error {
	if options.CreateDirs {
		if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
			return fmt.Errorf("failed to create directories: %w", err)
		}
	}

	if !options.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrFileExists, path)
		}
	}

	if options.Atomic {
		return bw.atomicWrite(path, content)
	}

	return os.WriteFile(path, content, filePerm)
}

// NeedsWrite reports whether path is missing or holds different content.
func (bw *BaseWriter) NeedsWrite(path string, content []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}

	return !bytes.Equal(existing, content), nil
}

func (bw *BaseWriter) atomicWrite(path string, content []byte) error {
	if err := atomic.WriteFile(path, bytes.NewReader(content)); err != nil {
		return err
	}
	// atomic.WriteFile keeps the temp file's 0600 mode for new files.
	return os.Chmod(path, filePerm)
}

// DryRunWriter records what would be written without touching disk. It is
// safe for concurrent use.
type DryRunWriter struct {
	base    BaseWriter
	mu      sync.Mutex
	changes []Change
}

type Change struct {
	Path      string    `json:"path"`
	Action    string    `json:"action"`
	Size      int       `json:"size"`
	Timestamp time.Time `json:"timestamp"`
}

func NewDryRunWriter() *DryRunWriter {
	return &DryRunWriter{}
}

// Write records the change writing content to path would make: "create",
// "update", or "unchanged" when path already holds content.
func (drw *DryRunWriter) Write(path string, content []byte, options WriteOptions) error {
	action := "create"
	if _, err := os.Stat(path); err == nil {
		needsWrite, err := drw.base.NeedsWrite(path, content)
		if err != nil {
			return err
		}
		action = "unchanged"
		if needsWrite {
			action = "update"
		}
	}

	drw.mu.Lock()
	defer drw.mu.Unlock()

	drw.changes = append(drw.changes, Change{
		Path:      path,
		Action:    action,
		Size:      len(content),
		Timestamp: time.Now(),
	})
	return nil
}

// GetChanges returns the recorded changes sorted by path.
func (drw *DryRunWriter) GetChanges() []Change {
	drw.mu.Lock()
	defer drw.mu.Unlock()

	changes := append([]Change(nil), drw.changes...)
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
	return changes
}

func (drw *DryRunWriter) Reset() {
	drw.mu.Lock()
	defer drw.mu.Unlock()

	drw.changes = nil
}
