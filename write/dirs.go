package write

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

var ErrPathConflict = errors.New("path exists and is not a directory")

// EnsureDir creates dir and any missing parents. It is safe to call
// concurrently for overlapping paths: a concurrent creator winning the race
// is not an error. The path is always stat-verified afterwards.
func EnsureDir(dir string) error {
	mkErr := os.MkdirAll(dir, dirPerm)

	info, err := os.Stat(dir)
	if err != nil {
		// An ancestor of dir is a regular file.
		if errors.Is(err, syscall.ENOTDIR) {
			return fmt.Errorf("%w: %s", ErrPathConflict, dir)
		}
		if mkErr != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, mkErr)
		}
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrPathConflict, dir)
	}

	return nil
}
