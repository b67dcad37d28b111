// Package tree lists the files nested under a template root.
//
// Paths returned by this package are always relative to the listed root and
// always use forward slashes, so keys derived from them are identical on
// every platform.
package tree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("directory not found")
	ErrNotDirectory    = errors.New("not a directory")
)

// List returns every regular file below root, recursively, as slash
// separated paths relative to root. Directories are not included.
func List(root string) ([]string, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("list: %w: empty root", ErrInvalidArgument)
	}

	// "dir", "dir/" and "dir//" all describe the same root.
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if err != nil {
		return nil, statError(root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("list %s: %w", root, ErrNotDirectory)
	}

	return ListFS(os.DirFS(root), ".")
}

// ListFS is List over an fs.FS. The root is an fs.FS path ("." for the
// filesystem root).
func ListFS(fsys fs.FS, root string) ([]string, error) {
	if fsys == nil {
		return nil, fmt.Errorf("list: %w: nil filesystem", ErrInvalidArgument)
	}

	root = path.Clean(filepath.ToSlash(root))

	info, err := fs.Stat(fsys, root)
	if err != nil {
		return nil, statError(root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("list %s: %w", root, ErrNotDirectory)
	}

	var files []string
	err = fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel := p
		if root != "." {
			rel = strings.TrimPrefix(p, root+"/")
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}

	return files, nil
}

// Key derives a template key from a root-relative path. It reports false
// when rel does not end in one of suffixes. When stripping the suffix would
// leave an empty file name (a file named exactly ".tmpl"), rel is returned
// unchanged.
func Key(rel string, suffixes []string) (string, bool) {
	rel = strings.ReplaceAll(rel, `\`, "/")

	for _, suffix := range suffixes {
		if suffix == "" || !strings.HasSuffix(rel, suffix) {
			continue
		}

		key := strings.TrimSuffix(rel, suffix)
		if key == "" || strings.HasSuffix(key, "/") {
			return rel, true
		}
		return key, true
	}

	return "", false
}

func statError(root string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("list %s: %w", root, ErrNotFound)
	}
	return fmt.Errorf("list %s: %w", root, err)
}
