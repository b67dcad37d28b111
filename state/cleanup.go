package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

type CleanupAction int

const (
	ActionDeleted CleanupAction = iota
	// ActionKept marks a file left in place because it was modified since
	// it was generated.
	ActionKept
	// ActionMissing marks a file that no longer exists.
	ActionMissing
)

func (a CleanupAction) String() string {
	switch a {
	case ActionDeleted:
		return "deleted"
	case ActionKept:
		return "kept"
	case ActionMissing:
		return "missing"
	default:
		return "unknown"
	}
}

type CleanupResult struct {
	Entry  Entry         `json:"entry"`
	Action CleanupAction `json:"action"`
}

// Stale returns the entries of previous that current no longer produces,
// sorted by path.
func Stale(previous, current *Manifest) []Entry {
	var stale []Entry
	for _, entry := range previous.Sorted() {
		if _, ok := current.Entries[entry.Path]; !ok {
			stale = append(stale, entry)
		}
	}
	return stale
}

// Remove deletes the files of entries under the output root. A file
// modified since it was generated is kept unless force is set. Directories
// left empty are removed, up to but excluding the output root.
func (m *Manager) Remove(entries []Entry, force bool) ([]CleanupResult, error) {
	results := make([]CleanupResult, 0, len(entries))
	dirs := make(map[string]struct{})

	for _, entry := range entries {
		path, err := m.abs(entry.Path)
		if err != nil {
			return results, err
		}

		if !force {
			changed, err := m.Changed(entry)
			if err != nil {
				return results, err
			}
			if changed {
				action := ActionKept
				if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
					action = ActionMissing
				}
				results = append(results, CleanupResult{Entry: entry, Action: action})
				continue
			}
		}

		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				results = append(results, CleanupResult{Entry: entry, Action: ActionMissing})
				continue
			}
			return results, fmt.Errorf("failed to delete file %s: %w", path, err)
		}
		results = append(results, CleanupResult{Entry: entry, Action: ActionDeleted})
		dirs[filepath.Dir(path)] = struct{}{}
	}

	m.removeEmptyDirs(dirs)
	return results, nil
}

// Clean removes every file recorded in the manifest, then the manifest
// itself. Files kept because they were modified stay recorded, so a later
// forced clean still finds them.
func (m *Manager) Clean(force bool) ([]CleanupResult, error) {
	manifest, err := m.Load()
	if err != nil {
		return nil, err
	}

	results, err := m.Remove(manifest.Sorted(), force)
	if err != nil {
		return results, err
	}

	kept := NewManifest()
	for _, result := range results {
		if result.Action == ActionKept {
			kept.Entries[result.Entry.Path] = result.Entry
		}
	}
	if len(kept.Entries) > 0 {
		return results, m.Save(kept)
	}

	if err := os.Remove(m.manifestPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return results, fmt.Errorf("failed to delete manifest: %w", err)
	}
	return results, nil
}

// removeEmptyDirs removes dirs and their ancestors below the output root
// for as long as they are empty. Failures are ignored: a directory that
// cannot be removed is simply kept.
func (m *Manager) removeEmptyDirs(dirs map[string]struct{}) {
	root := filepath.Clean(m.outputRoot)

	sorted := make([]string, 0, len(dirs))
	for dir := range dirs {
		sorted = append(sorted, dir)
	}
	// Deepest first, so children go before their parents.
	sort.Slice(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})

	for _, dir := range sorted {
		for dir = filepath.Clean(dir); dir != root; dir = filepath.Dir(dir) {
			if _, err := m.relative(dir); err != nil {
				break
			}
			if os.Remove(dir) != nil {
				break
			}
		}
	}
}
