package engine

import (
	"path/filepath"
	"sort"
	"strings"
)

// splitKey splits a template key into its directory part ("" for top-level
// keys) and its base name.
func splitKey(key string) (dir, base string) {
	i := strings.LastIndex(key, "/")
	if i < 0 {
		return "", key
	}
	return key[:i], key[i+1:]
}

func outputDir(root, key string) string {
	dir, _ := splitKey(key)
	return filepath.Join(root, filepath.FromSlash(dir))
}

// planDirectories returns the directories that must be created explicitly
// so that every key's output directory exists. Duplicates are dropped, and
// so is every directory that is an ancestor of another one in the set,
// because creating the deeper directory creates its ancestors too.
func planDirectories(root string, keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	var dirs []string
	for _, key := range keys {
		dir := outputDir(root, key)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}

	var plan []string
	for _, dir := range dirs {
		redundant := false
		for _, other := range dirs {
			if isAncestor(dir, other) {
				redundant = true
				break
			}
		}
		if !redundant {
			plan = append(plan, dir)
		}
	}

	sort.Strings(plan)
	return plan
}

// isAncestor reports whether dir is a strict ancestor of other, comparing
// whole path components ("out/a" is an ancestor of "out/a/b" but not of
// "out/ab").
func isAncestor(dir, other string) bool {
	rel, err := filepath.Rel(dir, other)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
