package testing

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TestingT is the part of testing.TB used by the assertion helpers.
type TestingT interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// ReadTree returns the content of every regular file below root, keyed by
// its slash separated path relative to root.
func ReadTree(root string) (map[string]string, error) {
	files := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read tree %s: %w", root, err)
	}
	return files, nil
}

// DiffTree describes every difference between two trees, sorted by path.
// An empty result means the trees are equal.
func DiffTree(expected, actual map[string]string) []string {
	var diffs []string
	for path, want := range expected {
		got, ok := actual[path]
		switch {
		case !ok:
			diffs = append(diffs, fmt.Sprintf("%s: missing", path))
		case got != want:
			diffs = append(diffs, fmt.Sprintf("%s: content differs\n%s", path, diffLines(want, got)))
		}
	}
	for path := range actual {
		if _, ok := expected[path]; !ok {
			diffs = append(diffs, fmt.Sprintf("%s: unexpected file", path))
		}
	}

	sort.Strings(diffs)
	return diffs
}

// AssertTree fails t when the files under root are not exactly expected.
func AssertTree(t TestingT, root string, expected map[string]string) {
	t.Helper()

	actual, err := ReadTree(root)
	if err != nil {
		t.Fatalf("%v", err)
		return
	}

	if diffs := DiffTree(expected, actual); len(diffs) > 0 {
		t.Errorf("output tree %s differs:\n%s", root, strings.Join(diffs, "\n"))
	}
}

func diffLines(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")

	var diff strings.Builder
	for i := range max(len(expectedLines), len(actualLines)) {
		var expectedLine, actualLine string
		if i < len(expectedLines) {
			expectedLine = expectedLines[i]
		}
		if i < len(actualLines) {
			actualLine = actualLines[i]
		}
		if expectedLine == actualLine {
			continue
		}

		fmt.Fprintf(&diff, "  line %d:\n", i+1)
		if i < len(expectedLines) {
			fmt.Fprintf(&diff, "  - %q\n", expectedLine)
		}
		if i < len(actualLines) {
			fmt.Fprintf(&diff, "  + %q\n", actualLine)
		}
	}
	return diff.String()
}
