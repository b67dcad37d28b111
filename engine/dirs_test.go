package engine

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"
)

func TestPlanDirectories(t *testing.T) {
	root := filepath.Join("out")
	join := func(parts ...string) string {
		return filepath.Join(append([]string{root}, parts...)...)
	}

	tests := []struct {
		name string
		keys []string
		want []string
	}{
		{
			name: "top-level keys need only the root",
			keys: []string{"a.txt", "b.txt"},
			want: []string{root},
		},
		{
			name: "duplicates collapse",
			keys: []string{"a/x.txt", "a/y.txt"},
			want: []string{join("a")},
		},
		{
			name: "ancestors are dropped",
			keys: []string{"top.txt", "a/x.txt", "a/b/y.txt", "a/b/c/z.txt"},
			want: []string{join("a", "b", "c")},
		},
		{
			name: "sibling with shared prefix is kept",
			keys: []string{"a/x.txt", "ab/y.txt"},
			want: []string{join("a"), join("ab")},
		},
		{
			name: "independent branches",
			keys: []string{"x/1/f", "y/2/g", "x/h"},
			want: []string{join("x", "1"), join("y", "2")},
		},
		{
			name: "no keys",
			keys: nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := planDirectories(root, tt.keys)
			if !slices.Equal(got, tt.want) {
				t.Errorf("planDirectories(%v) = %v, want %v", tt.keys, got, tt.want)
			}
		})
	}
}

func TestSplitKey(t *testing.T) {
	tests := []struct {
		key, dir, base string
	}{
		{"file.txt", "", "file.txt"},
		{"a/file.txt", "a", "file.txt"},
		{"a/b/.env", "a/b", ".env"},
	}

	for _, tt := range tests {
		dir, base := splitKey(tt.key)
		if dir != tt.dir || base != tt.base {
			t.Errorf("splitKey(%q) = (%q, %q), want (%q, %q)", tt.key, dir, base, tt.dir, tt.base)
		}
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name   string
		params RunParams
		base   string
		want   string
	}{
		{"no prefix", RunParams{}, "index.html", "index.html"},
		{"prefix", RunParams{FilePrefix: "location"}, "index.html", "location_index.html"},
		{"prefix before dot name", RunParams{FilePrefix: "FILE"}, ".txt", "FILE.txt"},
		{
			name: "namer wins over prefix",
			params: RunParams{
				FilePrefix: "ignored",
				FileNamer:  func(string, string) string { return "example.html" },
			},
			base: "index.html",
			want: "example.html",
		},
		{"prefix namer", RunParams{FileNamer: Prefix("p")}, "x.go", "p_x.go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.fileName(tt.base, "dir/"+tt.base); got != tt.want {
				t.Errorf("fileName(%q) = %q, want %q", tt.base, got, tt.want)
			}
		})
	}
}

func TestIncludeFuncs(t *testing.T) {
	keys := []string{
		"catalog-1/template-1.html",
		"catalog-2/template-2.html",
		"catalog-2/nested/deep.go",
		"README.md",
	}

	t.Run("ExcludeKeys", func(t *testing.T) {
		include := ExcludeKeys("catalog-1/template-1.html", "README.md")
		var got []string
		for _, key := range keys {
			if include(key) {
				got = append(got, key)
			}
		}
		want := []string{"catalog-2/template-2.html", "catalog-2/nested/deep.go"}
		if !slices.Equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{
			name:     "directory pattern matches everything below",
			patterns: []string{"catalog-2"},
			want:     []string{"catalog-2/template-2.html", "catalog-2/nested/deep.go"},
		},
		{
			name:     "wildcards",
			patterns: []string{"**/*.html"},
			want:     []string{"catalog-1/template-1.html", "catalog-2/template-2.html"},
		},
		{
			name:     "negation",
			patterns: []string{"catalog-2", "!catalog-2/nested"},
			want:     []string{"catalog-2/template-2.html"},
		},
		{
			name:     "top level file",
			patterns: []string{"*.md"},
			want:     []string{"README.md"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			include, err := IncludePatterns(tt.patterns...)
			if err != nil {
				t.Fatalf("IncludePatterns failed: %v", err)
			}

			var got []string
			for _, key := range keys {
				if include(key) {
					got = append(got, key)
				}
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := IncludePatterns("["); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument for a bad pattern, got %v", err)
	}
}
