package render

import (
	"fmt"
	"io/fs"
	"path"

	"github.com/cpcf/treegen/tree"
)

// LoadPartials registers every file of fsys ending in one of suffixes as a
// partial. The partial name is the file's path relative to the filesystem
// root with the suffix stripped, e.g. "layout/header.tmpl" becomes
// "layout/header". Files without a recognized suffix are ignored. It returns
// the registered names in listing order.
func LoadPartials(env *Environment, fsys fs.FS, suffixes []string) ([]string, error) {
	files, err := tree.ListFS(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list partials: %w", err)
	}

	var names []string
	for _, rel := range files {
		name, ok := tree.Key(rel, suffixes)
		if !ok {
			continue
		}

		content, err := fs.ReadFile(fsys, path.Clean(rel))
		if err != nil {
			return nil, fmt.Errorf("failed to read partial file %s: %w", rel, err)
		}

		if err := env.RegisterPartial(name, string(content)); err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	return names, nil
}
