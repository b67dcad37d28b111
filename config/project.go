package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

var failModes = []string{"fail-fast", "fail-at-end", "best-effort"}

// Project is a treegen project file. Paths may start with "~". Relative
// paths are resolved against the directory holding the file by LoadProject.
type Project struct {
	Templates   string   `yaml:"templates"`
	Partials    string   `yaml:"partials"`
	Data        string   `yaml:"data"`
	Output      string   `yaml:"output"`
	Prefix      string   `yaml:"prefix"`
	Include     []string `yaml:"include"`
	Suffixes    []string `yaml:"suffixes"`
	Concurrency int      `yaml:"concurrency"`
	FailMode    string   `yaml:"fail_mode"`
	Strict      bool     `yaml:"strict"`
	Quiet       bool     `yaml:"quiet"`
	// Atomic writes every file through a temporary file and a rename.
	Atomic      bool     `yaml:"atomic"`
	// Manifest records the generated files in the output root.
	Manifest    bool     `yaml:"manifest"`
	// Prune removes files generated by an earlier run that this run no
	// longer produces. It implies Manifest.
	Prune       bool     `yaml:"prune"`
}

func (p *Project) Validate() error {
	if strings.TrimSpace(p.Templates) == "" {
		return errors.New("templates is required")
	}
	if p.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", p.Concurrency)
	}
	for _, suffix := range p.Suffixes {
		if strings.TrimSpace(suffix) == "" {
			return errors.New("suffixes must not contain empty entries")
		}
	}

	if p.FailMode != "" {
		valid := false
		for _, mode := range failModes {
			if strings.EqualFold(p.FailMode, mode) {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("unknown fail_mode %q, expected one of %s", p.FailMode, strings.Join(failModes, ", "))
		}
	}

	return nil
}

// LoadProject loads and validates the project file at path.
func LoadProject(path string) (*Project, error) {
	var project Project
	if err := LoadYAML(path, &project); err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %q: %w", path, err)
	}
	if err := project.resolve(filepath.Dir(absPath)); err != nil {
		return nil, err
	}

	return &project, nil
}

// ExpandHome replaces a leading "~" in every path with the user's home
// directory.
func (p *Project) ExpandHome() error {
	for _, field := range p.paths() {
		expanded, err := homedir.Expand(*field)
		if err != nil {
			return fmt.Errorf("failed to expand %q: %w", *field, err)
		}
		*field = expanded
	}
	return nil
}

func (p *Project) resolve(base string) error {
	if err := p.ExpandHome(); err != nil {
		return err
	}

	for _, field := range p.paths() {
		if *field != "" && !filepath.IsAbs(*field) {
			*field = filepath.Join(base, *field)
		}
	}
	return nil
}

func (p *Project) paths() []*string {
	return []*string{&p.Templates, &p.Partials, &p.Data, &p.Output}
}
