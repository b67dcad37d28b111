package engine

import (
	"path/filepath"
	"strings"

	"github.com/moby/patternmatcher"
)

// FileNamer returns the output file name for a template. baseName is the
// last segment of key. The returned name is used verbatim.
type FileNamer func(baseName, key string) string

// IncludeFunc reports whether the template with key takes part in a run.
type IncludeFunc func(key string) bool

// RunParams configures a single run. Nothing in it is retained by the
// engine once the run returns.
type RunParams struct {
	// Data is passed as-is to every template.
	Data any
	// OutputRoot is the directory output files are written under. It is
	// created as needed. Empty means the engine's default output root.
	OutputRoot string
	// FilePrefix is prepended to every output file name as
	// "prefix_name", or "prefixname" when name starts with a dot.
	// Ignored when FileNamer is set.
	FilePrefix string
	// FileNamer, when set, names every output file.
	FileNamer FileNamer
	// Include selects templates. Nil includes every template.
	Include IncludeFunc
	// Quiet turns off the run's diagnostic logging. It never changes what
	// the run does.
	Quiet bool
	// DryRun renders every template and records the writes it would make
	// in the report without creating directories or files.
	DryRun bool
}

func (p RunParams) fileName(baseName, key string) string {
	if p.FileNamer != nil {
		return p.FileNamer(baseName, key)
	}

	if p.FilePrefix == "" {
		return baseName
	}

	separator := "_"
	if strings.HasPrefix(baseName, ".") {
		separator = ""
	}
	return p.FilePrefix + separator + baseName
}

func (p RunParams) includes(key string) bool {
	return p.Include == nil || p.Include(key)
}

// Prefix returns a FileNamer applying the FilePrefix rule with prefix.
func Prefix(prefix string) FileNamer {
	return RunParams{FilePrefix: prefix}.fileName
}

// ExcludeKeys includes every template except the given keys.
func ExcludeKeys(keys ...string) IncludeFunc {
	excluded := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		excluded[key] = struct{}{}
	}

	return func(key string) bool {
		_, skip := excluded[key]
		return !skip
	}
}

// IncludePatterns includes the templates whose key matches patterns, using
// .dockerignore syntax: "*", "**" and "?" wildcards, a pattern naming a
// directory matches everything below it, and "!" negates. The last
// matching pattern decides.
func IncludePatterns(patterns ...string) (IncludeFunc, error) {
	pm, err := patternmatcher.New(patterns)
	if err != nil {
		return nil, newError(KindInvalidArgument, "", "", err)
	}

	return func(key string) bool {
		matched, err := pm.MatchesOrParentMatches(filepath.FromSlash(key))
		return err == nil && matched
	}, nil
}
