// Package engine compiles a template tree into a catalog of render
// functions and runs that catalog to materialize a directory of files.
//
// An Engine is built once with Build or BuildFS and may then be run any
// number of times, concurrently if needed, with different data and output
// roots:
//
//	eng, err := engine.Build(engine.BuildParams{
//		TemplateRoot: "templates",
//		PartialsRoot: "partials",
//	})
//	if err != nil {
//		return err
//	}
//	err = eng.Run(ctx, engine.RunParams{Data: data, OutputRoot: "out"})
package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"runtime"
	"strings"
	"text/template"

	"github.com/cpcf/treegen/render"
	"github.com/cpcf/treegen/tree"
	"github.com/cpcf/treegen/write"
)

const (
	// DefaultSuffix marks template source files.
	DefaultSuffix = ".tmpl"
	// DefaultOutputRoot is used when neither the engine nor the run names
	// an output root.
	DefaultOutputRoot = "./out"
)

type Engine struct {
	logger       *slog.Logger
	outputRoot   string
	failMode     FailureMode
	suffixes     []string
	concurrency  int
	strict       bool
	noDefaults   bool
	writer       write.Writer
	writeOptions write.WriteOptions
	catalog      *Catalog
	partials     []string
}

type FailureMode int

const (
	FailFast FailureMode = iota
	FailAtEnd
	BestEffort
)

func (m FailureMode) String() string {
	switch m {
	case FailFast:
		return "fail-fast"
	case FailAtEnd:
		return "fail-at-end"
	case BestEffort:
		return "best-effort"
	default:
		return "unknown"
	}
}

// ParseFailureMode accepts the names produced by FailureMode.String.
func ParseFailureMode(s string) (FailureMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail-fast":
		return FailFast, nil
	case "fail-at-end":
		return FailAtEnd, nil
	case "best-effort":
		return BestEffort, nil
	default:
		return FailFast, fmt.Errorf("%w: unknown failure mode %q", ErrInvalidArgument, s)
	}
}

// BuildParams names the directories an engine is compiled from.
type BuildParams struct {
	// TemplateRoot holds the templates. Subdirectories are included.
	TemplateRoot string
	// PartialsRoot optionally holds partials. Subdirectories are included.
	PartialsRoot string
	// Helpers are made callable from every template and partial.
	Helpers template.FuncMap
}

// Build compiles the templates under params.TemplateRoot.
func Build(params BuildParams, opts ...Option) (*Engine, error) {
	if strings.TrimSpace(params.TemplateRoot) == "" {
		return nil, newError(KindInvalidArgument, "", "", errors.New("template root is required"))
	}

	var partials fs.FS
	if strings.TrimSpace(params.PartialsRoot) != "" {
		partials = os.DirFS(params.PartialsRoot)
	}

	return BuildFS(os.DirFS(params.TemplateRoot), partials, params.Helpers, opts...)
}

// BuildFS compiles every template file of templates. When partials is not
// nil its template files are registered as partials first. Any failure
// aborts the build; no partial engine is returned.
func BuildFS(templates, partials fs.FS, helpers template.FuncMap, opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:       slog.Default(),
		outputRoot:   DefaultOutputRoot,
		failMode:     FailFast,
		suffixes:     []string{DefaultSuffix},
		writer:       write.NewBaseWriter(),
		writeOptions: write.DefaultOptions(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.concurrency < 1 {
		e.concurrency = runtime.NumCPU()
	}

	if templates == nil {
		return nil, newError(KindInvalidArgument, "", "", errors.New("template filesystem is required"))
	}

	var envOpts []render.EnvOption
	if e.strict {
		envOpts = append(envOpts, render.WithMissingKey("error"))
	}
	if e.noDefaults {
		envOpts = append(envOpts, render.WithoutDefaults())
	}
	env := render.NewEnvironment(envOpts...)

	if err := env.RegisterHelpers(helpers); err != nil {
		return nil, newError(KindInvalidArgument, "", "", err)
	}

	if partials != nil {
		names, err := render.LoadPartials(env, partials, e.suffixes)
		if err != nil {
			return nil, newError(classify(err), "", "", err)
		}
		e.partials = names
		e.logger.Debug("registered partials", "count", len(names))
	}

	catalog, err := e.compile(env, templates)
	if err != nil {
		return nil, err
	}
	e.catalog = catalog

	e.logger.Debug("engine built", "templates", catalog.Len())
	return e, nil
}

func (e *Engine) compile(env *render.Environment, templates fs.FS) (*Catalog, error) {
	files, err := tree.ListFS(templates, ".")
	if err != nil {
		return nil, newError(classify(err), "", "", err)
	}

	funcs := make(map[string]render.Func)
	for _, rel := range files {
		key, ok := tree.Key(rel, e.suffixes)
		if !ok {
			continue
		}

		content, err := fs.ReadFile(templates, path.Clean(rel))
		if err != nil {
			return nil, newError(KindIO, key, rel, err)
		}

		fn, err := env.Compile(key, string(content))
		if err != nil {
			return nil, newError(KindTemplateCompile, key, rel, err)
		}

		if _, exists := funcs[key]; exists {
			e.logger.Warn("template key collision, last listed wins", "key", key, "path", rel)
		}
		funcs[key] = fn
	}

	return newCatalog(funcs), nil
}

// TemplateKeys returns the catalog keys sorted.
func (e *Engine) TemplateKeys() []string {
	return e.catalog.Keys()
}

func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Partials returns the registered partial names.
func (e *Engine) Partials() []string {
	return append([]string(nil), e.partials...)
}

// classify maps lower-level errors to an error kind.
func classify(err error) Kind {
	switch {
	case errors.Is(err, render.ErrCompile):
		return KindTemplateCompile
	case errors.Is(err, render.ErrInvalidHelper), errors.Is(err, tree.ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, tree.ErrNotFound), errors.Is(err, tree.ErrNotDirectory), errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, write.ErrPathConflict):
		return KindPathConflict
	default:
		return KindIO
	}
}
