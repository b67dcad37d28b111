// Package render wraps text/template as the rendering capability of an
// engine: an isolated namespace of helpers and partials that compiles
// template text into render functions.
package render

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"text/template"
)

var ErrCompile = errors.New("template compile failed")

// Func renders one compiled template against data.
type Func func(data any) (string, error)

// Environment is the rendering namespace of a single engine. Helpers and
// partials registered on one Environment are invisible to every other.
// Register helpers first, then partials, then compile: parsing resolves
// helper names at parse time.
type Environment struct {
	mu          sync.Mutex
	registry    *FunctionRegistry
	root        *template.Template
	partials    map[string]struct{}
	missingKeys string
}

type EnvOption func(*envConfig)

type envConfig struct {
	defaults    bool
	missingKeys string
}

// WithoutDefaults starts the environment with no built-in helpers.
func WithoutDefaults() EnvOption {
	return func(c *envConfig) {
		c.defaults = false
	}
}

// WithMissingKey sets the text/template "missingkey" option
// ("default", "zero" or "error").
func WithMissingKey(mode string) EnvOption {
	return func(c *envConfig) {
		c.missingKeys = mode
	}
}

func NewEnvironment(opts ...EnvOption) *Environment {
	cfg := envConfig{defaults: true, missingKeys: "default"}
	for _, opt := range opts {
		opt(&cfg)
	}

	env := &Environment{
		registry:    NewFunctionRegistry(),
		root:        template.New("").Option("missingkey=" + cfg.missingKeys),
		partials:    make(map[string]struct{}),
		missingKeys: cfg.missingKeys,
	}

	if cfg.defaults {
		// The built-ins are known to be valid.
		_ = env.registry.RegisterMap(DefaultFuncMap(), WithCategory("builtin"))
		env.root.Funcs(env.registry.GetFuncMap())
	}

	return env
}

// RegisterHelper makes fn callable from templates as name.
func (e *Environment) RegisterHelper(name string, fn any) error {
	return e.RegisterHelpers(template.FuncMap{name: fn})
}

// RegisterHelpers registers every helper in helpers. Nothing is registered
// when any entry is invalid.
func (e *Environment) RegisterHelpers(helpers template.FuncMap) error {
	if len(helpers) == 0 {
		return nil
	}

	for name, fn := range helpers {
		if err := e.registry.ValidateFunction(name, fn); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.registry.RegisterMap(helpers, WithCategory("user")); err != nil {
		return err
	}
	e.root.Funcs(helpers)
	return nil
}

// RegisterPartial parses text as a named template that every template
// compiled afterwards can include with {{template "name" .}}.
func (e *Environment) RegisterPartial(name, text string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: partial name cannot be empty", ErrCompile)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.root.New(name).Parse(text); err != nil {
		return fmt.Errorf("%w: partial %s: %w", ErrCompile, name, err)
	}
	e.partials[name] = struct{}{}
	return nil
}

// Compile parses text under name into a render function. Each compiled
// template gets its own copy of the namespace, so {{define}} blocks in one
// template never affect another.
func (e *Environment) Compile(name, text string) (Func, error) {
	e.mu.Lock()
	ns, err := e.root.Clone()
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, name, err)
	}
	// Clone does not carry options over.
	ns.Option("missingkey=" + e.missingKeys)

	tmpl, err := ns.New(name).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, name, err)
	}

	return func(data any) (string, error) {
		var buf strings.Builder
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", err
		}
		return buf.String(), nil
	}, nil
}

// Partials returns the registered partial names sorted.
func (e *Environment) Partials() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.partials))
	for name := range e.partials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Environment) Registry() *FunctionRegistry {
	return e.registry
}
