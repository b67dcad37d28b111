package engine

import (
	"log/slog"

	"github.com/cpcf/treegen/write"
)

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithOutputRoot sets the output root used when RunParams.OutputRoot is
// empty.
func WithOutputRoot(root string) Option {
	return func(e *Engine) {
		e.outputRoot = root
	}
}

func WithFailureMode(mode FailureMode) Option {
	return func(e *Engine) {
		e.failMode = mode
	}
}

// WithSuffixes sets the file suffixes recognized as template source, for
// both templates and partials. The first matching suffix is stripped to
// form the key.
func WithSuffixes(suffixes ...string) Option {
	return func(e *Engine) {
		if len(suffixes) > 0 {
			e.suffixes = append([]string(nil), suffixes...)
		}
	}
}

// WithConcurrency bounds how many templates render and write at once.
// Values below one mean runtime.NumCPU().
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		e.concurrency = n
	}
}

func WithWriter(w write.Writer) Option {
	return func(e *Engine) {
		if w != nil {
			e.writer = w
		}
	}
}

func WithWriteOptions(options write.WriteOptions) Option {
	return func(e *Engine) {
		e.writeOptions = options
	}
}

// WithStrictKeys makes a missing map key a render error instead of
// "<no value>".
func WithStrictKeys() Option {
	return func(e *Engine) {
		e.strict = true
	}
}

// WithoutDefaultHelpers leaves out the built-in helpers, so templates see
// only the helpers passed to Build.
func WithoutDefaultHelpers() Option {
	return func(e *Engine) {
		e.noDefaults = true
	}
}
