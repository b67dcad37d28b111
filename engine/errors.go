package engine

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindInvalidArgument Kind = iota + 1
	KindNotFound
	KindIO
	KindTemplateCompile
	KindRender
	KindPathConflict
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrIO              = errors.New("i/o failure")
	ErrTemplateCompile = errors.New("template compile failed")
	ErrRender          = errors.New("render failed")
	ErrPathConflict    = errors.New("path conflict")
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindNotFound:
		return "not found"
	case KindIO:
		return "i/o failure"
	case KindTemplateCompile:
		return "template compile failed"
	case KindRender:
		return "render failed"
	case KindPathConflict:
		return "path conflict"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidArgument:
		return ErrInvalidArgument
	case KindNotFound:
		return ErrNotFound
	case KindIO:
		return ErrIO
	case KindTemplateCompile:
		return ErrTemplateCompile
	case KindRender:
		return ErrRender
	case KindPathConflict:
		return ErrPathConflict
	default:
		return nil
	}
}

// Error is returned by every engine operation. Key names the template the
// failure belongs to and Path the file or directory involved, when known.
// errors.Is matches an Error against the sentinel of its Kind.
type Error struct {
	Kind Kind
	Key  string
	Path string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Key != "" {
		fmt.Fprintf(&b, ": %s", e.Key)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, ": %s", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// MultiError collects the failures of a FailAtEnd or BestEffort run.
type MultiError struct {
	Errors []*Error
}

func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var msgs []string
	for _, err := range m.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("multiple errors:\n%s", strings.Join(msgs, "\n"))
}

func (m *MultiError) Unwrap() []error {
	errs := make([]error, len(m.Errors))
	for i, err := range m.Errors {
		errs[i] = err
	}
	return errs
}

func (m *MultiError) Add(err *Error) {
	m.Errors = append(m.Errors, err)
}

func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

func newError(kind Kind, key, path string, err error) *Error {
	return &Error{Kind: kind, Key: key, Path: path, Err: err}
}
