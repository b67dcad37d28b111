package render

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"text/template"
	"unicode"
)

var ErrInvalidHelper = errors.New("invalid helper")

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// FunctionRegistry holds the helpers of one environment. Registration is
// validated up front because text/template panics on bad helpers.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]any
	metadata  map[string]FunctionMetadata
}

type FunctionMetadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category"`
	Parameters  []ParamInfo `json:"parameters"`
	ReturnType  string      `json:"return_type"`
}

type ParamInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Variadic bool   `json:"variadic,omitempty"`
}

type FunctionOption func(*FunctionMetadata)

func WithDescription(description string) FunctionOption {
	return func(meta *FunctionMetadata) {
		meta.Description = description
	}
}

func WithCategory(category string) FunctionOption {
	return func(meta *FunctionMetadata) {
		meta.Category = category
	}
}

func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]any),
		metadata:  make(map[string]FunctionMetadata),
	}
}

// Register adds or replaces a helper.
func (fr *FunctionRegistry) Register(name string, fn any, opts ...FunctionOption) error {
	if err := fr.ValidateFunction(name, fn); err != nil {
		return err
	}

	fnType := reflect.TypeOf(fn)
	meta := FunctionMetadata{
		Name:       name,
		Category:   "general",
		Parameters: inferParameters(fnType),
		ReturnType: fnType.Out(0).String(),
	}
	for _, opt := range opts {
		opt(&meta)
	}

	fr.mu.Lock()
	defer fr.mu.Unlock()

	fr.functions[name] = fn
	fr.metadata[name] = meta
	return nil
}

// RegisterMap registers every entry of funcs in name order, so the first
// invalid helper reported is always the same one.
func (fr *FunctionRegistry) RegisterMap(funcs template.FuncMap, opts ...FunctionOption) error {
	names := make([]string, 0, len(funcs))
	for name := range funcs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := fr.Register(name, funcs[name], opts...); err != nil {
			return err
		}
	}
	return nil
}

func (fr *FunctionRegistry) ValidateFunction(name string, fn any) error {
	if !isIdentifier(name) {
		return fmt.Errorf("%w: name %q is not a valid identifier", ErrInvalidHelper, name)
	}

	if fn == nil {
		return fmt.Errorf("%w: %s: function cannot be nil", ErrInvalidHelper, name)
	}

	fnType := reflect.TypeOf(fn)
	if fnType.Kind() != reflect.Func {
		return fmt.Errorf("%w: %s: expected function, got %T", ErrInvalidHelper, name, fn)
	}

	switch {
	case fnType.NumOut() == 1:
	case fnType.NumOut() == 2 && fnType.Out(1) == errorType:
	default:
		return fmt.Errorf("%w: %s: must return one value, or a value and an error", ErrInvalidHelper, name)
	}

	return nil
}

func (fr *FunctionRegistry) Get(name string) (any, bool) {
	fr.mu.RLock()
	defer fr.mu.RUnlock()

	fn, exists := fr.functions[name]
	return fn, exists
}

func (fr *FunctionRegistry) GetMetadata(name string) (FunctionMetadata, bool) {
	fr.mu.RLock()
	defer fr.mu.RUnlock()

	meta, exists := fr.metadata[name]
	return meta, exists
}

func (fr *FunctionRegistry) HasFunction(name string) bool {
	_, exists := fr.Get(name)
	return exists
}

func (fr *FunctionRegistry) Count() int {
	fr.mu.RLock()
	defer fr.mu.RUnlock()

	return len(fr.functions)
}

// List returns helper names sorted.
func (fr *FunctionRegistry) List() []string {
	fr.mu.RLock()
	defer fr.mu.RUnlock()

	names := make([]string, 0, len(fr.functions))
	for name := range fr.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (fr *FunctionRegistry) GetFuncMap() template.FuncMap {
	fr.mu.RLock()
	defer fr.mu.RUnlock()

	funcMap := make(template.FuncMap, len(fr.functions))
	for name, fn := range fr.functions {
		funcMap[name] = fn
	}
	return funcMap
}

// GetFunctionSignature renders a helper as "name(arg1 T1, arg2 T2) -> R".
func (fr *FunctionRegistry) GetFunctionSignature(name string) string {
	meta, exists := fr.GetMetadata(name)
	if !exists {
		return ""
	}

	var sig strings.Builder
	sig.WriteString(name)
	sig.WriteString("(")
	for i, param := range meta.Parameters {
		if i > 0 {
			sig.WriteString(", ")
		}
		sig.WriteString(param.Name)
		sig.WriteString(" ")
		if param.Variadic {
			sig.WriteString("...")
		}
		sig.WriteString(param.Type)
	}
	sig.WriteString(") -> ")
	sig.WriteString(meta.ReturnType)

	return sig.String()
}

func inferParameters(fnType reflect.Type) []ParamInfo {
	params := make([]ParamInfo, 0, fnType.NumIn())
	for i := 0; i < fnType.NumIn(); i++ {
		param := ParamInfo{
			Name: fmt.Sprintf("arg%d", i+1),
			Type: fnType.In(i).String(),
		}
		if fnType.IsVariadic() && i == fnType.NumIn()-1 {
			param.Variadic = true
			param.Type = fnType.In(i).Elem().String()
		}
		params = append(params, param)
	}
	return params
}

// isIdentifier matches the helper names text/template accepts.
func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case i == 0 && !unicode.IsLetter(r):
			return false
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			return false
		}
	}
	return true
}
