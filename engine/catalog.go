package engine

import (
	"fmt"
	"sort"

	"github.com/cpcf/treegen/render"
)

// Catalog maps template keys to render functions. It is never modified
// after the build, so any number of runs may read it concurrently.
type Catalog struct {
	funcs map[string]render.Func
	keys  []string
}

func newCatalog(funcs map[string]render.Func) *Catalog {
	keys := make([]string, 0, len(funcs))
	for key := range funcs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return &Catalog{
		funcs: funcs,
		keys:  keys,
	}
}

// Keys returns the template keys sorted.
func (c *Catalog) Keys() []string {
	return append([]string(nil), c.keys...)
}

func (c *Catalog) Len() int {
	return len(c.keys)
}

func (c *Catalog) Lookup(key string) (render.Func, bool) {
	fn, ok := c.funcs[key]
	return fn, ok
}

// Render renders one template. Failures carry the template key.
func (c *Catalog) Render(key string, data any) (string, error) {
	fn, ok := c.funcs[key]
	if !ok {
		return "", newError(KindNotFound, key, "", fmt.Errorf("no template with key %q", key))
	}

	out, err := fn(data)
	if err != nil {
		return "", newError(KindRender, key, "", err)
	}
	return out, nil
}
