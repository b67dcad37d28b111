package render

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"text/template"

	treetest "github.com/cpcf/treegen/testing"
)

func TestCompileLiteralRoundTrip(t *testing.T) {
	env := NewEnvironment()
	literal := "plain text with no actions\nsecond line\n"

	fn, err := env.Compile("literal.txt", literal)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	for _, data := range []any{nil, 42, map[string]any{"x": 1}, struct{}{}} {
		got, err := fn(data)
		if err != nil {
			t.Fatalf("render failed for %v: %v", data, err)
		}
		if got != literal {
			t.Errorf("Expected %q, got %q", literal, got)
		}
	}
}

func TestCompileParseError(t *testing.T) {
	env := NewEnvironment()

	_, err := env.Compile("bad.go", "package {{.Package")
	if err == nil {
		t.Fatal("Expected compile error, got nil")
	}
	if !errors.Is(err, ErrCompile) {
		t.Errorf("Expected ErrCompile, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad.go") {
		t.Errorf("Expected error to name the template, got %v", err)
	}
}

func TestHelpers(t *testing.T) {
	env := NewEnvironment()
	err := env.RegisterHelpers(template.FuncMap{
		"toLowerCase": func(input any) string { return strings.ToLower(toString(input)) },
		"toUpperCase": func(input any) string { return strings.ToUpper(toString(input)) },
	})
	if err != nil {
		t.Fatalf("RegisterHelpers failed: %v", err)
	}

	fn, err := env.Compile("page.html", "<div>{{toLowerCase .city}}</div><div>{{toUpperCase .country}}</div>")
	if err != nil {
		t.Fatal(err)
	}

	got, err := fn(map[string]any{"city": "Zonguldak", "country": "Turkey"})
	if err != nil {
		t.Fatal(err)
	}

	expected := "<div>zonguldak</div><div>TURKEY</div>"
	if got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestHelperOverridesDefault(t *testing.T) {
	env := NewEnvironment()
	if err := env.RegisterHelper("upper", func(s string) string { return "custom:" + s }); err != nil {
		t.Fatal(err)
	}

	fn, err := env.Compile("x", `{{upper "a"}}`)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := fn(nil)
	if got != "custom:a" {
		t.Errorf("Expected user helper to win, got %q", got)
	}
}

func TestInvalidHelpers(t *testing.T) {
	tests := []struct {
		name    string
		helpers template.FuncMap
	}{
		{"not a function", template.FuncMap{"answer": 42}},
		{"bad name", template.FuncMap{"to-lower": strings.ToLower}},
		{"nil function", template.FuncMap{"nothing": nil}},
		{"too many results", template.FuncMap{"pair": func() (int, int) { return 1, 2 }}},
		{"no results", template.FuncMap{"void": func() {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := NewEnvironment()
			err := env.RegisterHelpers(tt.helpers)
			if !errors.Is(err, ErrInvalidHelper) {
				t.Errorf("Expected ErrInvalidHelper, got %v", err)
			}
		})
	}
}

func TestEnvironmentsAreIsolated(t *testing.T) {
	a := NewEnvironment()
	b := NewEnvironment()

	if err := a.RegisterHelper("shout", func(s string) string { return s + "!" }); err != nil {
		t.Fatal(err)
	}
	if err := a.RegisterPartial("greeting", "hello"); err != nil {
		t.Fatal(err)
	}

	if _, err := b.Compile("x", `{{shout "hi"}}`); err == nil {
		t.Error("helper registered on one environment leaked into another")
	}

	fn, err := b.Compile("y", `{{template "greeting" .}}`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fn(nil); err == nil {
		t.Error("partial registered on one environment leaked into another")
	}
}

func TestPartialsAndDefineIsolation(t *testing.T) {
	env := NewEnvironment()
	if err := env.RegisterPartial("layout/header", "<h1>{{.Title}}</h1>"); err != nil {
		t.Fatal(err)
	}

	one, err := env.Compile("one", `{{define "body"}}one{{end}}{{template "layout/header" .}}{{template "body"}}`)
	if err != nil {
		t.Fatal(err)
	}
	two, err := env.Compile("two", `{{define "body"}}two{{end}}{{template "body"}}`)
	if err != nil {
		t.Fatal(err)
	}

	got, err := one(map[string]any{"Title": "T"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "<h1>T</h1>one" {
		t.Errorf("unexpected output %q", got)
	}

	got, _ = two(nil)
	if got != "two" {
		t.Errorf("define block leaked between templates: %q", got)
	}

	if names := env.Partials(); len(names) != 1 || names[0] != "layout/header" {
		t.Errorf("unexpected partials %v", names)
	}
}

func TestMissingKeyError(t *testing.T) {
	env := NewEnvironment(WithMissingKey("error"))
	fn, err := env.Compile("strict", "{{.missing}}")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fn(map[string]any{}); err == nil {
		t.Error("Expected missing key to fail in strict mode")
	}

	lenient, err := NewEnvironment().Compile("lenient", "{{.missing}}")
	if err != nil {
		t.Fatal(err)
	}
	got, err := lenient(map[string]any{})
	if err != nil || got != "<no value>" {
		t.Errorf("Expected <no value>, got %q, %v", got, err)
	}
}

func TestMissingKeyErrorWithPartials(t *testing.T) {
	env := NewEnvironment(WithMissingKey("error"))
	if err := env.RegisterPartial("field", "{{.missing}}"); err != nil {
		t.Fatal(err)
	}
	fn, err := env.Compile("strict", `{{template "field" .}}`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fn(map[string]any{}); err == nil {
		t.Error("Expected missing key inside a partial to fail in strict mode")
	}
}

func TestWithoutDefaults(t *testing.T) {
	env := NewEnvironment(WithoutDefaults())
	if _, err := env.Compile("a", "{{upper .}}"); err == nil {
		t.Error("Expected upper to be undefined without defaults")
	}
	if len(env.Registry().GetFuncMap()) != 0 {
		t.Errorf("Expected no registered helpers, got %v", env.Registry().GetFuncMap())
	}
}

func TestConcurrentRender(t *testing.T) {
	env := NewEnvironment()
	fn, err := env.Compile("n", "{{.}}")
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := fn(i)
			if err != nil || got != toString(i) {
				t.Errorf("render %d: got %q, %v", i, got, err)
			}
		}(i)
	}
	wg.Wait()
}

func TestLoadPartials(t *testing.T) {
	memFS := treetest.NewMemoryFSFromMap(map[string]string{
		"header.tmpl":        "<header>{{.}}</header>",
		"nested/footer.tmpl": "<footer/>",
		"README.md":          "not a partial",
	})

	env := NewEnvironment()
	names, err := LoadPartials(env, memFS, []string{".tmpl"})
	if err != nil {
		t.Fatalf("LoadPartials failed: %v", err)
	}

	if len(names) != 2 || names[0] != "header" || names[1] != "nested/footer" {
		t.Errorf("unexpected partial names %v", names)
	}

	fn, err := env.Compile("page", `{{template "header" "x"}}{{template "nested/footer"}}`)
	if err != nil {
		t.Fatal(err)
	}
	got, err := fn(nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "<header>x</header><footer/>" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestLoadPartialsParseError(t *testing.T) {
	memFS := treetest.NewMemoryFSFromMap(map[string]string{
		"broken.tmpl": "{{if}}",
	})

	_, err := LoadPartials(NewEnvironment(), memFS, []string{".tmpl"})
	if !errors.Is(err, ErrCompile) {
		t.Errorf("Expected ErrCompile, got %v", err)
	}
}
