package render

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"
	"reflect"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// DefaultFuncMap returns the helpers every environment starts with. User
// helpers registered with the same name replace these.
func DefaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"snake":  toSnakeCase,
		"camel":  toCamelCase,
		"pascal": toPascalCase,
		"kebab":  toKebabCase,

		"lower":      strings.ToLower,
		"upper":      strings.ToUpper,
		"trim":       strings.TrimSpace,
		"trimPrefix": strings.TrimPrefix,
		"trimSuffix": strings.TrimSuffix,
		"replace":    strings.ReplaceAll,
		"split":      strings.Split,
		"contains":   strings.Contains,
		"hasPrefix":  strings.HasPrefix,
		"hasSuffix":  strings.HasSuffix,
		"repeat":     strings.Repeat,
		"join":       join,
		"indent":     indentLines,
		"quote":      quote,

		"first": first,
		"last":  last,

		"default":  defaultValue,
		"coalesce": coalesce,
		"ternary":  ternary,
		"toString": toString,

		"now":        time.Now,
		"formatTime": formatTime,

		"uuid":   generateUUID,
		"base64": encodeBase64,
		"sha256": calculateSHA256,
		"env":    os.Getenv,
	}
}

func splitWords(s string) []string {
	var words []string
	var current strings.Builder
	var prev rune

	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}

	for i, char := range s {
		switch {
		case char == ' ' || char == '_' || char == '-' || char == '.':
			flush()
		case i > 0 && unicode.IsUpper(char) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			flush()
			current.WriteRune(char)
		case unicode.IsLetter(char) || unicode.IsDigit(char):
			current.WriteRune(char)
		}
		prev = char
	}
	flush()

	return words
}

func capitalize(word string) string {
	runes := []rune(strings.ToLower(word))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func toSnakeCase(s string) string {
	words := splitWords(s)
	for i, word := range words {
		words[i] = strings.ToLower(word)
	}
	return strings.Join(words, "_")
}

func toKebabCase(s string) string {
	words := splitWords(s)
	for i, word := range words {
		words[i] = strings.ToLower(word)
	}
	return strings.Join(words, "-")
}

func toPascalCase(s string) string {
	var result strings.Builder
	for _, word := range splitWords(s) {
		result.WriteString(capitalize(word))
	}
	return result.String()
}

func toCamelCase(s string) string {
	words := splitWords(s)
	if len(words) == 0 {
		return ""
	}

	var result strings.Builder
	result.WriteString(strings.ToLower(words[0]))
	for _, word := range words[1:] {
		result.WriteString(capitalize(word))
	}
	return result.String()
}

// join accepts any slice or array, so templates can join numbers as well
// as strings.
func join(items any, sep string) (string, error) {
	if items == nil {
		return "", nil
	}
	if s, ok := items.([]string); ok {
		return strings.Join(s, sep), nil
	}

	v := reflect.ValueOf(items)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return "", fmt.Errorf("join: expected slice, got %T", items)
	}

	parts := make([]string, v.Len())
	for i := range parts {
		parts[i] = fmt.Sprint(v.Index(i).Interface())
	}
	return strings.Join(parts, sep), nil
}

func indentLines(indent int, text string) string {
	if text == "" {
		return ""
	}

	pad := strings.Repeat(" ", indent)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}

func quote(s string) string {
	return fmt.Sprintf("%q", s)
}

func first(items any) any {
	v := reflect.ValueOf(items)
	if (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) || v.Len() == 0 {
		return nil
	}
	return v.Index(0).Interface()
}

func last(items any) any {
	v := reflect.ValueOf(items)
	if (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) || v.Len() == 0 {
		return nil
	}
	return v.Index(v.Len() - 1).Interface()
}

func defaultValue(def any, given any) any {
	if given == nil {
		return def
	}
	if s, ok := given.(string); ok && s == "" {
		return def
	}
	return given
}

func coalesce(values ...any) any {
	for _, v := range values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		return v
	}
	return nil
}

func ternary(condition bool, trueVal, falseVal any) any {
	if condition {
		return trueVal
	}
	return falseVal
}

func toString(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(value)
}

func formatTime(layout string, t time.Time) string {
	return t.Format(layout)
}

func generateUUID() string {
	return uuid.New().String()
}

func encodeBase64(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

func calculateSHA256(text string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(text)))
}
