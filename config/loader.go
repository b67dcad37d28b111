// Package config loads treegen project files and run data.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Validator is implemented by configuration types that check themselves
// after decoding.
type Validator interface {
	Validate() error
}

// LoadYAML decodes the YAML file at path into target. If target implements
// Validator, it is validated after decoding.
func LoadYAML[T any](path string, target *T) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path %q: %w", path, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("configuration file does not exist: %s", absPath)
		}
		return fmt.Errorf("failed to read configuration file %q: %w", absPath, err)
	}

	return decode(data, target)
}

// LoadYAMLFromString is LoadYAML for in-memory content.
func LoadYAMLFromString[T any](yamlContent string, target *T) error {
	return decode([]byte(yamlContent), target)
}

func decode[T any](data []byte, target *T) error {
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return nil
}

// LoadData reads the run data passed to every template. YAML and JSON files
// are accepted, JSON being a subset of YAML, as are dotenv files (".env" or
// a ".env" extension), whose values are all strings. An empty file yields
// an empty map.
func LoadData(path string) (map[string]any, error) {
	if filepath.Ext(path) == ".env" {
		vars, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read data file %q: %w", path, err)
		}

		data := make(map[string]any, len(vars))
		for key, value := range vars {
			data[key] = value
		}
		return data, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file %q: %w", path, err)
	}

	data, err := DecodeData(content)
	if err != nil {
		return nil, fmt.Errorf("data file %q: %w", path, err)
	}
	return data, nil
}

// DecodeData decodes YAML or JSON content into a map. The document root
// must be a mapping.
func DecodeData(content []byte) (map[string]any, error) {
	data := map[string]any{}
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("failed to parse data: %w", err)
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}
