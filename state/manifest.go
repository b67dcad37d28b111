// Package state records the files a run generated, so later runs can find
// and remove output that is no longer produced.
package state

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/natefinch/atomic"
)

const (
	// ManifestName is the manifest's file name inside the output root.
	ManifestName    = ".treegen-manifest.json"
	manifestVersion = "1"
)

type Entry struct {
	// Path is slash separated and relative to the output root.
	Path string `json:"path"`
	Key  string `json:"key"`
	Hash string `json:"sha256"`
	Size int64  `json:"size"`
}

type Manifest struct {
	Version   string           `json:"version"`
	Generated time.Time        `json:"generated"`
	Entries   map[string]Entry `json:"entries"`
}

func NewManifest() *Manifest {
	return &Manifest{
		Version:   manifestVersion,
		Generated: time.Now().UTC(),
		Entries:   make(map[string]Entry),
	}
}

// Sorted returns the entries ordered by path.
func (m *Manifest) Sorted() []Entry {
	entries := make([]Entry, 0, len(m.Entries))
	for _, entry := range m.Entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries
}

// Manager reads and writes the manifest of one output root.
type Manager struct {
	outputRoot   string
	manifestPath string
}

func NewManager(outputRoot string) *Manager {
	return &Manager{
		outputRoot:   outputRoot,
		manifestPath: filepath.Join(outputRoot, ManifestName),
	}
}

func (m *Manager) Path() string {
	return m.manifestPath
}

// Load reads the manifest. A missing manifest yields an empty one.
func (m *Manager) Load() (*Manifest, error) {
	content, err := os.ReadFile(m.manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return NewManifest(), nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(content, &manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", m.manifestPath, err)
	}
	if manifest.Version != manifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %q in %s", manifest.Version, m.manifestPath)
	}
	if manifest.Entries == nil {
		manifest.Entries = make(map[string]Entry)
	}

	return &manifest, nil
}

// Save replaces the manifest atomically.
func (m *Manager) Save(manifest *Manifest) error {
	content, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := atomic.WriteFile(m.manifestPath, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Record adds the generated file at path, produced from the template key,
// to manifest. path must lie under the output root.
func (m *Manager) Record(manifest *Manifest, key, path string) error {
	rel, err := m.relative(path)
	if err != nil {
		return err
	}

	hash, size, err := hashFile(path)
	if err != nil {
		return err
	}

	manifest.Entries[rel] = Entry{Path: rel, Key: key, Hash: hash, Size: size}
	return nil
}

// Changed reports whether the file recorded by entry was modified or
// removed since it was generated.
func (m *Manager) Changed(entry Entry) (bool, error) {
	path, err := m.abs(entry.Path)
	if err != nil {
		return false, err
	}

	hash, size, err := hashFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return size != entry.Size || hash != entry.Hash, nil
}

func (m *Manager) relative(path string) (string, error) {
	rel, err := filepath.Rel(m.outputRoot, path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s against %s: %w", path, m.outputRoot, err)
	}
	if rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return "", fmt.Errorf("%s is outside the output root %s", path, m.outputRoot)
	}
	return filepath.ToSlash(rel), nil
}

// abs resolves a manifest path against the output root. Paths leading out
// of the root are rejected.
func (m *Manager) abs(rel string) (string, error) {
	if filepath.IsAbs(filepath.FromSlash(rel)) {
		return "", fmt.Errorf("manifest entry %s is not relative to the output root", rel)
	}
	path := filepath.Join(m.outputRoot, filepath.FromSlash(rel))
	if _, err := m.relative(path); err != nil {
		return "", fmt.Errorf("manifest entry %s: %w", rel, err)
	}
	return path, nil
}

func hashFile(path string) (string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer file.Close()

	hash := sha256.New()
	size, err := io.Copy(hash, file)
	if err != nil {
		return "", 0, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(hash.Sum(nil)), size, nil
}
