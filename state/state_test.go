package state

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func writeOutput(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestManifestRoundTrip(t *testing.T) {
	root := t.TempDir()
	manager := NewManager(root)

	manifest, err := manager.Load()
	if err != nil {
		t.Fatalf("Load of a missing manifest failed: %v", err)
	}
	if len(manifest.Entries) != 0 {
		t.Fatalf("Expected empty manifest, got %v", manifest.Entries)
	}

	path := writeOutput(t, root, "nested/a.txt", "hello")
	if err := manager.Record(manifest, "nested/a.txt", path); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := manager.Save(manifest); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := manager.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	entry, ok := loaded.Entries["nested/a.txt"]
	if !ok {
		t.Fatalf("entry not persisted: %v", loaded.Entries)
	}
	// sha256("hello")
	if entry.Hash != "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824" || entry.Size != 5 {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestRecordOutsideRoot(t *testing.T) {
	root := t.TempDir()
	manager := NewManager(filepath.Join(root, "out"))
	path := writeOutput(t, root, "elsewhere.txt", "x")

	if err := manager.Record(NewManifest(), "elsewhere.txt", path); err == nil {
		t.Error("Expected error for a file outside the output root")
	}
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	root := t.TempDir()
	writeOutput(t, root, ManifestName, `{"version": "9", "entries": {}}`)

	if _, err := NewManager(root).Load(); err == nil {
		t.Error("Expected error for unsupported manifest version")
	}
}

func TestStale(t *testing.T) {
	previous := NewManifest()
	current := NewManifest()
	for _, path := range []string{"b.txt", "a.txt", "dir/c.txt"} {
		previous.Entries[path] = Entry{Path: path}
	}
	current.Entries["a.txt"] = Entry{Path: "a.txt"}

	var paths []string
	for _, entry := range Stale(previous, current) {
		paths = append(paths, entry.Path)
	}
	if !slices.Equal(paths, []string{"b.txt", "dir/c.txt"}) {
		t.Errorf("unexpected stale entries %v", paths)
	}
}

func TestRemove(t *testing.T) {
	root := t.TempDir()
	manager := NewManager(root)
	manifest := NewManifest()

	for rel, content := range map[string]string{
		"keep/unchanged.txt":    "generated",
		"deep/nested/stale.txt": "generated",
		"edited.txt":            "generated",
		"gone.txt":              "generated",
	} {
		path := writeOutput(t, root, rel, content)
		if err := manager.Record(manifest, rel, path); err != nil {
			t.Fatal(err)
		}
	}
	writeOutput(t, root, "keep/user.txt", "not generated")
	writeOutput(t, root, "edited.txt", "edited by hand")
	if err := os.Remove(filepath.Join(root, "gone.txt")); err != nil {
		t.Fatal(err)
	}

	results, err := manager.Remove(manifest.Sorted(), false)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	actions := make(map[string]CleanupAction)
	for _, result := range results {
		actions[result.Entry.Path] = result.Action
	}
	expected := map[string]CleanupAction{
		"deep/nested/stale.txt": ActionDeleted,
		"edited.txt":            ActionKept,
		"gone.txt":              ActionMissing,
		"keep/unchanged.txt":    ActionDeleted,
	}
	for path, want := range expected {
		if actions[path] != want {
			t.Errorf("%s: expected %v, got %v", path, want, actions[path])
		}
	}

	if _, err := os.Stat(filepath.Join(root, "deep")); !os.IsNotExist(err) {
		t.Errorf("empty directories should be removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "keep", "user.txt")); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "edited.txt")); err != nil {
		t.Errorf("edited file removed: %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("output root removed: %v", err)
	}
}

func TestClean(t *testing.T) {
	root := t.TempDir()
	manager := NewManager(root)
	manifest := NewManifest()

	path := writeOutput(t, root, "a/b.txt", "generated")
	if err := manager.Record(manifest, "a/b.txt", path); err != nil {
		t.Fatal(err)
	}
	if err := manager.Save(manifest); err != nil {
		t.Fatal(err)
	}
	writeOutput(t, root, "a/b.txt", "edited")

	results, err := manager.Clean(true)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if len(results) != 1 || results[0].Action != ActionDeleted {
		t.Errorf("forced clean should delete edited files, got %+v", results)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected an empty output root, found %v", entries)
	}
}

func TestCleanKeepsModifiedFilesTracked(t *testing.T) {
	root := t.TempDir()
	manager := NewManager(root)
	manifest := NewManifest()

	for _, rel := range []string{"edited.txt", "plain.txt"} {
		path := writeOutput(t, root, rel, "generated")
		if err := manager.Record(manifest, rel, path); err != nil {
			t.Fatal(err)
		}
	}
	if err := manager.Save(manifest); err != nil {
		t.Fatal(err)
	}
	writeOutput(t, root, "edited.txt", "edited by hand")

	results, err := manager.Clean(false)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if len(results) != 2 || results[0].Action != ActionKept || results[1].Action != ActionDeleted {
		t.Errorf("unexpected results %+v", results)
	}

	remaining, err := manager.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining.Entries) != 1 {
		t.Fatalf("Expected only the kept file to stay tracked, got %v", remaining.Entries)
	}
	if _, ok := remaining.Entries["edited.txt"]; !ok {
		t.Errorf("kept file dropped from the manifest: %v", remaining.Entries)
	}

	results, err = manager.Clean(true)
	if err != nil {
		t.Fatalf("forced Clean failed: %v", err)
	}
	if len(results) != 1 || results[0].Action != ActionDeleted {
		t.Errorf("forced clean should delete the kept file, got %+v", results)
	}
	if _, err := os.Stat(manager.Path()); !os.IsNotExist(err) {
		t.Errorf("manifest should be removed once nothing is tracked: %v", err)
	}
}

func TestRemoveRejectsEntriesOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "out")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatal(err)
	}
	victim := writeOutput(t, parent, "victim.txt", "keep me")

	manager := NewManager(root)
	for _, rel := range []string{"../victim.txt", "nested/../../victim.txt"} {
		_, err := manager.Remove([]Entry{{Path: rel}}, true)
		if err == nil {
			t.Errorf("%s: expected an error for an entry outside the output root", rel)
		}
		if _, err := manager.Changed(Entry{Path: rel}); err == nil {
			t.Errorf("%s: expected Changed to reject the entry", rel)
		}
	}

	if _, err := os.Stat(victim); err != nil {
		t.Errorf("file outside the output root was removed: %v", err)
	}
}
