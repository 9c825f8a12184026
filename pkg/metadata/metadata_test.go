package metadata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/compmonks/instArchiver/pkg/graph"
)

// itemFromJSON builds a MediaItem the way production code gets one:
// decoded from an API page.
func itemFromJSON(t *testing.T, raw string) *graph.MediaItem {
	t.Helper()
	var item graph.MediaItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		t.Fatalf("Failed to unmarshal item: %v", err)
	}
	return &item
}

func writeEntry(t *testing.T, base, date, id, raw string) string {
	t.Helper()
	dir := filepath.Join(base, date, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create item dir: %v", err)
	}
	if err := Save(dir, itemFromJSON(t, raw)); err != nil {
		t.Fatalf("Failed to save item: %v", err)
	}
	return dir
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	raw := `{"id": "111", "caption": "hello world", "media_type": "IMAGE",
		"timestamp": "2024-03-01T10:00:00+0000", "like_count": 42}`

	if err := Save(dir, itemFromJSON(t, raw)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// meta.json is the original document, just re-indented
	metaBytes, err := os.ReadFile(filepath.Join(dir, MetaFileName))
	if err != nil {
		t.Fatalf("Failed to read meta.json: %v", err)
	}
	if !strings.Contains(string(metaBytes), `"like_count": 42`) {
		t.Error("Fields outside the decoded set must survive in meta.json")
	}

	caption, err := os.ReadFile(filepath.Join(dir, CaptionFileName))
	if err != nil {
		t.Fatalf("Failed to read caption.txt: %v", err)
	}
	if string(caption) != "hello world" {
		t.Errorf("Expected caption %q, got %q", "hello world", string(caption))
	}

	item, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if item.ID != "111" {
		t.Errorf("Expected id 111, got %s", item.ID)
	}
	if item.Caption != "hello world" {
		t.Errorf("Expected caption, got %q", item.Caption)
	}
}

func TestSaveWritesEmptyCaption(t *testing.T) {
	dir := t.TempDir()

	if err := Save(dir, itemFromJSON(t, `{"id": "1"}`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	caption, err := os.ReadFile(filepath.Join(dir, CaptionFileName))
	if err != nil {
		t.Fatal("caption.txt must exist even for captionless items")
	}
	if len(caption) != 0 {
		t.Errorf("Expected empty caption file, got %q", string(caption))
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Expected error for missing metadata")
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	if Exists(dir) {
		t.Error("Expected no metadata in fresh directory")
	}
	if err := Save(dir, itemFromJSON(t, `{"id": "1"}`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !Exists(dir) {
		t.Error("Expected metadata after save")
	}
}

func TestScanArchive(t *testing.T) {
	base := t.TempDir()

	writeEntry(t, base, "2024-03-01", "111",
		`{"id": "111", "timestamp": "2024-03-01T10:00:00+0000"}`)
	writeEntry(t, base, "2024-03-02", "222",
		`{"id": "222", "timestamp": "2024-03-02T08:00:00+0000"}`)
	dir3 := writeEntry(t, base, "2024-03-02", "333",
		`{"id": "333", "timestamp": "2024-03-02T09:30:00+0000"}`)

	// Assets show up in the entry, partials and sidecars do not
	os.WriteFile(filepath.Join(dir3, "media_01.jpg"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir3, "child_01.jpg"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir3, "media_01.jpg.part"), []byte("x"), 0644)

	// Noise the scanner must ignore
	os.MkdirAll(filepath.Join(base, "not-a-date"), 0755)
	os.WriteFile(filepath.Join(base, "state.json"), []byte("{}"), 0644)
	os.MkdirAll(filepath.Join(base, "2024-03-03", "broken"), 0755)

	entries, err := ScanArchive(base)
	if err != nil {
		t.Fatalf("ScanArchive failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}

	// Newest first
	if entries[0].Item.ID != "333" || entries[1].Item.ID != "222" || entries[2].Item.ID != "111" {
		t.Errorf("Wrong order: %s, %s, %s", entries[0].Item.ID, entries[1].Item.ID, entries[2].Item.ID)
	}

	if len(entries[0].Files) != 2 {
		t.Errorf("Expected 2 asset files, got %v", entries[0].Files)
	}
	for _, f := range entries[0].Files {
		if f == MetaFileName || f == CaptionFileName || strings.HasSuffix(f, ".part") {
			t.Errorf("Non-asset file %s listed as asset", f)
		}
	}
}

func TestScanArchiveMissingBase(t *testing.T) {
	entries, err := ScanArchive(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Missing archive must not be an error, got %v", err)
	}
	if entries != nil {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}

func TestFindEntry(t *testing.T) {
	base := t.TempDir()
	writeEntry(t, base, "2024-03-01", "111",
		`{"id": "111", "caption": "found me", "timestamp": "2024-03-01T10:00:00+0000"}`)

	entry, err := FindEntry(base, "2024-03-01", "111")
	if err != nil {
		t.Fatalf("FindEntry failed: %v", err)
	}
	if entry.Item.Caption != "found me" {
		t.Errorf("Wrong entry loaded: %+v", entry.Item)
	}

	if _, err := FindEntry(base, "2024-03-01", "999"); err == nil {
		t.Error("Expected error for unknown id")
	}
	if _, err := FindEntry(base, "../../etc", "passwd"); err == nil {
		t.Error("Expected error for a date that is not a date")
	}
	if _, err := FindEntry(base, "2024-03-01", "../111"); err == nil {
		t.Error("Expected error for an id with a path separator")
	}
	if _, err := FindEntry(base, "2024-03-01", ".."); err == nil {
		t.Error("Expected error for a dot-dot id")
	}
}

func TestRemoveStaleParts(t *testing.T) {
	base := t.TempDir()
	dir := writeEntry(t, base, "2024-03-01", "111", `{"id": "111"}`)

	keep := filepath.Join(dir, "media_01.jpg")
	stale := filepath.Join(dir, "media_02.mp4.part")
	os.WriteFile(keep, []byte("x"), 0644)
	os.WriteFile(stale, []byte("x"), 0644)

	removed, err := RemoveStaleParts(base)
	if err != nil {
		t.Fatalf("RemoveStaleParts failed: %v", err)
	}
	if len(removed) != 1 || removed[0] != stale {
		t.Errorf("Expected [%s], got %v", stale, removed)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("Stale partial file still present")
	}
	if _, err := os.Stat(keep); err != nil {
		t.Error("Completed file was removed")
	}
}
