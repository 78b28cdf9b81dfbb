package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ytget/dlqueue/internal/model"
)

func testItems() []*model.Item {
	started := time.Now().Add(-time.Minute).Truncate(time.Second)

	a := model.NewItem("https://example.com/a", model.PriorityNormal)
	a.Status = model.StatusQueued

	b := model.NewItem("https://example.com/b", model.PriorityCritical)
	b.Status = model.StatusDownloading
	b.StartedAt = &started
	b.Progress = 42
	b.BytesDone = 420
	b.BytesTotal = 1000

	c := model.NewItem("https://example.com/c", model.PriorityLow)
	c.Status = model.StatusPaused

	d := model.NewItem("https://example.com/d", model.PriorityNormal)
	d.MarkTerminal(model.StatusFailed, time.Now().Truncate(time.Second))
	d.LastError = "connection reset"

	return []*model.Item{a, b, c, d}
}

func TestFileStore_LoadMissing(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "queue.json"))

	items, err := fs.Load()
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected empty item set, got %d items", len(items))
	}
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	fs := NewFileStore(path)
	items, err := fs.Load()
	if err != nil {
		t.Fatalf("Expected corrupt file to be treated as no prior state, got %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected empty item set from corrupt file, got %d items", len(items))
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "queue.json"))

	original := testItems()
	if err := fs.Save(original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := fs.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != len(original) {
		t.Fatalf("Expected %d items, got %d", len(original), len(loaded))
	}

	byID := make(map[string]*model.Item)
	for _, it := range loaded {
		byID[it.ID] = it
	}

	for _, orig := range original {
		got, ok := byID[orig.ID]
		if !ok {
			t.Fatalf("Item %s missing after round trip", orig.ID)
		}
		if got.URL != orig.URL || got.Priority != orig.Priority {
			t.Errorf("Item %s request fields changed: got %+v", orig.ID, got)
		}
		if orig.Status == model.StatusDownloading {
			// Restart coercion: in-flight work cannot survive a restart
			if got.Status != model.StatusQueued {
				t.Errorf("Expected Downloading item coerced to Queued, got %s", got.Status)
			}
			if got.FinishedAt != nil {
				t.Error("Expected FinishedAt to stay unset through coercion")
			}
		} else if got.Status != orig.Status {
			t.Errorf("Item %s status changed: got %s, expected %s", orig.ID, got.Status, orig.Status)
		}
		if got.LastError != orig.LastError {
			t.Errorf("Item %s error message changed: got %q", orig.ID, got.LastError)
		}
	}
}

func TestFileStore_SnapshotOrder(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "queue.json"))

	if err := fs.Save(testItems()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := fs.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Downloading (coerced to Queued on load) first, then Queued, Paused,
	// terminal items last
	expected := []string{
		"https://example.com/b",
		"https://example.com/a",
		"https://example.com/c",
		"https://example.com/d",
	}
	for i, url := range expected {
		if loaded[i].URL != url {
			t.Errorf("Position %d: expected %s, got %s", i, url, loaded[i].URL)
		}
	}
}

func TestSortForSnapshot_PriorityWithinGroup(t *testing.T) {
	low := model.NewItem("https://example.com/low", model.PriorityLow)
	high := model.NewItem("https://example.com/high", model.PriorityHigh)
	normal := model.NewItem("https://example.com/normal", model.PriorityNormal)

	items := []*model.Item{low, high, normal}
	SortForSnapshot(items)

	if items[0] != high || items[1] != normal || items[2] != low {
		t.Errorf("Expected descending priority within the Queued group, got %v %v %v",
			items[0].Priority, items[1].Priority, items[2].Priority)
	}
}

func TestFileStore_SaveAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	fs := NewFileStore(path)

	if err := fs.Save(testItems()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Expected temp file to be renamed away after save")
	}
}
