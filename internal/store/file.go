package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ytget/dlqueue/internal/model"
)

// snapshot is the self-describing on-disk document
type snapshot struct {
	Version int           `json:"version"`
	SavedAt time.Time     `json:"saved_at"`
	Items   []*model.Item `json:"items"`
}

// FileStore persists the queue as a JSON snapshot file. Writes go through
// a temp file and rename so a crash mid-save never leaves a torn document.
type FileStore struct {
	path string
}

// NewFileStore creates a file store writing to path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save writes a stably-ordered snapshot of items to disk
func (fs *FileStore) Save(items []*model.Item) error {
	ordered := make([]*model.Item, len(items))
	copy(ordered, items)
	SortForSnapshot(ordered)

	snap := snapshot{
		Version: SnapshotVersion,
		SavedAt: time.Now(),
		Items:   ordered,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode queue snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(fs.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write queue snapshot: %w", err)
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		return fmt.Errorf("failed to commit queue snapshot: %w", err)
	}

	return nil
}

// Load reads the prior snapshot. A missing file yields an empty item set;
// a corrupt file is logged and likewise treated as no prior state.
func (fs *FileStore) Load() ([]*model.Item, error) {
	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read queue snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("store: discarding corrupt snapshot %s: %v", fs.path, err)
		return nil, nil
	}

	Normalize(snap.Items)
	return snap.Items, nil
}

// Close is a no-op for the file backend
func (fs *FileStore) Close() error {
	return nil
}
