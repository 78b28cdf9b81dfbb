package store

import (
	"sort"

	"github.com/ytget/dlqueue/internal/model"
)

// Snapshot document version
const SnapshotVersion = 1

// Store persists the full item set. Save writes a stably-ordered snapshot;
// Load returns the prior snapshot, or an empty slice when none exists.
type Store interface {
	Save(items []*model.Item) error
	Load() ([]*model.Item, error)
	Close() error
}

// statusRank orders statuses for snapshots: active work first, then
// runnable, then parked, then history
func statusRank(s model.ItemStatus) int {
	switch s {
	case model.StatusDownloading:
		return 0
	case model.StatusQueued:
		return 1
	case model.StatusPaused:
		return 2
	default:
		return 3
	}
}

// SortForSnapshot orders items for persistence: Downloading, Queued, Paused
// groups first (each by descending priority), terminal items last. The sort
// is stable so load/save round trips preserve arrival order within a group.
func SortForSnapshot(items []*model.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := statusRank(items[i].Status), statusRank(items[j].Status)
		if ri != rj {
			return ri < rj
		}
		return items[i].Priority > items[j].Priority
	})
}

// Normalize prepares loaded items for use: an in-flight download cannot
// have survived a restart, so Downloading is coerced back to Queued.
func Normalize(items []*model.Item) {
	for _, it := range items {
		if it.Status == model.StatusDownloading {
			it.Status = model.StatusQueued
		}
	}
}
