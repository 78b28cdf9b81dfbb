package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ID prefix for queue items
const itemIDPrefix = "dl-"

// Item represents a single download request and its full mutable state.
// The struct is the persisted representation: every field carries a JSON
// tag. Runtime-only control handles (the cancel function of a running
// download) are kept out of it; they live in the queue's active-task set
// instead.
type Item struct {
	ID string `json:"id"`

	// Request fields, immutable after creation
	URL       string        `json:"url"`
	Format    string        `json:"format,omitempty"`     // container/format selector, e.g. "mp4"
	Quality   string        `json:"quality,omitempty"`    // quality selector, e.g. "best", "720p"
	ClipStart time.Duration `json:"clip_start,omitempty"` // optional clip range begin
	ClipEnd   time.Duration `json:"clip_end,omitempty"`   // optional clip range end
	Playlist  bool          `json:"playlist,omitempty"`
	Subtitles bool          `json:"subtitles,omitempty"`
	OutputDir string        `json:"output_dir,omitempty"` // overrides the queue default
	Force     bool          `json:"force,omitempty"`      // redownload even if output exists
	RateLimit int64         `json:"rate_limit,omitempty"` // bytes/sec, 0 = unlimited

	// Mutable scheduling state
	Priority   Priority   `json:"priority"`
	Status     ItemStatus `json:"status"`
	Progress   float64    `json:"progress"` // 0 to 100
	BytesDone  int64      `json:"bytes_done"`
	BytesTotal int64      `json:"bytes_total"`
	Speed      int64      `json:"speed"` // bytes/sec, instantaneous
	Retries    int        `json:"retries"`
	LastError  string     `json:"last_error,omitempty"`
	Title      string     `json:"title,omitempty"`
	OutputPath string     `json:"output_path,omitempty"`

	AddedAt    time.Time  `json:"added_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewItem creates a fresh Queued item for the given URL
func NewItem(url string, priority Priority) *Item {
	return &Item{
		ID:       itemIDPrefix + uuid.New().String(),
		URL:      url,
		Priority: priority,
		Status:   StatusQueued,
		AddedAt:  time.Now(),
	}
}

// Clone returns a shallow copy of the item. Callers outside the queue
// always receive clones so they cannot mutate queue state directly.
func (it *Item) Clone() *Item {
	cp := *it
	return &cp
}

// MarkStarted transitions the item to Downloading, stamping StartedAt on
// the first start only
func (it *Item) MarkStarted(now time.Time) {
	it.Status = StatusDownloading
	if it.StartedAt == nil {
		t := now
		it.StartedAt = &t
	}
}

// MarkTerminal transitions the item to a terminal status and stamps
// FinishedAt. Progress is forced to 100 on Completed.
func (it *Item) MarkTerminal(status ItemStatus, now time.Time) {
	it.Status = status
	if status == StatusCompleted {
		it.Progress = 100
	}
	t := now
	it.FinishedAt = &t
}

// SetProgress clamps and records download progress
func (it *Item) SetProgress(done, total int64) {
	it.BytesDone = done
	it.BytesTotal = total
	if total > 0 {
		pct := float64(done) / float64(total) * 100
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		it.Progress = pct
	}
}

// DisplayName returns title, filename, or URL in order of preference
func (it *Item) DisplayName() string {
	if it.Title != "" && !strings.HasPrefix(it.Title, "http") {
		return it.Title
	}

	if it.OutputPath != "" {
		parts := strings.FieldsFunc(it.OutputPath, func(r rune) bool {
			return r == '/' || r == '\\'
		})
		if len(parts) > 0 {
			name := parts[len(parts)-1]
			if idx := strings.LastIndex(name, "."); idx > 0 {
				name = name[:idx]
			}
			return name
		}
	}

	return it.URL
}
