package model

import (
	"strings"
	"testing"
	"time"
)

func TestNewItem(t *testing.T) {
	item := NewItem("https://example.com/file.bin", PriorityHigh)

	if item.URL != "https://example.com/file.bin" {
		t.Errorf("Expected URL to be set, got '%s'", item.URL)
	}

	if item.Status != StatusQueued {
		t.Errorf("Expected status Queued, got %s", item.Status)
	}

	if item.Priority != PriorityHigh {
		t.Errorf("Expected priority high, got %s", item.Priority)
	}

	if !strings.HasPrefix(item.ID, "dl-") {
		t.Errorf("Expected ID to start with 'dl-', got: %s", item.ID)
	}

	if item.AddedAt.IsZero() {
		t.Error("Expected AddedAt to be stamped")
	}

	if item.StartedAt != nil || item.FinishedAt != nil {
		t.Error("Expected StartedAt and FinishedAt to be unset on creation")
	}
}

func TestNewItem_UniqueIDs(t *testing.T) {
	a := NewItem("https://example.com/a", PriorityNormal)
	b := NewItem("https://example.com/b", PriorityNormal)

	if a.ID == b.ID {
		t.Error("Expected different item IDs")
	}
}

func TestItem_MarkStarted(t *testing.T) {
	item := NewItem("https://example.com/file.bin", PriorityNormal)

	first := time.Now()
	item.MarkStarted(first)

	if item.Status != StatusDownloading {
		t.Errorf("Expected status Downloading, got %s", item.Status)
	}
	if item.StartedAt == nil || !item.StartedAt.Equal(first) {
		t.Errorf("Expected StartedAt to be %v, got %v", first, item.StartedAt)
	}

	// Second start must not overwrite the original start time
	item.MarkStarted(first.Add(time.Minute))
	if !item.StartedAt.Equal(first) {
		t.Errorf("Expected StartedAt to stay %v, got %v", first, item.StartedAt)
	}
}

func TestItem_MarkTerminal(t *testing.T) {
	item := NewItem("https://example.com/file.bin", PriorityNormal)
	item.Progress = 40

	now := time.Now()
	item.MarkTerminal(StatusCompleted, now)

	if item.Status != StatusCompleted {
		t.Errorf("Expected status Completed, got %s", item.Status)
	}
	if item.Progress != 100 {
		t.Errorf("Expected progress forced to 100 on Completed, got %v", item.Progress)
	}
	if item.FinishedAt == nil || !item.FinishedAt.Equal(now) {
		t.Errorf("Expected FinishedAt to be %v, got %v", now, item.FinishedAt)
	}
}

func TestItem_MarkTerminal_FailedKeepsProgress(t *testing.T) {
	item := NewItem("https://example.com/file.bin", PriorityNormal)
	item.Progress = 40

	item.MarkTerminal(StatusFailed, time.Now())

	if item.Progress != 40 {
		t.Errorf("Expected progress unchanged on Failed, got %v", item.Progress)
	}
	if item.FinishedAt == nil {
		t.Error("Expected FinishedAt to be stamped on Failed")
	}
}

func TestItem_SetProgress(t *testing.T) {
	item := NewItem("https://example.com/file.bin", PriorityNormal)

	item.SetProgress(50, 200)
	if item.Progress != 25 {
		t.Errorf("Expected progress 25, got %v", item.Progress)
	}

	// Unknown total leaves the percentage alone
	item.SetProgress(75, 0)
	if item.Progress != 25 {
		t.Errorf("Expected progress unchanged with unknown total, got %v", item.Progress)
	}
	if item.BytesDone != 75 {
		t.Errorf("Expected BytesDone 75, got %d", item.BytesDone)
	}

	// Over-reporting clamps to 100
	item.SetProgress(300, 200)
	if item.Progress != 100 {
		t.Errorf("Expected progress clamped to 100, got %v", item.Progress)
	}
}

func TestItem_Clone(t *testing.T) {
	item := NewItem("https://example.com/file.bin", PriorityNormal)
	clone := item.Clone()

	clone.Status = StatusFailed
	clone.LastError = "boom"

	if item.Status != StatusQueued {
		t.Error("Mutating a clone must not affect the original")
	}
}

func TestItem_DisplayName(t *testing.T) {
	tests := []struct {
		name     string
		item     Item
		expected string
	}{
		{
			name:     "prefers title",
			item:     Item{Title: "Some Video", OutputPath: "/tmp/file.mp4", URL: "https://example.com/v"},
			expected: "Some Video",
		},
		{
			name:     "url-like title falls through to filename",
			item:     Item{Title: "https://example.com/v", OutputPath: "/tmp/file.mp4", URL: "https://example.com/v"},
			expected: "file",
		},
		{
			name:     "falls back to URL",
			item:     Item{URL: "https://example.com/v"},
			expected: "https://example.com/v",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := test.item.DisplayName()
			if result != test.expected {
				t.Errorf("DisplayName() = %q, expected %q", result, test.expected)
			}
		})
	}
}
