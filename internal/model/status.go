package model

// ItemStatus represents the status of a queued download item
type ItemStatus string

const (
	// StatusQueued means the item is waiting for a free download slot
	StatusQueued ItemStatus = "Queued"

	// StatusDownloading means the download is in progress
	StatusDownloading ItemStatus = "Downloading"

	// StatusPaused means the item was paused by the user
	StatusPaused ItemStatus = "Paused"

	// StatusCompleted means the download finished successfully
	StatusCompleted ItemStatus = "Completed"

	// StatusFailed means the download failed with an error
	StatusFailed ItemStatus = "Failed"

	// StatusCanceled means the item was canceled by the user
	StatusCanceled ItemStatus = "Canceled"
)

// String returns the string representation of ItemStatus
func (s ItemStatus) String() string {
	return string(s)
}

// IsActive returns true if the item currently holds a download slot
func (s ItemStatus) IsActive() bool {
	return s == StatusDownloading
}

// IsTerminal returns true if the item reached a final state and will never
// be dispatched again
func (s ItemStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCanceled
}
