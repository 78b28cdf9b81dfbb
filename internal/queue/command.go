package queue

import (
	"errors"

	"github.com/ytget/dlqueue/internal/model"
)

// Submission errors. Both are infrastructure-level and retriable; command
// payload is never silently dropped.
var (
	ErrQueueClosed = errors.New("queue is closed")
	ErrQueueBusy   = errors.New("queue command channel is full")
)

// commandKind discriminates queue commands
type commandKind int

const (
	cmdAdd commandKind = iota
	cmdPause
	cmdResume
	cmdCancel
	cmdPauseAll
	cmdResumeAll
	cmdSetPriority
	cmdSetMaxConcurrent
	cmdRemoveCompleted
	cmdClearFailed
	cmdSave
)

// command is one serialized mutation of queue state. Commands are applied
// strictly in submission order by the run loop; no two commands ever touch
// the shared state concurrently.
type command struct {
	kind     commandKind
	item     *model.Item // cmdAdd
	id       string      // item-scoped commands
	priority model.Priority
	limit    int
}
