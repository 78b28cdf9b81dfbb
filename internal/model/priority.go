package model

import "fmt"

// Priority controls admission order of queued items. Higher values are
// admitted ahead of lower ones per the two-class head/tail rule in the
// queue package.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// String returns the string representation of Priority
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Elevated returns true if items of this priority jump to the head of the
// pending sequence instead of appending to the tail
func (p Priority) Elevated() bool {
	return p == PriorityHigh || p == PriorityCritical
}

// ParsePriority parses a priority name. Unknown names return
// PriorityNormal and an error.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "low":
		return PriorityLow, nil
	case "normal", "":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	default:
		return PriorityNormal, fmt.Errorf("unknown priority: %q", s)
	}
}
