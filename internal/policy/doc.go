package policy

// Package policy provides pure retry and stall-detection functions used by
// the extraction layer: exponential backoff with jitter and an inactivity
// threshold check. The queue itself never retries; these policies belong to
// the downloaders.
