package queue

// Package queue implements the download queue core: a single command loop
// that owns the item map and pending sequence, bounded-concurrency dispatch
// of per-item download goroutines, pause/resume/cancel with cancellation
// propagation, periodic persistence, and level-triggered change
// notifications for UIs and CLIs to refresh from.
