package extract

import (
	"context"
	"time"
)

// ProgressFunc receives byte-level progress as a download advances.
// total is 0 when the size is unknown.
type ProgressFunc func(done, total int64)

// RetryFunc is called before each retry of a failed attempt
type RetryFunc func(attempt int)

// Spec is a fully-resolved download request handed to an extractor
type Spec struct {
	URL       string
	OutputDir string
	Format    string // container selector, e.g. "mp4", "webm"
	Quality   string // quality selector, e.g. "best", "720p", "audio"
	ClipStart time.Duration
	ClipEnd   time.Duration
	Subtitles bool
	Force     bool  // redownload even if output exists
	RateLimit int64 // bytes/sec, 0 = unlimited

	Progress ProgressFunc // optional
	Retry    RetryFunc    // optional
}

// Extractor fetches the content described by spec and returns the path of
// the resulting file. Implementations must abort promptly when ctx is
// canceled and must handle transient network failures internally.
type Extractor interface {
	Extract(ctx context.Context, spec Spec) (string, error)
}
