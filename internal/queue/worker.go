package queue

import (
	"context"
	"log"
	"time"

	"github.com/ytget/dlqueue/internal/extract"
	"github.com/ytget/dlqueue/internal/model"
)

type extractResult struct {
	path string
	err  error
}

// runItem is the per-item execution unit. It races the extraction call
// against cancellation, writes the terminal outcome back through the
// shared item map (never by calling into the command loop), and nudges
// dispatch so the freed slot is reused immediately.
func (q *Queue) runItem(ctx context.Context, snapshot *model.Item) {
	defer q.workers.Done()

	spec := q.buildSpec(snapshot)

	resultCh := make(chan extractResult, 1)
	go func() {
		path, err := q.extractor.Extract(ctx, spec)
		resultCh <- extractResult{path: path, err: err}
	}()

	var result extractResult
	select {
	case result = <-resultCh:
	case <-ctx.Done():
		// The extractor is cancel-safe by contract, but the slot is
		// released as soon as the abort fires regardless
		result = extractResult{err: ctx.Err()}
	}

	q.finishItem(ctx, snapshot.ID, result)
	q.wakeDispatch()
	q.notify()
}

// buildSpec resolves the item's request fields against queue defaults
func (q *Queue) buildSpec(item *model.Item) extract.Spec {
	outputDir := item.OutputDir
	if outputDir == "" {
		outputDir = q.cfg.DownloadDir
	}

	return extract.Spec{
		URL:       item.URL,
		OutputDir: outputDir,
		Format:    item.Format,
		Quality:   item.Quality,
		ClipStart: item.ClipStart,
		ClipEnd:   item.ClipEnd,
		Subtitles: item.Subtitles,
		Force:     item.Force,
		RateLimit: item.RateLimit,
		Progress:  q.progressFunc(item.ID),
		Retry:     q.retryFunc(item.ID),
	}
}

// retryFunc returns the callback recording extractor-internal retries on
// the item
func (q *Queue) retryFunc(id string) extract.RetryFunc {
	return func(attempt int) {
		q.mu.Lock()
		if item, ok := q.items[id]; ok {
			item.Retries = attempt
		}
		q.mu.Unlock()

		q.notify()
	}
}

// progressFunc returns the byte-progress callback for one item. Updates go
// through the shared map under the queue lock and fire the change signal.
func (q *Queue) progressFunc(id string) extract.ProgressFunc {
	return func(done, total int64) {
		q.mu.Lock()
		item, ok := q.items[id]
		if !ok || item.Status != model.StatusDownloading {
			q.mu.Unlock()
			return
		}

		item.SetProgress(done, total)
		if item.StartedAt != nil {
			if elapsed := time.Since(*item.StartedAt).Seconds(); elapsed > 0 {
				item.Speed = int64(float64(done) / elapsed)
			}
		}
		q.mu.Unlock()

		q.notify()
	}
}

// finishItem records the terminal outcome of one execution. If the command
// loop already moved the item out of Downloading (pause or cancel), the
// status it chose stands; a user-initiated stop is never re-reported as a
// download error.
func (q *Queue) finishItem(ctx context.Context, id string, result extractResult) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.active, id)

	item, ok := q.items[id]
	if !ok || item.Status != model.StatusDownloading {
		return
	}

	switch {
	case result.err == nil:
		item.OutputPath = result.path
		item.MarkTerminal(model.StatusCompleted, time.Now())
		log.Printf("queue: completed %s -> %s", item.DisplayName(), result.path)
	case ctx.Err() != nil:
		// Shutdown abort: leave the item Downloading so the snapshot
		// re-queues it on the next start
	default:
		item.LastError = result.err.Error()
		item.MarkTerminal(model.StatusFailed, time.Now())
		log.Printf("queue: failed %s: %v", item.DisplayName(), result.err)
	}
}
