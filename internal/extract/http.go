package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ytget/dlqueue/internal/policy"
)

// Copy and watchdog constants
const (
	copyBufferSize    = 32 * 1024
	stallPollInterval = time.Second
	minLimiterBurst   = copyBufferSize
)

var errStalled = errors.New("download stalled: no progress within threshold")

// HTTPExtractor downloads plain HTTP(S) resources. Partial files are
// resumed with a Range request, transient failures are retried with
// exponential backoff, and an inactivity watchdog aborts stalled attempts
// so they can be retried.
type HTTPExtractor struct {
	client         *http.Client
	maxRetries     int
	stallThreshold time.Duration
}

// NewHTTPExtractor creates an HTTP extractor with the given retry and
// stall settings. Non-positive values fall back to the policy defaults.
func NewHTTPExtractor(maxRetries int, stallThreshold time.Duration) *HTTPExtractor {
	if maxRetries < 0 {
		maxRetries = policy.DefaultMaxRetries
	}
	if stallThreshold <= 0 {
		stallThreshold = policy.DefaultStallThreshold
	}
	return &HTTPExtractor{
		client:         &http.Client{},
		maxRetries:     maxRetries,
		stallThreshold: stallThreshold,
	}
}

// Extract downloads spec.URL into spec.OutputDir, retrying transient
// failures with backoff. The partial file is kept between attempts so a
// retry resumes instead of restarting.
func (e *HTTPExtractor) Extract(ctx context.Context, spec Spec) (string, error) {
	outputPath, err := e.outputPath(spec)
	if err != nil {
		return "", err
	}

	if spec.Force {
		if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to remove prior output: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("extract: retrying %s, attempt %d: %v", spec.URL, attempt+1, lastErr)
			if spec.Retry != nil {
				spec.Retry(attempt)
			}
			select {
			case <-time.After(policy.Backoff(attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		err := e.attempt(ctx, spec, outputPath)
		if err == nil {
			return outputPath, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}

	return "", lastErr
}

// attempt performs one download pass, resuming from whatever the partial
// file already holds
func (e *HTTPExtractor) attempt(ctx context.Context, spec Spec, outputPath string) error {
	// A stall cancels only this attempt; the outer loop retries it
	attemptCtx, cancelAttempt := context.WithCancel(ctx)
	defer cancelAttempt()

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat output file: %w", err)
	}
	offset := info.Size()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, spec.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Server ignored the Range header; start over
		if offset > 0 {
			if err := file.Truncate(0); err != nil {
				return fmt.Errorf("failed to truncate partial file: %w", err)
			}
			if _, err := file.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("failed to rewind partial file: %w", err)
			}
			offset = 0
		}
	case http.StatusPartialContent:
	case http.StatusRequestedRangeNotSatisfiable:
		// Nothing left beyond what we already hold
		return nil
	default:
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	total := int64(0)
	if resp.ContentLength > 0 {
		total = resp.ContentLength + offset
	}

	var limiter *rate.Limiter
	if spec.RateLimit > 0 {
		burst := int(spec.RateLimit)
		if burst < minLimiterBurst {
			burst = minLimiterBurst
		}
		limiter = rate.NewLimiter(rate.Limit(spec.RateLimit), burst)
	}

	// lastProgress holds unix nanos of the last byte received; the
	// watchdog cancels the attempt when it goes quiet for too long
	var lastProgress atomic.Int64
	lastProgress.Store(time.Now().UnixNano())
	stalled := make(chan struct{})
	watchdogDone := make(chan struct{})
	go func() {
		defer close(watchdogDone)
		ticker := time.NewTicker(stallPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-attemptCtx.Done():
				return
			case <-ticker.C:
				last := time.Unix(0, lastProgress.Load())
				if policy.Stalled(last, time.Now(), e.stallThreshold) {
					close(stalled)
					cancelAttempt()
					return
				}
			}
		}
	}()

	// classify maps an aborted attempt to a stall error when the watchdog
	// fired, so retries get a meaningful reason instead of "context canceled"
	classify := func(err error) error {
		cancelAttempt()
		<-watchdogDone
		select {
		case <-stalled:
			return errStalled
		default:
			return err
		}
	}

	done := offset
	buffer := make([]byte, copyBufferSize)
	for {
		n, readErr := resp.Body.Read(buffer)
		if n > 0 {
			if limiter != nil {
				if err := limiter.WaitN(attemptCtx, n); err != nil {
					return classify(err)
				}
			}
			if _, writeErr := file.Write(buffer[:n]); writeErr != nil {
				return fmt.Errorf("failed to write output: %w", writeErr)
			}
			done += int64(n)
			lastProgress.Store(time.Now().UnixNano())
			if spec.Progress != nil {
				spec.Progress(done, total)
			}
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return classify(readErr)
		}
	}
}

// outputPath derives the destination file from the URL path
func (e *HTTPExtractor) outputPath(spec Spec) (string, error) {
	u, err := url.Parse(spec.URL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		name = u.Hostname() + ".bin"
	}

	return filepath.Join(spec.OutputDir, name), nil
}
