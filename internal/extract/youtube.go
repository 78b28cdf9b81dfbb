package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ytdl "github.com/kkdai/youtube/v2"

	"github.com/ytget/dlqueue/internal/platform"
)

// Quality selector values understood by the YouTube extractor
const (
	QualityBest  = "best"
	QualityAudio = "audio"
)

// YouTubeExtractor fetches YouTube videos via the youtube library,
// selecting a stream format from the item's quality and format selectors
type YouTubeExtractor struct {
	client ytdl.Client
}

// NewYouTubeExtractor creates a YouTube extractor
func NewYouTubeExtractor() *YouTubeExtractor {
	return &YouTubeExtractor{}
}

// Extract downloads the video at spec.URL into spec.OutputDir
func (e *YouTubeExtractor) Extract(ctx context.Context, spec Spec) (string, error) {
	video, err := e.client.GetVideoContext(ctx, spec.URL)
	if err != nil {
		return "", fmt.Errorf("failed to get video: %w", err)
	}

	format, err := e.selectFormat(video, spec)
	if err != nil {
		return "", err
	}

	outputPath := filepath.Join(spec.OutputDir, platform.SanitizeFilename(video.Title)+extensionFor(format))

	if !spec.Force {
		if info, err := os.Stat(outputPath); err == nil && info.Size() > 0 {
			return outputPath, nil
		}
	}

	stream, size, err := e.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return "", fmt.Errorf("failed to get stream: %w", err)
	}
	defer stream.Close()

	if size <= 0 {
		size = format.ContentLength
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := copyWithProgress(ctx, file, stream, size, spec.Progress); err != nil {
		return "", err
	}

	return outputPath, nil
}

// selectFormat picks the stream format matching the request selectors:
// audio-only when quality is "audio", a specific quality label when one is
// given (e.g. "720p"), best available bitrate otherwise. A format selector
// filters by container MIME type.
func (e *YouTubeExtractor) selectFormat(video *ytdl.Video, spec Spec) (*ytdl.Format, error) {
	audioOnly := spec.Quality == QualityAudio

	var candidates []ytdl.Format
	for _, f := range video.Formats {
		if audioOnly {
			if !strings.HasPrefix(f.MimeType, "audio/") {
				continue
			}
		} else {
			if !strings.HasPrefix(f.MimeType, "video/") {
				continue
			}
			// Prefer muxed streams so the output plays standalone
			if f.AudioChannels == 0 {
				continue
			}
		}
		if spec.Format != "" && !strings.Contains(f.MimeType, spec.Format) {
			continue
		}
		if !audioOnly && spec.Quality != "" && spec.Quality != QualityBest && f.QualityLabel != spec.Quality {
			continue
		}
		candidates = append(candidates, f)
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("no matching formats for quality=%q format=%q", spec.Quality, spec.Format)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Bitrate > candidates[j].Bitrate
	})

	best := candidates[0]
	return &best, nil
}

// extensionFor maps a stream MIME type to a file extension
func extensionFor(f *ytdl.Format) string {
	switch {
	case strings.HasPrefix(f.MimeType, "audio/mp4"):
		return ".m4a"
	case strings.HasPrefix(f.MimeType, "audio/webm"):
		return ".weba"
	case strings.Contains(f.MimeType, "webm"):
		return ".webm"
	default:
		return ".mp4"
	}
}

// copyWithProgress copies src to dst, reporting progress and honoring
// cancellation between chunks
func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, total int64, progress ProgressFunc) error {
	var done int64
	buffer := make([]byte, copyBufferSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, readErr := src.Read(buffer)
		if n > 0 {
			if _, writeErr := dst.Write(buffer[:n]); writeErr != nil {
				return fmt.Errorf("failed to write output: %w", writeErr)
			}
			done += int64(n)
			if progress != nil {
				progress(done, total)
			}
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("stream read failed: %w", readErr)
		}
	}
}
