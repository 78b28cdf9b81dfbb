package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ytget/ytdlp/v2"

	"github.com/ytget/dlqueue/internal/model"
)

// Timeout constants
const (
	DefaultExpandTimeout = 60 * time.Second
)

// URL parameters and separators
const (
	PlaylistParam  = "list="
	ParamSeparator = "&"
)

// URL templates
const (
	YouTubeVideoURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// PlaylistService expands YouTube playlist URLs into their individual
// videos using the ytdlp library
type PlaylistService struct {
	timeout time.Duration
}

// NewPlaylistService creates a new playlist service
func NewPlaylistService() *PlaylistService {
	return &PlaylistService{
		timeout: DefaultExpandTimeout,
	}
}

// SetTimeout sets the timeout for expansion operations
func (p *PlaylistService) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// Expand resolves a playlist URL into one entry per video
func (p *PlaylistService) Expand(ctx context.Context, url string) ([]model.PlaylistEntry, error) {
	if !p.isValidPlaylistURL(url) {
		return nil, fmt.Errorf("invalid playlist URL: %s", url)
	}

	playlistID := p.extractPlaylistID(url)
	if playlistID == "" {
		return nil, fmt.Errorf("could not extract playlist ID from URL: %s", url)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	d := ytdlp.New()
	items, err := d.GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	entries := make([]model.PlaylistEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, model.PlaylistEntry{
			URL:   fmt.Sprintf(YouTubeVideoURLTemplate, it.VideoID),
			Title: it.Title,
		})
	}
	return entries, nil
}

// isValidPlaylistURL checks if the URL is a valid YouTube playlist URL
func (p *PlaylistService) isValidPlaylistURL(url string) bool {
	return strings.Contains(url, PlaylistParam)
}

// extractPlaylistID extracts the playlist ID from various URL formats
func (p *PlaylistService) extractPlaylistID(url string) string {
	if strings.Contains(url, PlaylistParam) {
		parts := strings.Split(url, PlaylistParam)
		if len(parts) > 1 {
			playlistPart := parts[1]
			if strings.Contains(playlistPart, ParamSeparator) {
				playlistPart = strings.Split(playlistPart, ParamSeparator)[0]
			}
			return playlistPart
		}
	}
	return ""
}
