package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Router dispatches each spec to the extractor responsible for its host:
// YouTube URLs to the YouTube extractor, everything else to plain HTTP
type Router struct {
	youtube Extractor
	http    Extractor
}

// NewRouter creates a routing extractor over the given implementations
func NewRouter(youtube, http Extractor) *Router {
	return &Router{youtube: youtube, http: http}
}

// Extract routes the spec by URL host
func (r *Router) Extract(ctx context.Context, spec Spec) (string, error) {
	u, err := url.Parse(spec.URL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	if isYouTubeHost(u.Hostname()) {
		return r.youtube.Extract(ctx, spec)
	}
	return r.http.Extract(ctx, spec)
}

func isYouTubeHost(host string) bool {
	host = strings.ToLower(host)
	return host == "youtu.be" ||
		host == "youtube.com" ||
		strings.HasSuffix(host, ".youtube.com")
}
