package platform

// Package platform contains OS/platform integration and external service
// glue: filesystem helpers, data directory resolution, and playlist
// expansion via the ytdlp library.
