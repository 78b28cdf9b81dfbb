package model

// PlaylistEntry is one video discovered while expanding a playlist URL.
// The queue turns each entry into its own Item.
type PlaylistEntry struct {
	URL   string
	Title string
}
