package store

// Package store persists the download queue across restarts. Two backends
// implement the same Store contract: a JSON snapshot file written atomically
// into the data directory, and a SQLite database (modernc.org/sqlite). Both
// treat a missing or corrupt prior state as "no prior state", never as a
// fatal error, and coerce Downloading items back to Queued on load.
