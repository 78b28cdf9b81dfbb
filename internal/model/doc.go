package model

// Package model defines domain data structures used across the app: download
// items and their status and priority enums. Items are the persisted
// representation of a queued download with explicit state transitions.
