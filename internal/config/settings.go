package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ytget/dlqueue/internal/model"
	"github.com/ytget/dlqueue/internal/platform"
	"github.com/ytget/dlqueue/internal/policy"
)

// Persistence backends
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Environment variable names. Flags override environment values.
const (
	EnvDownloadDir   = "DLQUEUE_DOWNLOAD_DIR"
	EnvMaxConcurrent = "DLQUEUE_MAX_CONCURRENT"
	EnvStateBackend  = "DLQUEUE_STATE_BACKEND"
	EnvStatePath     = "DLQUEUE_STATE_PATH"
	EnvSaveInterval  = "DLQUEUE_SAVE_INTERVAL"
	EnvStallTimeout  = "DLQUEUE_STALL_TIMEOUT"
	EnvMaxRetries    = "DLQUEUE_MAX_RETRIES"
	EnvRateLimit     = "DLQUEUE_RATE_LIMIT"
)

// Default values
const (
	DefaultMaxConcurrent = 2
	DefaultSaveInterval  = 60 * time.Second
	DefaultStateFileJSON = "queue.json"
	DefaultStateFileDB   = "queue.db"
	DefaultPriority      = "normal"
)

// Settings holds the resolved application configuration
type Settings struct {
	DownloadDir   string
	MaxConcurrent int
	StateBackend  string // "json" or "sqlite"
	StatePath     string
	SaveInterval  time.Duration
	StallTimeout  time.Duration
	MaxRetries    int
	RateLimit     int64 // bytes/sec applied to new items, 0 = unlimited

	// Request options applied to URLs enqueued in this invocation
	Priority  string
	Playlist  bool
	Format    string
	Quality   string
	Subtitles bool
	Force     bool
}

// Parse reads settings from environment variables and command-line flags
// (flags take precedence), then fills in platform defaults. The returned
// slice holds the remaining positional arguments (URLs to enqueue).
func Parse(args []string) (*Settings, []string, error) {
	fs := flag.NewFlagSet("dlqueue", flag.ContinueOnError)
	return parseWithFlagSet(fs, args)
}

// parseWithFlagSet is an internal helper for testing with isolated flag sets
func parseWithFlagSet(fs *flag.FlagSet, args []string) (*Settings, []string, error) {
	s := &Settings{
		MaxConcurrent: DefaultMaxConcurrent,
		StateBackend:  BackendJSON,
		SaveInterval:  DefaultSaveInterval,
		StallTimeout:  policy.DefaultStallThreshold,
		MaxRetries:    policy.DefaultMaxRetries,
		Priority:      DefaultPriority,
	}

	// Environment first
	if dir := os.Getenv(EnvDownloadDir); dir != "" {
		s.DownloadDir = dir
	}
	if v := os.Getenv(EnvMaxConcurrent); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.MaxConcurrent = n
		}
	}
	if backend := os.Getenv(EnvStateBackend); backend != "" {
		s.StateBackend = backend
	}
	if path := os.Getenv(EnvStatePath); path != "" {
		s.StatePath = path
	}
	if v := os.Getenv(EnvSaveInterval); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			s.SaveInterval = d
		}
	}
	if v := os.Getenv(EnvStallTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			s.StallTimeout = d
		}
	}
	if v := os.Getenv(EnvMaxRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.MaxRetries = n
		}
	}
	if v := os.Getenv(EnvRateLimit); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.RateLimit = n
		}
	}

	// Flags override environment
	fs.StringVar(&s.DownloadDir, "dir", s.DownloadDir, "download directory")
	fs.IntVar(&s.MaxConcurrent, "concurrent", s.MaxConcurrent, "max parallel downloads (1-10)")
	fs.StringVar(&s.StateBackend, "state-backend", s.StateBackend, "queue state backend (json, sqlite)")
	fs.StringVar(&s.StatePath, "state-path", s.StatePath, "queue state file path")
	fs.DurationVar(&s.SaveInterval, "save-interval", s.SaveInterval, "periodic snapshot interval")
	fs.DurationVar(&s.StallTimeout, "stall-timeout", s.StallTimeout, "abort a download attempt after this much inactivity")
	fs.IntVar(&s.MaxRetries, "retries", s.MaxRetries, "max retry attempts per download")
	fs.Int64Var(&s.RateLimit, "rate-limit", s.RateLimit, "per-download bandwidth limit in bytes/sec (0 = unlimited)")
	fs.StringVar(&s.Priority, "priority", s.Priority, "priority for enqueued URLs (low, normal, high, critical)")
	fs.BoolVar(&s.Playlist, "playlist", s.Playlist, "expand playlist URLs into individual items")
	fs.StringVar(&s.Format, "format", s.Format, "preferred container/codec selector")
	fs.StringVar(&s.Quality, "quality", s.Quality, "preferred quality label (e.g. 720p, best, audio)")
	fs.BoolVar(&s.Subtitles, "subs", s.Subtitles, "request subtitles where available")
	fs.BoolVar(&s.Force, "force", s.Force, "re-download even when the output file exists")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	if err := s.fillDefaults(); err != nil {
		return nil, nil, err
	}
	return s, fs.Args(), s.validate()
}

// fillDefaults resolves unset paths against platform conventions
func (s *Settings) fillDefaults() error {
	if s.DownloadDir == "" {
		dir, err := platform.GetHomeDownloadsDir()
		if err != nil {
			return fmt.Errorf("failed to resolve downloads directory: %w", err)
		}
		s.DownloadDir = dir
	}

	if s.StatePath == "" {
		dataDir, err := platform.GetDataDir()
		if err != nil {
			return fmt.Errorf("failed to resolve data directory: %w", err)
		}
		name := DefaultStateFileJSON
		if s.StateBackend == BackendSQLite {
			name = DefaultStateFileDB
		}
		s.StatePath = filepath.Join(dataDir, name)
	}

	if s.MaxConcurrent < 1 {
		s.MaxConcurrent = 1
	}
	if s.MaxConcurrent > 10 {
		s.MaxConcurrent = 10
	}

	return nil
}

func (s *Settings) validate() error {
	if s.StateBackend != BackendJSON && s.StateBackend != BackendSQLite {
		return fmt.Errorf("unknown state backend: %q", s.StateBackend)
	}
	if _, err := model.ParsePriority(s.Priority); err != nil {
		return err
	}
	return nil
}
