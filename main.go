package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ytget/dlqueue/internal/config"
	"github.com/ytget/dlqueue/internal/extract"
	"github.com/ytget/dlqueue/internal/model"
	"github.com/ytget/dlqueue/internal/platform"
	"github.com/ytget/dlqueue/internal/queue"
	"github.com/ytget/dlqueue/internal/store"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

func main() {
	fmt.Printf("dlqueue v%s starting...\n", version)

	// Optional .env next to the binary; absence is not an error
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to load .env: %v", err)
	}

	settings, urls, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to parse configuration: %v", err)
	}

	if err := platform.CreateDirectoryIfNotExists(settings.DownloadDir); err != nil {
		log.Fatalf("Failed to ensure downloads dir: %v", err)
	}

	st, err := openStore(settings)
	if err != nil {
		log.Fatalf("Failed to open state store: %v", err)
	}
	defer st.Close()

	router := extract.NewRouter(
		extract.NewYouTubeExtractor(),
		extract.NewHTTPExtractor(settings.MaxRetries, settings.StallTimeout),
	)

	q := queue.New(st, router, platform.NewPlaylistService(), queue.Config{
		MaxConcurrent: settings.MaxConcurrent,
		SaveInterval:  settings.SaveInterval,
		DownloadDir:   settings.DownloadDir,
	})

	ctx := context.Background()
	if err := q.Start(ctx); err != nil {
		log.Fatalf("Failed to start queue: %v", err)
	}

	updates := q.Subscribe()
	enqueue(ctx, q, settings, urls)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-sig:
			fmt.Println("Shutting down...")
			q.Stop()
			return
		case <-updates:
			renderStatus(q)
			// With URLs on the command line, exit once nothing is left to run.
			// Without them, keep serving the recovered queue until interrupted.
			if len(urls) > 0 && settled(q) {
				q.Stop()
				return
			}
		}
	}
}

func enqueue(ctx context.Context, q *queue.Queue, settings *config.Settings, urls []string) {
	priority, err := model.ParsePriority(settings.Priority)
	if err != nil {
		priority = model.PriorityNormal
	}
	opts := queue.AddOptions{
		Priority:  priority,
		Format:    settings.Format,
		Quality:   settings.Quality,
		Subtitles: settings.Subtitles,
		Force:     settings.Force,
		RateLimit: settings.RateLimit,
	}

	for _, url := range urls {
		if settings.Playlist {
			items, err := q.AddPlaylist(ctx, url, opts)
			if err != nil {
				log.Printf("Failed to expand playlist %s: %v", url, err)
				continue
			}
			log.Printf("Queued %d items from playlist %s", len(items), url)
			continue
		}

		item, err := q.Add(url, opts)
		if err != nil {
			log.Printf("Failed to queue %s: %v", url, err)
			continue
		}
		log.Printf("Queued %s (%s)", item.DisplayName(), item.ID)
	}
}

func openStore(settings *config.Settings) (store.Store, error) {
	if settings.StateBackend == config.BackendSQLite {
		return store.OpenSQLiteStore(settings.StatePath)
	}
	return store.NewFileStore(settings.StatePath), nil
}

// settled reports whether no item is running or waiting to run
func settled(q *queue.Queue) bool {
	counts := q.CountsByStatus()
	return counts[model.StatusDownloading] == 0 && counts[model.StatusQueued] == 0
}

func renderStatus(q *queue.Queue) {
	counts := q.CountsByStatus()
	fmt.Printf("queued=%d downloading=%d paused=%d completed=%d failed=%d canceled=%d\n",
		counts[model.StatusQueued],
		counts[model.StatusDownloading],
		counts[model.StatusPaused],
		counts[model.StatusCompleted],
		counts[model.StatusFailed],
		counts[model.StatusCanceled])

	for _, item := range q.List() {
		if item.Status != model.StatusDownloading {
			continue
		}
		fmt.Printf("  %s %.1f%% (%s/s)\n", item.DisplayName(), item.Progress, formatBytes(item.Speed))
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
