package queue

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ytget/dlqueue/internal/extract"
	"github.com/ytget/dlqueue/internal/model"
	"github.com/ytget/dlqueue/internal/store"
)

// Queue tuning defaults
const (
	DefaultMaxConcurrent = 2
	DefaultSaveInterval  = 60 * time.Second

	dispatchTick    = 500 * time.Millisecond
	commandBacklog  = 256
	maxConcurrentHi = 10
)

// Config holds queue construction settings
type Config struct {
	MaxConcurrent int           // simultaneous downloads, clamped to 1..10
	SaveInterval  time.Duration // periodic snapshot interval
	DownloadDir   string        // default output directory
}

// PlaylistExpander resolves a playlist URL into its individual videos
type PlaylistExpander interface {
	Expand(ctx context.Context, url string) ([]model.PlaylistEntry, error)
}

// AddOptions carries the optional request fields of a new download
type AddOptions struct {
	Priority  model.Priority
	Format    string
	Quality   string
	ClipStart time.Duration
	ClipEnd   time.Duration
	Subtitles bool
	OutputDir string
	Force     bool
	RateLimit int64
	Title     string // pre-resolved display title, if known
	Playlist  bool   // item originated from playlist expansion
}

// Queue is the download queue core. All mutations go through a single
// buffered command channel consumed by one run loop, which is the sole
// writer of the item map and pending sequence. Reads take a coarse read
// lock and may race with in-flight commands at sub-command granularity.
type Queue struct {
	mu            sync.RWMutex
	items         map[string]*model.Item
	pending       []string                      // ids awaiting a slot, admission order
	active        map[string]context.CancelFunc // running downloads, cancel handles
	maxConcurrent int

	commands chan command
	wake     chan struct{} // dispatch trigger from finished workers

	subsMu sync.Mutex
	subs   []chan struct{}

	store     store.Store
	extractor extract.Extractor
	expander  PlaylistExpander
	cfg       Config

	runCtx    context.Context
	runCancel context.CancelFunc
	loopDone  sync.WaitGroup
	workers   sync.WaitGroup
	closed    atomic.Bool
	started   atomic.Bool
}

// New creates a queue over the given store and extractor. The expander may
// be nil, in which case AddPlaylist returns an error.
func New(st store.Store, ex extract.Extractor, expander PlaylistExpander, cfg Config) *Queue {
	if cfg.MaxConcurrent == 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	cfg.MaxConcurrent = clampConcurrency(cfg.MaxConcurrent)
	if cfg.SaveInterval <= 0 {
		cfg.SaveInterval = DefaultSaveInterval
	}

	return &Queue{
		items:         make(map[string]*model.Item),
		active:        make(map[string]context.CancelFunc),
		maxConcurrent: cfg.MaxConcurrent,
		commands:      make(chan command, commandBacklog),
		wake:          make(chan struct{}, 1),
		store:         st,
		extractor:     ex,
		expander:      expander,
		cfg:           cfg,
	}
}

// Start restores the persisted snapshot and launches the command loop.
// It must be called exactly once before any commands are submitted.
func (q *Queue) Start(ctx context.Context) error {
	if !q.started.CompareAndSwap(false, true) {
		return fmt.Errorf("queue already started")
	}

	q.restore()

	q.runCtx, q.runCancel = context.WithCancel(ctx)
	q.loopDone.Add(1)
	go q.run()

	return nil
}

// Stop aborts running downloads, drains the workers, writes a final
// snapshot and shuts the command loop down
func (q *Queue) Stop() {
	if !q.started.Load() || !q.closed.CompareAndSwap(false, true) {
		return
	}
	q.runCancel()
	q.loopDone.Wait()
}

// restore merges the persisted snapshot into the empty queue: every item
// goes into the map, Queued ones into the pending sequence per the
// head/tail rule, evaluated in the snapshot's stored order
func (q *Queue) restore() {
	items, err := q.store.Load()
	if err != nil {
		log.Printf("queue: failed to load snapshot, starting empty: %v", err)
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, it := range items {
		q.items[it.ID] = it
		if it.Status == model.StatusQueued {
			q.insertPending(it.ID, it.Priority)
		}
	}

	if len(items) > 0 {
		log.Printf("queue: restored %d items, %d pending", len(items), len(q.pending))
	}
}

// run is the single command-processing loop: the sole writer of pending
// and the item map. It multiplexes commands, worker wake-ups, the dispatch
// tick and the periodic save.
func (q *Queue) run() {
	defer q.loopDone.Done()

	dispatch := time.NewTicker(dispatchTick)
	defer dispatch.Stop()
	save := time.NewTicker(q.cfg.SaveInterval)
	defer save.Stop()

	q.dispatch()

	for {
		select {
		case <-q.runCtx.Done():
			q.shutdown()
			return
		case cmd := <-q.commands:
			q.apply(cmd)
			q.dispatch()
		case <-q.wake:
			q.dispatch()
		case <-dispatch.C:
			q.dispatch()
		case <-save.C:
			q.persist()
		}
	}
}

// shutdown aborts every running download, waits for workers to unwind,
// applies any commands still buffered at exit and writes the final
// snapshot. Items still marked Downloading in it are coerced back to
// Queued on the next load.
func (q *Queue) shutdown() {
	q.closed.Store(true)

	q.mu.Lock()
	for id, cancel := range q.active {
		cancel()
		delete(q.active, id)
	}
	q.mu.Unlock()

	q.workers.Wait()
	q.drainCommands()
	q.persist()
}

// drainCommands applies commands accepted before close but not yet
// consumed by the loop, so a successful submit is never silently dropped
func (q *Queue) drainCommands() {
	for {
		select {
		case cmd := <-q.commands:
			q.apply(cmd)
		default:
			return
		}
	}
}

// submit hands a command to the run loop, failing fast when the queue is
// closed or the channel is full
func (q *Queue) submit(cmd command) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	select {
	case q.commands <- cmd:
	default:
		return ErrQueueBusy
	}
	// Stop may have won the race between the check above and the send.
	// Shutdown drains the channel, so a buffered command is still applied,
	// but a send landing after that drain would be lost; report it closed.
	if q.closed.Load() {
		return ErrQueueClosed
	}
	return nil
}

// Add enqueues a new download and returns its item snapshot. The command
// is accepted immediately; admission happens on the next dispatch pass.
func (q *Queue) Add(url string, opts AddOptions) (*model.Item, error) {
	item := model.NewItem(url, opts.Priority)
	item.Format = opts.Format
	item.Quality = opts.Quality
	item.ClipStart = opts.ClipStart
	item.ClipEnd = opts.ClipEnd
	item.Subtitles = opts.Subtitles
	item.OutputDir = opts.OutputDir
	item.Force = opts.Force
	item.RateLimit = opts.RateLimit
	item.Title = opts.Title
	item.Playlist = opts.Playlist

	if err := q.submit(command{kind: cmdAdd, item: item}); err != nil {
		return nil, err
	}
	return item.Clone(), nil
}

// AddPlaylist expands a playlist URL and enqueues one item per video
func (q *Queue) AddPlaylist(ctx context.Context, url string, opts AddOptions) ([]*model.Item, error) {
	if q.expander == nil {
		return nil, fmt.Errorf("no playlist expander configured")
	}

	entries, err := q.expander.Expand(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to expand playlist: %w", err)
	}

	items := make([]*model.Item, 0, len(entries))
	for _, entry := range entries {
		entryOpts := opts
		entryOpts.Title = entry.Title
		entryOpts.Playlist = true
		item, err := q.Add(entry.URL, entryOpts)
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Pause pauses a queued or downloading item
func (q *Queue) Pause(id string) error {
	return q.submit(command{kind: cmdPause, id: id})
}

// Resume re-queues a paused item per the head/tail priority rule
func (q *Queue) Resume(id string) error {
	return q.submit(command{kind: cmdResume, id: id})
}

// Cancel terminally cancels an item from any non-terminal status
func (q *Queue) Cancel(id string) error {
	return q.submit(command{kind: cmdCancel, id: id})
}

// PauseAll pauses every queued and downloading item
func (q *Queue) PauseAll() error {
	return q.submit(command{kind: cmdPauseAll})
}

// ResumeAll re-queues every paused item
func (q *Queue) ResumeAll() error {
	return q.submit(command{kind: cmdResumeAll})
}

// SetPriority changes an item's priority, repositioning it in the pending
// sequence if it is currently awaiting a slot
func (q *Queue) SetPriority(id string, priority model.Priority) error {
	return q.submit(command{kind: cmdSetPriority, id: id, priority: priority})
}

// SetMaxConcurrent changes the concurrency bound. Raising it frees slots
// immediately; lowering it never pre-empts running downloads.
func (q *Queue) SetMaxConcurrent(limit int) error {
	return q.submit(command{kind: cmdSetMaxConcurrent, limit: limit})
}

// RemoveCompleted deletes every Completed item
func (q *Queue) RemoveCompleted() error {
	return q.submit(command{kind: cmdRemoveCompleted})
}

// ClearFailed deletes every Failed item
func (q *Queue) ClearFailed() error {
	return q.submit(command{kind: cmdClearFailed})
}

// Save requests a snapshot outside the periodic schedule
func (q *Queue) Save() error {
	return q.submit(command{kind: cmdSave})
}

// apply executes one command against the shared state
func (q *Queue) apply(cmd command) {
	switch cmd.kind {
	case cmdAdd:
		q.applyAdd(cmd.item)
	case cmdPause:
		q.applyPause(cmd.id)
	case cmdResume:
		q.applyResume(cmd.id)
	case cmdCancel:
		q.applyCancel(cmd.id)
	case cmdPauseAll:
		q.applyPauseAll()
	case cmdResumeAll:
		q.applyResumeAll()
	case cmdSetPriority:
		q.applySetPriority(cmd.id, cmd.priority)
	case cmdSetMaxConcurrent:
		q.applySetMaxConcurrent(cmd.limit)
	case cmdRemoveCompleted:
		q.applyRemove(model.StatusCompleted)
	case cmdClearFailed:
		q.applyRemove(model.StatusFailed)
	case cmdSave:
		q.persist()
	}
}

func (q *Queue) applyAdd(item *model.Item) {
	q.mu.Lock()
	q.items[item.ID] = item
	q.insertPending(item.ID, item.Priority)
	q.mu.Unlock()

	q.notify()
}

func (q *Queue) applyPause(id string) {
	q.mu.Lock()
	item, ok := q.items[id]
	if !ok {
		q.mu.Unlock()
		log.Printf("queue: pause: item not found: %s", id)
		return
	}

	switch item.Status {
	case model.StatusDownloading:
		if cancel, running := q.active[id]; running {
			cancel()
			delete(q.active, id)
		}
		item.Status = model.StatusPaused
	case model.StatusQueued:
		q.removePending(id)
		item.Status = model.StatusPaused
	default:
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()

	q.notify()
}

func (q *Queue) applyResume(id string) {
	q.mu.Lock()
	item, ok := q.items[id]
	if !ok {
		q.mu.Unlock()
		log.Printf("queue: resume: item not found: %s", id)
		return
	}
	if item.Status != model.StatusPaused {
		q.mu.Unlock()
		return
	}

	item.Status = model.StatusQueued
	q.insertPending(id, item.Priority)
	q.mu.Unlock()

	q.notify()
}

func (q *Queue) applyCancel(id string) {
	q.mu.Lock()
	item, ok := q.items[id]
	if !ok {
		q.mu.Unlock()
		log.Printf("queue: cancel: item not found: %s", id)
		return
	}
	if item.Status.IsTerminal() {
		q.mu.Unlock()
		return
	}

	if cancel, running := q.active[id]; running {
		cancel()
		delete(q.active, id)
	}
	q.removePending(id)
	item.MarkTerminal(model.StatusCanceled, time.Now())
	q.mu.Unlock()

	q.notify()
}

func (q *Queue) applyPauseAll() {
	q.mu.Lock()
	for id, item := range q.items {
		switch item.Status {
		case model.StatusDownloading:
			if cancel, running := q.active[id]; running {
				cancel()
				delete(q.active, id)
			}
			item.Status = model.StatusPaused
		case model.StatusQueued:
			item.Status = model.StatusPaused
		}
	}
	q.pending = q.pending[:0]
	q.mu.Unlock()

	q.notify()
}

func (q *Queue) applyResumeAll() {
	q.mu.Lock()
	for id, item := range q.items {
		if item.Status != model.StatusPaused {
			continue
		}
		item.Status = model.StatusQueued
		q.insertPending(id, item.Priority)
	}
	q.mu.Unlock()

	q.notify()
}

func (q *Queue) applySetPriority(id string, priority model.Priority) {
	q.mu.Lock()
	item, ok := q.items[id]
	if !ok {
		q.mu.Unlock()
		log.Printf("queue: set priority: item not found: %s", id)
		return
	}

	item.Priority = priority
	if item.Status == model.StatusQueued && q.removePending(id) {
		q.insertPending(id, priority)
	}
	q.mu.Unlock()

	q.notify()
}

func (q *Queue) applySetMaxConcurrent(limit int) {
	q.mu.Lock()
	q.maxConcurrent = clampConcurrency(limit)
	q.mu.Unlock()

	q.notify()
}

func (q *Queue) applyRemove(status model.ItemStatus) {
	q.mu.Lock()
	removed := 0
	for id, item := range q.items {
		if item.Status == status {
			delete(q.items, id)
			removed++
		}
	}
	q.mu.Unlock()

	if removed > 0 {
		q.notify()
	}
}

// dispatch promotes pending items to running downloads while slots are
// free. The front id is popped first and pushed back when no capacity is
// available, so nothing is ever dropped.
func (q *Queue) dispatch() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}

		id := q.pending[0]
		q.pending = q.pending[1:]

		item, ok := q.items[id]
		if !ok || item.Status != model.StatusQueued {
			// Stale entry, skip it
			q.mu.Unlock()
			continue
		}

		if len(q.active) >= q.maxConcurrent {
			q.pending = append([]string{id}, q.pending...)
			q.mu.Unlock()
			return
		}

		item.MarkStarted(time.Now())
		itemCtx, cancel := context.WithCancel(q.runCtx)
		q.active[id] = cancel
		snapshot := item.Clone()
		q.mu.Unlock()

		q.workers.Add(1)
		go q.runItem(itemCtx, snapshot)

		q.notify()
	}
}

// insertPending applies the two-class head/tail rule: High and Critical
// items jump ahead of everything pending, the rest append in FIFO order
func (q *Queue) insertPending(id string, priority model.Priority) {
	if priority.Elevated() {
		q.pending = append([]string{id}, q.pending...)
	} else {
		q.pending = append(q.pending, id)
	}
}

// removePending deletes id from the pending sequence, reporting whether
// it was present
func (q *Queue) removePending(id string) bool {
	for i, pid := range q.pending {
		if pid == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return true
		}
	}
	return false
}

// persist writes the current item set through the store. Failures are
// logged and never disturb in-memory state.
func (q *Queue) persist() {
	q.mu.RLock()
	items := make([]*model.Item, 0, len(q.items))
	for _, item := range q.items {
		items = append(items, item.Clone())
	}
	q.mu.RUnlock()

	if err := q.store.Save(items); err != nil {
		log.Printf("queue: failed to save snapshot: %v", err)
	}
}

// Get returns a snapshot of one item
func (q *Queue) Get(id string) (*model.Item, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	item, ok := q.items[id]
	if !ok {
		return nil, false
	}
	return item.Clone(), true
}

// List returns snapshots of all items ordered by arrival
func (q *Queue) List() []*model.Item {
	q.mu.RLock()
	items := make([]*model.Item, 0, len(q.items))
	for _, item := range q.items {
		items = append(items, item.Clone())
	}
	q.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		return items[i].AddedAt.Before(items[j].AddedAt)
	})
	return items
}

// CountsByStatus returns how many items sit in each status
func (q *Queue) CountsByStatus() map[model.ItemStatus]int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	counts := make(map[model.ItemStatus]int)
	for _, item := range q.items {
		counts[item.Status]++
	}
	return counts
}

// Subscribe returns a level-triggered change signal. The channel is
// buffered and notifications coalesce; listeners re-query state on every
// tick rather than expecting a delta.
func (q *Queue) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	q.subsMu.Lock()
	q.subs = append(q.subs, ch)
	q.subsMu.Unlock()
	return ch
}

// notify fires the change signal to every subscriber without blocking
func (q *Queue) notify() {
	q.subsMu.Lock()
	defer q.subsMu.Unlock()

	for _, ch := range q.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// wakeDispatch nudges the run loop after a worker finishes so the freed
// slot is reused without waiting for the next tick
func (q *Queue) wakeDispatch() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func clampConcurrency(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxConcurrentHi {
		return maxConcurrentHi
	}
	return n
}
