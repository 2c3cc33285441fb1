// Package watch provides the board watcher that runs drift checks (and
// optionally applies) as boards are edited.
//
// The watcher:
//  1. Watches the boards directory for changes
//  2. Debounces rapid edits together
//  3. Runs a read-only drift check per batch
//  4. Optionally applies text->store under the lease
//  5. Handles graceful shutdown
package watch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/boardsync/boardsync/internal/engine"
	"github.com/boardsync/boardsync/internal/parse"
	"github.com/boardsync/boardsync/internal/store"
)

// Config holds watcher configuration.
type Config struct {
	// DebounceInterval is how long to wait before processing board edits,
	// batching rapid saves together.
	DebounceInterval time.Duration

	// AutoApply applies text->store (under the lease) after a check that
	// reports drift, instead of only reporting it.
	AutoApply bool

	// Owner identifies this watcher for lease acquisition in AutoApply
	// mode.
	Owner string

	// Notify, if non-nil, receives an event after every completed check
	// or apply. Used by the dashboard bridge.
	Notify func(Event)

	// Logger for watcher activity.
	Logger *log.Logger
}

// Event describes one completed watch cycle.
type Event struct {
	At      time.Time
	InSync  bool
	Added   int
	Removed int
	Changed int
	Applied bool
	Err     error
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 250 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[watch] ", log.LstdFlags),
	}
}

// Watcher observes the boards directory and reconciles on change.
type Watcher struct {
	db        *store.DB
	eng       *engine.Engine
	boardsDir string
	config    *Config

	fsw     *fsnotify.Watcher
	pending map[string]time.Time
	mu      sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Watcher. The database must be open with its schema
// initialized before passing it here.
func New(db *store.DB, eng *engine.Engine, boardsDir string, config *Config) (*Watcher, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if boardsDir == "" {
		return nil, fmt.Errorf("boardsDir cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[watch] ", log.LstdFlags)
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 250 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		db:        db,
		eng:       eng,
		boardsDir: boardsDir,
		config:    config,
		fsw:       fsw,
		pending:   make(map[string]time.Time),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start begins watching. Runs one initial check, then blocks until ctx is
// cancelled or an error occurs.
func (w *Watcher) Start(ctx context.Context) error {
	w.config.Logger.Println("Starting watcher")

	w.runCycle()

	if err := w.fsw.Add(w.boardsDir); err != nil {
		return fmt.Errorf("failed to watch boards directory: %w", err)
	}
	w.config.Logger.Printf("Watching: %s", w.boardsDir)

	w.wg.Add(2)
	go w.watchEvents()
	go w.processPending()

	select {
	case <-ctx.Done():
		w.config.Logger.Println("Shutdown signal received")
		return w.Stop()
	case <-w.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts the watcher down.
func (w *Watcher) Stop() error {
	w.config.Logger.Println("Stopping watcher")
	w.cancel()
	if err := w.fsw.Close(); err != nil {
		w.config.Logger.Printf("Error closing watcher: %v", err)
	}
	w.wg.Wait()
	w.config.Logger.Println("Watcher stopped")
	return nil
}

func (w *Watcher) watchEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".md" {
				continue
			}
			// Skip the projector's temp files.
			if strings.HasSuffix(event.Name, ".tmp") {
				continue
			}
			w.config.Logger.Printf("Board event: %s %s", event.Op, event.Name)
			w.mu.Lock()
			w.pending[event.Name] = time.Now()
			w.mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) processPending() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if w.drainPending() {
				w.runCycle()
			}
		}
	}
}

// drainPending reports whether any queued edit has settled for a full
// debounce interval, clearing those that have.
func (w *Watcher) drainPending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	ready := false
	for path, queuedAt := range w.pending {
		if now.Sub(queuedAt) < w.config.DebounceInterval {
			continue
		}
		delete(w.pending, path)
		ready = true
	}
	return ready
}

// runCycle parses the boards and checks (or applies) once.
func (w *Watcher) runCycle() {
	ev := Event{At: time.Now()}
	defer func() {
		if w.config.Notify != nil {
			w.config.Notify(ev)
		}
	}()

	res, err := parse.ParseDir(w.boardsDir)
	if err != nil {
		ev.Err = err
		w.config.Logger.Printf("Parse failed: %v", err)
		return
	}
	for _, a := range res.Anomalies {
		w.config.Logger.Printf("Warning: skipped %s", a)
	}

	report, err := w.eng.Check(w.ctx, res.Tasks)
	if err != nil {
		ev.Err = err
		w.config.Logger.Printf("Check failed: %v", err)
		return
	}

	ev.InSync = report.InSync()
	ev.Added = len(report.Diff.Added)
	ev.Removed = len(report.Diff.Removed)
	ev.Changed = len(report.Diff.Changed)

	if report.InSync() {
		w.config.Logger.Println("Boards in sync")
		return
	}

	w.config.Logger.Printf("Drift: added=%d removed=%d changed=%d",
		ev.Added, ev.Removed, ev.Changed)

	if !w.config.AutoApply {
		return
	}

	if err := w.apply(res); err != nil {
		ev.Err = err
		var held *store.LeaseHeldError
		if errors.As(err, &held) {
			w.config.Logger.Printf("Skipping apply: %v", held)
			return
		}
		w.config.Logger.Printf("Apply failed: %v", err)
		return
	}
	ev.Applied = true
}

func (w *Watcher) apply(res *parse.Result) error {
	now := time.Now()
	if err := w.db.AcquireLease(w.ctx, w.config.Owner, now); err != nil {
		return err
	}

	_, applyErr := w.eng.Apply(w.ctx, res.Tasks)

	result := "ok"
	if applyErr != nil {
		result = "failed: " + applyErr.Error()
	}
	w.releaseLease(result)

	return applyErr
}

// releaseLease releases on a background context: a shutdown that cancels
// the watcher mid-cycle must not leave the lease held until TTL expiry.
func (w *Watcher) releaseLease(result string) {
	if err := w.db.ReleaseLease(context.Background(), w.config.Owner, result, time.Now()); err != nil {
		w.config.Logger.Printf("Warning: failed to release lease: %v", err)
	}
}
