// Package engine implements the three sync directions between board files
// and the SQLite store: Apply (text -> store), Render (store -> text), and
// Check (read-only drift detection).
//
// Apply and Render are the mutating directions and must be bracketed by the
// store lease; Check never locks and is safe to run concurrently with
// anything, including itself.
package engine

import (
	"log"
	"os"
	"time"

	"github.com/boardsync/boardsync/internal/store"
)

// Config holds engine configuration.
type Config struct {
	// Actor is recorded on every transition this engine appends.
	Actor string

	// SubActor is an optional finer-grained attribution tag.
	SubActor string

	// Logger for engine activity. Defaults to stderr if nil.
	Logger *log.Logger

	// Now overrides the clock, for deterministic tests. Defaults to
	// time.Now.
	Now func() time.Time
}

// Engine reconciles board files with the store.
type Engine struct {
	db       *store.DB
	actor    string
	subActor string
	logger   *log.Logger
	now      func() time.Time
}

// DefaultActor is recorded on transitions when no actor is configured.
const DefaultActor = "sync"

// New creates an Engine. The database must be open with the schema
// initialized before passing it here.
func New(db *store.DB, cfg Config) *Engine {
	if cfg.Actor == "" {
		cfg.Actor = DefaultActor
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		db:       db,
		actor:    cfg.Actor,
		subActor: cfg.SubActor,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
}
