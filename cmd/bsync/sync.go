package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/boardsync/boardsync/internal/engine"
	"github.com/boardsync/boardsync/internal/parse"
	"github.com/boardsync/boardsync/internal/store"
	"github.com/boardsync/boardsync/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Apply board edits into the store (text -> store)",
	Long: `Parse the boards, diff them against the store, and apply the changes
as a single transaction under the store lease:

  1. Insert tasks that only exist on the boards (with a first transition)
  2. Update changed tasks (appending a transition on status moves)
  3. Enrich notes one-way (an empty board note never erases a stored note)
  4. Leave store-only tasks untouched (sync never deletes)
  5. Persist both fingerprints on the sync-state singleton

If another invocation holds the lease, this aborts immediately reporting the
holder and expiry; rerun after the lease is released or expires.`,
	Run: func(cmd *cobra.Command, args []string) {
		ws, db := openWorkspace()
		defer db.Close()

		res, err := parse.ParseDir(ws.BoardsDir)
		if err != nil {
			fatal(err.Error(), "")
		}
		printAnomalies(res)

		owner := leaseOwner(ws.Config.Actor)
		err = runUnderLease(db, owner, func(ctx context.Context) error {
			eng := engine.New(db, engine.Config{
				Actor:    ws.Config.Actor,
				SubActor: ws.Config.SubActor,
			})

			start := time.Now()
			stats, err := eng.Apply(ctx, res.Tasks)
			if err != nil {
				return err
			}

			fmt.Printf("%s Sync complete in %v\n", ui.RenderPass("✓"),
				time.Since(start).Round(time.Millisecond))
			fmt.Printf("   Added: %d  Updated: %d  Notes: %d  Transitions: %d\n",
				stats.Added, stats.Updated, stats.NotesSet, stats.Transitions)
			if stats.Untouched > 0 {
				fmt.Printf("   Store-only tasks left untouched: %d\n", stats.Untouched)
			}
			fmt.Printf("   Fingerprint: %s\n", ui.RenderDim(stats.StoreFingerprint))
			return nil
		})
		if err != nil {
			fatalLease(err)
		}
	},
}

// runUnderLease brackets fn with lease acquisition and release.
//
// The lease is released on the way out on every path, including
// signal-driven termination: the signal cancels ctx, fn fails, and the
// release still runs (on a background context) recording the failure
// reason. An unclean kill leaves the lease to expire naturally.
func runUnderLease(db *store.DB, owner string, fn func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.AcquireLease(ctx, owner, time.Now()); err != nil {
		return err
	}

	runErr := fn(ctx)

	result := "ok"
	if runErr != nil {
		result = "failed: " + runErr.Error()
	}
	// Background context: the release must complete even after a signal.
	if err := db.ReleaseLease(context.Background(), owner, result, time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to release lease: %v\n", err)
	}

	return runErr
}

// fatalLease reports a failed lease-bracketed run, adding a wait hint
// when another invocation holds the lease.
func fatalLease(err error) {
	var held *store.LeaseHeldError
	if errors.As(err, &held) {
		fatal(err.Error(), "wait for the holder to finish or for the lease to expire, then rerun")
	}
	fatal(err.Error(), "")
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
