// Command bsync reconciles human-editable task boards (boards/*.md) with a
// queryable SQLite index (.boardsync/board.db).
//
// The boards are authoritative for the text->store direction; the store is
// authoritative for the store->text projection. A read-only check reports
// drift without mutating either side.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/boardsync/boardsync/internal/store"
	"github.com/boardsync/boardsync/internal/ui"
	"github.com/boardsync/boardsync/internal/workspace"
)

var version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "bsync",
	Short: "Sync task boards with a SQLite index",
	Long: `bsync keeps two representations of a task list reconciled:

  boards/*.md           human-editable markdown boards (authoritative)
  .boardsync/board.db   SQLite index for cross-project queries

Modes:
  bsync check    read-only drift report (exit 0 iff in sync)
  bsync sync     apply board edits into the store (takes the lease)
  bsync render   regenerate canonical boards from the store (takes the lease)`,
	Version: version,
}

// fatal prints a one-line diagnosis (and optional remediation hint) and
// exits non-zero.
func fatal(msg string, hint string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderFail("Error:"), msg)
	if hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	}
	os.Exit(1)
}

// openWorkspace locates the workspace and opens the store, exiting with a
// startup error before any lease attempt if either is missing.
func openWorkspace() (*workspace.Workspace, *store.DB) {
	ws, err := workspace.Find(".")
	if err != nil {
		fatal(err.Error(), "run 'bsync init' in your workspace root")
	}
	if err := ws.CheckReady(); err != nil {
		fatal(err.Error(), "run 'bsync init' to bootstrap the workspace")
	}

	db, err := store.Open(ws.DBPath)
	if err != nil {
		fatal(fmt.Sprintf("failed to open store: %v", err), "")
	}
	return ws, db
}

// leaseOwner identifies this invocation for lease acquisition.
func leaseOwner(actor string) string {
	return fmt.Sprintf("%s:%d", actor, os.Getpid())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
