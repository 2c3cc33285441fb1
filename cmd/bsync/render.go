package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/boardsync/boardsync/internal/engine"
	"github.com/boardsync/boardsync/internal/parse"
	"github.com/boardsync/boardsync/internal/registry"
	"github.com/boardsync/boardsync/internal/ui"
)

var renderForce bool

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Regenerate canonical boards from the store (store -> text)",
	Long: `Rewrite every project's board file from the current store snapshot.

Boards come out in canonical form: all five status sections in fixed order
(In Progress, Pending Validation, Blocked, Backlog, Done), tasks ordered by
priority then id, checkboxes derived from status. The free-form preamble
before the first section heading is preserved.

This direction is store-authoritative and overwrites the boards
unconditionally. Unsynced board edits would be silently lost, so render
refuses to run while the boards have drifted ahead - run 'bsync sync' first
or pass --force.`,
	Run: func(cmd *cobra.Command, args []string) {
		ws, db := openWorkspace()
		defer db.Close()

		ctx := context.Background()

		// Refresh project metadata from the registry before projecting,
		// so corrected names and descriptions reach the boards.
		projects, err := registry.Load(ws.RegistryPath())
		if err != nil {
			fatal(err.Error(), "fix the registry file or remove the offending entry")
		}
		for _, p := range projects {
			if err := db.UpsertProject(ctx, p); err != nil {
				fatal(err.Error(), "")
			}
		}

		eng := engine.New(db, engine.Config{Actor: ws.Config.Actor})

		if !renderForce {
			if err := checkBoardsClean(ctx, eng, ws.BoardsDir); err != nil {
				fatal(err.Error(), "run 'bsync sync' first, or pass --force to discard the edits")
			}
		}

		owner := leaseOwner(ws.Config.Actor)
		err = runUnderLease(db, owner, func(ctx context.Context) error {
			start := time.Now()
			stats, err := eng.Render(ctx, ws.BoardsDir)
			if err != nil {
				return err
			}
			fmt.Printf("%s Render complete in %v\n", ui.RenderPass("✓"),
				time.Since(start).Round(time.Millisecond))
			fmt.Printf("   Boards: %d  Tasks: %d\n", stats.Boards, stats.Tasks)
			return nil
		})
		if err != nil {
			fatalLease(err)
		}
	},
}

// checkBoardsClean refuses the overwrite while the boards carry edits a
// render would silently discard. Boards that fail to parse cannot be
// verified, so a parse failure blocks the render too.
func checkBoardsClean(ctx context.Context, eng *engine.Engine, boardsDir string) error {
	res, err := parse.ParseDir(boardsDir)
	if err != nil {
		return fmt.Errorf("cannot verify boards before overwriting: %w", err)
	}
	report, err := eng.Check(ctx, res.Tasks)
	if err != nil {
		return fmt.Errorf("pre-render drift check failed: %w", err)
	}
	if len(report.Diff.Added) > 0 || len(report.Diff.Changed) > 0 {
		return errors.New("boards have unsynced edits that render would overwrite")
	}
	return nil
}

func init() {
	renderCmd.Flags().BoolVar(&renderForce, "force", false,
		"overwrite boards even if they carry unsynced edits")
	rootCmd.AddCommand(renderCmd)
}
