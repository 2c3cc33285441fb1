package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/boardsync/boardsync/internal/model"
	"github.com/boardsync/boardsync/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a summary of store state and sync metadata",
	Long: `Display per-project task counts by status, both fingerprints, the
lease holder (if any), and the outcome of the last sync.`,
	Run: func(cmd *cobra.Command, args []string) {
		_, db := openWorkspace()
		defer db.Close()

		ctx := context.Background()

		projects, err := db.ListProjects(ctx)
		if err != nil {
			fatal(err.Error(), "")
		}
		counts, err := db.StatusCounts(ctx)
		if err != nil {
			fatal(err.Error(), "")
		}
		state, err := db.GetSyncState(ctx)
		if err != nil {
			fatal(err.Error(), "run 'bsync init' to seed the sync state")
		}

		fmt.Printf("\n%s\n\n", ui.RenderHeader("Projects"))
		if len(projects) == 0 {
			fmt.Printf("   %s\n", ui.RenderDim("(none - run 'bsync sync' to import boards)"))
		}
		for _, p := range projects {
			total := 0
			for _, n := range counts[p.Slug] {
				total += n
			}
			fmt.Printf("   %s %s (%d tasks, %s)\n",
				ui.RenderAccent(p.Slug), p.Name, total, p.Status)
			for _, status := range model.SectionOrder {
				if n := counts[p.Slug][status]; n > 0 {
					fmt.Printf("      %-20s %d\n", status.Heading(), n)
				}
			}
		}

		fmt.Printf("\n%s\n\n", ui.RenderHeader("Sync state"))
		fmt.Printf("   Boards fingerprint: %s\n", fingerprintOrDash(state.FilesFingerprint))
		fmt.Printf("   Store fingerprint:  %s\n", fingerprintOrDash(state.StoreFingerprint))

		if state.LeaseHeld(time.Now()) {
			fmt.Printf("   Lease: %s held by %s until %s\n",
				ui.RenderWarn("●"), state.LeaseOwner,
				state.LeaseExpiry.UTC().Format(time.RFC3339))
		} else {
			fmt.Printf("   Lease: %s free\n", ui.RenderPass("○"))
		}

		if state.LastSyncAt != nil {
			fmt.Printf("   Last sync: %s (%s)\n",
				state.LastSyncAt.UTC().Format(time.RFC3339), state.LastResult)
		} else {
			fmt.Printf("   Last sync: %s\n", ui.RenderDim("never"))
		}
		fmt.Println()
	},
}

func fingerprintOrDash(fp string) string {
	if fp == "" {
		return ui.RenderDim("-")
	}
	return fp
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
