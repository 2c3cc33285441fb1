package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boardsync/boardsync/internal/engine"
	"github.com/boardsync/boardsync/internal/parse"
	"github.com/boardsync/boardsync/internal/ui"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report drift between boards and store (read-only)",
	Long: `Compare the parsed boards against the store and report every added,
removed, and changed task id, plus both fingerprints.

This never mutates either side and never touches the lease, so it is safe to
run at any time, including while a sync holds the lease.

Exit code 0 means the sides are in sync; non-zero means drift was found.`,
	Run: func(cmd *cobra.Command, args []string) {
		ws, db := openWorkspace()
		defer db.Close()

		ctx := context.Background()

		res, err := parse.ParseDir(ws.BoardsDir)
		if err != nil {
			fatal(err.Error(), "")
		}
		printAnomalies(res)

		eng := engine.New(db, engine.Config{Actor: ws.Config.Actor})
		report, err := eng.Check(ctx, res.Tasks)
		if err != nil {
			fatal(fmt.Sprintf("drift check failed: %v", err), "")
		}

		if report.InSync() {
			fmt.Printf("%s In sync (%s)\n", ui.RenderPass("✓"), report.FilesFingerprint)
			return
		}

		fmt.Printf("%s Drift detected\n", ui.RenderWarn("⚠"))
		for _, t := range report.Diff.Added {
			fmt.Printf("   %s %s (only in boards)\n", ui.RenderAccent("+"), t.ID)
		}
		for _, t := range report.Diff.Removed {
			fmt.Printf("   %s %s (only in store)\n", ui.RenderAccent("-"), t.ID)
		}
		for _, c := range report.Diff.Changed {
			fmt.Printf("   %s %s (%s)\n", ui.RenderAccent("~"), c.ID, strings.Join(c.Fields, ", "))
		}
		fmt.Printf("   boards: %s\n", ui.RenderDim(report.FilesFingerprint))
		fmt.Printf("   store:  %s\n", ui.RenderDim(report.StoreFingerprint))
		os.Exit(1)
	},
}

func printAnomalies(res *parse.Result) {
	for _, a := range res.Anomalies {
		fmt.Fprintf(os.Stderr, "Warning: skipped %s\n", a)
	}
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
