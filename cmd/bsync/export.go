package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/boardsync/boardsync/internal/export"
	"github.com/boardsync/boardsync/internal/ui"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export boards as HTML for a notes application",
	Long: `Write one HTML file per project from store state. The export is
read-only: it takes no lease and mutates neither side.`,
	Run: func(cmd *cobra.Command, args []string) {
		ws, db := openWorkspace()
		defer db.Close()

		outDir := exportOut
		if !filepath.IsAbs(outDir) {
			outDir = filepath.Join(ws.Root, outDir)
		}

		n, err := export.Run(context.Background(), db, outDir)
		if err != nil {
			fatal(err.Error(), "")
		}

		fmt.Printf("%s Exported %d board(s) to %s\n", ui.RenderPass("✓"), n, outDir)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "export",
		"output directory for HTML files")
	rootCmd.AddCommand(exportCmd)
}
