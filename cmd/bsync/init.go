package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boardsync/boardsync/internal/ui"
	"github.com/boardsync/boardsync/internal/workspace"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap a boardsync workspace in the current directory",
	Long: `Create the workspace layout:

  .boardsync/config.yaml     workspace configuration
  .boardsync/projects.toml   project registry
  .boardsync/board.db        SQLite store (schema + sync-state singleton)
  boards/                    board markdown files

Idempotent: existing files are left alone, the schema DDL uses IF NOT
EXISTS, and the singleton row is only inserted once.`,
	Run: func(cmd *cobra.Command, args []string) {
		ws, err := workspace.Init(".")
		if err != nil {
			fatal(fmt.Sprintf("failed to initialize workspace: %v", err), "")
		}

		fmt.Printf("%s Workspace initialized\n", ui.RenderPass("✓"))
		fmt.Printf("   Boards: %s\n", ws.BoardsDir)
		fmt.Printf("   Store:  %s\n", ws.DBPath)
		fmt.Printf("   Config: %s\n", ws.Marker)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
