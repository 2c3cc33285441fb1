package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/boardsync/boardsync/internal/dashboard"
	"github.com/boardsync/boardsync/internal/store"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Start the WebSocket dashboard server",
	Long: `Start a standalone WebSocket dashboard server that broadcasts task
statistics to connected clients.

Messages:
- drift_report: outcome of a drift check (broadcast by 'bsync watch --dashboard')
- sync_complete: a completed text->store apply
- stats: per-status task counts, pushed periodically by this command

Example usage:
  bsync dashboard                # default port from config.yaml
  bsync dashboard --port 9000

Connect with a WebSocket client:
  ws://localhost:8080/ws`,
	Run: func(cmd *cobra.Command, args []string) {
		ws, db := openWorkspace()
		defer db.Close()

		port := ws.Config.DashboardPort
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		config := &dashboard.Config{
			Port:   port,
			Logger: log.New(os.Stderr, "[dashboard] ", log.LstdFlags),
		}

		server := dashboard.NewServer(config)

		if err := server.Start(); err != nil {
			fatal(fmt.Sprintf("failed to start dashboard: %v", err), "")
		}

		fmt.Printf("Dashboard server started on http://localhost:%d\n", port)
		fmt.Printf("WebSocket endpoint: ws://localhost:%d/ws\n", port)
		fmt.Printf("Health check: http://localhost:%d/health\n", port)
		fmt.Println("\nPress Ctrl+C to stop...")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		// Push stats so fresh clients see state without waiting for a
		// watcher cycle.
		go pushStats(ctx, db, server)

		<-ctx.Done()

		fmt.Println("\nShutting down dashboard server...")
		if err := server.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Dashboard server stopped")
	},
}

func pushStats(ctx context.Context, db *store.DB, server *dashboard.Server) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		broadcastStats(ctx, db, server)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func broadcastStats(ctx context.Context, db *store.DB, server *dashboard.Server) {
	counts, err := db.StatusCounts(ctx)
	if err != nil {
		return
	}

	byStatus := make(map[string]int)
	total := 0
	for _, statuses := range counts {
		for status, n := range statuses {
			byStatus[string(status)] += n
			total += n
		}
	}

	server.BroadcastStats(dashboard.StatsData{Total: total, ByStatus: byStatus})
}

func init() {
	dashboardCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	rootCmd.AddCommand(dashboardCmd)
}
