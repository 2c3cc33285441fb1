package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/boardsync/boardsync/internal/dashboard"
	"github.com/boardsync/boardsync/internal/engine"
	"github.com/boardsync/boardsync/internal/ui"
	"github.com/boardsync/boardsync/internal/watch"
)

var (
	watchApply     bool
	watchDashboard bool
	watchDebounce  time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the boards directory and reconcile on change",
	Long: `Run a long-lived watcher over the boards directory. Edits are
debounced together, then each batch gets a read-only drift check.

With --apply, drifted batches are applied text->store under the lease;
a lease held by another invocation skips the batch instead of failing.

With --dashboard, a WebSocket server broadcasts each cycle's outcome to
connected clients.

Activity is logged to .boardsync/watch.log with rotation, in addition
to stderr.`,
	Run: func(cmd *cobra.Command, args []string) {
		ws, db := openWorkspace()
		defer db.Close()

		logWriter := io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   filepath.Join(ws.Marker, "watch.log"),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
		logger := log.New(logWriter, "[watch] ", log.LstdFlags)

		eng := engine.New(db, engine.Config{
			Actor:    ws.Config.Actor,
			SubActor: ws.Config.SubActor,
			Logger:   logger,
		})

		debounce := watchDebounce
		if !cmd.Flags().Changed("debounce") {
			debounce = time.Duration(ws.Config.WatchDebounceMS) * time.Millisecond
		}

		cfg := &watch.Config{
			DebounceInterval: debounce,
			AutoApply:        watchApply,
			Owner:            leaseOwner(ws.Config.Actor),
			Logger:           logger,
		}

		var srv *dashboard.Server
		if watchDashboard {
			srv = dashboard.NewServer(&dashboard.Config{
				Port:   ws.Config.DashboardPort,
				Logger: logger,
			})
			if err := srv.Start(); err != nil {
				fatal(fmt.Sprintf("failed to start dashboard: %v", err), "")
			}
			defer srv.Stop()
			fmt.Printf("%s Dashboard: http://%s\n", ui.RenderAccent("●"), srv.GetAddr())

			cfg.Notify = func(ev watch.Event) {
				srv.BroadcastDrift(dashboard.DriftData{
					InSync:  ev.InSync,
					Added:   ev.Added,
					Removed: ev.Removed,
					Changed: ev.Changed,
				})
			}
		}

		w, err := watch.New(db, eng, ws.BoardsDir, cfg)
		if err != nil {
			fatal(err.Error(), "")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("%s Watching %s (debounce %v, apply=%v)\n",
			ui.RenderPass("✓"), ws.BoardsDir, debounce, watchApply)

		if err := w.Start(ctx); err != nil {
			fatal(err.Error(), "")
		}
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchApply, "apply", false,
		"apply drifted batches text->store under the lease")
	watchCmd.Flags().BoolVar(&watchDashboard, "dashboard", false,
		"broadcast cycle outcomes over a WebSocket dashboard")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 250*time.Millisecond,
		"debounce interval for batching board edits")
	rootCmd.AddCommand(watchCmd)
}
