package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boardsync/boardsync/internal/model"
	"github.com/boardsync/boardsync/internal/store"
)

func setupExportTest(t *testing.T) *store.DB {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "board.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.InitSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	return db
}

func TestRun_WritesOneFilePerProject(t *testing.T) {
	db := setupExportTest(t)
	ctx := context.Background()

	err := db.RunInTransaction(ctx, func(tx *store.Tx) error {
		for _, slug := range []string{"alpha", "beta"} {
			if err := tx.EnsureProject(ctx, slug); err != nil {
				return err
			}
			if err := tx.InsertTask(ctx, &model.Task{
				ID:       slug + "-1",
				Project:  slug,
				Title:    "Task for " + slug,
				Status:   model.StatusInProgress,
				Priority: model.PriorityP1,
				Owner:    "alice",
				Note:     "with a note",
			}, time.Now()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	outDir := filepath.Join(t.TempDir(), "export")
	n, err := Run(ctx, db, outDir)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if n != 2 {
		t.Errorf("wrote %d files, want 2", n)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "alpha.html"))
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	html := string(data)

	for _, want := range []string{"<h1>Alpha</h1>", "alpha-1", "with a note", "In Progress"} {
		if !strings.Contains(html, want) {
			t.Errorf("export missing %q:\n%s", want, html)
		}
	}
}

func TestRun_EmptyStore(t *testing.T) {
	db := setupExportTest(t)

	outDir := filepath.Join(t.TempDir(), "export")
	n, err := Run(context.Background(), db, outDir)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if n != 0 {
		t.Errorf("wrote %d files, want 0", n)
	}
}
