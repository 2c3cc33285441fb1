package engine

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boardsync/boardsync/internal/model"
	"github.com/boardsync/boardsync/internal/parse"
	"github.com/boardsync/boardsync/internal/store"
)

func setupEngine(t *testing.T) (*Engine, *store.DB) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "board.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.InitSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	eng := New(db, Config{
		Actor:  "sync@test",
		Logger: log.New(io.Discard, "", 0),
		Now:    func() time.Time { return clock },
	})
	return eng, db
}

func boardTask(id, project, title string, status model.Status) *model.Task {
	return &model.Task{
		ID:       id,
		Project:  project,
		Title:    title,
		Status:   status,
		Priority: model.PriorityP2,
		Source:   "boards/" + project + ".md",
	}
}

func TestApply_InsertsNewTasks(t *testing.T) {
	eng, db := setupEngine(t)
	ctx := context.Background()

	stats, err := eng.Apply(ctx, []*model.Task{
		boardTask("t-1", "alpha", "First", model.StatusBacklog),
		boardTask("t-2", "alpha", "Second", model.StatusInProgress),
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if stats.Added != 2 || stats.Updated != 0 {
		t.Errorf("stats = %+v, want 2 added", stats)
	}
	if stats.Transitions != 2 {
		t.Errorf("transitions = %d, want 2 (one per insert)", stats.Transitions)
	}

	// Each insert left a first transition with no previous status.
	for _, id := range []string{"t-1", "t-2"} {
		trs, err := db.ListTransitions(ctx, id)
		if err != nil {
			t.Fatalf("ListTransitions failed: %v", err)
		}
		if len(trs) != 1 {
			t.Fatalf("task %s: expected 1 transition, got %d", id, len(trs))
		}
		if trs[0].FromStatus != nil {
			t.Errorf("task %s: first transition has a from_status", id)
		}
		if trs[0].Actor != "sync@test" {
			t.Errorf("task %s: actor = %q", id, trs[0].Actor)
		}
	}
}

func TestApply_Idempotent(t *testing.T) {
	eng, db := setupEngine(t)
	ctx := context.Background()

	board := []*model.Task{
		boardTask("t-1", "alpha", "First", model.StatusBacklog),
	}

	if _, err := eng.Apply(ctx, board); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	before, err := db.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}

	stats, err := eng.Apply(ctx, board)
	if err != nil {
		t.Fatalf("second apply failed: %v", err)
	}
	if stats.Added != 0 || stats.Updated != 0 || stats.NotesSet != 0 || stats.Transitions != 0 {
		t.Errorf("second apply mutated: %+v", stats)
	}

	after, err := db.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(before) != len(after) {
		t.Fatalf("task count changed on no-op apply")
	}
	for i := range before {
		if !before[i].UpdatedAt.Equal(after[i].UpdatedAt) {
			t.Errorf("task %s updated_at moved on no-op apply", before[i].ID)
		}
	}
}

func TestApply_NeverDeletes(t *testing.T) {
	eng, db := setupEngine(t)
	ctx := context.Background()

	if _, err := eng.Apply(ctx, []*model.Task{
		boardTask("t-1", "alpha", "Keep me", model.StatusBacklog),
	}); err != nil {
		t.Fatalf("seed apply failed: %v", err)
	}

	// The task disappears from the board. The store keeps it.
	stats, err := eng.Apply(ctx, nil)
	if err != nil {
		t.Fatalf("empty apply failed: %v", err)
	}
	if stats.Untouched != 1 {
		t.Errorf("untouched = %d, want 1", stats.Untouched)
	}

	if _, err := db.GetTask(ctx, "t-1"); err != nil {
		t.Errorf("store-only task was deleted: %v", err)
	}
}

func TestApply_StatusChangeAppendsTransition(t *testing.T) {
	eng, db := setupEngine(t)
	ctx := context.Background()

	if _, err := eng.Apply(ctx, []*model.Task{
		boardTask("t-1", "alpha", "Moves", model.StatusBacklog),
	}); err != nil {
		t.Fatalf("seed apply failed: %v", err)
	}

	moved := boardTask("t-1", "alpha", "Moves", model.StatusInProgress)
	stats, err := eng.Apply(ctx, []*model.Task{moved})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if stats.Updated != 1 || stats.Transitions != 1 {
		t.Errorf("stats = %+v, want 1 updated with 1 transition", stats)
	}

	trs, err := db.ListTransitions(ctx, "t-1")
	if err != nil {
		t.Fatalf("ListTransitions failed: %v", err)
	}
	if len(trs) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(trs))
	}
	last := trs[len(trs)-1]
	if last.FromStatus == nil || *last.FromStatus != model.StatusBacklog {
		t.Errorf("from_status = %v, want backlog", last.FromStatus)
	}
	if last.ToStatus != model.StatusInProgress {
		t.Errorf("to_status = %s, want in_progress", last.ToStatus)
	}
	if !strings.Contains(last.Reason, "status") {
		t.Errorf("reason = %q, should name the changed field", last.Reason)
	}
}

func TestApply_NonStatusChangeNoTransition(t *testing.T) {
	eng, db := setupEngine(t)
	ctx := context.Background()

	if _, err := eng.Apply(ctx, []*model.Task{
		boardTask("t-1", "alpha", "Old title", model.StatusBacklog),
	}); err != nil {
		t.Fatalf("seed apply failed: %v", err)
	}

	retitled := boardTask("t-1", "alpha", "New title", model.StatusBacklog)
	stats, err := eng.Apply(ctx, []*model.Task{retitled})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if stats.Updated != 1 || stats.Transitions != 0 {
		t.Errorf("stats = %+v, want 1 updated with 0 transitions", stats)
	}

	trs, err := db.ListTransitions(ctx, "t-1")
	if err != nil {
		t.Fatalf("ListTransitions failed: %v", err)
	}
	if len(trs) != 1 {
		t.Errorf("title change appended a transition: %d records", len(trs))
	}
}

func TestApply_NoteEnrichment(t *testing.T) {
	eng, db := setupEngine(t)
	ctx := context.Background()

	seeded := boardTask("t-1", "alpha", "Noted", model.StatusBlocked)
	seeded.Note = "waiting on vendor"
	if _, err := eng.Apply(ctx, []*model.Task{seeded}); err != nil {
		t.Fatalf("seed apply failed: %v", err)
	}

	// Board loses the note: the stored note survives.
	bare := boardTask("t-1", "alpha", "Noted", model.StatusBlocked)
	if _, err := eng.Apply(ctx, []*model.Task{bare}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	got, err := db.GetTask(ctx, "t-1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Note != "waiting on vendor" {
		t.Errorf("empty board note erased stored note: %q", got.Note)
	}

	// Board carries a new note: it replaces the stored one, even with no
	// other field changed.
	noted := boardTask("t-1", "alpha", "Noted", model.StatusBlocked)
	noted.Note = "vendor replied"
	stats, err := eng.Apply(ctx, []*model.Task{noted})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if stats.NotesSet != 1 || stats.Updated != 0 {
		t.Errorf("stats = %+v, want note-only enrichment", stats)
	}
	got, err = db.GetTask(ctx, "t-1")
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Note != "vendor replied" {
		t.Errorf("note = %q, want %q", got.Note, "vendor replied")
	}
}

func TestApply_SetsFingerprints(t *testing.T) {
	eng, db := setupEngine(t)
	ctx := context.Background()

	board := []*model.Task{boardTask("t-1", "alpha", "First", model.StatusBacklog)}
	stats, err := eng.Apply(ctx, board)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if stats.FilesFingerprint != stats.StoreFingerprint {
		t.Errorf("fingerprints differ right after apply: %s vs %s",
			stats.FilesFingerprint, stats.StoreFingerprint)
	}

	state, err := db.GetSyncState(ctx)
	if err != nil {
		t.Fatalf("GetSyncState failed: %v", err)
	}
	if state.FilesFingerprint != stats.FilesFingerprint ||
		state.StoreFingerprint != stats.StoreFingerprint {
		t.Errorf("fingerprints not persisted on the singleton")
	}
}

func TestCheck_DriftSymmetry(t *testing.T) {
	eng, _ := setupEngine(t)
	ctx := context.Background()

	board := []*model.Task{boardTask("t-1", "alpha", "First", model.StatusBacklog)}
	if _, err := eng.Apply(ctx, board); err != nil {
		t.Fatalf("seed apply failed: %v", err)
	}

	report, err := eng.Check(ctx, board)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !report.InSync() {
		t.Errorf("expected in sync after apply, got %+v", report.Diff)
	}

	// Board-side addition shows up as drift without mutating anything.
	drifted := append(board, boardTask("t-2", "alpha", "New", model.StatusBacklog))
	report, err = eng.Check(ctx, drifted)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if report.InSync() {
		t.Error("expected drift after board-side addition")
	}
	if len(report.Diff.Added) != 1 {
		t.Errorf("added = %d, want 1", len(report.Diff.Added))
	}

	// Check is read-only: the original board is still in sync.
	report, err = eng.Check(ctx, board)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !report.InSync() {
		t.Error("Check mutated state")
	}
}

func TestRender_RoundTripFixedPoint(t *testing.T) {
	eng, _ := setupEngine(t)
	ctx := context.Background()

	seed := []*model.Task{
		boardTask("t-1", "alpha", "Backlog item", model.StatusBacklog),
		boardTask("t-2", "alpha", "Active item", model.StatusInProgress),
		boardTask("t-3", "alpha", "Shipped item", model.StatusDone),
	}
	seed[1].Owner = "alice"
	seed[1].Priority = model.PriorityP0
	seed[2].Note = "shipped in v1.2"

	if _, err := eng.Apply(ctx, seed); err != nil {
		t.Fatalf("seed apply failed: %v", err)
	}

	boardsDir := t.TempDir()
	if _, err := eng.Render(ctx, boardsDir); err != nil {
		t.Fatalf("first render failed: %v", err)
	}

	first, err := os.ReadFile(filepath.Join(boardsDir, "alpha.md"))
	if err != nil {
		t.Fatalf("failed to read rendered board: %v", err)
	}

	// Parsing the rendered board and applying it changes nothing, and a
	// second render reproduces the same bytes.
	res, err := parse.ParseDir(boardsDir)
	if err != nil {
		t.Fatalf("ParseDir failed: %v", err)
	}
	if len(res.Anomalies) != 0 {
		t.Fatalf("rendered board has anomalies: %v", res.Anomalies)
	}
	stats, err := eng.Apply(ctx, res.Tasks)
	if err != nil {
		t.Fatalf("round-trip apply failed: %v", err)
	}
	if stats.Added != 0 || stats.Updated != 0 || stats.NotesSet != 0 {
		t.Errorf("round-trip apply mutated: %+v", stats)
	}

	if _, err := eng.Render(ctx, boardsDir); err != nil {
		t.Fatalf("second render failed: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(boardsDir, "alpha.md"))
	if err != nil {
		t.Fatalf("failed to read rendered board: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("render is not a fixed point:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestRender_SectionOrderAndCheckbox(t *testing.T) {
	eng, _ := setupEngine(t)
	ctx := context.Background()

	seed := []*model.Task{
		boardTask("t-1", "alpha", "Queued", model.StatusBacklog),
		boardTask("t-2", "alpha", "Shipped", model.StatusDone),
	}
	if _, err := eng.Apply(ctx, seed); err != nil {
		t.Fatalf("seed apply failed: %v", err)
	}

	boardsDir := t.TempDir()
	if _, err := eng.Render(ctx, boardsDir); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(boardsDir, "alpha.md"))
	if err != nil {
		t.Fatalf("failed to read board: %v", err)
	}
	content := string(data)

	// All five sections appear, in canonical order, even when empty.
	headings := []string{
		"## In Progress", "## Pending Validation", "## Blocked", "## Backlog", "## Done",
	}
	pos := -1
	for _, h := range headings {
		i := strings.Index(content, h)
		if i < 0 {
			t.Fatalf("missing heading %q in:\n%s", h, content)
		}
		if i < pos {
			t.Errorf("heading %q out of canonical order", h)
		}
		pos = i
	}

	if !strings.Contains(content, "- [ ] t-1") {
		t.Error("backlog task should render unchecked")
	}
	if !strings.Contains(content, "- [x] t-2") {
		t.Error("done task should render checked")
	}
}

func TestRender_PreservesPreamble(t *testing.T) {
	eng, _ := setupEngine(t)
	ctx := context.Background()

	if _, err := eng.Apply(ctx, []*model.Task{
		boardTask("t-1", "alpha", "Only", model.StatusBacklog),
	}); err != nil {
		t.Fatalf("seed apply failed: %v", err)
	}

	boardsDir := t.TempDir()
	existing := "# Alpha\n\nHand-written intro kept verbatim.\n\n## Backlog\n- [ ] t-1 [P2] Only\n"
	if err := os.WriteFile(filepath.Join(boardsDir, "alpha.md"), []byte(existing), 0644); err != nil {
		t.Fatalf("failed to write board: %v", err)
	}

	if _, err := eng.Render(ctx, boardsDir); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(boardsDir, "alpha.md"))
	if err != nil {
		t.Fatalf("failed to read board: %v", err)
	}
	if !strings.Contains(string(data), "Hand-written intro kept verbatim.") {
		t.Errorf("preamble was lost:\n%s", data)
	}
}

func TestApply_AuditChain(t *testing.T) {
	// backlog -> in_progress -> done across separate applies leaves exactly
	// two move transitions after the import record, with matching from/to
	// pairs.
	eng, db := setupEngine(t)
	ctx := context.Background()

	for _, status := range []model.Status{
		model.StatusBacklog, model.StatusInProgress, model.StatusDone,
	} {
		if _, err := eng.Apply(ctx, []*model.Task{
			boardTask("t-1", "alpha", "Moves twice", status),
		}); err != nil {
			t.Fatalf("apply at %s failed: %v", status, err)
		}
	}

	trs, err := db.ListTransitions(ctx, "t-1")
	if err != nil {
		t.Fatalf("ListTransitions failed: %v", err)
	}
	if len(trs) != 3 {
		t.Fatalf("expected import + 2 moves, got %d transitions", len(trs))
	}

	type pair struct{ from, to model.Status }
	wantMoves := []pair{
		{model.StatusBacklog, model.StatusInProgress},
		{model.StatusInProgress, model.StatusDone},
	}
	for i, want := range wantMoves {
		got := trs[i+1]
		if got.FromStatus == nil || *got.FromStatus != want.from {
			t.Errorf("move %d: from = %v, want %s", i, got.FromStatus, want.from)
		}
		if got.ToStatus != want.to {
			t.Errorf("move %d: to = %s, want %s", i, got.ToStatus, want.to)
		}
	}
}

func TestApply_ConcreteScenario(t *testing.T) {
	// A board moves one task, adds another, and drops a third; the store
	// keeps the dropped one and the audit trail reflects only real moves.
	eng, db := setupEngine(t)
	ctx := context.Background()

	day1 := []*model.Task{
		boardTask("proj-001", "proj", "Design schema", model.StatusInProgress),
		boardTask("proj-002", "proj", "Write parser", model.StatusBacklog),
	}
	if _, err := eng.Apply(ctx, day1); err != nil {
		t.Fatalf("day1 apply failed: %v", err)
	}

	day2 := []*model.Task{
		boardTask("proj-001", "proj", "Design schema", model.StatusDone),
		boardTask("proj-003", "proj", "Ship it", model.StatusBacklog),
	}
	stats, err := eng.Apply(ctx, day2)
	if err != nil {
		t.Fatalf("day2 apply failed: %v", err)
	}

	if stats.Added != 1 || stats.Updated != 1 || stats.Untouched != 1 {
		t.Errorf("stats = %+v, want 1 added, 1 updated, 1 untouched", stats)
	}

	// proj-002 vanished from the board but survives in the store.
	kept, err := db.GetTask(ctx, "proj-002")
	if err != nil {
		t.Fatalf("dropped task missing from store: %v", err)
	}
	if kept.Status != model.StatusBacklog {
		t.Errorf("untouched task status changed to %s", kept.Status)
	}

	trs, err := db.ListTransitions(ctx, "proj-001")
	if err != nil {
		t.Fatalf("ListTransitions failed: %v", err)
	}
	if len(trs) != 2 {
		t.Fatalf("proj-001: expected 2 transitions, got %d", len(trs))
	}
	if trs[1].ToStatus != model.StatusDone {
		t.Errorf("final transition to %s, want done", trs[1].ToStatus)
	}

	total, err := db.CountTransitions(ctx)
	if err != nil {
		t.Fatalf("CountTransitions failed: %v", err)
	}
	// Three inserts plus one status move.
	if total != 4 {
		t.Errorf("total transitions = %d, want 4", total)
	}
}
