package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/boardsync/boardsync/internal/diff"
	"github.com/boardsync/boardsync/internal/fingerprint"
	"github.com/boardsync/boardsync/internal/model"
	"github.com/boardsync/boardsync/internal/store"
)

// ApplyStats summarizes one text->store apply.
type ApplyStats struct {
	Added       int
	Updated     int
	NotesSet    int
	Transitions int

	// Untouched counts records present in the store but absent from the
	// boards. The apply direction never deletes; these are reported only.
	Untouched int

	FilesFingerprint string
	StoreFingerprint string
}

// Apply reconciles the parsed board records into the store.
//
// The whole batch runs in a single transaction: a mid-batch failure rolls
// back so the store matches either the old or the new board snapshot, never
// something in between.
//
// Semantics per record class:
//   - added: insert the task (synthesizing an unknown project first) and
//     append a first-insertion transition with no previous status.
//   - changed: update title/status/priority/owner/source; append a
//     transition when the status moved, with a reason naming the changed
//     fields. updated_at advances only here, so no-op runs stay
//     field-for-field identical.
//   - removed: left untouched. Deletion is an explicit operation outside
//     this engine.
//
// Notes enrich one-way for every id present on both sides: a non-empty
// incoming note replaces the stored note; an empty incoming note never
// erases one.
func (e *Engine) Apply(ctx context.Context, fileTasks []*model.Task) (*ApplyStats, error) {
	stats := &ApplyStats{}
	now := e.now()

	err := e.db.RunInTransaction(ctx, func(tx *store.Tx) error {
		storeTasks, err := tx.ListTasks(ctx)
		if err != nil {
			return err
		}

		d := diff.Compute(fileTasks, storeTasks)

		storeByID := make(map[string]*model.Task, len(storeTasks))
		for _, t := range storeTasks {
			storeByID[t.ID] = t
		}

		for _, task := range d.Added {
			if err := tx.EnsureProject(ctx, task.Project); err != nil {
				return err
			}
			if err := tx.InsertTask(ctx, task, now); err != nil {
				return err
			}
			if err := tx.AppendTransition(ctx, &model.Transition{
				TaskID:   task.ID,
				ToStatus: task.Status,
				Reason:   "imported from board",
				Actor:    e.actor,
				SubActor: e.subActor,
				At:       now,
			}); err != nil {
				return err
			}
			stats.Added++
			stats.Transitions++
		}

		for _, change := range d.Changed {
			if err := tx.UpdateTaskFields(ctx, change.File, now); err != nil {
				return err
			}
			stats.Updated++

			if change.Store.Status != change.File.Status {
				from := change.Store.Status
				if err := tx.AppendTransition(ctx, &model.Transition{
					TaskID:     change.ID,
					FromStatus: &from,
					ToStatus:   change.File.Status,
					Reason:     "changed: " + strings.Join(change.Fields, ", "),
					Actor:      e.actor,
					SubActor:   e.subActor,
					At:         now,
				}); err != nil {
					return err
				}
				stats.Transitions++
			}
		}

		// One-way note enrichment for every id present on both sides.
		for _, ft := range fileTasks {
			st, ok := storeByID[ft.ID]
			if !ok {
				continue
			}
			if ft.Note != "" && ft.Note != st.Note {
				if err := tx.UpdateTaskNote(ctx, ft.ID, ft.Note); err != nil {
					return err
				}
				stats.NotesSet++
			}
		}

		stats.Untouched = len(d.Removed)

		// Recompute both sides from their post-apply state.
		after, err := tx.ListTasks(ctx)
		if err != nil {
			return err
		}
		stats.FilesFingerprint = fingerprint.Compute(fileTasks)
		stats.StoreFingerprint = fingerprint.Compute(after)

		return tx.SetFingerprints(ctx, stats.FilesFingerprint, stats.StoreFingerprint)
	})
	if err != nil {
		return nil, fmt.Errorf("apply failed: %w", err)
	}

	e.logger.Printf("Apply complete: added=%d updated=%d notes=%d transitions=%d untouched=%d",
		stats.Added, stats.Updated, stats.NotesSet, stats.Transitions, stats.Untouched)

	return stats, nil
}
