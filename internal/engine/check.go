package engine

import (
	"context"

	"github.com/boardsync/boardsync/internal/diff"
	"github.com/boardsync/boardsync/internal/fingerprint"
	"github.com/boardsync/boardsync/internal/model"
)

// Report is the outcome of a read-only drift check.
type Report struct {
	Diff             *diff.Diff
	FilesFingerprint string
	StoreFingerprint string
}

// InSync reports whether the two sides are field-equal: an empty diff and
// matching fingerprints. The fingerprint covers notes, which the diff does
// not, so a note removed from a board keeps the sides out of sync until the
// board is regenerated.
func (r *Report) InSync() bool {
	return r.Diff.Empty() && r.FilesFingerprint == r.StoreFingerprint
}

// Check is a pure function of the two sides: it computes the diff and both
// fingerprints without mutating anything and without touching the lease.
// It is intended as a pre-flight gate before the mutating directions and is
// safe to run concurrently with anything, including itself.
func (e *Engine) Check(ctx context.Context, fileTasks []*model.Task) (*Report, error) {
	storeTasks, err := e.db.ListTasks(ctx)
	if err != nil {
		return nil, err
	}

	return &Report{
		Diff:             diff.Compute(fileTasks, storeTasks),
		FilesFingerprint: fingerprint.Compute(fileTasks),
		StoreFingerprint: fingerprint.Compute(storeTasks),
	}, nil
}
