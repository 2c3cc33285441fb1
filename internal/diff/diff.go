// Package diff classifies task records into added, removed, and changed
// classes between the board-derived set and the store-derived set.
package diff

import (
	"github.com/boardsync/boardsync/internal/model"
)

// Change describes one task present on both sides with at least one
// comparison-relevant field differing. Fields lists the differing field
// names; the merge engine uses them for transition reasons.
//
// Notes and timestamps are deliberately excluded from the comparison: notes
// follow a separate one-way-enrichment policy and timestamps are derived.
type Change struct {
	ID     string
	File   *model.Task
	Store  *model.Task
	Fields []string
}

// Diff holds the three disjoint classes. No ordering guarantee beyond
// grouping by class; callers must not rely on sequence.
type Diff struct {
	Added   []*model.Task
	Removed []*model.Task
	Changed []Change
}

// Empty reports whether the two sides are field-equal.
func (d *Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// Compute classifies fileTasks against storeTasks, both keyed by id.
func Compute(fileTasks, storeTasks []*model.Task) *Diff {
	fileByID := make(map[string]*model.Task, len(fileTasks))
	for _, t := range fileTasks {
		fileByID[t.ID] = t
	}
	storeByID := make(map[string]*model.Task, len(storeTasks))
	for _, t := range storeTasks {
		storeByID[t.ID] = t
	}

	d := &Diff{}

	for _, ft := range fileTasks {
		st, ok := storeByID[ft.ID]
		if !ok {
			d.Added = append(d.Added, ft)
			continue
		}
		if fields := changedFields(ft, st); len(fields) > 0 {
			d.Changed = append(d.Changed, Change{
				ID:     ft.ID,
				File:   ft,
				Store:  st,
				Fields: fields,
			})
		}
	}

	for _, st := range storeTasks {
		if _, ok := fileByID[st.ID]; !ok {
			d.Removed = append(d.Removed, st)
		}
	}

	return d
}

// changedFields compares the comparison-relevant fields only.
func changedFields(file, store *model.Task) []string {
	var fields []string
	if file.Status != store.Status {
		fields = append(fields, "status")
	}
	if file.Priority != store.Priority {
		fields = append(fields, "priority")
	}
	if file.Owner != store.Owner {
		fields = append(fields, "owner")
	}
	if file.Title != store.Title {
		fields = append(fields, "title")
	}
	return fields
}
