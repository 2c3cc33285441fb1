// Package fingerprint computes a canonical digest over a task-record set.
//
// Two sets that are field-equal after canonicalization produce identical
// fingerprints regardless of input ordering; any field difference produces a
// different fingerprint with overwhelming probability. The fingerprint is
// used to decide cheaply whether the boards and the store have drifted.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/boardsync/boardsync/internal/model"
)

const (
	// fieldSep and recordSep keep field boundaries unambiguous in the
	// canonical projection.
	fieldSep  = "\x1f"
	recordSep = "\x1e"

	// Length of the truncated hex digest.
	hexLen = 16
)

// Compute canonicalizes the set (sorted by id ascending, fixed field order)
// and returns a truncated SHA-256 hex digest.
func Compute(tasks []*model.Task) string {
	sorted := make([]*model.Task, len(tasks))
	copy(sorted, tasks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var b strings.Builder
	for _, t := range sorted {
		b.WriteString(t.ID)
		b.WriteString(fieldSep)
		b.WriteString(string(t.Status))
		b.WriteString(fieldSep)
		b.WriteString(string(t.Priority))
		b.WriteString(fieldSep)
		b.WriteString(t.Owner)
		b.WriteString(fieldSep)
		b.WriteString(t.Title)
		b.WriteString(fieldSep)
		b.WriteString(t.Note)
		b.WriteString(recordSep)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:hexLen]
}
