// Package model defines the task board data structures shared by the parser,
// diff engine, store, and projector.
package model

import (
	"fmt"
	"time"
)

// Status is one of the five canonical board statuses.
type Status string

const (
	StatusBacklog           Status = "backlog"
	StatusInProgress        Status = "in_progress"
	StatusPendingValidation Status = "pending_validation"
	StatusBlocked           Status = "blocked"
	StatusDone              Status = "done"
)

// SectionOrder is the canonical order in which board sections are rendered,
// regardless of the order headings appeared in an edited board.
var SectionOrder = []Status{
	StatusInProgress,
	StatusPendingValidation,
	StatusBlocked,
	StatusBacklog,
	StatusDone,
}

// Valid reports whether s is one of the five canonical statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusBacklog, StatusInProgress, StatusPendingValidation, StatusBlocked, StatusDone:
		return true
	}
	return false
}

// Heading returns the human board heading for this status ("In Progress" etc).
func (s Status) Heading() string {
	switch s {
	case StatusBacklog:
		return "Backlog"
	case StatusInProgress:
		return "In Progress"
	case StatusPendingValidation:
		return "Pending Validation"
	case StatusBlocked:
		return "Blocked"
	case StatusDone:
		return "Done"
	}
	return string(s)
}

// Priority is one of the five priority levels P0 (critical) through P4.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
	PriorityP4 Priority = "P4"

	// DefaultPriority is assigned when a task line carries no priority tag.
	DefaultPriority = PriorityP2
)

// Valid reports whether p is one of P0..P4.
func (p Priority) Valid() bool {
	switch p {
	case PriorityP0, PriorityP1, PriorityP2, PriorityP3, PriorityP4:
		return true
	}
	return false
}

// Task represents one board line as structured data.
//
// The checkbox glyph on the board is a display artifact derived from Status;
// it never carries state of its own.
type Task struct {
	ID       string   `json:"id"`
	Project  string   `json:"project"`
	Title    string   `json:"title"`
	Status   Status   `json:"status"`
	Priority Priority `json:"priority"`

	// Owner is the optional bracketed owner tag.
	Owner string `json:"owner,omitempty"`

	// Note is the optional indented note line attached to the task.
	// Notes are enriched one-way: an empty incoming note never erases a
	// stored one.
	Note string `json:"note,omitempty"`

	// Source is the board file the task was parsed from or rendered to.
	Source string `json:"source,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks that the task satisfies the store's constraints.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if t.Project == "" {
		return fmt.Errorf("project is required")
	}
	if t.Title == "" {
		return fmt.Errorf("title is required")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid status %q", t.Status)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", t.Priority)
	}
	return nil
}

// SetDefaults applies default values for optional fields.
func (t *Task) SetDefaults() {
	if t.Priority == "" {
		t.Priority = DefaultPriority
	}
	if t.Status == "" {
		t.Status = StatusBacklog
	}
}
