package model

import "time"

// Transition is one immutable entry in a task's status audit trail.
//
// Transitions are append-only: once written they are never updated or
// deleted. FromStatus is nil for the transition recorded when a task is
// first inserted.
type Transition struct {
	ID         int64     `json:"id"`
	TaskID     string    `json:"task_id"`
	FromStatus *Status   `json:"from_status,omitempty"`
	ToStatus   Status    `json:"to_status"`
	Reason     string    `json:"reason,omitempty"`
	Actor      string    `json:"actor"`
	SubActor   string    `json:"sub_actor,omitempty"`
	At         time.Time `json:"at"`
}
