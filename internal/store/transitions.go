package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/boardsync/boardsync/internal/model"
)

// AppendTransition writes one immutable audit record. There is no update or
// delete counterpart: the transitions table is write-once.
func (tx *Tx) AppendTransition(ctx context.Context, t *model.Transition) error {
	return appendTransition(ctx, tx.conn, t)
}

func appendTransition(ctx context.Context, q querier, t *model.Transition) error {
	var from sql.NullString
	if t.FromStatus != nil {
		from = sql.NullString{String: string(*t.FromStatus), Valid: true}
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO transitions (task_id, from_status, to_status, reason, actor, sub_actor, at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.TaskID,
		from,
		string(t.ToStatus),
		stringToNull(t.Reason),
		t.Actor,
		stringToNull(t.SubActor),
		formatTime(t.At),
	)
	if err != nil {
		return fmt.Errorf("failed to append transition for task %s: %w", t.TaskID, err)
	}
	return nil
}

// ListTransitions returns the audit trail for one task in append order.
func (db *DB) ListTransitions(ctx context.Context, taskID string) ([]*model.Transition, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, task_id, from_status, to_status, reason, actor, sub_actor, at
		FROM transitions
		WHERE task_id = ?
		ORDER BY id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions for %s: %w", taskID, err)
	}
	defer rows.Close()

	var transitions []*model.Transition
	for rows.Next() {
		var t model.Transition
		var from, reason, subActor sql.NullString
		var to, at string

		if err := rows.Scan(&t.ID, &t.TaskID, &from, &to, &reason, &t.Actor, &subActor, &at); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}

		if from.Valid {
			s := model.Status(from.String)
			t.FromStatus = &s
		}
		t.ToStatus = model.Status(to)
		t.Reason = reason.String
		t.SubActor = subActor.String
		if ts, err := parseTime(at); err == nil {
			t.At = ts
		}

		transitions = append(transitions, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transitions: %w", err)
	}
	return transitions, nil
}

// CountTransitions returns the total number of audit records.
func (db *DB) CountTransitions(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM transitions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transitions: %w", err)
	}
	return count, nil
}
