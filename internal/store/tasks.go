package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/boardsync/boardsync/internal/model"
)

// ErrNotFound is returned when a requested record doesn't exist.
var ErrNotFound = errors.New("not found")

const taskColumns = `id, project_id, title, status, priority, owner, note, source, created_at, updated_at`

// ListTasks returns every task in the store.
func (db *DB) ListTasks(ctx context.Context) ([]*model.Task, error) {
	return listTasks(ctx, db.conn, "", nil)
}

// ListTasks returns every task visible to the transaction.
func (tx *Tx) ListTasks(ctx context.Context) ([]*model.Task, error) {
	return listTasks(ctx, tx.conn, "", nil)
}

// ListProjectTasks returns the tasks belonging to one project.
func (db *DB) ListProjectTasks(ctx context.Context, slug string) ([]*model.Task, error) {
	return listTasks(ctx, db.conn, "WHERE project_id = ?", []any{slug})
}

func listTasks(ctx context.Context, q querier, where string, args []any) ([]*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks `
	if where != "" {
		query += where + " "
	}
	query += `ORDER BY id ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// GetTask retrieves a single task by id. Returns ErrNotFound if absent.
func (db *DB) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return getTask(ctx, db.conn, id)
}

// GetTask retrieves a single task by id within the transaction.
func (tx *Tx) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return getTask(ctx, tx.conn, id)
}

func getTask(ctx context.Context, q querier, id string) (*model.Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return task, nil
}

// InsertTask inserts a new task. Timestamps are set to now if zero.
func (tx *Tx) InsertTask(ctx context.Context, task *model.Task, now time.Time) error {
	return insertTask(ctx, tx.conn, task, now)
}

func insertTask(ctx context.Context, q querier, task *model.Task, now time.Time) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	created := task.CreatedAt
	if created.IsZero() {
		created = now
	}
	updated := task.UpdatedAt
	if updated.IsZero() {
		updated = now
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO tasks (id, project_id, title, status, priority, owner, note, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.Project,
		task.Title,
		string(task.Status),
		string(task.Priority),
		stringToNull(task.Owner),
		stringToNull(task.Note),
		task.Source,
		formatTime(created),
		formatTime(updated),
	)
	if err != nil {
		return fmt.Errorf("failed to insert task %s: %w", task.ID, err)
	}
	return nil
}

// UpdateTaskFields updates the mutable comparison-relevant fields plus the
// source location, and advances updated_at. The note is NOT touched here;
// note enrichment is a separate one-way operation.
func (tx *Tx) UpdateTaskFields(ctx context.Context, task *model.Task, now time.Time) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	res, err := tx.conn.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, status = ?, priority = ?, owner = ?, source = ?, updated_at = ?
		WHERE id = ?`,
		task.Title,
		string(task.Status),
		string(task.Priority),
		stringToNull(task.Owner),
		task.Source,
		formatTime(now),
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", task.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("task %s: %w", task.ID, ErrNotFound)
	}
	return nil
}

// UpdateTaskNote replaces the stored note. It deliberately leaves updated_at
// alone: the note is not a comparison-relevant field, so a note-only change
// must not make repeated no-op runs look like mutations.
func (tx *Tx) UpdateTaskNote(ctx context.Context, id, note string) error {
	_, err := tx.conn.ExecContext(ctx,
		`UPDATE tasks SET note = ? WHERE id = ?`, stringToNull(note), id)
	if err != nil {
		return fmt.Errorf("failed to update note for task %s: %w", id, err)
	}
	return nil
}

// CountTasks returns the total number of tasks.
func (db *DB) CountTasks(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return count, nil
}

// StatusCounts returns per-project task counts grouped by status.
func (db *DB) StatusCounts(ctx context.Context) (map[string]map[model.Status]int, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT project_id, status, COUNT(*)
		FROM tasks
		GROUP BY project_id, status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]map[model.Status]int)
	for rows.Next() {
		var project, status string
		var n int
		if err := rows.Scan(&project, &status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		if counts[project] == nil {
			counts[project] = make(map[model.Status]int)
		}
		counts[project][model.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}
	return counts, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanTask.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*model.Task, error) {
	var task model.Task
	var status, priority string
	var owner, note sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(
		&task.ID,
		&task.Project,
		&task.Title,
		&status,
		&priority,
		&owner,
		&note,
		&task.Source,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = model.Status(status)
	task.Priority = model.Priority(priority)
	task.Owner = owner.String
	task.Note = note.String

	if t, err := parseTime(createdAt); err == nil {
		task.CreatedAt = t
	}
	if t, err := parseTime(updatedAt); err == nil {
		task.UpdatedAt = t
	}

	return &task, nil
}

func scanTasks(rows *sql.Rows) ([]*model.Task, error) {
	var tasks []*model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}
