package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/boardsync/boardsync/internal/model"
)

// GetProject retrieves a project by slug. Returns ErrNotFound if absent.
func (db *DB) GetProject(ctx context.Context, slug string) (*model.Project, error) {
	return getProject(ctx, db.conn, slug)
}

// GetProject retrieves a project by slug within the transaction.
func (tx *Tx) GetProject(ctx context.Context, slug string) (*model.Project, error) {
	return getProject(ctx, tx.conn, slug)
}

func getProject(ctx context.Context, q querier, slug string) (*model.Project, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, name, description, status FROM projects WHERE id = ?`, slug)

	var p model.Project
	var status string
	err := row.Scan(&p.Slug, &p.Name, &p.Description, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project %s: %w", slug, err)
	}
	p.Status = model.ProjectStatus(status)
	return &p, nil
}

// UpsertProject inserts or updates a project.
func (db *DB) UpsertProject(ctx context.Context, p *model.Project) error {
	return upsertProject(ctx, db.conn, p)
}

// UpsertProject inserts or updates a project within the transaction.
func (tx *Tx) UpsertProject(ctx context.Context, p *model.Project) error {
	return upsertProject(ctx, tx.conn, p)
}

func upsertProject(ctx context.Context, q querier, p *model.Project) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid project: %w", err)
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO projects (id, name, description, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			status = excluded.status`,
		p.Slug, p.Name, p.Description, string(p.Status))
	if err != nil {
		return fmt.Errorf("failed to upsert project %s: %w", p.Slug, err)
	}
	return nil
}

// EnsureProject inserts a synthesized minimal project if the slug is
// unknown; an existing project is left untouched. This is the auto-repair
// path for tasks that arrive referencing an unregistered project.
func (tx *Tx) EnsureProject(ctx context.Context, slug string) error {
	p := model.SynthesizeProject(slug)
	_, err := tx.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO projects (id, name, description, status)
		VALUES (?, ?, ?, ?)`,
		p.Slug, p.Name, p.Description, string(p.Status))
	if err != nil {
		return fmt.Errorf("failed to synthesize project %s: %w", slug, err)
	}
	return nil
}

// ListProjects returns all projects ordered by slug.
func (db *DB) ListProjects(ctx context.Context) ([]*model.Project, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, description, status FROM projects ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		var p model.Project
		var status string
		if err := rows.Scan(&p.Slug, &p.Name, &p.Description, &status); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.Status = model.ProjectStatus(status)
		projects = append(projects, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}
