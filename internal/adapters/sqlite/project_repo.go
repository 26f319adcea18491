// Package sqlite contains SQLite implementations of repository interfaces.
// Repositories publish a realtime change after every successful write so
// the pipeline manager and connected clients observe row changes the same
// way they would from a hosted backend's change feed.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/atelier/internal/models"
	"github.com/example/atelier/internal/ports/secondary"
	"github.com/example/atelier/internal/realtime"
)

// ProjectRepository implements secondary.ProjectRepository with SQLite.
type ProjectRepository struct {
	db  *sql.DB
	bus *realtime.Bus
}

// NewProjectRepository creates a new SQLite project repository.
// bus is optional - if nil, no change notifications are published.
func NewProjectRepository(db *sql.DB, bus *realtime.Bus) *ProjectRepository {
	return &ProjectRepository{db: db, bus: bus}
}

// Create persists a new project.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (id, user_id, name, description, mode, status, current_stage) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		project.ID,
		project.UserID,
		project.Name,
		project.Description,
		project.Mode,
		project.Status,
		project.CurrentStage,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	r.publish(realtime.EventInsert, project.ID)
	return nil
}

// GetByID retrieves a project by its ID.
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, mode, status, current_stage, created_at, updated_at FROM projects WHERE id = ?`,
		id,
	)
	project, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

// List retrieves projects matching the given filters.
func (r *ProjectRepository) List(ctx context.Context, filters secondary.ProjectFilters) ([]*models.Project, error) {
	query := `SELECT id, user_id, name, description, mode, status, current_stage, created_at, updated_at FROM projects WHERE 1=1`
	args := []any{}

	if filters.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filters.UserID)
	}
	if filters.Status != "" {
		query += " AND status = ?"
		args = append(args, filters.Status)
	}
	query += " ORDER BY updated_at DESC"
	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// UpdateStage updates the project's current pipeline stage.
func (r *ProjectRepository) UpdateStage(ctx context.Context, id, stage string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE projects SET current_stage = ?, updated_at = ? WHERE id = ?`,
		stage, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update project stage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s not found", id)
	}

	r.publish(realtime.EventUpdate, id)
	return nil
}

// UpdateStatus updates the project status.
func (r *ProjectRepository) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update project status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s not found", id)
	}

	r.publish(realtime.EventUpdate, id)
	return nil
}

// UpdateMode switches the project between standard and quick mode.
func (r *ProjectRepository) UpdateMode(ctx context.Context, id, mode string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE projects SET mode = ?, updated_at = ? WHERE id = ?`,
		mode, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update project mode: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s not found", id)
	}

	r.publish(realtime.EventUpdate, id)
	return nil
}

// Delete removes a project. Messages and artifacts cascade at the schema
// level - this is the only code path that deletes artifact rows.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s not found", id)
	}

	if r.bus != nil {
		r.bus.Publish(realtime.Change{
			Event:     realtime.EventDelete,
			Table:     realtime.TableProjects,
			ProjectID: id,
			Row:       map[string]string{"id": id},
		})
	}
	return nil
}

func (r *ProjectRepository) publish(event realtime.EventType, id string) {
	if r.bus == nil {
		return
	}
	project, err := r.GetByID(context.Background(), id)
	if err != nil {
		return
	}
	r.bus.Publish(realtime.Change{
		Event:     event,
		Table:     realtime.TableProjects,
		ProjectID: id,
		Row:       project,
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	p := &models.Project{}
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.Description, &p.Mode, &p.Status,
		&p.CurrentStage, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
