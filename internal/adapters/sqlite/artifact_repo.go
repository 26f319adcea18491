package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/atelier/internal/models"
	"github.com/example/atelier/internal/realtime"
)

// ArtifactRepository implements secondary.ArtifactRepository with SQLite.
type ArtifactRepository struct {
	db  *sql.DB
	bus *realtime.Bus
}

// NewArtifactRepository creates a new SQLite artifact repository.
// bus is optional - if nil, no change notifications are published.
func NewArtifactRepository(db *sql.DB, bus *realtime.Bus) *ArtifactRepository {
	return &ArtifactRepository{db: db, bus: bus}
}

// Upsert writes an artifact row. A row already present for the same
// (projectID, artifactType) is replaced only when the incoming version is
// greater than or equal to the stored one - the store applies the same
// version-ordering rule as the in-memory merge engine, so a delayed
// replay can never roll a row back.
func (r *ArtifactRepository) Upsert(ctx context.Context, artifact *models.Artifact) error {
	var existingID string
	var existingVersion int
	err := r.db.QueryRowContext(ctx,
		`SELECT id, version FROM artifacts WHERE project_id = ? AND artifact_type = ?`,
		artifact.ProjectID, artifact.ArtifactType,
	).Scan(&existingID, &existingVersion)

	switch {
	case err == sql.ErrNoRows:
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO artifacts (id, project_id, artifact_type, content, status, version, updated_by_message_id, approved_at, approved_by, stale_reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			artifact.ID, artifact.ProjectID, artifact.ArtifactType, artifact.Content,
			artifact.Status, artifact.Version, artifact.UpdatedByMessageID,
			artifact.ApprovedAt, artifact.ApprovedBy, artifact.StaleReason,
		)
		if err != nil {
			return fmt.Errorf("failed to insert artifact: %w", err)
		}
		r.publish(ctx, realtime.EventInsert, artifact.ID, artifact.ProjectID)
		return nil

	case err != nil:
		return fmt.Errorf("failed to look up artifact: %w", err)
	}

	if artifact.Version < existingVersion {
		// Stale write - the store already holds a newer version.
		return nil
	}

	// The row keeps its stored ID across versions.
	artifact.ID = existingID
	_, err = r.db.ExecContext(ctx,
		`UPDATE artifacts SET content = ?, status = ?, version = ?, updated_by_message_id = ?, approved_at = ?, approved_by = ?, stale_reason = ?, updated_at = ?
		 WHERE id = ? AND version <= ?`,
		artifact.Content, artifact.Status, artifact.Version, artifact.UpdatedByMessageID,
		artifact.ApprovedAt, artifact.ApprovedBy, artifact.StaleReason, time.Now(),
		existingID, artifact.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update artifact: %w", err)
	}
	r.publish(ctx, realtime.EventUpdate, existingID, artifact.ProjectID)
	return nil
}

// GetByID retrieves an artifact by its ID.
func (r *ArtifactRepository) GetByID(ctx context.Context, id string) (*models.Artifact, error) {
	row := r.db.QueryRowContext(ctx, selectArtifact+` WHERE id = ?`, id)
	artifact, err := scanArtifact(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("artifact %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	return artifact, nil
}

// GetByType retrieves the artifact for one phase of a project.
func (r *ArtifactRepository) GetByType(ctx context.Context, projectID, artifactType string) (*models.Artifact, error) {
	row := r.db.QueryRowContext(ctx,
		selectArtifact+` WHERE project_id = ? AND artifact_type = ?`,
		projectID, artifactType,
	)
	artifact, err := scanArtifact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	return artifact, nil
}

// ListByProject retrieves all artifacts for a project.
func (r *ArtifactRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Artifact, error) {
	rows, err := r.db.QueryContext(ctx,
		selectArtifact+` WHERE project_id = ? ORDER BY created_at`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*models.Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, rows.Err()
}

// UpdateApproval transitions an artifact to approved. Content and version
// stay untouched - approval is a status transition, not a content edit.
func (r *ArtifactRepository) UpdateApproval(ctx context.Context, id, approvedBy string, approvedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE artifacts SET status = ?, approved_at = ?, approved_by = ?, stale_reason = NULL, updated_at = ? WHERE id = ?`,
		models.ArtifactStatusApproved, approvedAt, approvedBy, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to approve artifact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("artifact %s not found", id)
	}
	r.publishByID(ctx, id)
	return nil
}

// UpdateStaleness transitions an artifact to stale with the given reason.
// Approval fields clear; content and version stay untouched.
func (r *ArtifactRepository) UpdateStaleness(ctx context.Context, id, reason string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE artifacts SET status = ?, stale_reason = ?, approved_at = NULL, approved_by = NULL, updated_at = ? WHERE id = ?`,
		models.ArtifactStatusStale, reason, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark artifact stale: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("artifact %s not found", id)
	}
	r.publishByID(ctx, id)
	return nil
}

const selectArtifact = `SELECT id, project_id, artifact_type, content, status, version, updated_by_message_id, approved_at, approved_by, stale_reason, created_at, updated_at FROM artifacts`

func (r *ArtifactRepository) publish(ctx context.Context, event realtime.EventType, id, projectID string) {
	if r.bus == nil {
		return
	}
	artifact, err := r.GetByID(ctx, id)
	if err != nil {
		return
	}
	r.bus.Publish(realtime.Change{
		Event:     event,
		Table:     realtime.TableArtifacts,
		ProjectID: projectID,
		Row:       artifact,
	})
}

func (r *ArtifactRepository) publishByID(ctx context.Context, id string) {
	if r.bus == nil {
		return
	}
	artifact, err := r.GetByID(ctx, id)
	if err != nil {
		return
	}
	r.bus.Publish(realtime.Change{
		Event:     realtime.EventUpdate,
		Table:     realtime.TableArtifacts,
		ProjectID: artifact.ProjectID,
		Row:       artifact,
	})
}

func scanArtifact(row rowScanner) (*models.Artifact, error) {
	a := &models.Artifact{}
	err := row.Scan(
		&a.ID, &a.ProjectID, &a.ArtifactType, &a.Content, &a.Status, &a.Version,
		&a.UpdatedByMessageID, &a.ApprovedAt, &a.ApprovedBy, &a.StaleReason,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}
