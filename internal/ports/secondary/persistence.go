// Package secondary defines the secondary ports (driven adapters) for the
// application. These are the interfaces through which the application
// drives external systems.
package secondary

import (
	"context"
	"time"

	"github.com/example/atelier/internal/models"
)

// ProjectRepository defines the secondary port for project persistence.
type ProjectRepository interface {
	// Create persists a new project.
	Create(ctx context.Context, project *models.Project) error

	// GetByID retrieves a project by its ID.
	GetByID(ctx context.Context, id string) (*models.Project, error)

	// List retrieves projects matching the given filters.
	List(ctx context.Context, filters ProjectFilters) ([]*models.Project, error)

	// UpdateStage updates the project's current pipeline stage.
	UpdateStage(ctx context.Context, id, stage string) error

	// UpdateStatus updates the project status.
	UpdateStatus(ctx context.Context, id, status string) error

	// UpdateMode switches the project between standard and quick mode.
	UpdateMode(ctx context.Context, id, mode string) error

	// Delete removes a project and all dependent rows.
	Delete(ctx context.Context, id string) error
}

// ProjectFilters contains filter options for querying projects.
type ProjectFilters struct {
	UserID string
	Status string
	Limit  int
}

// MessageRepository defines the secondary port for chat message persistence.
type MessageRepository interface {
	// Create persists a new message, assigning the next sequence number
	// within its project.
	Create(ctx context.Context, message *models.Message) error

	// ListByProject retrieves a project's messages in sequence order.
	ListByProject(ctx context.Context, projectID string, limit int) ([]*models.Message, error)
}

// ArtifactRepository defines the secondary port for artifact persistence.
type ArtifactRepository interface {
	// Upsert writes an artifact row, replacing any existing row for the
	// same (projectID, artifactType) only when the incoming version is
	// greater than or equal to the stored one.
	Upsert(ctx context.Context, artifact *models.Artifact) error

	// GetByID retrieves an artifact by its ID.
	GetByID(ctx context.Context, id string) (*models.Artifact, error)

	// GetByType retrieves the artifact for one phase of a project.
	GetByType(ctx context.Context, projectID, artifactType string) (*models.Artifact, error)

	// ListByProject retrieves all artifacts for a project in pipeline order.
	ListByProject(ctx context.Context, projectID string) ([]*models.Artifact, error)

	// UpdateApproval transitions an artifact to approved, setting the
	// approval fields while leaving content and version untouched.
	UpdateApproval(ctx context.Context, id, approvedBy string, approvedAt time.Time) error

	// UpdateStaleness transitions an artifact to stale with the given
	// reason, clearing approval fields and leaving content and version
	// untouched.
	UpdateStaleness(ctx context.Context, id, reason string) error
}
