// Package primary defines the primary ports (driving interfaces) of the
// application, plus the request/response types exchanged across them.
package primary

import (
	"context"

	"github.com/example/atelier/internal/core/phase"
	"github.com/example/atelier/internal/models"
)

// PipelineService is the primary port for the pipeline state manager: the
// single owner of a project's canonical artifact set. All artifact
// mutation funnels through it.
type PipelineService interface {
	// SetActiveProject loads a project's artifacts into the manager and
	// rebinds the realtime subscription to that project. The previous
	// subscription is torn down first; no notification may leak across
	// projects.
	SetActiveProject(ctx context.Context, projectID string) error

	// ActiveProject returns the currently loaded project ID ("" if none).
	ActiveProject() string

	// PhaseStatuses resolves the status of all eight phases for the
	// active project.
	PhaseStatuses() map[string]phase.Status

	// Artifacts returns a snapshot of the canonical artifact list.
	Artifacts() []models.Artifact

	// Approve transitions an active artifact to approved. It fails with a
	// transition error when the artifact's phase is not active.
	Approve(ctx context.Context, req ApproveRequest) (*ApproveResponse, error)

	// CommitArtifact persists generated deliverable content as a new
	// artifact version, propagates staleness to downstream approved
	// artifacts, and merges the result into canonical state.
	CommitArtifact(ctx context.Context, req CommitArtifactRequest) (*CommitArtifactResponse, error)

	// Close tears down the realtime subscription.
	Close()
}

// ApproveRequest contains parameters for approving an artifact.
type ApproveRequest struct {
	ArtifactID string
	ApprovedBy string
}

// ApproveResponse contains the result of approving an artifact.
type ApproveResponse struct {
	Artifact models.Artifact
}

// CommitArtifactRequest contains one generated deliverable to persist.
type CommitArtifactRequest struct {
	ProjectID    string
	ArtifactType string
	Content      string
	MessageID    string
	Status       string // draft unless the response carried an explicit directive
}

// CommitArtifactResponse contains the persisted artifact version and the
// staleness transitions it triggered.
type CommitArtifactResponse struct {
	Artifact models.Artifact
	Staled   []string // artifact types transitioned to stale
}
