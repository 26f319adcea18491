package primary

import "context"

// ProjectService defines the primary port for project operations.
type ProjectService interface {
	// CreateProject creates a new project.
	CreateProject(ctx context.Context, req CreateProjectRequest) (*CreateProjectResponse, error)

	// GetProject retrieves a project by ID.
	GetProject(ctx context.Context, projectID string) (*Project, error)

	// ListProjects lists projects, optionally filtered by status.
	ListProjects(ctx context.Context, status string) ([]*Project, error)

	// ArchiveProject marks a project archived.
	ArchiveProject(ctx context.Context, projectID string) error

	// DeleteProject removes a project and everything under it. This is
	// the only path that deletes artifacts.
	DeleteProject(ctx context.Context, projectID string) error
}

// CreateProjectRequest contains parameters for creating a project.
type CreateProjectRequest struct {
	UserID      string
	Name        string
	Description string
	Mode        string // standard when empty
}

// CreateProjectResponse contains the result of creating a project.
type CreateProjectResponse struct {
	ProjectID string
	Project   *Project
}

// Project represents a project entity at the port boundary.
type Project struct {
	ID           string
	UserID       string
	Name         string
	Description  string
	Mode         string
	Status       string
	CurrentStage string
	CreatedAt    string
	UpdatedAt    string
}
