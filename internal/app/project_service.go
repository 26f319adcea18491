package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/atelier/internal/models"
	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/ports/secondary"
)

// ProjectServiceImpl implements the ProjectService interface.
type ProjectServiceImpl struct {
	projectRepo secondary.ProjectRepository
	logWriter   secondary.LogWriter
}

// NewProjectService creates a new ProjectService with injected dependencies.
// logWriter is optional.
func NewProjectService(projectRepo secondary.ProjectRepository, logWriter secondary.LogWriter) *ProjectServiceImpl {
	return &ProjectServiceImpl{projectRepo: projectRepo, logWriter: logWriter}
}

// CreateProject creates a new project.
func (s *ProjectServiceImpl) CreateProject(ctx context.Context, req primary.CreateProjectRequest) (*primary.CreateProjectResponse, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("project name is required")
	}
	mode := req.Mode
	if mode == "" {
		mode = models.ProjectModeStandard
	}
	if mode != models.ProjectModeStandard && mode != models.ProjectModeQuick {
		return nil, fmt.Errorf("unknown project mode %q", mode)
	}

	project := &models.Project{
		ID:     uuid.NewString(),
		UserID: req.UserID,
		Name:   req.Name,
		Mode:   mode,
		Status: models.ProjectStatusActive,
	}
	if req.Description != "" {
		project.Description.String = req.Description
		project.Description.Valid = true
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}
	if s.logWriter != nil {
		_ = s.logWriter.LogCreate(ctx, "project", project.ID)
	}

	created, err := s.projectRepo.GetByID(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch created project: %w", err)
	}
	return &primary.CreateProjectResponse{
		ProjectID: created.ID,
		Project:   toProject(created),
	}, nil
}

// GetProject retrieves a project by ID.
func (s *ProjectServiceImpl) GetProject(ctx context.Context, projectID string) (*primary.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return toProject(project), nil
}

// ListProjects lists projects, optionally filtered by status.
func (s *ProjectServiceImpl) ListProjects(ctx context.Context, status string) ([]*primary.Project, error) {
	projects, err := s.projectRepo.List(ctx, secondary.ProjectFilters{Status: status})
	if err != nil {
		return nil, err
	}
	out := make([]*primary.Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProject(p))
	}
	return out, nil
}

// ArchiveProject marks a project archived.
func (s *ProjectServiceImpl) ArchiveProject(ctx context.Context, projectID string) error {
	if err := s.projectRepo.UpdateStatus(ctx, projectID, models.ProjectStatusArchived); err != nil {
		return err
	}
	if s.logWriter != nil {
		_ = s.logWriter.LogTransition(ctx, "project", projectID, models.ProjectStatusActive, models.ProjectStatusArchived)
	}
	return nil
}

// DeleteProject removes a project and everything under it.
func (s *ProjectServiceImpl) DeleteProject(ctx context.Context, projectID string) error {
	if err := s.projectRepo.Delete(ctx, projectID); err != nil {
		return err
	}
	if s.logWriter != nil {
		_ = s.logWriter.LogDelete(ctx, "project", projectID)
	}
	return nil
}

func toProject(p *models.Project) *primary.Project {
	return &primary.Project{
		ID:           p.ID,
		UserID:       p.UserID,
		Name:         p.Name,
		Description:  p.Description.String,
		Mode:         p.Mode,
		Status:       p.Status,
		CurrentStage: p.CurrentStage.String,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    p.UpdatedAt.Format(time.RFC3339),
	}
}
