package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/atelier/internal/models"
	"github.com/example/atelier/internal/ports/secondary"
)

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func toNullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// mockProjectRepository implements secondary.ProjectRepository for testing.
type mockProjectRepository struct {
	mu       sync.Mutex
	projects map[string]*models.Project
}

func newMockProjectRepository() *mockProjectRepository {
	return &mockProjectRepository{projects: make(map[string]*models.Project)}
}

func (m *mockProjectRepository) Create(ctx context.Context, project *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *project
	m.projects[project.ID] = &cp
	return nil
}

func (m *mockProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.projects[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, fmt.Errorf("project %s not found", id)
}

func (m *mockProjectRepository) List(ctx context.Context, filters secondary.ProjectFilters) ([]*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Project
	for _, p := range m.projects {
		if filters.UserID != "" && p.UserID != filters.UserID {
			continue
		}
		if filters.Status != "" && p.Status != filters.Status {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockProjectRepository) UpdateStage(ctx context.Context, id, stage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return fmt.Errorf("project %s not found", id)
	}
	p.CurrentStage = toNullString(stage)
	return nil
}

func (m *mockProjectRepository) UpdateStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return fmt.Errorf("project %s not found", id)
	}
	p.Status = status
	return nil
}

func (m *mockProjectRepository) UpdateMode(ctx context.Context, id, mode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return fmt.Errorf("project %s not found", id)
	}
	p.Mode = mode
	return nil
}

func (m *mockProjectRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return fmt.Errorf("project %s not found", id)
	}
	delete(m.projects, id)
	return nil
}

// mockMessageRepository implements secondary.MessageRepository for testing.
type mockMessageRepository struct {
	mu       sync.Mutex
	messages []*models.Message
	failNext error
}

func newMockMessageRepository() *mockMessageRepository {
	return &mockMessageRepository{}
}

func (m *mockMessageRepository) Create(ctx context.Context, message *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	seq := 1
	for _, existing := range m.messages {
		if existing.ProjectID == message.ProjectID {
			seq++
		}
	}
	message.Sequence = seq
	cp := *message
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *mockMessageRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Message
	for _, msg := range m.messages {
		if msg.ProjectID != projectID {
			continue
		}
		cp := *msg
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// mockArtifactRepository implements secondary.ArtifactRepository for
// testing. It applies the same version-ordering rule as the SQLite
// adapter and records the calls services make against it.
type mockArtifactRepository struct {
	mu          sync.Mutex
	artifacts   map[string]*models.Artifact // keyed by projectID/artifactType
	upsertErr   error
	staleCalls  []string
	approvals   []string
	upsertCount int
}

func newMockArtifactRepository() *mockArtifactRepository {
	return &mockArtifactRepository{artifacts: make(map[string]*models.Artifact)}
}

func artifactKey(projectID, artifactType string) string {
	return projectID + "/" + artifactType
}

func (m *mockArtifactRepository) Upsert(ctx context.Context, artifact *models.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upsertCount++
	key := artifactKey(artifact.ProjectID, artifact.ArtifactType)
	if existing, ok := m.artifacts[key]; ok {
		if artifact.Version < existing.Version {
			return nil
		}
		artifact.ID = existing.ID
	}
	cp := *artifact
	m.artifacts[key] = &cp
	return nil
}

func (m *mockArtifactRepository) GetByID(ctx context.Context, id string) (*models.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.artifacts {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("artifact %s not found", id)
}

func (m *mockArtifactRepository) GetByType(ctx context.Context, projectID, artifactType string) (*models.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.artifacts[artifactKey(projectID, artifactType)]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *mockArtifactRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Artifact
	for _, a := range m.artifacts {
		if a.ProjectID != projectID {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockArtifactRepository) UpdateApproval(ctx context.Context, id, approvedBy string, approvedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.artifacts {
		if a.ID != id {
			continue
		}
		a.Status = models.ArtifactStatusApproved
		a.ApprovedAt = toNullTime(approvedAt)
		a.ApprovedBy = toNullString(approvedBy)
		a.StaleReason = toNullString("")
		m.approvals = append(m.approvals, id)
		return nil
	}
	return fmt.Errorf("artifact %s not found", id)
}

func (m *mockArtifactRepository) UpdateStaleness(ctx context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.artifacts {
		if a.ID != id {
			continue
		}
		a.Status = models.ArtifactStatusStale
		a.StaleReason = toNullString(reason)
		a.ApprovedAt = toNullTime(time.Time{})
		a.ApprovedBy = toNullString("")
		m.staleCalls = append(m.staleCalls, id)
		return nil
	}
	return fmt.Errorf("artifact %s not found", id)
}

// mockGenerator implements secondary.Generator with a scripted response.
// Chunks, when set, are streamed to onChunk as accumulating partials
// before the final response returns.
type mockGenerator struct {
	response string
	chunks   []string
	err      error
	requests []secondary.GenerationRequest
}

func (m *mockGenerator) Complete(ctx context.Context, req secondary.GenerationRequest, onChunk func(string)) (string, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	if onChunk != nil {
		accumulated := ""
		for _, chunk := range m.chunks {
			accumulated += chunk
			onChunk(accumulated)
		}
	}
	return m.response, nil
}

// errNotFound is a reusable sentinel for mock failures.
var errNotFound = errors.New("not found")
