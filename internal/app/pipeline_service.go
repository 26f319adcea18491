// Package app contains the application services implementing the primary
// ports. Services orchestrate the pure core logic over the secondary
// ports; they hold no business rules of their own.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	coreartifact "github.com/example/atelier/internal/core/artifact"
	"github.com/example/atelier/internal/core/phase"
	"github.com/example/atelier/internal/ctxutil"
	"github.com/example/atelier/internal/models"
	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/ports/secondary"
	"github.com/example/atelier/internal/realtime"
)

// PipelineServiceImpl implements the PipelineService interface. It is the
// single owner of the active project's canonical artifact list: every
// mutation - local optimistic write, realtime notification, approval,
// staleness cascade - funnels through the merge and transition methods
// below under one mutex. Nothing else writes artifact state.
type PipelineServiceImpl struct {
	artifactRepo secondary.ArtifactRepository
	projectRepo  secondary.ProjectRepository
	logWriter    secondary.LogWriter
	bus          *realtime.Bus

	mu        sync.Mutex
	projectID string
	mode      string
	artifacts []models.Artifact
	sub       *realtime.Subscription
	feedDone  chan struct{}
}

// NewPipelineService creates a new PipelineService with injected
// dependencies. logWriter and bus are optional.
func NewPipelineService(
	artifactRepo secondary.ArtifactRepository,
	projectRepo secondary.ProjectRepository,
	logWriter secondary.LogWriter,
	bus *realtime.Bus,
) *PipelineServiceImpl {
	return &PipelineServiceImpl{
		artifactRepo: artifactRepo,
		projectRepo:  projectRepo,
		logWriter:    logWriter,
		bus:          bus,
	}
}

// SetActiveProject loads the project's artifacts into the manager and
// rebinds the realtime subscription. The previous project's subscription
// is fully torn down before the new one is established, so a buffered
// notification for the old project can never mutate the new one's state.
func (s *PipelineServiceImpl) SetActiveProject(ctx context.Context, projectID string) error {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}

	rows, err := s.artifactRepo.ListByProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to load artifacts: %w", err)
	}

	s.teardownFeed()

	s.mu.Lock()
	s.projectID = project.ID
	s.mode = project.Mode
	s.artifacts = nil
	for _, row := range rows {
		if err := validateRow(row); err != nil {
			// Malformed row from the backend: drop it from the working
			// set and keep going with the rest of the batch.
			log.Printf("pipeline: dropping artifact row %s: %v", row.ID, err)
			continue
		}
		s.artifacts, _ = coreartifact.Merge(s.artifacts, *row)
	}
	s.mu.Unlock()

	if s.bus != nil {
		sub := s.bus.Subscribe(realtime.TableArtifacts, projectID)
		done := make(chan struct{})
		s.mu.Lock()
		s.sub = sub
		s.feedDone = done
		s.mu.Unlock()
		go s.consumeFeed(sub, done)
	}
	return nil
}

// ActiveProject returns the currently loaded project ID.
func (s *PipelineServiceImpl) ActiveProject() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectID
}

// Close tears down the realtime subscription.
func (s *PipelineServiceImpl) Close() {
	s.teardownFeed()
}

// PhaseStatuses resolves the status of all eight phases.
func (s *PipelineServiceImpl) PhaseStatuses() map[string]phase.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return phase.ResolveAll(phase.DocStatesOf(s.artifacts), s.mode)
}

// Artifacts returns a snapshot of the canonical artifact list in
// pipeline order.
func (s *PipelineServiceImpl) Artifacts() []models.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Artifact, len(s.artifacts))
	copy(out, s.artifacts)
	sort.Slice(out, func(i, j int) bool {
		return phase.Index(out[i].ArtifactType) < phase.Index(out[j].ArtifactType)
	})
	return out
}

// Approve transitions an active artifact to approved. The approval gate
// is the phase status: only an artifact whose upstream required phases
// are all complete may be approved. Version and content are untouched.
func (s *PipelineServiceImpl) Approve(ctx context.Context, req primary.ApproveRequest) (*primary.ApproveResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.findByID(req.ArtifactID)
	if !ok {
		return nil, fmt.Errorf("artifact %s not found in active project", req.ArtifactID)
	}

	status := phase.Resolve(target.ArtifactType, phase.DocStatesOf(s.artifacts), s.mode)
	guard := coreartifact.CanApprove(coreartifact.ApproveContext{
		ArtifactID:   target.ID,
		ArtifactType: target.ArtifactType,
		PhaseStatus:  status,
	})
	if !guard.Allowed {
		return nil, fmt.Errorf("%w: %s", primary.ErrInvalidTransition, guard.Reason)
	}

	approvedBy := req.ApprovedBy
	if approvedBy == "" {
		approvedBy = ctxutil.ActorFromContext(ctx)
	}
	if approvedBy == "" {
		return nil, fmt.Errorf("%w: approver identity is required", primary.ErrInvalidTransition)
	}

	now := time.Now()
	if err := s.artifactRepo.UpdateApproval(ctx, target.ID, approvedBy, now); err != nil {
		return nil, err
	}

	prior := target.Status
	approved := target
	approved.Status = models.ArtifactStatusApproved
	approved.ApprovedAt = sql.NullTime{Time: now, Valid: true}
	approved.ApprovedBy = sql.NullString{String: approvedBy, Valid: true}
	approved.StaleReason = sql.NullString{}
	approved.UpdatedAt = now
	s.artifacts, _ = coreartifact.Merge(s.artifacts, approved)

	if s.logWriter != nil {
		_ = s.logWriter.LogTransition(ctx, "artifact", approved.ID, prior, models.ArtifactStatusApproved)
	}

	return &primary.ApproveResponse{Artifact: approved}, nil
}

// CommitArtifact persists generated deliverable content as a new version
// of its phase's artifact, propagates staleness to downstream approved
// artifacts, and merges everything into canonical state.
func (s *PipelineServiceImpl) CommitArtifact(ctx context.Context, req primary.CommitArtifactRequest) (*primary.CommitArtifactResponse, error) {
	if !phase.IsValidType(req.ArtifactType) {
		return nil, fmt.Errorf("unknown artifact type %q", req.ArtifactType)
	}
	if req.Content == "" {
		return nil, fmt.Errorf("artifact content is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ProjectID != s.projectID {
		return nil, fmt.Errorf("project %s is not the active project", req.ProjectID)
	}

	now := time.Now()
	var next models.Artifact
	if existing, ok := s.findByType(req.ArtifactType); ok {
		next = coreartifact.Revise(existing, req.Content, req.MessageID, now)
	} else {
		next = coreartifact.NewDraft(uuid.NewString(), req.ProjectID, req.ArtifactType, req.Content, req.MessageID, now)
	}

	// Plan the cascade against the state the downstream approvals were
	// given under, before the new version lands.
	transitions := coreartifact.StaleTransitions(req.ArtifactType, s.artifacts)

	if err := s.artifactRepo.Upsert(ctx, &next); err != nil {
		return nil, err
	}
	s.artifacts, _ = coreartifact.Merge(s.artifacts, next)

	var staled []string
	for _, tr := range transitions {
		if err := s.artifactRepo.UpdateStaleness(ctx, tr.ArtifactID, tr.Reason); err != nil {
			return nil, fmt.Errorf("failed to propagate staleness to %s: %w", tr.ArtifactType, err)
		}
		if a, ok := s.findByID(tr.ArtifactID); ok {
			s.artifacts, _ = coreartifact.Merge(s.artifacts, coreartifact.ApplyStale(a, tr.Reason))
		}
		staled = append(staled, tr.ArtifactType)
		if s.logWriter != nil {
			_ = s.logWriter.LogTransition(ctx, "artifact", tr.ArtifactID, models.ArtifactStatusApproved, models.ArtifactStatusStale)
		}
	}

	if s.logWriter != nil {
		if next.Version == 1 {
			_ = s.logWriter.LogCreate(ctx, "artifact", next.ID)
		} else {
			_ = s.logWriter.LogUpdate(ctx, "artifact", next.ID, "version",
				fmt.Sprintf("%d", next.Version-1), fmt.Sprintf("%d", next.Version))
		}
	}

	// An explicit approved directive from the response is a request, not
	// a bypass: it goes through the same phase gate as a user approval
	// and is silently left as draft when the gate rejects it.
	if req.Status == models.ArtifactStatusApproved {
		status := phase.Resolve(next.ArtifactType, phase.DocStatesOf(s.artifacts), s.mode)
		if coreartifact.CanApprove(coreartifact.ApproveContext{
			ArtifactID:   next.ID,
			ArtifactType: next.ArtifactType,
			PhaseStatus:  status,
		}).Allowed {
			approvedBy := ctxutil.ActorFromContext(ctx)
			if approvedBy == "" {
				approvedBy = "assistant"
			}
			if err := s.artifactRepo.UpdateApproval(ctx, next.ID, approvedBy, now); err == nil {
				next.Status = models.ArtifactStatusApproved
				next.ApprovedAt = sql.NullTime{Time: now, Valid: true}
				next.ApprovedBy = sql.NullString{String: approvedBy, Valid: true}
				s.artifacts, _ = coreartifact.Merge(s.artifacts, next)
			}
		}
	}

	return &primary.CommitArtifactResponse{Artifact: next, Staled: staled}, nil
}

// consumeFeed applies realtime notifications until the subscription
// closes. Delivery is at-least-once and unordered relative to local
// optimistic writes; the merge engine's version rule makes replays and
// out-of-order arrivals harmless.
func (s *PipelineServiceImpl) consumeFeed(sub *realtime.Subscription, done chan struct{}) {
	defer close(done)
	for change := range sub.C {
		s.applyRemote(change)
	}
}

// applyRemote merges one realtime notification into canonical state.
func (s *PipelineServiceImpl) applyRemote(change realtime.Change) {
	row, ok := change.Row.(*models.Artifact)
	if !ok {
		return
	}
	if err := validateRow(row); err != nil {
		log.Printf("pipeline: dropping realtime row: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The subscription is scoped to one project, but the guard stays: a
	// notification buffered across a project switch must not leak in.
	if row.ProjectID != s.projectID {
		return
	}
	s.artifacts, _ = coreartifact.Merge(s.artifacts, *row)
}

func (s *PipelineServiceImpl) teardownFeed() {
	s.mu.Lock()
	sub, done := s.sub, s.feedDone
	s.sub, s.feedDone = nil, nil
	s.mu.Unlock()

	if sub != nil {
		sub.Close()
		<-done
	}
}

// findByID returns the canonical artifact with the given ID.
// Caller must hold s.mu.
func (s *PipelineServiceImpl) findByID(id string) (models.Artifact, bool) {
	for _, a := range s.artifacts {
		if a.ID == id {
			return a, true
		}
	}
	return models.Artifact{}, false
}

// findByType returns the canonical artifact for a phase.
// Caller must hold s.mu.
func (s *PipelineServiceImpl) findByType(artifactType string) (models.Artifact, bool) {
	for _, a := range s.artifacts {
		if a.ArtifactType == artifactType {
			return a, true
		}
	}
	return models.Artifact{}, false
}

// validateRow checks a row from the backend before it enters the working
// set.
func validateRow(a *models.Artifact) error {
	if a == nil {
		return fmt.Errorf("nil artifact row")
	}
	if a.ID == "" || a.ProjectID == "" {
		return fmt.Errorf("artifact row missing identifiers")
	}
	if !phase.IsValidType(a.ArtifactType) {
		return fmt.Errorf("unknown artifact type %q", a.ArtifactType)
	}
	switch a.Status {
	case models.ArtifactStatusDraft, models.ArtifactStatusApproved, models.ArtifactStatusStale:
	default:
		return fmt.Errorf("unknown artifact status %q", a.Status)
	}
	if a.Version < 1 {
		return fmt.Errorf("artifact version %d out of range", a.Version)
	}
	return nil
}
