package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/atelier/internal/core/phase"
	"github.com/example/atelier/internal/ctxutil"
	"github.com/example/atelier/internal/models"
	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/realtime"
)

func setupPipeline(t *testing.T, mode string) (*PipelineServiceImpl, *mockArtifactRepository, *mockProjectRepository, *realtime.Bus) {
	t.Helper()

	projectRepo := newMockProjectRepository()
	artifactRepo := newMockArtifactRepository()
	bus := realtime.NewBus()

	_ = projectRepo.Create(context.Background(), &models.Project{
		ID: "p1", UserID: "user-1", Name: "Test", Mode: mode, Status: models.ProjectStatusActive,
	})

	svc := NewPipelineService(artifactRepo, projectRepo, nil, bus)
	t.Cleanup(svc.Close)
	return svc, artifactRepo, projectRepo, bus
}

func seedArtifact(t *testing.T, repo *mockArtifactRepository, id, artifactType, status string, version int) {
	t.Helper()
	a := &models.Artifact{
		ID: id, ProjectID: "p1", ArtifactType: artifactType,
		Content: "content of " + id, Status: status, Version: version,
	}
	if status == models.ArtifactStatusApproved {
		a.ApprovedAt = toNullTime(time.Now())
		a.ApprovedBy = toNullString("user-1")
	}
	if err := repo.Upsert(context.Background(), a); err != nil {
		t.Fatalf("seed Upsert(%s) error: %v", id, err)
	}
}

func TestSetActiveProjectLoadsArtifacts(t *testing.T) {
	svc, artifactRepo, _, _ := setupPipeline(t, models.ProjectModeStandard)
	seedArtifact(t, artifactRepo, "a1", models.ArtifactTypeContract, models.ArtifactStatusApproved, 1)
	seedArtifact(t, artifactRepo, "a2", models.ArtifactTypeDiscovery, models.ArtifactStatusDraft, 1)

	if err := svc.SetActiveProject(context.Background(), "p1"); err != nil {
		t.Fatalf("SetActiveProject() error: %v", err)
	}

	if got := svc.ActiveProject(); got != "p1" {
		t.Errorf("ActiveProject() = %q", got)
	}
	if got := len(svc.Artifacts()); got != 2 {
		t.Errorf("Artifacts() has %d entries, want 2", got)
	}

	statuses := svc.PhaseStatuses()
	if statuses[models.ArtifactTypeContract] != phase.StatusComplete {
		t.Errorf("contract status = %s, want complete", statuses[models.ArtifactTypeContract])
	}
	if statuses[models.ArtifactTypeDiscovery] != phase.StatusActive {
		t.Errorf("discovery status = %s, want active", statuses[models.ArtifactTypeDiscovery])
	}
	if statuses[models.ArtifactTypePersona] != phase.StatusEmpty {
		t.Errorf("persona status = %s, want empty", statuses[models.ArtifactTypePersona])
	}
}

func TestSetActiveProjectDropsMalformedRows(t *testing.T) {
	svc, artifactRepo, _, _ := setupPipeline(t, models.ProjectModeStandard)
	seedArtifact(t, artifactRepo, "a1", models.ArtifactTypeContract, models.ArtifactStatusDraft, 1)
	// Corrupt row straight into the mock store.
	artifactRepo.artifacts[artifactKey("p1", "bogus_type")] = &models.Artifact{
		ID: "bad", ProjectID: "p1", ArtifactType: "bogus_type",
		Content: "x", Status: models.ArtifactStatusDraft, Version: 1,
	}

	if err := svc.SetActiveProject(context.Background(), "p1"); err != nil {
		t.Fatalf("SetActiveProject() error: %v", err)
	}

	arts := svc.Artifacts()
	if len(arts) != 1 || arts[0].ID != "a1" {
		t.Errorf("Artifacts() = %+v, want only a1", arts)
	}
}

func TestSetActiveProjectUnknownProject(t *testing.T) {
	svc, _, _, _ := setupPipeline(t, models.ProjectModeStandard)

	if err := svc.SetActiveProject(context.Background(), "ghost"); err == nil {
		t.Error("SetActiveProject(ghost) error = nil, want error")
	}
	if got := svc.ActiveProject(); got != "" {
		t.Errorf("ActiveProject() = %q after failed load", got)
	}
}

func TestApprove(t *testing.T) {
	tests := []struct {
		name       string
		mode       string
		seed       func(t *testing.T, repo *mockArtifactRepository)
		artifactID string
		wantErr    bool
	}{
		{
			name: "active artifact approves",
			mode: models.ProjectModeStandard,
			seed: func(t *testing.T, repo *mockArtifactRepository) {
				seedArtifact(t, repo, "a1", models.ArtifactTypeContract, models.ArtifactStatusDraft, 1)
			},
			artifactID: "a1",
			wantErr:    false,
		},
		{
			name: "pending artifact is rejected",
			mode: models.ProjectModeStandard,
			seed: func(t *testing.T, repo *mockArtifactRepository) {
				seedArtifact(t, repo, "a1", models.ArtifactTypeContract, models.ArtifactStatusDraft, 1)
				seedArtifact(t, repo, "a2", models.ArtifactTypeDiscovery, models.ArtifactStatusDraft, 1)
			},
			artifactID: "a2",
			wantErr:    true,
		},
		{
			name: "already approved artifact is rejected",
			mode: models.ProjectModeStandard,
			seed: func(t *testing.T, repo *mockArtifactRepository) {
				seedArtifact(t, repo, "a1", models.ArtifactTypeContract, models.ArtifactStatusApproved, 1)
			},
			artifactID: "a1",
			wantErr:    true,
		},
		{
			name: "skipped phase is rejected in quick mode",
			mode: models.ProjectModeQuick,
			seed: func(t *testing.T, repo *mockArtifactRepository) {
				seedArtifact(t, repo, "a1", models.ArtifactTypeContract, models.ArtifactStatusApproved, 1)
				seedArtifact(t, repo, "a2", models.ArtifactTypeDiscovery, models.ArtifactStatusDraft, 1)
			},
			artifactID: "a2",
			wantErr:    true,
		},
		{
			name: "stale artifact with complete upstream approves",
			mode: models.ProjectModeStandard,
			seed: func(t *testing.T, repo *mockArtifactRepository) {
				seedArtifact(t, repo, "a1", models.ArtifactTypeContract, models.ArtifactStatusApproved, 1)
				seedArtifact(t, repo, "a2", models.ArtifactTypeDiscovery, models.ArtifactStatusStale, 2)
			},
			artifactID: "a2",
			wantErr:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, artifactRepo, _, _ := setupPipeline(t, tt.mode)
			tt.seed(t, artifactRepo)
			if err := svc.SetActiveProject(context.Background(), "p1"); err != nil {
				t.Fatalf("SetActiveProject() error: %v", err)
			}

			resp, err := svc.Approve(context.Background(), primary.ApproveRequest{
				ArtifactID: tt.artifactID,
				ApprovedBy: "user-1",
			})

			if tt.wantErr {
				if err == nil {
					t.Fatal("Approve() error = nil, want error")
				}
				if !errors.Is(err, primary.ErrInvalidTransition) {
					t.Errorf("Approve() error = %v, want ErrInvalidTransition", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Approve() error: %v", err)
			}
			if resp.Artifact.Status != models.ArtifactStatusApproved {
				t.Errorf("approved artifact status = %s", resp.Artifact.Status)
			}
			if !resp.Artifact.ApprovedAt.Valid || !resp.Artifact.ApprovedBy.Valid {
				t.Error("approved artifact missing approval fields")
			}
		})
	}
}

func TestApproveRequiresApproverIdentity(t *testing.T) {
	svc, artifactRepo, _, _ := setupPipeline(t, models.ProjectModeStandard)
	seedArtifact(t, artifactRepo, "a1", models.ArtifactTypeContract, models.ArtifactStatusDraft, 1)
	if err := svc.SetActiveProject(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Approve(context.Background(), primary.ApproveRequest{ArtifactID: "a1"})
	if err == nil {
		t.Fatal("Approve() without approver error = nil, want error")
	}

	// The actor from context serves as the approver when the request
	// leaves it blank.
	ctx := ctxutil.WithActorID(context.Background(), "user-2")
	resp, err := svc.Approve(ctx, primary.ApproveRequest{ArtifactID: "a1"})
	if err != nil {
		t.Fatalf("Approve() with context actor error: %v", err)
	}
	if resp.Artifact.ApprovedBy.String != "user-2" {
		t.Errorf("ApprovedBy = %q, want user-2", resp.Artifact.ApprovedBy.String)
	}
}

func TestCommitArtifactCreatesAndRevises(t *testing.T) {
	svc, artifactRepo, _, _ := setupPipeline(t, models.ProjectModeStandard)
	if err := svc.SetActiveProject(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}

	first, err := svc.CommitArtifact(context.Background(), primary.CommitArtifactRequest{
		ProjectID:    "p1",
		ArtifactType: models.ArtifactTypeContract,
		Content:      "first contract",
		MessageID:    "m1",
		Status:       models.ArtifactStatusDraft,
	})
	if err != nil {
		t.Fatalf("CommitArtifact() error: %v", err)
	}
	if first.Artifact.Version != 1 || first.Artifact.Status != models.ArtifactStatusDraft {
		t.Errorf("first commit = v%d %s", first.Artifact.Version, first.Artifact.Status)
	}

	second, err := svc.CommitArtifact(context.Background(), primary.CommitArtifactRequest{
		ProjectID:    "p1",
		ArtifactType: models.ArtifactTypeContract,
		Content:      "revised contract",
		MessageID:    "m2",
		Status:       models.ArtifactStatusDraft,
	})
	if err != nil {
		t.Fatalf("CommitArtifact() revision error: %v", err)
	}
	if second.Artifact.Version != 2 {
		t.Errorf("revision version = %d, want 2", second.Artifact.Version)
	}
	if second.Artifact.ID != first.Artifact.ID {
		t.Errorf("revision changed artifact ID %s -> %s", first.Artifact.ID, second.Artifact.ID)
	}

	stored, err := artifactRepo.GetByType(context.Background(), "p1", models.ArtifactTypeContract)
	if err != nil || stored == nil {
		t.Fatalf("GetByType() = %v, %v", stored, err)
	}
	if stored.Content != "revised contract" || stored.Version != 2 {
		t.Errorf("stored artifact = %+v", stored)
	}
}

func TestCommitArtifactStalenessCascade(t *testing.T) {
	svc, artifactRepo, _, _ := setupPipeline(t, models.ProjectModeStandard)
	seedArtifact(t, artifactRepo, "a1", models.ArtifactTypeContract, models.ArtifactStatusApproved, 1)
	seedArtifact(t, artifactRepo, "a2", models.ArtifactTypeDiscovery, models.ArtifactStatusApproved, 1)
	seedArtifact(t, artifactRepo, "a3", models.ArtifactTypePersona, models.ArtifactStatusDraft, 1)
	if err := svc.SetActiveProject(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}

	resp, err := svc.CommitArtifact(context.Background(), primary.CommitArtifactRequest{
		ProjectID:    "p1",
		ArtifactType: models.ArtifactTypeContract,
		Content:      "revised contract",
		MessageID:    "m1",
		Status:       models.ArtifactStatusDraft,
	})
	if err != nil {
		t.Fatalf("CommitArtifact() error: %v", err)
	}

	// Downstream approved artifact goes stale; the draft stays a draft.
	if len(resp.Staled) != 1 || resp.Staled[0] != models.ArtifactTypeDiscovery {
		t.Errorf("Staled = %v, want [discovery_report]", resp.Staled)
	}

	var discovery, persona models.Artifact
	for _, a := range svc.Artifacts() {
		switch a.ArtifactType {
		case models.ArtifactTypeDiscovery:
			discovery = a
		case models.ArtifactTypePersona:
			persona = a
		}
	}
	if discovery.Status != models.ArtifactStatusStale {
		t.Errorf("discovery status = %s, want stale", discovery.Status)
	}
	if !discovery.StaleReason.Valid {
		t.Error("stale discovery has no reason")
	}
	if discovery.Version != 1 || discovery.Content != "content of a2" {
		t.Errorf("staleness touched discovery content or version: %+v", discovery)
	}
	if persona.Status != models.ArtifactStatusDraft {
		t.Errorf("persona status = %s, want draft untouched", persona.Status)
	}
}

func TestCommitArtifactApprovedDirectiveGated(t *testing.T) {
	svc, artifactRepo, _, _ := setupPipeline(t, models.ProjectModeStandard)
	seedArtifact(t, artifactRepo, "a1", models.ArtifactTypeContract, models.ArtifactStatusDraft, 1)
	if err := svc.SetActiveProject(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}

	// Discovery's upstream is not complete: the approved directive is
	// ignored and the artifact lands as a draft.
	resp, err := svc.CommitArtifact(context.Background(), primary.CommitArtifactRequest{
		ProjectID:    "p1",
		ArtifactType: models.ArtifactTypeDiscovery,
		Content:      "early findings",
		MessageID:    "m1",
		Status:       models.ArtifactStatusApproved,
	})
	if err != nil {
		t.Fatalf("CommitArtifact() error: %v", err)
	}
	if resp.Artifact.Status != models.ArtifactStatusDraft {
		t.Errorf("gated directive produced status %s, want draft", resp.Artifact.Status)
	}

	// With the contract approved the directive passes the same gate an
	// interactive approval would.
	if _, err := svc.Approve(context.Background(), primary.ApproveRequest{ArtifactID: "a1", ApprovedBy: "user-1"}); err != nil {
		t.Fatalf("Approve(contract) error: %v", err)
	}
	resp, err = svc.CommitArtifact(context.Background(), primary.CommitArtifactRequest{
		ProjectID:    "p1",
		ArtifactType: models.ArtifactTypeDiscovery,
		Content:      "final findings",
		MessageID:    "m2",
		Status:       models.ArtifactStatusApproved,
	})
	if err != nil {
		t.Fatalf("CommitArtifact() error: %v", err)
	}
	if resp.Artifact.Status != models.ArtifactStatusApproved {
		t.Errorf("directive status = %s, want approved", resp.Artifact.Status)
	}
	if resp.Artifact.ApprovedBy.String != "assistant" {
		t.Errorf("ApprovedBy = %q, want assistant", resp.Artifact.ApprovedBy.String)
	}
}

func TestCommitArtifactValidation(t *testing.T) {
	svc, _, _, _ := setupPipeline(t, models.ProjectModeStandard)
	if err := svc.SetActiveProject(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.CommitArtifact(context.Background(), primary.CommitArtifactRequest{
		ProjectID: "p1", ArtifactType: "bogus", Content: "x",
	}); err == nil {
		t.Error("CommitArtifact() with unknown type error = nil, want error")
	}

	if _, err := svc.CommitArtifact(context.Background(), primary.CommitArtifactRequest{
		ProjectID: "p1", ArtifactType: models.ArtifactTypeContract, Content: "",
	}); err == nil {
		t.Error("CommitArtifact() with empty content error = nil, want error")
	}

	if _, err := svc.CommitArtifact(context.Background(), primary.CommitArtifactRequest{
		ProjectID: "p2", ArtifactType: models.ArtifactTypeContract, Content: "x",
	}); err == nil {
		t.Error("CommitArtifact() for inactive project error = nil, want error")
	}
}

func waitForArtifact(t *testing.T, svc *PipelineServiceImpl, artifactType string, version int) models.Artifact {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, a := range svc.Artifacts() {
			if a.ArtifactType == artifactType && a.Version >= version {
				return a
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s v%d", artifactType, version)
	return models.Artifact{}
}

func TestRealtimeFeedMergesOutOfOrderAndDuplicates(t *testing.T) {
	svc, _, _, bus := setupPipeline(t, models.ProjectModeStandard)
	if err := svc.SetActiveProject(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}

	v3 := &models.Artifact{
		ID: "a1", ProjectID: "p1", ArtifactType: models.ArtifactTypeContract,
		Content: "v3", Status: models.ArtifactStatusDraft, Version: 3,
	}
	v2 := &models.Artifact{
		ID: "a1", ProjectID: "p1", ArtifactType: models.ArtifactTypeContract,
		Content: "v2", Status: models.ArtifactStatusDraft, Version: 2,
	}

	publish := func(row *models.Artifact) {
		bus.Publish(realtime.Change{
			Event: realtime.EventUpdate, Table: realtime.TableArtifacts,
			ProjectID: "p1", Row: row,
		})
	}

	// Deliver newest first, then a late older version, then a duplicate.
	publish(v3)
	got := waitForArtifact(t, svc, models.ArtifactTypeContract, 3)
	if got.Content != "v3" {
		t.Fatalf("content = %q, want v3", got.Content)
	}

	publish(v2)
	publish(v3)
	got = waitForArtifact(t, svc, models.ArtifactTypeContract, 3)
	if got.Content != "v3" || got.Version != 3 {
		t.Errorf("after replay content = %q v%d, want v3 v3", got.Content, got.Version)
	}
}

func TestProjectSwitchDoesNotLeakNotifications(t *testing.T) {
	svc, _, projectRepo, bus := setupPipeline(t, models.ProjectModeStandard)
	_ = projectRepo.Create(context.Background(), &models.Project{
		ID: "p2", UserID: "user-1", Name: "Other", Mode: models.ProjectModeStandard, Status: models.ProjectStatusActive,
	})

	if err := svc.SetActiveProject(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetActiveProject(context.Background(), "p2"); err != nil {
		t.Fatal(err)
	}

	// A change for the old project arriving after the switch must not
	// appear in the new project's canonical state.
	bus.Publish(realtime.Change{
		Event: realtime.EventInsert, Table: realtime.TableArtifacts, ProjectID: "p1",
		Row: &models.Artifact{
			ID: "old", ProjectID: "p1", ArtifactType: models.ArtifactTypeContract,
			Content: "old project", Status: models.ArtifactStatusDraft, Version: 1,
		},
	})
	bus.Publish(realtime.Change{
		Event: realtime.EventInsert, Table: realtime.TableArtifacts, ProjectID: "p2",
		Row: &models.Artifact{
			ID: "new", ProjectID: "p2", ArtifactType: models.ArtifactTypeContract,
			Content: "new project", Status: models.ArtifactStatusDraft, Version: 1,
		},
	})

	got := waitForArtifact(t, svc, models.ArtifactTypeContract, 1)
	if got.ID != "new" {
		t.Errorf("merged artifact = %s, want new", got.ID)
	}
	if len(svc.Artifacts()) != 1 {
		t.Errorf("Artifacts() = %+v, want only the p2 row", svc.Artifacts())
	}
}
