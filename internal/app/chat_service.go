package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/atelier/internal/core/chat"
	"github.com/example/atelier/internal/core/phase"
	"github.com/example/atelier/internal/core/transcript"
	"github.com/example/atelier/internal/models"
	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/ports/secondary"
	"github.com/example/atelier/internal/templates"
)

// DefaultCooldown is the minimum interval between chat submissions. It
// guards against a double-send from the same input box creating duplicate
// in-flight generations.
const DefaultCooldown = 2 * time.Second

// historyLimit bounds the conversation window sent to the generation
// service.
const historyLimit = 50

// ChatServiceImpl implements the ChatService interface: the full
// submission flow from user text to committed artifact versions.
type ChatServiceImpl struct {
	pipeline    primary.PipelineService
	projectRepo secondary.ProjectRepository
	messageRepo secondary.MessageRepository
	generator   secondary.Generator
	cooldown    time.Duration

	mu         sync.Mutex
	lastSubmit time.Time
	cancelPrev context.CancelFunc
}

// NewChatService creates a new ChatService with injected dependencies.
// A cooldown of zero falls back to DefaultCooldown.
func NewChatService(
	pipeline primary.PipelineService,
	projectRepo secondary.ProjectRepository,
	messageRepo secondary.MessageRepository,
	generator secondary.Generator,
	cooldown time.Duration,
) *ChatServiceImpl {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &ChatServiceImpl{
		pipeline:    pipeline,
		projectRepo: projectRepo,
		messageRepo: messageRepo,
		generator:   generator,
		cooldown:    cooldown,
	}
}

// SendMessage submits user text to the generation service and commits
// whatever deliverables come back. A submission inside the cooldown
// window is rejected with ErrCooldown; a generation failure surfaces as
// ErrGenerationUnavailable with artifact state untouched, so the caller
// can offer a retry.
func (s *ChatServiceImpl) SendMessage(ctx context.Context, req primary.SendMessageRequest) (*primary.SendMessageResponse, error) {
	genCtx, err := s.admit(ctx, req.Text)
	if err != nil {
		return nil, err
	}

	if s.pipeline.ActiveProject() != req.ProjectID {
		if err := s.pipeline.SetActiveProject(ctx, req.ProjectID); err != nil {
			return nil, err
		}
	}

	project, err := s.projectRepo.GetByID(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	history, err := s.messageRepo.ListByProject(ctx, req.ProjectID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	userMsg := &models.Message{
		ID:        uuid.NewString(),
		ProjectID: req.ProjectID,
		Role:      models.RoleUser,
		Content:   req.Text,
	}
	if err := s.messageRepo.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	genReq := s.buildRequest(project, history, req.Text)

	var onChunk func(string)
	if req.OnPreview != nil {
		onChunk = func(partial string) {
			req.OnPreview(transcript.ExtractPreview(partial))
		}
	}

	full, err := s.generator.Complete(genCtx, genReq, onChunk)
	if err != nil {
		if genCtx.Err() != nil {
			return nil, fmt.Errorf("submission superseded: %w", genCtx.Err())
		}
		return nil, fmt.Errorf("%w: %v", primary.ErrGenerationUnavailable, err)
	}

	assistantMsg := &models.Message{
		ID:        uuid.NewString(),
		ProjectID: req.ProjectID,
		Role:      models.RoleAssistant,
		Content:   full,
	}
	if err := s.messageRepo.Create(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to persist response: %w", err)
	}

	parsed := transcript.ParseFinalResponse(full)
	resp := &primary.SendMessageResponse{
		MessageID:   assistantMsg.ID,
		Reply:       full,
		ParseErrors: parsed.Errors,
	}

	for _, pa := range parsed.Artifacts {
		commit, err := s.pipeline.CommitArtifact(ctx, primary.CommitArtifactRequest{
			ProjectID:    req.ProjectID,
			ArtifactType: pa.ArtifactType,
			Content:      pa.Content,
			MessageID:    assistantMsg.ID,
			Status:       pa.Status,
		})
		if err != nil {
			// One bad segment never blocks the rest of the response.
			resp.ParseErrors = append(resp.ParseErrors, fmt.Sprintf("commit %s: %v", pa.ArtifactType, err))
			continue
		}
		resp.Artifacts = append(resp.Artifacts, primary.CommittedArtifact{
			ArtifactID:   commit.Artifact.ID,
			ArtifactType: commit.Artifact.ArtifactType,
			Version:      commit.Artifact.Version,
			Staled:       commit.Staled,
		})
	}

	s.applySession(ctx, project, parsed.Session, resp)
	return resp, nil
}

// History returns the project's conversation in sequence order.
func (s *ChatServiceImpl) History(ctx context.Context, projectID string, limit int) ([]*primary.ChatMessage, error) {
	messages, err := s.messageRepo.ListByProject(ctx, projectID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*primary.ChatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, &primary.ChatMessage{
			ID:        m.ID,
			ProjectID: m.ProjectID,
			Role:      m.Role,
			Content:   m.Content,
			Sequence:  m.Sequence,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		})
	}
	return out, nil
}

// admit applies the submission guard and supersedes any in-flight
// generation, returning the context the new generation should run under.
func (s *ChatServiceImpl) admit(ctx context.Context, text string) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	guard := chat.CanSubmit(chat.SubmitContext{
		Text:       text,
		LastSubmit: s.lastSubmit,
		Now:        time.Now(),
		Cooldown:   s.cooldown,
	})
	if !guard.Allowed {
		return nil, fmt.Errorf("%w: %s", primary.ErrCooldown, guard.Reason)
	}

	if s.cancelPrev != nil {
		s.cancelPrev()
	}
	genCtx, cancel := context.WithCancel(ctx)
	s.cancelPrev = cancel
	s.lastSubmit = time.Now()
	return genCtx, nil
}

// buildRequest assembles the generation request: the system prompt for
// the next expected phase plus the conversation window.
func (s *ChatServiceImpl) buildRequest(project *models.Project, history []*models.Message, text string) secondary.GenerationRequest {
	docs := phase.DocStatesOf(s.pipeline.Artifacts())

	var system string
	if next, ok := phase.NextExpected(docs, project.Mode); ok {
		system, _ = templates.SystemPrompt(next)
	} else {
		system, _ = templates.BasePrompt()
	}

	req := secondary.GenerationRequest{System: system}
	for _, m := range history {
		req.Messages = append(req.Messages, secondary.GenerationMessage{Role: m.Role, Content: m.Content})
	}
	req.Messages = append(req.Messages, secondary.GenerationMessage{Role: models.RoleUser, Content: text})
	return req
}

// applySession applies the response's embedded session-state block:
// current stage and mode directive. A bad block is reported as a parse
// error, never a failure of the whole submission.
func (s *ChatServiceImpl) applySession(ctx context.Context, project *models.Project, session *transcript.SessionState, resp *primary.SendMessageResponse) {
	if session == nil {
		return
	}

	if session.CurrentStage != "" {
		if !phase.IsValidType(session.CurrentStage) {
			resp.ParseErrors = append(resp.ParseErrors, fmt.Sprintf("state block names unknown stage %q", session.CurrentStage))
		} else if err := s.projectRepo.UpdateStage(ctx, project.ID, session.CurrentStage); err != nil {
			resp.ParseErrors = append(resp.ParseErrors, fmt.Sprintf("update stage: %v", err))
		}
	}

	if session.Mode != "" && session.Mode != project.Mode {
		if session.Mode != models.ProjectModeStandard && session.Mode != models.ProjectModeQuick {
			resp.ParseErrors = append(resp.ParseErrors, fmt.Sprintf("state block names unknown mode %q", session.Mode))
		} else if err := s.projectRepo.UpdateMode(ctx, project.ID, session.Mode); err != nil {
			resp.ParseErrors = append(resp.ParseErrors, fmt.Sprintf("update mode: %v", err))
		}
	}
}
