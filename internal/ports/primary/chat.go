package primary

import (
	"context"
	"errors"
)

// Sentinel errors surfaced to the presentation layer as explicit,
// recoverable conditions. Callers test with errors.Is and present a
// specific recovery action (retry button, disabled control).
var (
	// ErrCooldown - a submission arrived before the minimum interval
	// since the previous one elapsed.
	ErrCooldown = errors.New("submission cooldown active")

	// ErrGenerationUnavailable - the generation request failed; state is
	// unchanged and the caller may retry.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrInvalidTransition - an approval was attempted on an artifact
	// whose phase is not active.
	ErrInvalidTransition = errors.New("invalid artifact transition")
)

// ChatService is the primary port for the chat submission flow.
type ChatService interface {
	// SendMessage submits user text: persists the message, calls the
	// generation service with conversation history, streams previews,
	// parses the final response, and commits the extracted artifacts.
	SendMessage(ctx context.Context, req SendMessageRequest) (*SendMessageResponse, error)

	// History returns the project's conversation in sequence order.
	History(ctx context.Context, projectID string, limit int) ([]*ChatMessage, error)
}

// SendMessageRequest contains parameters for a chat submission.
type SendMessageRequest struct {
	ProjectID string
	Text      string

	// OnPreview, when set, receives the best-effort deliverable preview
	// after each streamed chunk. An empty string means "not enough
	// content yet" - show a generic loading indicator.
	OnPreview func(preview string)
}

// SendMessageResponse contains the outcome of a chat submission.
type SendMessageResponse struct {
	MessageID   string
	Reply       string
	Artifacts   []CommittedArtifact
	ParseErrors []string
}

// CommittedArtifact summarizes one artifact version persisted from the
// response.
type CommittedArtifact struct {
	ArtifactID   string
	ArtifactType string
	Version      int
	Staled       []string
}

// ChatMessage represents a message entity at the port boundary.
type ChatMessage struct {
	ID        string
	ProjectID string
	Role      string
	Content   string
	Sequence  int
	CreatedAt string
}
