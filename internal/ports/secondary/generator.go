package secondary

import "context"

// GenerationMessage is one turn of conversation history sent to the
// generation service.
type GenerationMessage struct {
	Role    string
	Content string
}

// GenerationRequest carries the conversation and system prompt for one
// completion call.
type GenerationRequest struct {
	System   string
	Messages []GenerationMessage
}

// Generator defines the secondary port for the generative text-completion
// service. Complete blocks until the response finishes, invoking onChunk
// with the accumulated partial text as streamed chunks arrive. onChunk may
// be nil when the caller has no use for previews. The returned string is
// the complete response text.
type Generator interface {
	Complete(ctx context.Context, req GenerationRequest, onChunk func(partial string)) (string, error)
}
