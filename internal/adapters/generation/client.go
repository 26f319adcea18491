// Package generation contains the HTTP adapter for the generative
// text-completion service.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example/atelier/internal/ports/secondary"
)

// Client implements secondary.Generator over HTTP. The completion
// endpoint accepts a conversation plus system prompt and replies either
// with one complete text blob or with an incrementally-flushed chunk
// stream, depending on the stream flag.
type Client struct {
	baseURL string
	model   string
	httpc   *http.Client
}

// NewClient creates a generation client for the given endpoint.
func NewClient(baseURL, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpc:   &http.Client{Timeout: 5 * time.Minute},
	}
}

type completionRequest struct {
	Model    string              `json:"model"`
	System   string              `json:"system,omitempty"`
	Messages []completionMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete sends the conversation and returns the full response text.
// With onChunk set, the request asks for a streamed response and onChunk
// receives the accumulated partial text after every flushed chunk. The
// context cancels the request mid-stream; a superseded submission simply
// cancels its predecessor's context.
func (c *Client) Complete(ctx context.Context, req secondary.GenerationRequest, onChunk func(partial string)) (string, error) {
	payload := completionRequest{
		Model:  c.model,
		System: req.System,
		Stream: onChunk != nil,
	}
	for _, m := range req.Messages {
		payload.Messages = append(payload.Messages, completionMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/complete", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("completion request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if onChunk == nil {
		full, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read completion response: %w", err)
		}
		return string(full), nil
	}

	var accumulated strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			accumulated.Write(buf[:n])
			onChunk(accumulated.String())
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("completion stream interrupted: %w", err)
		}
	}
	return accumulated.String(), nil
}
