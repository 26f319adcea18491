package models

import "time"

// Message represents one chat message in a project conversation.
// Sequence orders messages within a project; it is assigned by the store.
type Message struct {
	ID        string
	ProjectID string
	Role      string
	Content   string
	Sequence  int
	CreatedAt time.Time
}

// Message role constants
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)
