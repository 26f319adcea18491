package server

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/atelier/internal/models"
	"github.com/example/atelier/internal/realtime"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient is one connected WebSocket consumer, optionally scoped to a
// single project.
type wsClient struct {
	conn      *websocket.Conn
	projectID string // "" receives every project's changes
}

// WSHub relays realtime changes to connected WebSocket clients. Clients
// scoped to a project only ever receive that project's rows.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*wsClient]bool
	bus     *realtime.Bus
}

// NewWSHub creates a new WebSocket hub over the given change bus.
func NewWSHub(bus *realtime.Bus) *WSHub {
	return &WSHub{
		clients: make(map[*wsClient]bool),
		bus:     bus,
	}
}

// Run pumps bus changes to clients until the context is cancelled.
func (h *WSHub) Run(ctx context.Context) error {
	sub := h.bus.Subscribe("", "")
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-sub.C:
			if !ok {
				return nil
			}
			h.broadcast(change)
		}
	}
}

// HandleWS upgrades the request and registers the connection. The
// optional ?project= query parameter scopes the feed to one project.
func (h *WSHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	client := &wsClient{conn: conn, projectID: r.URL.Query().Get("project")}
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	// Read loop exists to observe the close; inbound frames are ignored.
	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, client)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *WSHub) broadcast(change realtime.Change) {
	payload := wireChange(change)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.projectID != "" && client.projectID != change.ProjectID {
			continue
		}
		if err := client.conn.WriteJSON(payload); err != nil {
			// Write errors surface again in the read loop, which
			// unregisters the client.
			continue
		}
	}
}

// wireChange converts a bus change to its JSON-friendly wire shape.
func wireChange(change realtime.Change) map[string]any {
	out := map[string]any{
		"event":      string(change.Event),
		"table":      change.Table,
		"project_id": change.ProjectID,
		"timestamp":  change.Timestamp,
	}
	switch row := change.Row.(type) {
	case *models.Artifact:
		out["row"] = toArtifactJSON(row)
	case *models.Message:
		out["row"] = map[string]any{
			"id":         row.ID,
			"project_id": row.ProjectID,
			"role":       row.Role,
			"content":    row.Content,
			"sequence":   row.Sequence,
		}
	case *models.Project:
		out["row"] = map[string]any{
			"id":            row.ID,
			"name":          row.Name,
			"mode":          row.Mode,
			"status":        row.Status,
			"current_stage": row.CurrentStage.String,
		}
	default:
		out["row"] = change.Row
	}
	return out
}
