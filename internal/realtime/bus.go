// Package realtime provides the in-process change feed: row-level
// insert/update/delete notifications published by the persistence
// adapters and consumed by the pipeline manager and the WebSocket hub.
package realtime

import (
	"sync"
	"time"
)

// EventType identifies the kind of row change.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Table names carried on changes.
const (
	TableProjects  = "projects"
	TableMessages  = "messages"
	TableArtifacts = "artifacts"
)

// Change is a single row-change notification.
type Change struct {
	Event     EventType   `json:"event"`
	Table     string      `json:"table"`
	ProjectID string      `json:"project_id"`
	Row       interface{} `json:"row"`
	Timestamp time.Time   `json:"timestamp"`
}

// Subscription is one registered consumer. Changes arrive on C. A
// subscription only ever receives changes matching its table and project
// filters, so a consumer scoped to project A can never observe rows from
// project B.
type Subscription struct {
	C         chan Change
	id        int
	table     string // "" matches every table
	projectID string // "" matches every project
	bus       *Bus
}

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s.id)
}

// Bus is a filtered pub/sub feed over row changes.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*Subscription
	nextID int
}

// NewBus creates an empty change bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]*Subscription)}
}

// Subscribe registers a consumer for changes on the given table scoped to
// the given project. Empty strings act as wildcards.
func (b *Bus) Subscribe(table, projectID string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{
		C:         make(chan Change, 64),
		id:        b.nextID,
		table:     table,
		projectID: projectID,
		bus:       b,
	}
	b.subs[sub.id] = sub
	return sub
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.C)
	}
}

// Publish delivers a change to every matching subscriber without
// blocking. A subscriber whose buffer is full misses the notification;
// consumers must treat delivery as at-least-once, not exactly-once, and
// reconcile idempotently.
func (b *Bus) Publish(change Change) {
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.table != "" && sub.table != change.Table {
			continue
		}
		if sub.projectID != "" && sub.projectID != change.ProjectID {
			continue
		}
		select {
		case sub.C <- change:
		default:
			// Drop if subscriber is full
		}
	}
}
