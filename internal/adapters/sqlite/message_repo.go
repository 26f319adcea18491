package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/atelier/internal/models"
	"github.com/example/atelier/internal/realtime"
)

// MessageRepository implements secondary.MessageRepository with SQLite.
type MessageRepository struct {
	db  *sql.DB
	bus *realtime.Bus
}

// NewMessageRepository creates a new SQLite message repository.
// bus is optional - if nil, no change notifications are published.
func NewMessageRepository(db *sql.DB, bus *realtime.Bus) *MessageRepository {
	return &MessageRepository{db: db, bus: bus}
}

// Create persists a new message, assigning the next sequence number
// within its project. The sequence assignment and insert run in one
// transaction so two writers cannot claim the same slot.
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM messages WHERE project_id = ?`,
		message.ProjectID,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("failed to assign message sequence: %w", err)
	}
	message.Sequence = next

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, project_id, role, content, sequence) VALUES (?, ?, ?, ?, ?)`,
		message.ID, message.ProjectID, message.Role, message.Content, message.Sequence,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}

	if r.bus != nil {
		r.bus.Publish(realtime.Change{
			Event:     realtime.EventInsert,
			Table:     realtime.TableMessages,
			ProjectID: message.ProjectID,
			Row:       message,
		})
	}
	return nil
}

// ListByProject retrieves a project's messages in sequence order.
func (r *MessageRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]*models.Message, error) {
	query := `SELECT id, project_id, role, content, sequence, created_at FROM messages WHERE project_id = ? ORDER BY sequence`
	args := []any{projectID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		m := &models.Message{}
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Role, &m.Content, &m.Sequence, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
