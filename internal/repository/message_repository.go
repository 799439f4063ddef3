package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/clubconnect-api/internal/models"
)

// MessageRepository stores the per-recipient send log of broadcasts.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs a MessageRepository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create logs one send attempt.
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO messages (id, broadcast_id, teacher_id, recipient_email, subject, body, status, error, created_at)
		VALUES (:id, :broadcast_id, :teacher_id, :recipient_email, :subject, :body, :status, :error, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, message); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// ListByBroadcast returns the send log of a broadcast.
func (r *MessageRepository) ListByBroadcast(ctx context.Context, broadcastID string) ([]models.Message, error) {
	const query = `SELECT id, broadcast_id, teacher_id, recipient_email, subject, body, status, error, created_at
		FROM messages WHERE broadcast_id = $1 ORDER BY created_at ASC, id ASC`
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, broadcastID); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}
