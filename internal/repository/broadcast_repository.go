package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/clubconnect-api/internal/models"
	"github.com/noah-isme/clubconnect-api/pkg/database"
)

const broadcastColumns = `id, subject, body, body_format, recipient_ids, recipients_count, sent_count, failed_count,
	status, created_by, sent_at, created_at, updated_at`

// BroadcastRepository manages persistence for broadcasts.
type BroadcastRepository struct {
	db *sqlx.DB
}

// NewBroadcastRepository constructs a BroadcastRepository.
func NewBroadcastRepository(db *sqlx.DB) *BroadcastRepository {
	return &BroadcastRepository{db: db}
}

// List returns broadcasts newest first along with total count.
func (r *BroadcastRepository) List(ctx context.Context, filter models.BroadcastFilter) ([]models.Broadcast, int, error) {
	var where whereBuilder
	if filter.Status != "" {
		where.add("status = ?", filter.Status)
	}
	if filter.Search != "" {
		where.add("LOWER(subject) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}
	base := "FROM broadcasts WHERE 1=1" + where.sql()
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", broadcastColumns, base, limit, offset)
	var broadcasts []models.Broadcast
	if err := r.db.SelectContext(ctx, &broadcasts, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list broadcasts: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count broadcasts: %w", err)
	}
	return broadcasts, total, nil
}

// FindByID fetches a broadcast by ID.
func (r *BroadcastRepository) FindByID(ctx context.Context, id string) (*models.Broadcast, error) {
	var broadcast models.Broadcast
	if err := r.db.GetContext(ctx, &broadcast, "SELECT "+broadcastColumns+" FROM broadcasts WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &broadcast, nil
}

// Create inserts a new broadcast.
func (r *BroadcastRepository) Create(ctx context.Context, broadcast *models.Broadcast) error {
	if broadcast.ID == "" {
		broadcast.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	broadcast.CreatedAt = now
	broadcast.UpdatedAt = now

	const query = `INSERT INTO broadcasts (id, subject, body, body_format, recipient_ids, recipients_count, sent_count, failed_count, status, created_by, sent_at, created_at, updated_at)
		VALUES (:id, :subject, :body, :body_format, :recipient_ids, :recipients_count, :sent_count, :failed_count, :status, :created_by, :sent_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, broadcast); err != nil {
		return fmt.Errorf("create broadcast: %w", err)
	}
	return nil
}

// Update rewrites the draft fields of a broadcast.
func (r *BroadcastRepository) Update(ctx context.Context, broadcast *models.Broadcast) error {
	broadcast.UpdatedAt = time.Now().UTC()
	const query = `UPDATE broadcasts SET subject = :subject, body = :body, body_format = :body_format, recipient_ids = :recipient_ids,
		recipients_count = :recipients_count, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, broadcast); err != nil {
		return fmt.Errorf("update broadcast: %w", err)
	}
	return nil
}

// TransitionStatus moves a broadcast from one status to another and reports
// whether the row was in the expected state.
func (r *BroadcastRepository) TransitionStatus(ctx context.Context, id string, from []models.BroadcastStatus, to models.BroadcastStatus) (bool, error) {
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	const query = `UPDATE broadcasts SET status = $2, updated_at = $3 WHERE id = $1 AND status = ANY($4)`
	res, err := r.db.ExecContext(ctx, query, id, to, time.Now().UTC(), pq.Array(states))
	if err != nil {
		return false, fmt.Errorf("transition broadcast status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition broadcast status: %w", err)
	}
	return affected > 0, nil
}

// SaveResult stores the aggregate outcome of a send.
func (r *BroadcastRepository) SaveResult(ctx context.Context, broadcast *models.Broadcast) error {
	broadcast.UpdatedAt = time.Now().UTC()
	const query = `UPDATE broadcasts SET recipients_count = :recipients_count, sent_count = :sent_count, failed_count = :failed_count,
		status = :status, sent_at = :sent_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, broadcast); err != nil {
		return fmt.Errorf("save broadcast result: %w", err)
	}
	return nil
}

// ReleaseScheduled moves broadcasts scheduled before the cutoff back to draft.
func (r *BroadcastRepository) ReleaseScheduled(ctx context.Context, before time.Time) (int, error) {
	const query = `UPDATE broadcasts SET status = $1, updated_at = $2 WHERE status = $3 AND updated_at <= $4`
	res, err := r.db.ExecContext(ctx, query, models.BroadcastDraft, time.Now().UTC(), models.BroadcastScheduled, before)
	if err != nil {
		return 0, fmt.Errorf("release scheduled broadcasts: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("release scheduled broadcasts: %w", err)
	}
	return int(affected), nil
}

// Delete removes a broadcast and its message log.
func (r *BroadcastRepository) Delete(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE broadcast_id = $1", id); err != nil {
			return fmt.Errorf("delete broadcast messages: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM broadcasts WHERE id = $1", id); err != nil {
			return fmt.Errorf("delete broadcast: %w", err)
		}
		return nil
	})
}
