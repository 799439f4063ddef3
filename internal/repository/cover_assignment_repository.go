package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/clubconnect-api/internal/models"
)

const assignmentDetailSelect = `SELECT a.id, a.teacher_id, a.cover_occurrence_id, a.status, a.created_at, a.updated_at,
	p.first_name AS teacher_first_name, p.last_name AS teacher_last_name, p.email AS teacher_email
	FROM teacher_cover_assignments a
	JOIN teachers t ON t.id = a.teacher_id
	JOIN person_details p ON p.id = t.person_details_id`

// CoverAssignmentRepository manages teacher-to-occurrence links.
type CoverAssignmentRepository struct {
	db *sqlx.DB
}

// NewCoverAssignmentRepository constructs a CoverAssignmentRepository.
func NewCoverAssignmentRepository(db *sqlx.DB) *CoverAssignmentRepository {
	return &CoverAssignmentRepository{db: db}
}

func (r *CoverAssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListByOccurrences returns assignments with teacher names for the given occurrences.
func (r *CoverAssignmentRepository) ListByOccurrences(ctx context.Context, occurrenceIDs []string) ([]models.CoverAssignmentDetail, error) {
	if len(occurrenceIDs) == 0 {
		return nil, nil
	}
	query := assignmentDetailSelect + " WHERE a.cover_occurrence_id = ANY($1) ORDER BY a.created_at ASC, a.id ASC"
	var assignments []models.CoverAssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, pq.Array(occurrenceIDs)); err != nil {
		return nil, fmt.Errorf("list cover assignments: %w", err)
	}
	return assignments, nil
}

// FindByID fetches an assignment by ID.
func (r *CoverAssignmentRepository) FindByID(ctx context.Context, id string) (*models.TeacherCoverAssignment, error) {
	const query = `SELECT id, teacher_id, cover_occurrence_id, status, created_at, updated_at FROM teacher_cover_assignments WHERE id = $1`
	var assignment models.TeacherCoverAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// InsertBatch writes assignments using exec, which may be a transaction.
func (r *CoverAssignmentRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, assignments []models.TeacherCoverAssignment) error {
	target := r.exec(exec)
	now := time.Now().UTC()
	const query = `INSERT INTO teacher_cover_assignments (id, teacher_id, cover_occurrence_id, status, created_at, updated_at)
		VALUES (:id, :teacher_id, :cover_occurrence_id, :status, :created_at, :updated_at)`
	for i := range assignments {
		assignment := &assignments[i]
		if assignment.ID == "" {
			assignment.ID = uuid.NewString()
		}
		assignment.CreatedAt = now
		assignment.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, assignment); err != nil {
			return fmt.Errorf("create cover assignment: %w", err)
		}
	}
	return nil
}

// UpdateStatus records a teacher's response.
func (r *CoverAssignmentRepository) UpdateStatus(ctx context.Context, id string, status models.AssignmentStatus) error {
	const query = `UPDATE teacher_cover_assignments SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update cover assignment status: %w", err)
	}
	return nil
}

// Delete removes one assignment.
func (r *CoverAssignmentRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM teacher_cover_assignments WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete cover assignment: %w", err)
	}
	return nil
}

// DeleteByOccurrence removes the assignment set of one occurrence using exec.
func (r *CoverAssignmentRepository) DeleteByOccurrence(ctx context.Context, exec sqlx.ExtContext, occurrenceID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, "DELETE FROM teacher_cover_assignments WHERE cover_occurrence_id = $1", occurrenceID); err != nil {
		return fmt.Errorf("delete occurrence assignments: %w", err)
	}
	return nil
}

// DeleteByRule removes the assignments of every occurrence of a rule using exec.
func (r *CoverAssignmentRepository) DeleteByRule(ctx context.Context, exec sqlx.ExtContext, ruleID string) error {
	const query = `DELETE FROM teacher_cover_assignments WHERE cover_occurrence_id IN (SELECT id FROM cover_occurrences WHERE cover_rule_id = $1)`
	if _, err := r.exec(exec).ExecContext(ctx, query, ruleID); err != nil {
		return fmt.Errorf("delete rule assignments: %w", err)
	}
	return nil
}
