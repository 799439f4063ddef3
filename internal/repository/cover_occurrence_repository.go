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

const dateLayout = "2006-01-02"

const occurrenceFrom = `FROM cover_occurrences o
	JOIN cover_rules r ON r.id = o.cover_rule_id
	JOIN schools s ON s.id = r.school_id
	JOIN clubs c ON c.id = r.club_id`

const occurrenceSelect = `SELECT o.id, o.cover_rule_id, o.meeting_date, o.notes, o.status, o.priority, o.created_at, o.updated_at,
	r.school_id, s.school_name, r.club_id, c.club_name, c.club_code, r.frequency, r.day_of_week, r.start_time, r.end_time
	` + occurrenceFrom

const slotSelect = `SELECT o.id AS occurrence_id, a.teacher_id, a.status AS assignment_status, o.meeting_date,
	r.start_time, r.end_time, c.club_name, s.school_name
	FROM teacher_cover_assignments a
	JOIN cover_occurrences o ON o.id = a.cover_occurrence_id
	JOIN cover_rules r ON r.id = o.cover_rule_id
	JOIN schools s ON s.id = r.school_id
	JOIN clubs c ON c.id = r.club_id`

// CoverOccurrenceRepository manages persistence for cover occurrences.
type CoverOccurrenceRepository struct {
	db *sqlx.DB
}

// NewCoverOccurrenceRepository constructs a CoverOccurrenceRepository.
func NewCoverOccurrenceRepository(db *sqlx.DB) *CoverOccurrenceRepository {
	return &CoverOccurrenceRepository{db: db}
}

func (r *CoverOccurrenceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

func occurrenceConditions(filter models.CoverOccurrenceFilter) (string, []interface{}) {
	var where whereBuilder
	if filter.From != nil {
		where.add("o.meeting_date >= ?", filter.From.Format(dateLayout))
	}
	if filter.To != nil {
		where.add("o.meeting_date <= ?", filter.To.Format(dateLayout))
	}
	if filter.SchoolID != "" {
		where.add("r.school_id = ?", filter.SchoolID)
	}
	if filter.ClubID != "" {
		where.add("r.club_id = ?", filter.ClubID)
	}
	if filter.RuleID != "" {
		where.add("o.cover_rule_id = ?", filter.RuleID)
	}
	if filter.Status != "" {
		where.add("o.status = ?", filter.Status)
	}
	if filter.Priority != "" {
		where.add("o.priority = ?", filter.Priority)
	}
	if filter.TeacherID != "" {
		where.add("EXISTS (SELECT 1 FROM teacher_cover_assignments ta WHERE ta.cover_occurrence_id = o.id AND ta.teacher_id = ?)", filter.TeacherID)
	}
	return " WHERE 1=1" + where.sql(), where.args
}

func occurrenceOrder(filter models.CoverOccurrenceFilter) string {
	order := sortClause(map[string]string{
		"meeting_date": "o.meeting_date",
		"status":       "o.status",
		"priority":     "o.priority",
		"club_name":    "c.club_name",
		"school_name":  "s.school_name",
	}, filter.SortBy, "meeting_date", filter.SortOrder, "ASC")
	return order + ", r.start_time ASC, o.id ASC"
}

// List returns occurrences matching filters along with total count.
// Assignments are not loaded.
func (r *CoverOccurrenceRepository) List(ctx context.Context, filter models.CoverOccurrenceFilter) ([]models.CoverOccurrenceDetail, int, error) {
	conditions, args := occurrenceConditions(filter)
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY %s LIMIT %d OFFSET %d", occurrenceSelect, conditions, occurrenceOrder(filter), limit, offset)
	var occurrences []models.CoverOccurrenceDetail
	if err := r.db.SelectContext(ctx, &occurrences, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list cover occurrences: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+occurrenceFrom+conditions, args...); err != nil {
		return nil, 0, fmt.Errorf("count cover occurrences: %w", err)
	}
	return occurrences, total, nil
}

// ListAll returns every occurrence matching filters without pagination.
func (r *CoverOccurrenceRepository) ListAll(ctx context.Context, filter models.CoverOccurrenceFilter) ([]models.CoverOccurrenceDetail, error) {
	conditions, args := occurrenceConditions(filter)
	query := fmt.Sprintf("%s%s ORDER BY %s", occurrenceSelect, conditions, occurrenceOrder(filter))
	var occurrences []models.CoverOccurrenceDetail
	if err := r.db.SelectContext(ctx, &occurrences, query, args...); err != nil {
		return nil, fmt.Errorf("list all cover occurrences: %w", err)
	}
	return occurrences, nil
}

// FindDetail fetches an occurrence joined with its rule, club and school.
func (r *CoverOccurrenceRepository) FindDetail(ctx context.Context, id string) (*models.CoverOccurrenceDetail, error) {
	var occurrence models.CoverOccurrenceDetail
	if err := r.db.GetContext(ctx, &occurrence, occurrenceSelect+" WHERE o.id = $1", id); err != nil {
		return nil, err
	}
	return &occurrence, nil
}

// LatestMeetingDate returns the last materialized date of a rule.
func (r *CoverOccurrenceRepository) LatestMeetingDate(ctx context.Context, ruleID string) (*time.Time, error) {
	var latest *time.Time
	if err := r.db.GetContext(ctx, &latest, "SELECT MAX(meeting_date) FROM cover_occurrences WHERE cover_rule_id = $1", ruleID); err != nil {
		return nil, fmt.Errorf("latest meeting date: %w", err)
	}
	return latest, nil
}

// ListSlotsByDate returns every assignment held on date with its time window.
func (r *CoverOccurrenceRepository) ListSlotsByDate(ctx context.Context, date time.Time) ([]models.OccurrenceSlot, error) {
	return r.ListSlotsByDates(ctx, []time.Time{date})
}

// ListSlotsByDates returns every assignment held on any of dates.
func (r *CoverOccurrenceRepository) ListSlotsByDates(ctx context.Context, dates []time.Time) ([]models.OccurrenceSlot, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	values := make([]string, len(dates))
	for i, d := range dates {
		values[i] = d.Format(dateLayout)
	}
	query := slotSelect + " WHERE o.meeting_date = ANY($1::date[]) ORDER BY o.meeting_date ASC, r.start_time ASC"
	var slots []models.OccurrenceSlot
	if err := r.db.SelectContext(ctx, &slots, query, pq.Array(values)); err != nil {
		return nil, fmt.Errorf("list occurrence slots: %w", err)
	}
	return slots, nil
}

// InsertBatch writes occurrences using exec, which may be a transaction.
func (r *CoverOccurrenceRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, occurrences []models.CoverOccurrence) error {
	target := r.exec(exec)
	now := time.Now().UTC()
	const query = `INSERT INTO cover_occurrences (id, cover_rule_id, meeting_date, notes, status, priority, created_at, updated_at)
		VALUES (:id, :cover_rule_id, :meeting_date, :notes, :status, :priority, :created_at, :updated_at)`
	for i := range occurrences {
		occ := &occurrences[i]
		if occ.ID == "" {
			occ.ID = uuid.NewString()
		}
		occ.CreatedAt = now
		occ.UpdatedAt = now
		if _, err := sqlx.NamedExecContext(ctx, target, query, occ); err != nil {
			return fmt.Errorf("create cover occurrence: %w", err)
		}
	}
	return nil
}

// Update rewrites the per-occurrence fields. cover_rule_id is never changed.
func (r *CoverOccurrenceRepository) Update(ctx context.Context, exec sqlx.ExtContext, occurrence *models.CoverOccurrence) error {
	occurrence.UpdatedAt = time.Now().UTC()
	const query = `UPDATE cover_occurrences SET meeting_date = :meeting_date, notes = :notes, status = :status, priority = :priority, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, occurrence); err != nil {
		return fmt.Errorf("update cover occurrence: %w", err)
	}
	return nil
}

// Delete removes one occurrence row using exec.
func (r *CoverOccurrenceRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := r.exec(exec).ExecContext(ctx, "DELETE FROM cover_occurrences WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete cover occurrence: %w", err)
	}
	return nil
}

// DeleteByRule removes every occurrence of a rule using exec.
func (r *CoverOccurrenceRepository) DeleteByRule(ctx context.Context, exec sqlx.ExtContext, ruleID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, "DELETE FROM cover_occurrences WHERE cover_rule_id = $1", ruleID); err != nil {
		return fmt.Errorf("delete rule occurrences: %w", err)
	}
	return nil
}
