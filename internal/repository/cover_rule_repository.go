package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/clubconnect-api/internal/models"
)

const coverRuleColumns = "id, school_id, club_id, frequency, day_of_week, start_time, end_time, status, created_at, updated_at"

const coverRuleDetailSelect = `SELECT r.id, r.school_id, r.club_id, r.frequency, r.day_of_week, r.start_time, r.end_time, r.status, r.created_at, r.updated_at,
	s.school_name, c.club_name, COUNT(o.id) AS occurrence_count, MAX(o.meeting_date) AS last_meeting_date
	FROM cover_rules r
	JOIN schools s ON s.id = r.school_id
	JOIN clubs c ON c.id = r.club_id
	LEFT JOIN cover_occurrences o ON o.cover_rule_id = r.id`

const coverRuleGroupBy = " GROUP BY r.id, s.school_name, c.club_name"

// CoverRuleRepository manages persistence for cover rules.
type CoverRuleRepository struct {
	db *sqlx.DB
}

// NewCoverRuleRepository constructs a CoverRuleRepository.
func NewCoverRuleRepository(db *sqlx.DB) *CoverRuleRepository {
	return &CoverRuleRepository{db: db}
}

func (r *CoverRuleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns rules with names and materialization stats.
func (r *CoverRuleRepository) List(ctx context.Context, filter models.CoverRuleFilter) ([]models.CoverRuleDetail, int, error) {
	var where whereBuilder
	if filter.SchoolID != "" {
		where.add("r.school_id = ?", filter.SchoolID)
	}
	if filter.ClubID != "" {
		where.add("r.club_id = ?", filter.ClubID)
	}
	if filter.Status != "" {
		where.add("r.status = ?", filter.Status)
	}
	conditions := " WHERE 1=1" + where.sql()
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s%s ORDER BY r.day_of_week ASC, r.start_time ASC LIMIT %d OFFSET %d", coverRuleDetailSelect, conditions, coverRuleGroupBy, limit, offset)
	var rules []models.CoverRuleDetail
	if err := r.db.SelectContext(ctx, &rules, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list cover rules: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM cover_rules r"+conditions, where.args...); err != nil {
		return nil, 0, fmt.Errorf("count cover rules: %w", err)
	}
	return rules, total, nil
}

// FindByID fetches a rule by ID.
func (r *CoverRuleRepository) FindByID(ctx context.Context, id string) (*models.CoverRule, error) {
	var rule models.CoverRule
	if err := r.db.GetContext(ctx, &rule, "SELECT "+coverRuleColumns+" FROM cover_rules WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &rule, nil
}

// FindDetail fetches a rule with names and materialization stats.
func (r *CoverRuleRepository) FindDetail(ctx context.Context, id string) (*models.CoverRuleDetail, error) {
	var rule models.CoverRuleDetail
	if err := r.db.GetContext(ctx, &rule, coverRuleDetailSelect+" WHERE r.id = $1"+coverRuleGroupBy, id); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Insert writes a new rule using exec, which may be a transaction.
func (r *CoverRuleRepository) Insert(ctx context.Context, exec sqlx.ExtContext, rule *models.CoverRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	const query = `INSERT INTO cover_rules (id, school_id, club_id, frequency, day_of_week, start_time, end_time, status, created_at, updated_at)
		VALUES (:id, :school_id, :club_id, :frequency, :day_of_week, :start_time, :end_time, :status, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, rule); err != nil {
		return fmt.Errorf("create cover rule: %w", err)
	}
	return nil
}

// Update rewrites the pattern fields of a rule. Occurrence rows are untouched.
func (r *CoverRuleRepository) Update(ctx context.Context, rule *models.CoverRule) error {
	rule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE cover_rules SET school_id = :school_id, club_id = :club_id, frequency = :frequency, day_of_week = :day_of_week,
		start_time = :start_time, end_time = :end_time, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("update cover rule: %w", err)
	}
	return nil
}

// CountOccurrences returns how many occurrences reference the rule.
func (r *CoverRuleRepository) CountOccurrences(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM cover_occurrences WHERE cover_rule_id = $1", id); err != nil {
		return 0, fmt.Errorf("count rule occurrences: %w", err)
	}
	return count, nil
}

// Delete removes a rule row using exec, which may be a transaction.
func (r *CoverRuleRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := r.exec(exec).ExecContext(ctx, "DELETE FROM cover_rules WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete cover rule: %w", err)
	}
	return nil
}
