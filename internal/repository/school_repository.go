package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/clubconnect-api/internal/models"
)

const schoolColumns = "id, school_name, status, created_at, updated_at"

// SchoolRepository manages persistence for schools.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs a SchoolRepository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

func schoolConditions(filter models.SchoolFilter) (string, []interface{}) {
	var where whereBuilder
	if filter.Status != "" {
		where.add("status = ?", filter.Status)
	}
	if filter.Search != "" {
		where.add("LOWER(school_name) LIKE ?", "%"+strings.ToLower(filter.Search)+"%")
	}
	return "FROM schools WHERE 1=1" + where.sql(), where.args
}

func schoolOrder(filter models.SchoolFilter) string {
	return sortClause(map[string]string{
		"school_name": "school_name",
		"status":      "status",
		"created_at":  "created_at",
	}, filter.SortBy, "school_name", filter.SortOrder, "ASC")
}

// List returns schools matching filters along with total count.
func (r *SchoolRepository) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error) {
	base, args := schoolConditions(filter)
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d", schoolColumns, base, schoolOrder(filter), limit, offset)
	var schools []models.School
	if err := r.db.SelectContext(ctx, &schools, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schools: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count schools: %w", err)
	}
	return schools, total, nil
}

// ListAll returns every school matching filters, used by exports.
func (r *SchoolRepository) ListAll(ctx context.Context, filter models.SchoolFilter) ([]models.School, error) {
	base, args := schoolConditions(filter)
	query := fmt.Sprintf("SELECT %s %s ORDER BY %s", schoolColumns, base, schoolOrder(filter))
	var schools []models.School
	if err := r.db.SelectContext(ctx, &schools, query, args...); err != nil {
		return nil, fmt.Errorf("list all schools: %w", err)
	}
	return schools, nil
}

// FindByID fetches a school by ID.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	var school models.School
	if err := r.db.GetContext(ctx, &school, "SELECT "+schoolColumns+" FROM schools WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &school, nil
}

// Create inserts a new school.
func (r *SchoolRepository) Create(ctx context.Context, school *models.School) error {
	if school.ID == "" {
		school.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	school.CreatedAt = now
	school.UpdatedAt = now

	const query = `INSERT INTO schools (id, school_name, status, created_at, updated_at)
		VALUES (:id, :school_name, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, school); err != nil {
		return fmt.Errorf("create school: %w", err)
	}
	return nil
}

// Update modifies an existing school.
func (r *SchoolRepository) Update(ctx context.Context, school *models.School) error {
	school.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schools SET school_name = :school_name, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, school); err != nil {
		return fmt.Errorf("update school: %w", err)
	}
	return nil
}

// CountClubs returns how many clubs belong to the school.
func (r *SchoolRepository) CountClubs(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM clubs WHERE school_id = $1", id); err != nil {
		return 0, fmt.Errorf("count school clubs: %w", err)
	}
	return count, nil
}

// Delete removes a school.
func (r *SchoolRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM schools WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete school: %w", err)
	}
	return nil
}
