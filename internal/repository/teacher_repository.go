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

const teacherSelect = `SELECT t.id, t.person_details_id, p.first_name, p.last_name, p.email, p.phone,
	t.primary_styles, t.secondary_styles, t.is_blocked, t.created_at, t.updated_at
	FROM teachers t JOIN person_details p ON p.id = t.person_details_id`

// TeacherRepository manages persistence for teachers and their person details.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

func teacherConditions(filter models.TeacherFilter) (string, []interface{}) {
	var where whereBuilder
	if filter.Blocked != nil {
		where.add("t.is_blocked = ?", *filter.Blocked)
	}
	if filter.Search != "" {
		where.add("(LOWER(p.first_name) LIKE ? OR LOWER(p.last_name) LIKE ? OR LOWER(p.email) LIKE ?)", "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Style != "" {
		where.add("(? = ANY(t.primary_styles) OR ? = ANY(t.secondary_styles))", filter.Style)
	}
	if len(filter.IDs) > 0 {
		where.add("t.id = ANY(?)", pq.Array(filter.IDs))
	}
	return " WHERE 1=1" + where.sql(), where.args
}

func teacherOrder(filter models.TeacherFilter) string {
	return sortClause(map[string]string{
		"first_name": "p.first_name",
		"last_name":  "p.last_name",
		"email":      "p.email",
		"is_blocked": "t.is_blocked",
		"created_at": "t.created_at",
	}, filter.SortBy, "last_name", filter.SortOrder, "ASC")
}

// List returns teachers matching filters along with total count.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	conditions, args := teacherConditions(filter)
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY %s LIMIT %d OFFSET %d", teacherSelect, conditions, teacherOrder(filter), limit, offset)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM teachers t JOIN person_details p ON p.id = t.person_details_id" + conditions
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// ListAll returns every teacher matching filters without pagination.
func (r *TeacherRepository) ListAll(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, error) {
	conditions, args := teacherConditions(filter)
	query := fmt.Sprintf("%s%s ORDER BY %s", teacherSelect, conditions, teacherOrder(filter))
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, fmt.Errorf("list all teachers: %w", err)
	}
	return teachers, nil
}

// FindByID fetches a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, teacherSelect+" WHERE t.id = $1", id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ExistsByEmail checks if another person uses the same email.
func (r *TeacherRepository) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	query := "SELECT COUNT(*) FROM teachers t JOIN person_details p ON p.id = t.person_details_id WHERE LOWER(p.email) = LOWER($1)"
	args := []interface{}{email}
	if excludeID != "" {
		query += " AND t.id <> $2"
		args = append(args, excludeID)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("check teacher email: %w", err)
	}
	return count > 0, nil
}

// Create inserts the person details and teacher rows in one transaction.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	if teacher.PersonDetailsID == "" {
		teacher.PersonDetailsID = uuid.NewString()
	}
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	normalizeStyles(teacher)

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const personQuery = `INSERT INTO person_details (id, first_name, last_name, email, phone)
			VALUES (:id, :first_name, :last_name, :email, :phone)`
		if _, err := tx.NamedExecContext(ctx, personQuery, teacher.Person()); err != nil {
			return fmt.Errorf("create person details: %w", err)
		}
		const teacherQuery = `INSERT INTO teachers (id, person_details_id, primary_styles, secondary_styles, is_blocked, created_at, updated_at)
			VALUES (:id, :person_details_id, :primary_styles, :secondary_styles, :is_blocked, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, teacherQuery, teacher); err != nil {
			return fmt.Errorf("create teacher: %w", err)
		}
		return nil
	})
}

// Update modifies the teacher and person details rows in one transaction.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	normalizeStyles(teacher)

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const personQuery = `UPDATE person_details SET first_name = :first_name, last_name = :last_name, email = :email, phone = :phone WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, personQuery, teacher.Person()); err != nil {
			return fmt.Errorf("update person details: %w", err)
		}
		const teacherQuery = `UPDATE teachers SET primary_styles = :primary_styles, secondary_styles = :secondary_styles, is_blocked = :is_blocked, updated_at = :updated_at WHERE id = :id`
		if _, err := tx.NamedExecContext(ctx, teacherQuery, teacher); err != nil {
			return fmt.Errorf("update teacher: %w", err)
		}
		return nil
	})
}

// SetBlocked toggles whether the teacher may receive new assignments.
func (r *TeacherRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	const query = `UPDATE teachers SET is_blocked = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, blocked, time.Now().UTC()); err != nil {
		return fmt.Errorf("set teacher blocked: %w", err)
	}
	return nil
}

// CountAssignments returns how many cover assignments reference the teacher.
func (r *TeacherRepository) CountAssignments(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM teacher_cover_assignments WHERE teacher_id = $1", id); err != nil {
		return 0, fmt.Errorf("count teacher assignments: %w", err)
	}
	return count, nil
}

// Delete removes the teacher and their person details in one transaction.
func (r *TeacherRepository) Delete(ctx context.Context, teacher *models.Teacher) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM teachers WHERE id = $1", teacher.ID); err != nil {
			return fmt.Errorf("delete teacher: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM person_details WHERE id = $1", teacher.PersonDetailsID); err != nil {
			return fmt.Errorf("delete person details: %w", err)
		}
		return nil
	})
}

func normalizeStyles(teacher *models.Teacher) {
	if teacher.PrimaryStyles == nil {
		teacher.PrimaryStyles = pq.StringArray{}
	}
	if teacher.SecondaryStyles == nil {
		teacher.SecondaryStyles = pq.StringArray{}
	}
}
