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

const clubSelect = `SELECT c.id, c.school_id, s.school_name, c.club_name, c.club_code, c.status, c.created_at, c.updated_at
	FROM clubs c JOIN schools s ON s.id = c.school_id`

// ClubRepository manages persistence for clubs.
type ClubRepository struct {
	db *sqlx.DB
}

// NewClubRepository constructs a ClubRepository.
func NewClubRepository(db *sqlx.DB) *ClubRepository {
	return &ClubRepository{db: db}
}

func clubConditions(filter models.ClubFilter) (string, []interface{}) {
	var where whereBuilder
	if filter.SchoolID != "" {
		where.add("c.school_id = ?", filter.SchoolID)
	}
	if filter.Status != "" {
		where.add("c.status = ?", filter.Status)
	}
	if filter.Search != "" {
		where.add("(LOWER(c.club_name) LIKE ? OR LOWER(c.club_code) LIKE ?)", "%"+strings.ToLower(filter.Search)+"%")
	}
	return " WHERE 1=1" + where.sql(), where.args
}

func clubOrder(filter models.ClubFilter) string {
	return sortClause(map[string]string{
		"club_name":   "c.club_name",
		"club_code":   "c.club_code",
		"school_name": "s.school_name",
		"status":      "c.status",
		"created_at":  "c.created_at",
	}, filter.SortBy, "club_name", filter.SortOrder, "ASC")
}

// List returns clubs matching filters along with total count.
func (r *ClubRepository) List(ctx context.Context, filter models.ClubFilter) ([]models.Club, int, error) {
	conditions, args := clubConditions(filter)
	limit, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s ORDER BY %s LIMIT %d OFFSET %d", clubSelect, conditions, clubOrder(filter), limit, offset)
	var clubs []models.Club
	if err := r.db.SelectContext(ctx, &clubs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list clubs: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM clubs c"+conditions, args...); err != nil {
		return nil, 0, fmt.Errorf("count clubs: %w", err)
	}
	return clubs, total, nil
}

// ListAll returns every club matching filters, used by exports.
func (r *ClubRepository) ListAll(ctx context.Context, filter models.ClubFilter) ([]models.Club, error) {
	conditions, args := clubConditions(filter)
	query := fmt.Sprintf("%s%s ORDER BY %s", clubSelect, conditions, clubOrder(filter))
	var clubs []models.Club
	if err := r.db.SelectContext(ctx, &clubs, query, args...); err != nil {
		return nil, fmt.Errorf("list all clubs: %w", err)
	}
	return clubs, nil
}

// FindByID fetches a club by ID.
func (r *ClubRepository) FindByID(ctx context.Context, id string) (*models.Club, error) {
	var club models.Club
	if err := r.db.GetContext(ctx, &club, clubSelect+" WHERE c.id = $1", id); err != nil {
		return nil, err
	}
	return &club, nil
}

// Create inserts a new club.
func (r *ClubRepository) Create(ctx context.Context, club *models.Club) error {
	if club.ID == "" {
		club.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	club.CreatedAt = now
	club.UpdatedAt = now

	const query = `INSERT INTO clubs (id, school_id, club_name, club_code, status, created_at, updated_at)
		VALUES (:id, :school_id, :club_name, :club_code, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, club); err != nil {
		return fmt.Errorf("create club: %w", err)
	}
	return nil
}

// Update modifies an existing club.
func (r *ClubRepository) Update(ctx context.Context, club *models.Club) error {
	club.UpdatedAt = time.Now().UTC()
	const query = `UPDATE clubs SET school_id = :school_id, club_name = :club_name, club_code = :club_code, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, club); err != nil {
		return fmt.Errorf("update club: %w", err)
	}
	return nil
}

// ExistsByCode checks whether another club in the school uses the code.
func (r *ClubRepository) ExistsByCode(ctx context.Context, schoolID, code, excludeID string) (bool, error) {
	query := "SELECT COUNT(*) FROM clubs WHERE school_id = $1 AND LOWER(club_code) = LOWER($2)"
	args := []interface{}{schoolID, code}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("check club code: %w", err)
	}
	return count > 0, nil
}

// CountRules returns how many cover rules reference the club.
func (r *ClubRepository) CountRules(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM cover_rules WHERE club_id = $1", id); err != nil {
		return 0, fmt.Errorf("count club rules: %w", err)
	}
	return count, nil
}

// Delete removes a club.
func (r *ClubRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM clubs WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete club: %w", err)
	}
	return nil
}
