package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/clubconnect-api/internal/models"
	appErrors "github.com/noah-isme/clubconnect-api/pkg/errors"
)

type clubRepository interface {
	List(ctx context.Context, filter models.ClubFilter) ([]models.Club, int, error)
	FindByID(ctx context.Context, id string) (*models.Club, error)
	Create(ctx context.Context, club *models.Club) error
	Update(ctx context.Context, club *models.Club) error
	ExistsByCode(ctx context.Context, schoolID, code, excludeID string) (bool, error)
	CountRules(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

type schoolLookup interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

// ClubRequest is the payload for creating or updating clubs.
type ClubRequest struct {
	SchoolID string              `json:"school_id" validate:"required"`
	ClubName string              `json:"club_name" validate:"required,max=255"`
	ClubCode string              `json:"club_code" validate:"required,max=50"`
	Status   models.RecordStatus `json:"status" validate:"omitempty,oneof=active inactive"`
}

// ClubService orchestrates club operations.
type ClubService struct {
	repo      clubRepository
	schools   schoolLookup
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClubService constructs a ClubService.
func NewClubService(repo clubRepository, schools schoolLookup, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ClubService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClubService{repo: repo, schools: schools, cache: cache, validator: validate, logger: logger}
}

// List returns clubs plus pagination data.
func (s *ClubService) List(ctx context.Context, filter models.ClubFilter) ([]models.Club, *models.Pagination, error) {
	if err := checkSort(ClubTable.SortColumn, filter.SortBy); err != nil {
		return nil, nil, err
	}
	clubs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list clubs")
	}
	return clubs, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a club by id.
func (s *ClubService) Get(ctx context.Context, id string) (*models.Club, error) {
	club, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "club")
	}
	return club, nil
}

// Create registers a club at an existing school. Codes are unique per school.
func (s *ClubService) Create(ctx context.Context, req ClubRequest) (*models.Club, error) {
	if err := s.validate(ctx, req, ""); err != nil {
		return nil, err
	}
	club := &models.Club{
		SchoolID: req.SchoolID,
		ClubName: strings.TrimSpace(req.ClubName),
		ClubCode: strings.TrimSpace(req.ClubCode),
		Status:   statusOrActive(req.Status),
	}
	if err := s.repo.Create(ctx, club); err != nil {
		return nil, appErrors.Internal(err, "failed to create club")
	}
	return s.Get(ctx, club.ID)
}

// Update modifies a club. Calendar titles carry the club name, so cached
// calendars are dropped.
func (s *ClubService) Update(ctx context.Context, id string, req ClubRequest) (*models.Club, error) {
	club, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, req, id); err != nil {
		return nil, err
	}
	club.SchoolID = req.SchoolID
	club.ClubName = strings.TrimSpace(req.ClubName)
	club.ClubCode = strings.TrimSpace(req.ClubCode)
	if req.Status != "" {
		club.Status = req.Status
	}
	if err := s.repo.Update(ctx, club); err != nil {
		return nil, appErrors.Internal(err, "failed to update club")
	}
	dropCalendarCache(ctx, s.cache, s.logger)
	return s.Get(ctx, id)
}

// Delete removes a club that no cover rule references.
func (s *ClubService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountRules(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to count club covers")
	}
	if count > 0 {
		return appErrors.WithDetails(appErrors.ErrConflict, "club still has cover rules", map[string]int{"cover_rules": count})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Internal(err, "failed to delete club")
	}
	return nil
}

func (s *ClubService) validate(ctx context.Context, req ClubRequest, excludeID string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Validation(err, "invalid club payload")
	}
	if _, err := s.schools.FindByID(ctx, req.SchoolID); err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrValidation, "school does not exist")
		}
		return appErrors.Internal(err, "failed to load school")
	}
	exists, err := s.repo.ExistsByCode(ctx, req.SchoolID, strings.TrimSpace(req.ClubCode), excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to check club code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "club code already used at this school")
	}
	return nil
}
