package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/clubconnect-api/internal/models"
	appErrors "github.com/noah-isme/clubconnect-api/pkg/errors"
)

type schoolRepository interface {
	List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error)
	FindByID(ctx context.Context, id string) (*models.School, error)
	Create(ctx context.Context, school *models.School) error
	Update(ctx context.Context, school *models.School) error
	CountClubs(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) error
}

// SchoolRequest is the payload for creating or updating schools.
type SchoolRequest struct {
	SchoolName string              `json:"school_name" validate:"required,max=255"`
	Status     models.RecordStatus `json:"status" validate:"omitempty,oneof=active inactive"`
}

// SchoolService orchestrates school operations.
type SchoolService struct {
	repo      schoolRepository
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolService constructs a SchoolService.
func NewSchoolService(repo schoolRepository, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *SchoolService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchoolService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns schools plus pagination data.
func (s *SchoolService) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, *models.Pagination, error) {
	if err := checkSort(SchoolTable.SortColumn, filter.SortBy); err != nil {
		return nil, nil, err
	}
	schools, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list schools")
	}
	return schools, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a school by id.
func (s *SchoolService) Get(ctx context.Context, id string) (*models.School, error) {
	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "school")
	}
	return school, nil
}

// Create registers a new school, active unless stated otherwise.
func (s *SchoolService) Create(ctx context.Context, req SchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid school payload")
	}
	school := &models.School{SchoolName: strings.TrimSpace(req.SchoolName), Status: statusOrActive(req.Status)}
	if err := s.repo.Create(ctx, school); err != nil {
		return nil, appErrors.Internal(err, "failed to create school")
	}
	return school, nil
}

// Update renames a school or changes its status.
func (s *SchoolService) Update(ctx context.Context, id string, req SchoolRequest) (*models.School, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid school payload")
	}
	school, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	school.SchoolName = strings.TrimSpace(req.SchoolName)
	if req.Status != "" {
		school.Status = req.Status
	}
	if err := s.repo.Update(ctx, school); err != nil {
		return nil, appErrors.Internal(err, "failed to update school")
	}
	dropCalendarCache(ctx, s.cache, s.logger)
	return school, nil
}

// Delete removes a school that no longer has clubs.
func (s *SchoolService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountClubs(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to count school clubs")
	}
	if count > 0 {
		return appErrors.WithDetails(appErrors.ErrConflict, "school still has clubs", map[string]int{"clubs": count})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Internal(err, "failed to delete school")
	}
	return nil
}

func statusOrActive(status models.RecordStatus) models.RecordStatus {
	if status == "" {
		return models.StatusActive
	}
	return status
}

// checkSort rejects sort keys the table descriptor does not mark sortable.
func checkSort(lookup func(string) (string, bool), sortBy string) error {
	if sortBy == "" {
		return nil
	}
	if _, ok := lookup(sortBy); !ok {
		return appErrors.Clone(appErrors.ErrValidation, "unsupported sort_by "+sortBy)
	}
	return nil
}
