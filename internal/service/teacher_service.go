package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/clubconnect-api/internal/models"
	appErrors "github.com/noah-isme/clubconnect-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
	CountAssignments(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, teacher *models.Teacher) error
}

// TeacherRequest is the payload for creating or updating teachers.
type TeacherRequest struct {
	FirstName       string   `json:"first_name" validate:"required,max=100"`
	LastName        string   `json:"last_name" validate:"required,max=100"`
	Email           string   `json:"email" validate:"required,email"`
	Phone           *string  `json:"phone" validate:"omitempty,max=50"`
	PrimaryStyles   []string `json:"primary_styles" validate:"omitempty,dive,max=50"`
	SecondaryStyles []string `json:"secondary_styles" validate:"omitempty,dive,max=50"`
	IsBlocked       *bool    `json:"is_blocked"`
}

// TeacherService orchestrates teacher operations.
type TeacherService struct {
	repo      teacherRepository
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns teachers plus pagination data.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	if err := checkSort(TeacherTable.SortColumn, filter.SortBy); err != nil {
		return nil, nil, err
	}
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list teachers")
	}
	return teachers, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "teacher")
	}
	return teacher, nil
}

// Create registers a teacher and their person details.
func (s *TeacherService) Create(ctx context.Context, req TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid teacher payload")
	}
	if err := s.ensureUniqueEmail(ctx, req.Email, ""); err != nil {
		return nil, err
	}
	teacher := &models.Teacher{}
	applyTeacherRequest(teacher, req)
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Internal(err, "failed to create teacher")
	}
	return teacher, nil
}

// Update modifies a teacher. Calendar events show teacher names, so cached
// calendars are dropped.
func (s *TeacherService) Update(ctx context.Context, id string, req TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid teacher payload")
	}
	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueEmail(ctx, req.Email, id); err != nil {
		return nil, err
	}
	applyTeacherRequest(teacher, req)
	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Internal(err, "failed to update teacher")
	}
	dropCalendarCache(ctx, s.cache, s.logger)
	return teacher, nil
}

// SetBlocked blocks or unblocks a teacher. Blocked teachers keep their
// existing assignments but cannot be given new ones.
func (s *TeacherService) SetBlocked(ctx context.Context, id string, blocked bool) (*models.Teacher, error) {
	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if teacher.IsBlocked == blocked {
		return teacher, nil
	}
	if err := s.repo.SetBlocked(ctx, id, blocked); err != nil {
		return nil, appErrors.Internal(err, "failed to update teacher block")
	}
	teacher.IsBlocked = blocked
	s.logger.Info("teacher block changed", zap.String("teacher_id", id), zap.Bool("blocked", blocked))
	return teacher, nil
}

// Delete removes a teacher without cover assignments.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	teacher, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.repo.CountAssignments(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to count teacher assignments")
	}
	if count > 0 {
		return appErrors.WithDetails(appErrors.ErrConflict, "teacher still has cover assignments", map[string]int{"assignments": count})
	}
	if err := s.repo.Delete(ctx, teacher); err != nil {
		return appErrors.Internal(err, "failed to delete teacher")
	}
	return nil
}

func (s *TeacherService) ensureUniqueEmail(ctx context.Context, email, excludeID string) error {
	exists, err := s.repo.ExistsByEmail(ctx, strings.TrimSpace(email), excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to check email uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already used")
	}
	return nil
}

func applyTeacherRequest(teacher *models.Teacher, req TeacherRequest) {
	teacher.FirstName = strings.TrimSpace(req.FirstName)
	teacher.LastName = strings.TrimSpace(req.LastName)
	teacher.Email = strings.ToLower(strings.TrimSpace(req.Email))
	teacher.Phone = normalizeOptional(req.Phone)
	teacher.PrimaryStyles = pq.StringArray(dedupeStrings(req.PrimaryStyles))
	teacher.SecondaryStyles = pq.StringArray(dedupeStrings(req.SecondaryStyles))
	if req.IsBlocked != nil {
		teacher.IsBlocked = *req.IsBlocked
	}
}
