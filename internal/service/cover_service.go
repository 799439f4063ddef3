package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/clubconnect-api/internal/models"
	appErrors "github.com/noah-isme/clubconnect-api/pkg/errors"
)

// CalendarCachePattern matches every cached calendar payload.
const CalendarCachePattern = "calendar:*"

type coverRuleStore interface {
	List(ctx context.Context, filter models.CoverRuleFilter) ([]models.CoverRuleDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.CoverRule, error)
	FindDetail(ctx context.Context, id string) (*models.CoverRuleDetail, error)
	Update(ctx context.Context, rule *models.CoverRule) error
	CountOccurrences(ctx context.Context, id string) (int, error)
}

type coverOccurrenceStore interface {
	List(ctx context.Context, filter models.CoverOccurrenceFilter) ([]models.CoverOccurrenceDetail, int, error)
	ListAll(ctx context.Context, filter models.CoverOccurrenceFilter) ([]models.CoverOccurrenceDetail, error)
	FindDetail(ctx context.Context, id string) (*models.CoverOccurrenceDetail, error)
	LatestMeetingDate(ctx context.Context, ruleID string) (*time.Time, error)
	ListSlotsByDates(ctx context.Context, dates []time.Time) ([]models.OccurrenceSlot, error)
}

type coverAssignmentStore interface {
	ListByOccurrences(ctx context.Context, occurrenceIDs []string) ([]models.CoverAssignmentDetail, error)
	FindByID(ctx context.Context, id string) (*models.TeacherCoverAssignment, error)
	UpdateStatus(ctx context.Context, id string, status models.AssignmentStatus) error
	Delete(ctx context.Context, id string) error
}

type coverSeriesStore interface {
	CreateSeries(ctx context.Context, series *models.CoverSeries) error
	AppendOccurrences(ctx context.Context, occurrences []models.CoverOccurrence, assignments []models.TeacherCoverAssignment) error
	UpdateOccurrence(ctx context.Context, occurrence *models.CoverOccurrence, replace bool, assignments []models.TeacherCoverAssignment) error
	ReplaceAssignments(ctx context.Context, occurrenceID string, assignments []models.TeacherCoverAssignment) error
	DeleteOccurrence(ctx context.Context, id string) error
	DeleteRule(ctx context.Context, ruleID string, cascade bool) error
}

type clubLookup interface {
	FindByID(ctx context.Context, id string) (*models.Club, error)
}

type teacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// CoverStores bundles the persistence dependencies of CoverService.
type CoverStores struct {
	Rules       coverRuleStore
	Occurrences coverOccurrenceStore
	Assignments coverAssignmentStore
	Series      coverSeriesStore
	Clubs       clubLookup
	Teachers    teacherLookup
}

// CoverService owns cover rules, their occurrences and teacher assignments.
type CoverService struct {
	rules        coverRuleStore
	occurrences  coverOccurrenceStore
	assignments  coverAssignmentStore
	series       coverSeriesStore
	clubs        clubLookup
	teachers     teacherLookup
	cache        cacheInvalidator
	validator    *validator.Validate
	logger       *zap.Logger
	defaultCount int
	now          func() time.Time
}

// NewCoverService constructs a CoverService. cache may be nil.
func NewCoverService(stores CoverStores, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger, defaultCount int) *CoverService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultCount <= 0 {
		defaultCount = DefaultOccurrenceCount
	}
	return &CoverService{
		rules:        stores.Rules,
		occurrences:  stores.Occurrences,
		assignments:  stores.Assignments,
		series:       stores.Series,
		clubs:        stores.Clubs,
		teachers:     stores.Teachers,
		cache:        cache,
		validator:    validate,
		logger:       logger,
		defaultCount: defaultCount,
		now:          time.Now,
	}
}

// CreateCoverRequest is the quick add payload: a rule plus how many dated
// occurrences to materialize, optionally pre-assigned to one teacher.
type CreateCoverRequest struct {
	SchoolID    string                  `json:"school_id" validate:"required"`
	ClubID      string                  `json:"club_id" validate:"required"`
	MeetingDate string                  `json:"meeting_date" validate:"required,datetime=2006-01-02"`
	StartTime   *models.TimeOfDay       `json:"start_time" validate:"required"`
	EndTime     *models.TimeOfDay       `json:"end_time" validate:"required"`
	Frequency   models.CoverFrequency   `json:"frequency" validate:"omitempty,oneof=weekly bi-weekly monthly"`
	Occurrences *int                    `json:"occurrences" validate:"omitempty,min=1"`
	Notes       *string                 `json:"notes" validate:"omitempty,max=2000"`
	Status      models.OccurrenceStatus `json:"status" validate:"omitempty,oneof=not_started in_progress completed"`
	Priority    models.CoverPriority    `json:"priority" validate:"omitempty,oneof=low medium high"`
	TeacherID   *string                 `json:"teacher_id"`
}

// CreateSeries validates the request, expands the dates and stores the rule,
// occurrences and assignments atomically.
func (s *CoverService) CreateSeries(ctx context.Context, req CreateCoverRequest) (*models.CoverSeries, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid cover payload")
	}
	start, err := parseDate(req.MeetingDate, "meeting_date")
	if err != nil {
		return nil, err
	}
	window := models.Window{Start: *req.StartTime, End: *req.EndTime}
	if !window.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	if err := s.ensureClubInSchool(ctx, req.SchoolID, req.ClubID); err != nil {
		return nil, err
	}

	frequency := req.Frequency
	if frequency == "" {
		frequency = models.FrequencyWeekly
	}
	count := s.defaultCount
	if req.Occurrences != nil {
		count = *req.Occurrences
	}
	dates := GenerateOccurrenceDates(start, frequency, count)

	teacherID := ""
	if id := normalizeOptional(req.TeacherID); id != nil {
		teacherID = *id
		if err := s.ensureAssignable(ctx, teacherID); err != nil {
			return nil, err
		}
		if err := s.checkDates(ctx, teacherID, dates, window, ""); err != nil {
			return nil, err
		}
	}

	status := req.Status
	if status == "" {
		status = models.OccurrenceNotStarted
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	notes := normalizeOptional(req.Notes)

	series := &models.CoverSeries{
		Rule: models.CoverRule{
			SchoolID:  req.SchoolID,
			ClubID:    req.ClubID,
			Frequency: frequency,
			DayOfWeek: int(start.Weekday()),
			StartTime: window.Start,
			EndTime:   window.End,
			Status:    models.StatusActive,
		},
		Occurrences: make([]models.CoverOccurrence, len(dates)),
	}
	for i, date := range dates {
		occ := models.CoverOccurrence{MeetingDate: date, Status: status, Priority: priority, Notes: notes}
		if i == 0 && notes == nil {
			first := FirstOccurrenceNote
			occ.Notes = &first
		}
		series.Occurrences[i] = occ
	}
	if teacherID != "" {
		series.Assignments = make([]models.TeacherCoverAssignment, len(dates))
		for i := range dates {
			series.Assignments[i] = models.TeacherCoverAssignment{TeacherID: teacherID, Status: models.AssignmentConfirmed}
		}
	}

	if err := s.series.CreateSeries(ctx, series); err != nil {
		return nil, appErrors.Internal(err, "failed to create cover series")
	}
	s.logger.Info("cover series created",
		zap.String("rule_id", series.Rule.ID),
		zap.Int("occurrences", len(series.Occurrences)),
		zap.Bool("assigned", teacherID != ""))
	s.invalidateCalendar(ctx)
	return series, nil
}

func (s *CoverService) ensureClubInSchool(ctx context.Context, schoolID, clubID string) error {
	club, err := s.clubs.FindByID(ctx, clubID)
	if err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrValidation, "club does not exist")
		}
		return appErrors.Internal(err, "failed to load club")
	}
	if club.SchoolID != schoolID {
		return appErrors.Clone(appErrors.ErrValidation, "club does not belong to the selected school")
	}
	return nil
}

// ensureAssignable rejects unknown and blocked teachers.
func (s *CoverService) ensureAssignable(ctx context.Context, teacherID string) error {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrValidation, "teacher does not exist")
		}
		return appErrors.Internal(err, "failed to load teacher")
	}
	if teacher.IsBlocked {
		return appErrors.Clone(appErrors.ErrTeacherBlocked, teacher.FullName()+" is blocked from new assignments")
	}
	return nil
}

// checkDates runs the conflict check for one teacher across several dates.
func (s *CoverService) checkDates(ctx context.Context, teacherID string, dates []time.Time, window models.Window, excludeOccurrenceID string) error {
	slots, err := s.occurrences.ListSlotsByDates(ctx, dates)
	if err != nil {
		return appErrors.Internal(err, "failed to check teacher availability")
	}
	for _, date := range dates {
		conflict := FindTeacherConflict(ConflictCandidate{
			TeacherID:           teacherID,
			Date:                date,
			Window:              window,
			ExcludeOccurrenceID: excludeOccurrenceID,
		}, slots)
		if conflict != nil {
			return conflictError(conflict)
		}
	}
	return nil
}

func (s *CoverService) invalidateCalendar(ctx context.Context) {
	dropCalendarCache(ctx, s.cache, s.logger)
}

// dropCalendarCache clears cached calendar payloads. Failures are logged,
// never returned.
func dropCalendarCache(ctx context.Context, cache cacheInvalidator, logger *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, CalendarCachePattern); err != nil {
		logger.Warn("calendar cache invalidation failed", zap.Error(err))
	}
}
