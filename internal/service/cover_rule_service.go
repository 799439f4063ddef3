package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/clubconnect-api/internal/models"
	appErrors "github.com/noah-isme/clubconnect-api/pkg/errors"
)

// RulePattern holds the fields every occurrence of a rule shares.
type RulePattern struct {
	SchoolID  string                `json:"school_id" validate:"required"`
	ClubID    string                `json:"club_id" validate:"required"`
	Frequency models.CoverFrequency `json:"frequency" validate:"omitempty,oneof=weekly bi-weekly monthly"`
	DayOfWeek *int                  `json:"day_of_week" validate:"omitempty,min=0,max=6"`
	StartTime *models.TimeOfDay     `json:"start_time" validate:"required"`
	EndTime   *models.TimeOfDay     `json:"end_time" validate:"required"`
}

// UpdateRuleRequest edits a rule's pattern and status.
type UpdateRuleRequest struct {
	RulePattern
	Status models.RecordStatus `json:"status" validate:"omitempty,oneof=active inactive"`
}

// ExtendRuleRequest materializes more occurrences after the latest one.
type ExtendRuleRequest struct {
	Occurrences int                  `json:"occurrences" validate:"required,min=1"`
	TeacherID   *string              `json:"teacher_id"`
	Priority    models.CoverPriority `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// CoverRuleService manages cover rules as a whole: listing, pattern edits,
// extension and deletion.
type CoverRuleService struct {
	covers *CoverService
}

// NewCoverRuleService builds the rule manager on top of a CoverService.
func NewCoverRuleService(covers *CoverService) *CoverRuleService {
	return &CoverRuleService{covers: covers}
}

// List returns rules with occurrence counts.
func (s *CoverRuleService) List(ctx context.Context, filter models.CoverRuleFilter) ([]models.CoverRuleDetail, *models.Pagination, error) {
	rules, total, err := s.covers.rules.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list cover rules")
	}
	return rules, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one rule with its stats.
func (s *CoverRuleService) Get(ctx context.Context, id string) (*models.CoverRuleDetail, error) {
	rule, err := s.covers.rules.FindDetail(ctx, id)
	if err != nil {
		return nil, lookupError(err, "cover rule")
	}
	return rule, nil
}

// Create stores a rule together with its first occurrences.
func (s *CoverRuleService) Create(ctx context.Context, req CreateCoverRequest) (*models.CoverSeries, error) {
	return s.covers.CreateSeries(ctx, req)
}

// Update rewrites the rule pattern. Materialized occurrences keep their dates.
func (s *CoverRuleService) Update(ctx context.Context, id string, req UpdateRuleRequest) (*models.CoverRuleDetail, error) {
	if err := s.covers.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid cover rule payload")
	}
	var status *models.RecordStatus
	if req.Status != "" {
		status = &req.Status
	}
	if _, err := s.covers.updateRulePattern(ctx, id, req.RulePattern, status); err != nil {
		return nil, err
	}
	s.covers.invalidateCalendar(ctx)
	return s.Get(ctx, id)
}

// Extend appends count occurrences continuing the rule's cadence, aligned to
// the rule's current weekday. With no existing occurrences the series
// restarts on the next matching weekday.
func (s *CoverRuleService) Extend(ctx context.Context, id string, req ExtendRuleRequest) ([]models.CoverOccurrence, error) {
	if err := s.covers.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid extend payload")
	}
	rule, err := s.covers.rules.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "cover rule")
	}
	if rule.Status != models.StatusActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "inactive cover rules cannot be extended")
	}

	latest, err := s.covers.occurrences.LatestMeetingDate(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load latest occurrence")
	}
	var start time.Time
	if latest != nil {
		start = nextWeekday(models.DateOnly(*latest).AddDate(0, 0, 7*rule.Frequency.StepWeeks()), rule.DayOfWeek)
	} else {
		start = nextWeekday(s.covers.now(), rule.DayOfWeek)
	}
	dates := GenerateOccurrenceDates(start, rule.Frequency, req.Occurrences)

	var teacherID string
	if selected := normalizeOptional(req.TeacherID); selected != nil {
		teacherID = *selected
		if err := s.covers.ensureAssignable(ctx, teacherID); err != nil {
			return nil, err
		}
		if err := s.covers.checkDates(ctx, teacherID, dates, rule.Window(), ""); err != nil {
			return nil, err
		}
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	occurrences := make([]models.CoverOccurrence, len(dates))
	var assignments []models.TeacherCoverAssignment
	for i, date := range dates {
		occurrences[i] = models.CoverOccurrence{
			CoverRuleID: rule.ID,
			MeetingDate: date,
			Status:      models.OccurrenceNotStarted,
			Priority:    priority,
		}
		if teacherID != "" {
			assignments = append(assignments, models.TeacherCoverAssignment{TeacherID: teacherID, Status: models.AssignmentConfirmed})
		}
	}
	if err := s.covers.series.AppendOccurrences(ctx, occurrences, assignments); err != nil {
		return nil, appErrors.Internal(err, "failed to extend cover rule")
	}
	s.covers.logger.Info("cover rule extended", zap.String("rule_id", rule.ID), zap.Int("occurrences", len(occurrences)))
	s.covers.invalidateCalendar(ctx)
	return occurrences, nil
}

// Delete removes a rule. A rule that still has occurrences is only removed
// when cascade is set, together with those occurrences and their assignments.
func (s *CoverRuleService) Delete(ctx context.Context, id string, cascade bool) error {
	if _, err := s.covers.rules.FindByID(ctx, id); err != nil {
		return lookupError(err, "cover rule")
	}
	count, err := s.covers.rules.CountOccurrences(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to count rule occurrences")
	}
	if count > 0 && !cascade {
		return appErrors.WithDetails(appErrors.ErrConflict, "cover rule still has occurrences", map[string]int{"occurrences": count})
	}
	if err := s.covers.series.DeleteRule(ctx, id, cascade); err != nil {
		return appErrors.Internal(err, "failed to delete cover rule")
	}
	s.covers.logger.Info("cover rule deleted", zap.String("rule_id", id), zap.Int("occurrences", count))
	s.covers.invalidateCalendar(ctx)
	return nil
}

// updateRulePattern applies a series edit. Every occupying assignment of the
// rule is re-checked against the new window on its own date.
func (s *CoverService) updateRulePattern(ctx context.Context, ruleID string, pattern RulePattern, status *models.RecordStatus) (*models.CoverRule, error) {
	rule, err := s.rules.FindByID(ctx, ruleID)
	if err != nil {
		return nil, lookupError(err, "cover rule")
	}
	window := models.Window{Start: *pattern.StartTime, End: *pattern.EndTime}
	if !window.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	if err := s.ensureClubInSchool(ctx, pattern.SchoolID, pattern.ClubID); err != nil {
		return nil, err
	}

	if window != rule.Window() {
		if err := s.checkRuleWindow(ctx, ruleID, window); err != nil {
			return nil, err
		}
	}

	rule.SchoolID = pattern.SchoolID
	rule.ClubID = pattern.ClubID
	rule.StartTime = window.Start
	rule.EndTime = window.End
	if pattern.Frequency != "" {
		rule.Frequency = pattern.Frequency
	}
	if pattern.DayOfWeek != nil {
		rule.DayOfWeek = *pattern.DayOfWeek
	}
	if status != nil {
		rule.Status = *status
	}
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, appErrors.Internal(err, "failed to update cover rule")
	}
	s.logger.Info("cover rule updated", zap.String("rule_id", rule.ID), zap.String("window", window.String()))
	return rule, nil
}

func (s *CoverService) checkRuleWindow(ctx context.Context, ruleID string, window models.Window) error {
	occurrences, err := s.ListAll(ctx, models.CoverOccurrenceFilter{RuleID: ruleID})
	if err != nil {
		return err
	}
	dates := make([]time.Time, 0, len(occurrences))
	for _, occ := range occurrences {
		if len(occ.Assignments) > 0 {
			dates = append(dates, occ.MeetingDate)
		}
	}
	if len(dates) == 0 {
		return nil
	}
	slots, err := s.occurrences.ListSlotsByDates(ctx, dates)
	if err != nil {
		return appErrors.Internal(err, "failed to check teacher availability")
	}
	for _, occ := range occurrences {
		for _, a := range occ.Assignments {
			if !a.Status.Occupies() {
				continue
			}
			conflict := FindTeacherConflict(ConflictCandidate{
				TeacherID:           a.TeacherID,
				Date:                occ.MeetingDate,
				Window:              window,
				ExcludeOccurrenceID: occ.ID,
			}, slots)
			if conflict != nil {
				return conflictError(conflict)
			}
		}
	}
	return nil
}
