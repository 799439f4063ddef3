package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/clubconnect-api/internal/models"
	appErrors "github.com/noah-isme/clubconnect-api/pkg/errors"
)

// UpdateType selects which record an occurrence edit writes to.
type UpdateType string

const (
	// UpdateSingle edits the occurrence and its assignment only.
	UpdateSingle UpdateType = "single"
	// UpdateSeries edits the shared rule only.
	UpdateSeries UpdateType = "series"
)

// UpdateOccurrenceRequest is the full edit form. Rule fields are read for
// series edits; occurrence fields for single edits.
type UpdateOccurrenceRequest struct {
	UpdateType  UpdateType              `json:"update_type" validate:"required,oneof=single series"`
	SchoolID    string                  `json:"school_id" validate:"required_if=UpdateType series"`
	ClubID      string                  `json:"club_id" validate:"required_if=UpdateType series"`
	StartTime   *models.TimeOfDay       `json:"start_time" validate:"required_if=UpdateType series"`
	EndTime     *models.TimeOfDay       `json:"end_time" validate:"required_if=UpdateType series"`
	Frequency   models.CoverFrequency   `json:"frequency" validate:"omitempty,oneof=weekly bi-weekly monthly"`
	DayOfWeek   *int                    `json:"day_of_week" validate:"omitempty,min=0,max=6"`
	MeetingDate string                  `json:"meeting_date" validate:"required_if=UpdateType single"`
	Notes       *string                 `json:"notes" validate:"omitempty,max=2000"`
	Status      models.OccurrenceStatus `json:"status" validate:"omitempty,oneof=not_started in_progress completed"`
	Priority    models.CoverPriority    `json:"priority" validate:"omitempty,oneof=low medium high"`
	TeacherID   *string                 `json:"teacher_id"`
}

// MoveOccurrenceRequest reschedules one occurrence to another date.
type MoveOccurrenceRequest struct {
	MeetingDate string `json:"meeting_date" validate:"required,datetime=2006-01-02"`
}

// OccurrenceStateRequest is the quick status/priority update.
type OccurrenceStateRequest struct {
	Status   *models.OccurrenceStatus `json:"status" validate:"omitempty,oneof=not_started in_progress completed"`
	Priority *models.CoverPriority    `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// AssignTeacherRequest replaces the assignment of an occurrence.
type AssignTeacherRequest struct {
	TeacherID string                  `json:"teacher_id" validate:"required"`
	Status    models.AssignmentStatus `json:"status" validate:"omitempty,oneof=invited accepted declined pending confirmed"`
}

// AssignmentStatusRequest records a teacher's response.
type AssignmentStatusRequest struct {
	Status models.AssignmentStatus `json:"status" validate:"required,oneof=invited accepted declined pending confirmed"`
}

// List returns a page of occurrences with their assignments.
func (s *CoverService) List(ctx context.Context, filter models.CoverOccurrenceFilter) ([]models.CoverOccurrenceDetail, *models.Pagination, error) {
	items, total, err := s.occurrences.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list covers")
	}
	if err := s.attachAssignments(ctx, items); err != nil {
		return nil, nil, err
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// ListAll returns every occurrence matching filter, without paging.
func (s *CoverService) ListAll(ctx context.Context, filter models.CoverOccurrenceFilter) ([]models.CoverOccurrenceDetail, error) {
	items, err := s.occurrences.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list covers")
	}
	if err := s.attachAssignments(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

// Get returns one occurrence with its rule, club, school and assignments.
func (s *CoverService) Get(ctx context.Context, id string) (*models.CoverOccurrenceDetail, error) {
	detail, err := s.occurrences.FindDetail(ctx, id)
	if err != nil {
		return nil, lookupError(err, "cover")
	}
	items := []models.CoverOccurrenceDetail{*detail}
	if err := s.attachAssignments(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (s *CoverService) attachAssignments(ctx context.Context, items []models.CoverOccurrenceDetail) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	assignments, err := s.assignments.ListByOccurrences(ctx, ids)
	if err != nil {
		return appErrors.Internal(err, "failed to load cover assignments")
	}
	byOccurrence := make(map[string][]models.CoverAssignmentDetail, len(items))
	for _, a := range assignments {
		byOccurrence[a.CoverOccurrenceID] = append(byOccurrence[a.CoverOccurrenceID], a)
	}
	for i := range items {
		items[i].Assignments = byOccurrence[items[i].ID]
		if items[i].Assignments == nil {
			items[i].Assignments = []models.CoverAssignmentDetail{}
		}
	}
	return nil
}

// UpdateOccurrence applies an edit either to the single occurrence or to the
// whole series, never both.
func (s *CoverService) UpdateOccurrence(ctx context.Context, id string, req UpdateOccurrenceRequest) (*models.CoverOccurrenceDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid cover update payload")
	}
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch req.UpdateType {
	case UpdateSeries:
		pattern := RulePattern{
			SchoolID:  req.SchoolID,
			ClubID:    req.ClubID,
			Frequency: req.Frequency,
			DayOfWeek: req.DayOfWeek,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
		}
		if _, err := s.updateRulePattern(ctx, detail.CoverRuleID, pattern, nil); err != nil {
			return nil, err
		}
	default:
		if err := s.updateSingle(ctx, detail, req); err != nil {
			return nil, err
		}
	}
	s.invalidateCalendar(ctx)
	return s.Get(ctx, id)
}

func (s *CoverService) updateSingle(ctx context.Context, detail *models.CoverOccurrenceDetail, req UpdateOccurrenceRequest) error {
	date, err := parseDate(req.MeetingDate, "meeting_date")
	if err != nil {
		return err
	}
	occ := detail.CoverOccurrence
	occ.MeetingDate = date
	occ.Notes = normalizeOptional(req.Notes)
	if req.Status != "" {
		occ.Status = req.Status
	}
	if req.Priority != "" {
		occ.Priority = req.Priority
	}

	var assignments []models.TeacherCoverAssignment
	if teacherID := normalizeOptional(req.TeacherID); teacherID != nil {
		status := models.AssignmentConfirmed
		if current := detail.PrimaryAssignment(); current != nil && current.TeacherID == *teacherID {
			status = current.Status
		} else if err := s.ensureAssignable(ctx, *teacherID); err != nil {
			return err
		}
		if status.Occupies() {
			if err := s.checkDates(ctx, *teacherID, []time.Time{date}, detail.Window(), detail.ID); err != nil {
				return err
			}
		}
		assignments = []models.TeacherCoverAssignment{{TeacherID: *teacherID, Status: status}}
	}

	if err := s.series.UpdateOccurrence(ctx, &occ, true, assignments); err != nil {
		return appErrors.Internal(err, "failed to update cover")
	}
	s.logger.Info("cover occurrence updated", zap.String("occurrence_id", occ.ID), zap.Int("assignments", len(assignments)))
	return nil
}

// Move reschedules an occurrence to a new date. The time of day stays the rule's.
func (s *CoverService) Move(ctx context.Context, id string, req MoveOccurrenceRequest) (*models.CoverOccurrenceDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid move payload")
	}
	date, err := parseDate(req.MeetingDate, "meeting_date")
	if err != nil {
		return nil, err
	}
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, a := range detail.Assignments {
		if !a.Status.Occupies() {
			continue
		}
		if err := s.checkDates(ctx, a.TeacherID, []time.Time{date}, detail.Window(), detail.ID); err != nil {
			return nil, err
		}
	}

	occ := detail.CoverOccurrence
	occ.MeetingDate = date
	if err := s.series.UpdateOccurrence(ctx, &occ, false, nil); err != nil {
		return nil, appErrors.Internal(err, "failed to move cover")
	}
	s.invalidateCalendar(ctx)
	return s.Get(ctx, id)
}

// SetState changes status and/or priority of one occurrence.
func (s *CoverService) SetState(ctx context.Context, id string, req OccurrenceStateRequest) (*models.CoverOccurrenceDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid cover state payload")
	}
	if req.Status == nil && req.Priority == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status or priority is required")
	}
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	occ := detail.CoverOccurrence
	if req.Status != nil {
		occ.Status = *req.Status
	}
	if req.Priority != nil {
		occ.Priority = *req.Priority
	}
	if err := s.series.UpdateOccurrence(ctx, &occ, false, nil); err != nil {
		return nil, appErrors.Internal(err, "failed to update cover state")
	}
	s.invalidateCalendar(ctx)
	return s.Get(ctx, id)
}

// AssignTeacher replaces the occurrence's assignment with one for the teacher.
func (s *CoverService) AssignTeacher(ctx context.Context, id string, req AssignTeacherRequest) (*models.CoverOccurrenceDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid assignment payload")
	}
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureAssignable(ctx, req.TeacherID); err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = models.AssignmentConfirmed
	}
	if status.Occupies() {
		if err := s.checkDates(ctx, req.TeacherID, []time.Time{detail.MeetingDate}, detail.Window(), detail.ID); err != nil {
			return nil, err
		}
	}
	assignments := []models.TeacherCoverAssignment{{TeacherID: req.TeacherID, Status: status}}
	if err := s.series.ReplaceAssignments(ctx, id, assignments); err != nil {
		return nil, appErrors.Internal(err, "failed to assign teacher")
	}
	s.invalidateCalendar(ctx)
	return s.Get(ctx, id)
}

// UpdateAssignmentStatus records a response. Reviving a declined assignment
// is conflict checked like a new booking.
func (s *CoverService) UpdateAssignmentStatus(ctx context.Context, assignmentID string, req AssignmentStatusRequest) (*models.TeacherCoverAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid assignment status")
	}
	assignment, err := s.assignments.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, lookupError(err, "assignment")
	}
	if !assignment.Status.Occupies() && req.Status.Occupies() {
		detail, err := s.occurrences.FindDetail(ctx, assignment.CoverOccurrenceID)
		if err != nil {
			return nil, lookupError(err, "cover")
		}
		if err := s.checkDates(ctx, assignment.TeacherID, []time.Time{detail.MeetingDate}, detail.Window(), detail.ID); err != nil {
			return nil, err
		}
	}
	if err := s.assignments.UpdateStatus(ctx, assignmentID, req.Status); err != nil {
		return nil, appErrors.Internal(err, "failed to update assignment")
	}
	assignment.Status = req.Status
	s.invalidateCalendar(ctx)
	return assignment, nil
}

// RemoveAssignment deletes one assignment.
func (s *CoverService) RemoveAssignment(ctx context.Context, assignmentID string) error {
	if _, err := s.assignments.FindByID(ctx, assignmentID); err != nil {
		return lookupError(err, "assignment")
	}
	if err := s.assignments.Delete(ctx, assignmentID); err != nil {
		return appErrors.Internal(err, "failed to remove assignment")
	}
	s.invalidateCalendar(ctx)
	return nil
}

// DeleteOccurrence removes an occurrence and its assignments.
func (s *CoverService) DeleteOccurrence(ctx context.Context, id string) error {
	if _, err := s.occurrences.FindDetail(ctx, id); err != nil {
		return lookupError(err, "cover")
	}
	if err := s.series.DeleteOccurrence(ctx, id); err != nil {
		return appErrors.Internal(err, "failed to delete cover")
	}
	s.invalidateCalendar(ctx)
	return nil
}
