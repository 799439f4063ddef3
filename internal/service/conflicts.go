package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/clubconnect-api/internal/models"
	appErrors "github.com/noah-isme/clubconnect-api/pkg/errors"
)

// ConflictCandidate is a proposed teacher booking.
type ConflictCandidate struct {
	TeacherID string
	Date      time.Time
	Window    models.Window
	// ExcludeOccurrenceID is the occurrence being edited; its own slots never conflict.
	ExcludeOccurrenceID string
}

// TeacherConflict describes the existing booking that blocks a candidate.
type TeacherConflict struct {
	OccurrenceID string        `json:"occurrence_id"`
	TeacherID    string        `json:"teacher_id"`
	ClubName     string        `json:"club_name"`
	SchoolName   string        `json:"school_name"`
	Date         string        `json:"date"`
	Window       models.Window `json:"window"`
}

// Message renders the conflict for API clients.
func (c TeacherConflict) Message() string {
	return fmt.Sprintf("teacher is already assigned to %s on %s from %s to %s", c.ClubName, c.Date, c.Window.Start, c.Window.End)
}

// FindTeacherConflict returns the first slot in existing that the candidate
// overlaps, or nil. Only slots of the same teacher on the same date count;
// declined assignments and the excluded occurrence are ignored. Windows are
// half-open so back-to-back sessions are allowed.
func FindTeacherConflict(candidate ConflictCandidate, existing []models.OccurrenceSlot) *TeacherConflict {
	if candidate.TeacherID == "" {
		return nil
	}
	day := models.DateOnly(candidate.Date)
	for _, slot := range existing {
		if slot.TeacherID != candidate.TeacherID {
			continue
		}
		if slot.OccurrenceID == candidate.ExcludeOccurrenceID {
			continue
		}
		if !slot.AssignmentStatus.Occupies() {
			continue
		}
		if !models.DateOnly(slot.MeetingDate).Equal(day) {
			continue
		}
		if candidate.Window.Overlaps(slot.Window()) {
			return &TeacherConflict{
				OccurrenceID: slot.OccurrenceID,
				TeacherID:    slot.TeacherID,
				ClubName:     slot.ClubName,
				SchoolName:   slot.SchoolName,
				Date:         day.Format(dateLayout),
				Window:       slot.Window(),
			}
		}
	}
	return nil
}

func conflictError(conflict *TeacherConflict) error {
	return appErrors.WithDetails(appErrors.ErrTeacherConflict, conflict.Message(), conflict)
}
