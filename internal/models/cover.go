package models

import (
	"time"
)

// CoverFrequency describes how often a cover rule repeats.
type CoverFrequency string

const (
	FrequencyWeekly   CoverFrequency = "weekly"
	FrequencyBiWeekly CoverFrequency = "bi-weekly"
	FrequencyMonthly  CoverFrequency = "monthly"
)

// StepWeeks returns the number of weeks between generated occurrences.
// Recurrence is week based: monthly is a fixed four week step, not a
// calendar month, so 2024-01-02 is followed by 01-30 and 02-27.
func (f CoverFrequency) StepWeeks() int {
	switch f {
	case FrequencyBiWeekly:
		return 2
	case FrequencyMonthly:
		return 4
	default:
		return 1
	}
}

// Valid reports whether the frequency is known.
func (f CoverFrequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// OccurrenceStatus tracks progress of a single cover session.
type OccurrenceStatus string

const (
	OccurrenceNotStarted OccurrenceStatus = "not_started"
	OccurrenceInProgress OccurrenceStatus = "in_progress"
	OccurrenceCompleted  OccurrenceStatus = "completed"
)

// Valid reports whether the status is known.
func (s OccurrenceStatus) Valid() bool {
	switch s {
	case OccurrenceNotStarted, OccurrenceInProgress, OccurrenceCompleted:
		return true
	}
	return false
}

// CoverPriority ranks how urgently a cover needs staffing.
type CoverPriority string

const (
	PriorityLow    CoverPriority = "low"
	PriorityMedium CoverPriority = "medium"
	PriorityHigh   CoverPriority = "high"
)

// Valid reports whether the priority is known.
func (p CoverPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// AssignmentStatus tracks a teacher's response to a cover.
type AssignmentStatus string

const (
	AssignmentInvited   AssignmentStatus = "invited"
	AssignmentAccepted  AssignmentStatus = "accepted"
	AssignmentDeclined  AssignmentStatus = "declined"
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentConfirmed AssignmentStatus = "confirmed"
)

// Valid reports whether the status is known.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentInvited, AssignmentAccepted, AssignmentDeclined, AssignmentPending, AssignmentConfirmed:
		return true
	}
	return false
}

// Occupies reports whether the assignment holds the teacher's time.
func (s AssignmentStatus) Occupies() bool {
	return s != AssignmentDeclined
}

// CoverRule is the recurring pattern occurrences are generated from.
type CoverRule struct {
	ID        string         `db:"id" json:"id"`
	SchoolID  string         `db:"school_id" json:"school_id"`
	ClubID    string         `db:"club_id" json:"club_id"`
	Frequency CoverFrequency `db:"frequency" json:"frequency"`
	DayOfWeek int            `db:"day_of_week" json:"day_of_week"`
	StartTime TimeOfDay      `db:"start_time" json:"start_time"`
	EndTime   TimeOfDay      `db:"end_time" json:"end_time"`
	Status    RecordStatus   `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// Window returns the rule's daily time window.
func (r CoverRule) Window() Window {
	return Window{Start: r.StartTime, End: r.EndTime}
}

// CoverRuleDetail enriches a rule with names and materialization stats.
type CoverRuleDetail struct {
	CoverRule
	SchoolName      string     `db:"school_name" json:"school_name"`
	ClubName        string     `db:"club_name" json:"club_name"`
	OccurrenceCount int        `db:"occurrence_count" json:"occurrence_count"`
	LastMeetingDate *time.Time `db:"last_meeting_date" json:"last_meeting_date,omitempty"`
}

// CoverRuleFilter captures filtering options for listing rules.
type CoverRuleFilter struct {
	SchoolID string
	ClubID   string
	Status   RecordStatus
	Page     int
	PageSize int
}

// CoverOccurrence is one dated session of a cover rule.
type CoverOccurrence struct {
	ID          string           `db:"id" json:"id"`
	CoverRuleID string           `db:"cover_rule_id" json:"cover_rule_id"`
	MeetingDate time.Time        `db:"meeting_date" json:"meeting_date"`
	Notes       *string          `db:"notes" json:"notes,omitempty"`
	Status      OccurrenceStatus `db:"status" json:"status"`
	Priority    CoverPriority    `db:"priority" json:"priority"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// TeacherCoverAssignment links a teacher to an occurrence.
type TeacherCoverAssignment struct {
	ID                string           `db:"id" json:"id"`
	TeacherID         string           `db:"teacher_id" json:"teacher_id"`
	CoverOccurrenceID string           `db:"cover_occurrence_id" json:"cover_occurrence_id"`
	Status            AssignmentStatus `db:"status" json:"status"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// CoverAssignmentDetail is an assignment joined with the teacher's name.
type CoverAssignmentDetail struct {
	TeacherCoverAssignment
	TeacherFirstName string `db:"teacher_first_name" json:"teacher_first_name"`
	TeacherLastName  string `db:"teacher_last_name" json:"teacher_last_name"`
	TeacherEmail     string `db:"teacher_email" json:"teacher_email"`
}

// CoverOccurrenceDetail is an occurrence joined with its rule, club and school.
type CoverOccurrenceDetail struct {
	CoverOccurrence
	SchoolID    string                  `db:"school_id" json:"school_id"`
	SchoolName  string                  `db:"school_name" json:"school_name"`
	ClubID      string                  `db:"club_id" json:"club_id"`
	ClubName    string                  `db:"club_name" json:"club_name"`
	ClubCode    string                  `db:"club_code" json:"club_code"`
	Frequency   CoverFrequency          `db:"frequency" json:"frequency"`
	DayOfWeek   int                     `db:"day_of_week" json:"day_of_week"`
	StartTime   TimeOfDay               `db:"start_time" json:"start_time"`
	EndTime     TimeOfDay               `db:"end_time" json:"end_time"`
	Assignments []CoverAssignmentDetail `db:"-" json:"assignments"`
}

// Window returns the occurrence's time window, taken from its rule.
func (o CoverOccurrenceDetail) Window() Window {
	return Window{Start: o.StartTime, End: o.EndTime}
}

// PrimaryAssignment returns the first assignment, which is the one shown to users.
func (o CoverOccurrenceDetail) PrimaryAssignment() *CoverAssignmentDetail {
	if len(o.Assignments) == 0 {
		return nil
	}
	return &o.Assignments[0]
}

// CoverOccurrenceFilter captures filtering options for listing occurrences.
type CoverOccurrenceFilter struct {
	From      *time.Time
	To        *time.Time
	SchoolID  string
	ClubID    string
	TeacherID string
	RuleID    string
	Status    OccurrenceStatus
	Priority  CoverPriority
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// OccurrenceSlot is a teacher's hold on a time window, used for conflict checks.
type OccurrenceSlot struct {
	OccurrenceID     string           `db:"occurrence_id" json:"occurrence_id"`
	TeacherID        string           `db:"teacher_id" json:"teacher_id"`
	AssignmentStatus AssignmentStatus `db:"assignment_status" json:"assignment_status"`
	MeetingDate      time.Time        `db:"meeting_date" json:"meeting_date"`
	StartTime        TimeOfDay        `db:"start_time" json:"start_time"`
	EndTime          TimeOfDay        `db:"end_time" json:"end_time"`
	ClubName         string           `db:"club_name" json:"club_name"`
	SchoolName       string           `db:"school_name" json:"school_name"`
}

// Window returns the slot's time window.
func (s OccurrenceSlot) Window() Window {
	return Window{Start: s.StartTime, End: s.EndTime}
}

// CoverSeries is a rule together with the occurrences and assignments
// created for it in one write.
type CoverSeries struct {
	Rule        CoverRule                `json:"rule"`
	Occurrences []CoverOccurrence        `json:"occurrences"`
	Assignments []TeacherCoverAssignment `json:"assignments"`
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
