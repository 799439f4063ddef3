package dto

import "time"

// CalendarView selects the visible range around an anchor date.
type CalendarView string

const (
	CalendarViewDay    CalendarView = "day"
	CalendarViewWeek   CalendarView = "week"
	CalendarViewMonth  CalendarView = "month"
	CalendarViewAgenda CalendarView = "agenda"
)

// CalendarQuery captures query parameters for the covers calendar.
type CalendarQuery struct {
	View      CalendarView
	Date      time.Time
	SchoolID  string
	ClubID    string
	TeacherID string
	MaxPerDay int
}

// CalendarEvent is one cover occurrence rendered with absolute timestamps.
type CalendarEvent struct {
	ID               string    `json:"id"`
	RuleID           string    `json:"rule_id"`
	Title            string    `json:"title"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	Date             string    `json:"date"`
	SchoolID         string    `json:"school_id"`
	SchoolName       string    `json:"school_name"`
	ClubID           string    `json:"club_id"`
	ClubName         string    `json:"club_name"`
	Status           string    `json:"status"`
	Priority         string    `json:"priority"`
	Notes            *string   `json:"notes,omitempty"`
	TeacherID        *string   `json:"teacher_id,omitempty"`
	TeacherName      *string   `json:"teacher_name,omitempty"`
	AssignmentStatus *string   `json:"assignment_status,omitempty"`
}

// CalendarDay summarises one date of the visible range. Events holds at most
// MaxPerDay entries; the remainder is reported in HiddenCount and can be
// fetched through the day endpoint.
type CalendarDay struct {
	Date        string          `json:"date"`
	Events      []CalendarEvent `json:"events"`
	TotalCount  int             `json:"total_count"`
	HiddenCount int             `json:"hidden_count"`
}

// CalendarResponse is the payload for the calendar endpoint.
type CalendarResponse struct {
	View   CalendarView    `json:"view"`
	From   string          `json:"from"`
	To     string          `json:"to"`
	Events []CalendarEvent `json:"events"`
	Days   []CalendarDay   `json:"days,omitempty"`
}
