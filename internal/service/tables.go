package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/clubconnect-api/internal/models"
	"github.com/noah-isme/clubconnect-api/pkg/export"
)

var recordStatusOptions = []string{string(models.StatusActive), string(models.StatusInactive)}

// SchoolTable describes the schools list and export.
var SchoolTable = export.NewTable("schools", "Schools",
	export.Column[models.School]{Key: "school_name", Header: "School", Kind: export.KindText, SortKey: "school_name",
		Value: func(s models.School) string { return s.SchoolName }},
	export.Column[models.School]{Key: "status", Header: "Status", Kind: export.KindEnum, SortKey: "status", Options: recordStatusOptions,
		Value: func(s models.School) string { return string(s.Status) }},
	export.Column[models.School]{Key: "created_at", Header: "Created", Kind: export.KindDate, SortKey: "created_at",
		Value: func(s models.School) string { return formatTimestamp(s.CreatedAt) }},
)

// ClubTable describes the clubs list and export.
var ClubTable = export.NewTable("clubs", "Clubs",
	export.Column[models.Club]{Key: "club_name", Header: "Club", Kind: export.KindText, SortKey: "club_name",
		Value: func(c models.Club) string { return c.ClubName }},
	export.Column[models.Club]{Key: "club_code", Header: "Code", Kind: export.KindText, SortKey: "club_code",
		Value: func(c models.Club) string { return c.ClubCode }},
	export.Column[models.Club]{Key: "school_name", Header: "School", Kind: export.KindText, SortKey: "school_name",
		Value: func(c models.Club) string { return c.SchoolName }},
	export.Column[models.Club]{Key: "status", Header: "Status", Kind: export.KindEnum, SortKey: "status", Options: recordStatusOptions,
		Value: func(c models.Club) string { return string(c.Status) }},
	export.Column[models.Club]{Key: "created_at", Header: "Created", Kind: export.KindDate, SortKey: "created_at",
		Value: func(c models.Club) string { return formatTimestamp(c.CreatedAt) }},
)

// TeacherTable describes the teachers list and export.
var TeacherTable = export.NewTable("teachers", "Teachers",
	export.Column[models.Teacher]{Key: "first_name", Header: "First name", Kind: export.KindText, SortKey: "first_name",
		Value: func(t models.Teacher) string { return t.FirstName }},
	export.Column[models.Teacher]{Key: "last_name", Header: "Last name", Kind: export.KindText, SortKey: "last_name",
		Value: func(t models.Teacher) string { return t.LastName }},
	export.Column[models.Teacher]{Key: "email", Header: "Email", Kind: export.KindText, SortKey: "email",
		Value: func(t models.Teacher) string { return t.Email }},
	export.Column[models.Teacher]{Key: "phone", Header: "Phone", Kind: export.KindText,
		Value: func(t models.Teacher) string { return derefString(t.Phone) }},
	export.Column[models.Teacher]{Key: "primary_styles", Header: "Primary styles", Kind: export.KindText,
		Value: func(t models.Teacher) string { return strings.Join(t.PrimaryStyles, ", ") }},
	export.Column[models.Teacher]{Key: "secondary_styles", Header: "Secondary styles", Kind: export.KindText,
		Value: func(t models.Teacher) string { return strings.Join(t.SecondaryStyles, ", ") }},
	export.Column[models.Teacher]{Key: "is_blocked", Header: "Blocked", Kind: export.KindBool, SortKey: "is_blocked",
		Value: func(t models.Teacher) string { return strconv.FormatBool(t.IsBlocked) }},
)

// CoverTable describes the cover occurrence list and export.
var CoverTable = export.NewTable("covers", "Covers",
	export.Column[models.CoverOccurrenceDetail]{Key: "meeting_date", Header: "Date", Kind: export.KindDate, SortKey: "meeting_date",
		Value: func(o models.CoverOccurrenceDetail) string { return o.MeetingDate.Format(dateLayout) }},
	export.Column[models.CoverOccurrenceDetail]{Key: "start_time", Header: "Start", Kind: export.KindTime,
		Value: func(o models.CoverOccurrenceDetail) string { return o.StartTime.String() }},
	export.Column[models.CoverOccurrenceDetail]{Key: "end_time", Header: "End", Kind: export.KindTime,
		Value: func(o models.CoverOccurrenceDetail) string { return o.EndTime.String() }},
	export.Column[models.CoverOccurrenceDetail]{Key: "school_name", Header: "School", Kind: export.KindText, SortKey: "school_name",
		Value: func(o models.CoverOccurrenceDetail) string { return o.SchoolName }},
	export.Column[models.CoverOccurrenceDetail]{Key: "club_name", Header: "Club", Kind: export.KindText, SortKey: "club_name",
		Value: func(o models.CoverOccurrenceDetail) string { return o.ClubName }},
	export.Column[models.CoverOccurrenceDetail]{Key: "frequency", Header: "Frequency", Kind: export.KindEnum,
		Options: []string{string(models.FrequencyWeekly), string(models.FrequencyBiWeekly), string(models.FrequencyMonthly)},
		Value:   func(o models.CoverOccurrenceDetail) string { return string(o.Frequency) }},
	export.Column[models.CoverOccurrenceDetail]{Key: "teacher", Header: "Teacher", Kind: export.KindText,
		Value: func(o models.CoverOccurrenceDetail) string {
			if a := o.PrimaryAssignment(); a != nil {
				return strings.TrimSpace(a.TeacherFirstName + " " + a.TeacherLastName)
			}
			return ""
		}},
	export.Column[models.CoverOccurrenceDetail]{Key: "assignment_status", Header: "Assignment", Kind: export.KindEnum,
		Options: []string{string(models.AssignmentInvited), string(models.AssignmentAccepted), string(models.AssignmentDeclined),
			string(models.AssignmentPending), string(models.AssignmentConfirmed)},
		Value: func(o models.CoverOccurrenceDetail) string {
			if a := o.PrimaryAssignment(); a != nil {
				return string(a.Status)
			}
			return ""
		}},
	export.Column[models.CoverOccurrenceDetail]{Key: "status", Header: "Status", Kind: export.KindEnum, SortKey: "status",
		Options: []string{string(models.OccurrenceNotStarted), string(models.OccurrenceInProgress), string(models.OccurrenceCompleted)},
		Value:   func(o models.CoverOccurrenceDetail) string { return string(o.Status) }},
	export.Column[models.CoverOccurrenceDetail]{Key: "priority", Header: "Priority", Kind: export.KindEnum, SortKey: "priority",
		Options: []string{string(models.PriorityLow), string(models.PriorityMedium), string(models.PriorityHigh)},
		Value:   func(o models.CoverOccurrenceDetail) string { return string(o.Priority) }},
	export.Column[models.CoverOccurrenceDetail]{Key: "notes", Header: "Notes", Kind: export.KindText,
		Value: func(o models.CoverOccurrenceDetail) string { return derefString(o.Notes) }},
)

func derefString(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
