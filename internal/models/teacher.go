package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

// PersonDetails holds the contact fields shared by people in the directory.
type PersonDetails struct {
	ID        string  `db:"id" json:"id"`
	FirstName string  `db:"first_name" json:"first_name"`
	LastName  string  `db:"last_name" json:"last_name"`
	Email     string  `db:"email" json:"email"`
	Phone     *string `db:"phone" json:"phone,omitempty"`
}

// Teacher is the read model for a teacher joined with their person details.
type Teacher struct {
	ID              string         `db:"id" json:"id"`
	PersonDetailsID string         `db:"person_details_id" json:"person_details_id"`
	FirstName       string         `db:"first_name" json:"first_name"`
	LastName        string         `db:"last_name" json:"last_name"`
	Email           string         `db:"email" json:"email"`
	Phone           *string        `db:"phone" json:"phone,omitempty"`
	PrimaryStyles   pq.StringArray `db:"primary_styles" json:"primary_styles"`
	SecondaryStyles pq.StringArray `db:"secondary_styles" json:"secondary_styles"`
	IsBlocked       bool           `db:"is_blocked" json:"is_blocked"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (t Teacher) FullName() string {
	return strings.TrimSpace(t.FirstName + " " + t.LastName)
}

// Person extracts the person_details row of the teacher.
func (t Teacher) Person() PersonDetails {
	return PersonDetails{
		ID:        t.PersonDetailsID,
		FirstName: t.FirstName,
		LastName:  t.LastName,
		Email:     t.Email,
		Phone:     t.Phone,
	}
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	Blocked   *bool
	Style     string
	IDs       []string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
