package models

import "time"

// RecordStatus is the active flag used by schools, clubs and cover rules.
type RecordStatus string

const (
	StatusActive   RecordStatus = "active"
	StatusInactive RecordStatus = "inactive"
)

// Valid reports whether the status is known.
func (s RecordStatus) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// School is a venue hosting one or more clubs.
type School struct {
	ID         string       `db:"id" json:"id"`
	SchoolName string       `db:"school_name" json:"school_name"`
	Status     RecordStatus `db:"status" json:"status"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// SchoolFilter captures filtering options for listing schools.
type SchoolFilter struct {
	Search    string
	Status    RecordStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Club is a recurring class run at a school.
type Club struct {
	ID         string       `db:"id" json:"id"`
	SchoolID   string       `db:"school_id" json:"school_id"`
	SchoolName string       `db:"school_name" json:"school_name,omitempty"`
	ClubName   string       `db:"club_name" json:"club_name"`
	ClubCode   string       `db:"club_code" json:"club_code"`
	Status     RecordStatus `db:"status" json:"status"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// ClubFilter captures filtering options for listing clubs.
type ClubFilter struct {
	SchoolID  string
	Status    RecordStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
