package models

import (
	"time"

	"github.com/lib/pq"
)

// BroadcastStatus is the persisted state of a broadcast.
type BroadcastStatus string

const (
	BroadcastDraft     BroadcastStatus = "draft"
	BroadcastScheduled BroadcastStatus = "scheduled"
	BroadcastCompleted BroadcastStatus = "completed"
	BroadcastFailed    BroadcastStatus = "failed"
)

// Editable reports whether the broadcast may still be changed or sent.
func (s BroadcastStatus) Editable() bool {
	return s == BroadcastDraft
}

// BodyFormat describes how a broadcast body is authored.
type BodyFormat string

const (
	BodyFormatHTML     BodyFormat = "html"
	BodyFormatMarkdown BodyFormat = "markdown"
)

// Broadcast is a one-to-many message to teachers with aggregate delivery counts.
type Broadcast struct {
	ID              string          `db:"id" json:"id"`
	Subject         string          `db:"subject" json:"subject"`
	Body            string          `db:"body" json:"body"`
	BodyFormat      BodyFormat      `db:"body_format" json:"body_format"`
	RecipientIDs    pq.StringArray  `db:"recipient_ids" json:"recipient_ids"`
	RecipientsCount int             `db:"recipients_count" json:"recipients_count"`
	SentCount       int             `db:"sent_count" json:"sent_count"`
	FailedCount     int             `db:"failed_count" json:"failed_count"`
	Status          BroadcastStatus `db:"status" json:"status"`
	CreatedBy       *string         `db:"created_by" json:"created_by,omitempty"`
	SentAt          *time.Time      `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// BroadcastFilter captures filtering options for listing broadcasts.
type BroadcastFilter struct {
	Status   BroadcastStatus
	Search   string
	Page     int
	PageSize int
}

// MessageStatus is the result of a single send attempt.
type MessageStatus string

const (
	MessageSent   MessageStatus = "sent"
	MessageFailed MessageStatus = "failed"
)

// Message logs one send attempt of a broadcast to one teacher.
type Message struct {
	ID             string        `db:"id" json:"id"`
	BroadcastID    string        `db:"broadcast_id" json:"broadcast_id"`
	TeacherID      string        `db:"teacher_id" json:"teacher_id"`
	RecipientEmail string        `db:"recipient_email" json:"recipient_email"`
	Subject        string        `db:"subject" json:"subject"`
	Body           string        `db:"body" json:"body"`
	Status         MessageStatus `db:"status" json:"status"`
	Error          *string       `db:"error" json:"error,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}
