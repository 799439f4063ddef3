package dto

// BroadcastOutcome keeps the three-way result of a send, which the persisted
// status collapses to completed or failed.
type BroadcastOutcome string

const (
	OutcomeSent    BroadcastOutcome = "sent"
	OutcomePartial BroadcastOutcome = "partial"
	OutcomeFailed  BroadcastOutcome = "failed"
)

// BroadcastReport aggregates the per-recipient results of one send.
type BroadcastReport struct {
	BroadcastID string             `json:"broadcast_id"`
	Total       int                `json:"total"`
	Sent        int                `json:"sent"`
	Failed      int                `json:"failed"`
	Outcome     BroadcastOutcome   `json:"outcome"`
	Status      string             `json:"status"`
	Failures    []RecipientFailure `json:"failures,omitempty"`
}

// RecipientFailure describes one failed recipient.
type RecipientFailure struct {
	TeacherID string `json:"teacher_id"`
	Email     string `json:"email"`
	Error     string `json:"error"`
}

// BroadcastPreview is a rendered message for one sample recipient.
type BroadcastPreview struct {
	TeacherID string `json:"teacher_id"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	HTML      string `json:"html"`
}
