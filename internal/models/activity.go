package models

import "time"

const (
	CallConnected = "connected"
	CallNoAnswer  = "no-answer"
	CallVoicemail = "voicemail"
	CallCallback  = "callback"
)

const (
	TaskPending   = "pending"
	TaskDone      = "done"
	TaskCancelled = "cancelled"
)

const (
	PhotoShelf    = "shelf"
	PhotoDisplay  = "display"
	PhotoDelivery = "delivery"
	PhotoOther    = "other"
)

type CallLog struct {
	ID              string    `json:"id" db:"id"`
	ClientID        string    `json:"clientId" db:"client_id"`
	RepID           string    `json:"repId" db:"rep_id"`
	Phone           string    `json:"phone" db:"phone"`
	Outcome         string    `json:"outcome" db:"outcome"`
	DurationSeconds int       `json:"durationSeconds" db:"duration_seconds"`
	Notes           string    `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

type Task struct {
	ID         string     `json:"id" db:"id"`
	ClientID   string     `json:"clientId,omitempty" db:"client_id"`
	AssigneeID string     `json:"assigneeId" db:"assignee_id"`
	CreatedBy  string     `json:"createdBy" db:"created_by"`
	Title      string     `json:"title" db:"title"`
	DueAt      *time.Time `json:"dueAt,omitempty" db:"due_at"`
	Status     string     `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
}

// PhotoEvidence keeps the image inline as base64 text; ObjectKey is set when
// the bytes were also archived to object storage.
type PhotoEvidence struct {
	ID          string    `json:"id" db:"id"`
	ClientID    string    `json:"clientId" db:"client_id"`
	VisitID     *string   `json:"visitId,omitempty" db:"visit_id"`
	RepID       string    `json:"repId" db:"rep_id"`
	Category    string    `json:"category" db:"category"`
	ContentType string    `json:"contentType" db:"content_type"`
	ImageData   string    `json:"-" db:"image_data"`
	ObjectKey   string    `json:"objectKey,omitempty" db:"object_key"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
