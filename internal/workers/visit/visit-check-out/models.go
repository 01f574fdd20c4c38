package visitcheckout

import (
	"time"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/visit"
)

type Input struct {
	Principal access.Principal `json:"principal"`
	VisitID   string           `json:"visitId"`
	Position  *visit.Position  `json:"position"`
	Notes     string           `json:"notes,omitempty"`
}

type Output struct {
	VisitID         string    `json:"visitId"`
	ClientID        string    `json:"clientId"`
	Status          string    `json:"status"`
	CheckOutAt      time.Time `json:"checkOutAt"`
	DurationMinutes int       `json:"durationMinutes"`
	Duration        string    `json:"duration"`
	Overtime        bool      `json:"overtime"`
}
