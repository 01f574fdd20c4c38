package calllogcreate

import (
	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/models"
)

// Input.Phone falls back to the client's phone on file when empty.
type Input struct {
	Principal       access.Principal `json:"principal"`
	ClientID        string           `json:"clientId"`
	Phone           string           `json:"phone,omitempty"`
	Outcome         string           `json:"outcome"`
	DurationSeconds int              `json:"durationSeconds"`
	Notes           string           `json:"notes,omitempty"`
}

type Output struct {
	Call models.CallLog `json:"call"`
}
