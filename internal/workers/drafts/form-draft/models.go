package formdraft

import (
	"time"

	"fieldsales-workers/internal/access"
)

const (
	OpSave    = "save"
	OpLoad    = "load"
	OpDiscard = "discard"
)

type Input struct {
	Principal access.Principal       `json:"principal"`
	Operation string                 `json:"operation"`
	FormKey   string                 `json:"formKey"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Draft is the value stored under the draft key.
type Draft struct {
	Data    map[string]interface{} `json:"data"`
	SavedAt time.Time              `json:"savedAt"`
}

type Output struct {
	Operation string                 `json:"operation"`
	FormKey   string                 `json:"formKey"`
	Found     bool                   `json:"found"`
	Data      map[string]interface{} `json:"data,omitempty"`
	SavedAt   *time.Time             `json:"savedAt,omitempty"`
	ExpiresAt *time.Time             `json:"expiresAt,omitempty"`
}
