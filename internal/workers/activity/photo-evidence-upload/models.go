package photoevidenceupload

import (
	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/models"
)

// Input.ImageData is standard base64, optionally as a data URI.
type Input struct {
	Principal access.Principal `json:"principal"`
	ClientID  string           `json:"clientId"`
	VisitID   string           `json:"visitId,omitempty"`
	Category  string           `json:"category,omitempty"`
	ImageData string           `json:"imageData"`
}

type Output struct {
	Photo    models.PhotoEvidence `json:"photo"`
	Bytes    int                  `json:"bytes"`
	Archived bool                 `json:"archived"`
}
