package quotationcreate

import (
	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/models"
)

type Input struct {
	Principal       access.Principal `json:"principal"`
	ClientID        string           `json:"clientId"`
	Amount          float64          `json:"amount"`
	InteractionType string           `json:"interactionType"`
	Status          string           `json:"status,omitempty"`
	Notes           string           `json:"notes,omitempty"`
}

type Output struct {
	Quotation models.Quotation `json:"quotation"`
	Remote    bool             `json:"remote"`
}
