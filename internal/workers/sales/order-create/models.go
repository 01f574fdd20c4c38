package ordercreate

import (
	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/models"
)

type Input struct {
	Principal   access.Principal   `json:"principal"`
	ClientID    string             `json:"clientId"`
	VisitID     string             `json:"visitId,omitempty"`
	Items       []models.OrderItem `json:"items"`
	DiscountPct float64            `json:"discountPct"`
}

type Output struct {
	Order           models.Order `json:"order"`
	ManagerNotified bool         `json:"managerNotified"`
}
