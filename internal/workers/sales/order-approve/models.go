package orderapprove

import (
	"time"

	"fieldsales-workers/internal/access"
)

type Input struct {
	Principal access.Principal `json:"principal"`
	OrderID   string           `json:"orderId"`
	Decision  string           `json:"decision"`
	Reason    string           `json:"reason,omitempty"`
}

type Output struct {
	OrderID        string    `json:"orderId"`
	ApprovalStatus string    `json:"approvalStatus"`
	DecidedBy      string    `json:"decidedBy"`
	DecidedAt      time.Time `json:"decidedAt"`
	RepNotified    bool      `json:"repNotified"`
}
