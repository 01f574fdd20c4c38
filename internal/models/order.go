package models

import "time"

const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

const (
	QuotationDraft    = "draft"
	QuotationSent     = "sent"
	QuotationAccepted = "accepted"
	QuotationRejected = "rejected"
)

const (
	InteractionVisit    = "visit"
	InteractionPhone    = "phone"
	InteractionWhatsApp = "whatsapp"
	InteractionEmail    = "email"
)

// OrderItem is the line-item snapshot stored with the order.
type OrderItem struct {
	SKU         string  `json:"sku"`
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

type Order struct {
	ID             string      `json:"id" db:"id"`
	ClientID       string      `json:"clientId" db:"client_id"`
	VisitID        *string     `json:"visitId,omitempty" db:"visit_id"`
	RepID          string      `json:"repId" db:"rep_id"`
	Items          []OrderItem `json:"items" db:"items"`
	Subtotal       float64     `json:"subtotal" db:"subtotal"`
	DiscountPct    float64     `json:"discountPct" db:"discount_pct"`
	Total          float64     `json:"total" db:"total"`
	ApprovalStatus string      `json:"approvalStatus" db:"approval_status"`
	ApprovedBy     *string     `json:"approvedBy,omitempty" db:"approved_by"`
	ApprovedAt     *time.Time  `json:"approvedAt,omitempty" db:"approved_at"`
	CreatedAt      time.Time   `json:"createdAt" db:"created_at"`
}

func (o Order) HasVisit() bool {
	return o.VisitID != nil && *o.VisitID != ""
}

type Quotation struct {
	ID              string    `json:"id" db:"id"`
	ClientID        string    `json:"clientId" db:"client_id"`
	RepID           string    `json:"repId" db:"rep_id"`
	Amount          float64   `json:"amount" db:"amount"`
	Status          string    `json:"status" db:"status"`
	InteractionType string    `json:"interactionType" db:"interaction_type"`
	Notes           string    `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

// Remote reports whether the quotation was given without being on site.
func (q Quotation) Remote() bool {
	return q.InteractionType == InteractionPhone || q.InteractionType == InteractionWhatsApp
}
