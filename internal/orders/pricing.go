// Package orders holds the pricing and approval rules for sales orders.
package orders

import (
	"errors"
	"fmt"
	"math"

	"fieldsales-workers/internal/common/validation"
	"fieldsales-workers/internal/models"
)

const DefaultAutoApproveDiscountPct = 10.0

var ErrInvalidTransition = errors.New("INVALID_ORDER_TRANSITION")

// ItemsSchema is the JSON Schema every order's line items must satisfy.
const ItemsSchema = `{
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["sku", "quantity", "unitPrice"],
    "properties": {
      "sku": {"type": "string", "minLength": 1},
      "description": {"type": "string"},
      "quantity": {"type": "integer", "minimum": 1},
      "unitPrice": {"type": "number", "minimum": 0}
    }
  }
}`

var itemsSchema = validation.MustCompileDocumentSchema(ItemsSchema)

// ValidateItems checks items against ItemsSchema.
func ValidateItems(items []models.OrderItem) (*validation.ValidationResult, error) {
	if items == nil {
		items = []models.OrderItem{}
	}
	return itemsSchema.Validate(items)
}

type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Total    float64 `json:"total"`
}

// Price sums quantity × unit price and applies discountPct. Both figures are
// rounded to cents.
func Price(items []models.OrderItem, discountPct float64) (Totals, error) {
	if discountPct < 0 || discountPct > 100 || math.IsNaN(discountPct) {
		return Totals{}, fmt.Errorf("discount %.2f%% outside 0-100", discountPct)
	}
	var subtotal float64
	for _, it := range items {
		subtotal += float64(it.Quantity) * it.UnitPrice
	}
	return Totals{
		Subtotal: cents(subtotal),
		Total:    cents(subtotal * (1 - discountPct/100)),
	}, nil
}

func cents(v float64) float64 {
	return math.Round(v*100) / 100
}

// InitialApproval is approved at or below the auto-approve threshold and
// pending above it.
func InitialApproval(discountPct, threshold float64) string {
	if discountPct <= threshold {
		return models.ApprovalApproved
	}
	return models.ApprovalPending
}

// Decide validates a manager decision on an order currently in from.
func Decide(from, to string) error {
	if from != models.ApprovalPending {
		return fmt.Errorf("%w: order is %s", ErrInvalidTransition, from)
	}
	if to != models.ApprovalApproved && to != models.ApprovalRejected {
		return fmt.Errorf("%w: cannot move to %q", ErrInvalidTransition, to)
	}
	return nil
}
