package ordercreate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/aws"
	"fieldsales-workers/internal/models"
	"fieldsales-workers/internal/orders"
	"fieldsales-workers/internal/store"
)

func (h *Handler) validate(input *Input) error {
	if err := input.Principal.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(input.ClientID) == "" {
		return fmt.Errorf("%w: clientId is required", ErrValidation)
	}
	res, err := orders.ValidateItems(input.Items)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !res.Valid {
		return fmt.Errorf("%w: items: %s", ErrValidation, res.Error())
	}
	if input.DiscountPct < 0 || input.DiscountPct > 100 {
		return fmt.Errorf("%w: discountPct must be between 0 and 100", ErrValidation)
	}
	return nil
}

// checkRefs confirms the client is in the caller's book and that a linked
// visit happened at that same client.
func (h *Handler) checkRefs(ctx context.Context, input *Input) error {
	client, err := h.store.GetClient(ctx, input.ClientID)
	if err != nil {
		return dbError(err)
	}
	if err := h.policy.Require(input.Principal, client.OwnerID); err != nil {
		return err
	}
	if input.VisitID == "" {
		return nil
	}

	v, err := h.store.GetVisit(ctx, input.VisitID)
	if err != nil {
		return dbError(err)
	}
	if !h.policy.CanView(input.Principal, v.RepID) {
		return fmt.Errorf("%w: visit %s", store.ErrNotFound, v.ID)
	}
	if v.ClientID != client.ID {
		return fmt.Errorf("%w: visit %s belongs to another client", ErrValidation, v.ID)
	}
	return nil
}

func (h *Handler) buildOrder(input *Input) (*models.Order, error) {
	totals, err := orders.Price(input.Items, input.DiscountPct)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	now := h.now().UTC()
	o := &models.Order{
		ID:             uuid.New().String(),
		ClientID:       input.ClientID,
		RepID:          input.Principal.UserID,
		Items:          input.Items,
		Subtotal:       totals.Subtotal,
		DiscountPct:    input.DiscountPct,
		Total:          totals.Total,
		ApprovalStatus: orders.InitialApproval(input.DiscountPct, h.config.AutoApproveDiscountPct),
		CreatedAt:      now,
	}
	if input.VisitID != "" {
		visitID := input.VisitID
		o.VisitID = &visitID
	}
	if o.ApprovalStatus == models.ApprovalApproved {
		o.ApprovedAt = &now
	}
	return o, nil
}

// notifyManager emails the rep's manager about an order waiting for
// approval. Every failure is logged and swallowed.
func (h *Handler) notifyManager(ctx context.Context, p access.Principal, o *models.Order) bool {
	warn := func(reason string, err error) bool {
		fields := map[string]interface{}{"orderId": o.ID, "reason": reason}
		if err != nil {
			fields["error"] = err.Error()
		}
		h.logger.Warn("manager not notified", fields)
		return false
	}

	rep, err := h.store.GetUser(ctx, p.UserID)
	if err != nil {
		return warn("rep profile", err)
	}
	if rep.ManagerID == nil {
		return warn("rep has no manager", nil)
	}
	manager, err := h.store.GetUser(ctx, *rep.ManagerID)
	if err != nil {
		return warn("manager profile", err)
	}

	subject := fmt.Sprintf("Order %s needs approval (%.0f%% discount)", shortID(o.ID), o.DiscountPct)
	body := fmt.Sprintf("%s created an order with a %.2f%% discount.\n\nSubtotal: %.2f\nTotal: %.2f\nItems: %d\n\nOrder id: %s\n",
		rep.FullName, o.DiscountPct, o.Subtotal, o.Total, len(o.Items), o.ID)
	if _, err := h.mailer.SendText(ctx, []string{manager.Email}, subject, body); err != nil {
		if errors.Is(err, aws.ErrMailerDisabled) {
			return false
		}
		return warn("send", err)
	}
	return true
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func dbError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrQueryFailed, err)
}
