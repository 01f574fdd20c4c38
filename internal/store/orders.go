package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/models"
)

const orderColumns = `id, client_id, visit_id, rep_id, items, subtotal, discount_pct, total,
	approval_status, approved_by, approved_at, created_at`

func scanOrder(r rowScanner) (models.Order, error) {
	var (
		o                   models.Order
		visitID, approvedBy sql.NullString
		approvedAt          sql.NullTime
		items               []byte
	)
	err := r.Scan(&o.ID, &o.ClientID, &visitID, &o.RepID, &items, &o.Subtotal, &o.DiscountPct, &o.Total,
		&o.ApprovalStatus, &approvedBy, &approvedAt, &o.CreatedAt)
	if err != nil {
		return o, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return o, fmt.Errorf("decode items of order %s: %w", o.ID, err)
		}
	}
	o.VisitID = stringPtr(visitID)
	o.ApprovedBy = stringPtr(approvedBy)
	o.ApprovedAt = timePtr(approvedAt)
	return o, nil
}

func (s *Store) InsertOrder(ctx context.Context, o *models.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode order items: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.ClientID, nullStringPtr(o.VisitID), o.RepID, items, o.Subtotal, o.DiscountPct, o.Total,
		o.ApprovalStatus, nullStringPtr(o.ApprovedBy), nullTime(o.ApprovedAt), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

// DecideOrder records an approval decision on a pending order.
func (s *Store) DecideOrder(ctx context.Context, id, status, approverID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET approval_status = $2, approved_by = $3, approved_at = $4
		WHERE id = $1 AND approval_status = 'pending'`,
		id, status, approverID, at,
	)
	if err != nil {
		return fmt.Errorf("decide order: %w", err)
	}
	return conditional(res, "order "+id+" is not pending")
}

// ListOrders returns orders by reps in p's view created within w.
func (s *Store) ListOrders(ctx context.Context, p access.Principal, w Window) ([]models.Order, error) {
	scope := s.policy.Scope(p, "rep_id", 1)
	win, winArgs := w.clause("created_at", scope.Next(1))
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE `+scope.Clause+` AND `+win+` ORDER BY created_at`,
		append(scope.Args, winArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
