package store

import (
	"context"
	"fmt"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/models"
)

const quotationColumns = `id, client_id, rep_id, amount, status, interaction_type, notes, created_at`

func (s *Store) InsertQuotation(ctx context.Context, q *models.Quotation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quotations (`+quotationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		q.ID, q.ClientID, q.RepID, q.Amount, q.Status, q.InteractionType, q.Notes, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quotation: %w", err)
	}
	return nil
}

func (s *Store) ListQuotations(ctx context.Context, p access.Principal, w Window) ([]models.Quotation, error) {
	scope := s.policy.Scope(p, "rep_id", 1)
	win, winArgs := w.clause("created_at", scope.Next(1))
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+quotationColumns+` FROM quotations WHERE `+scope.Clause+` AND `+win+` ORDER BY created_at`,
		append(scope.Args, winArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("list quotations: %w", err)
	}
	defer rows.Close()

	var out []models.Quotation
	for rows.Next() {
		var q models.Quotation
		if err := rows.Scan(&q.ID, &q.ClientID, &q.RepID, &q.Amount, &q.Status,
			&q.InteractionType, &q.Notes, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quotation: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}
