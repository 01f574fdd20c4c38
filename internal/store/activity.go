package store

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/dashboard"
	"fieldsales-workers/internal/models"
)

const callLogColumns = `id, client_id, rep_id, phone, outcome, duration_seconds, notes, created_at`

func (s *Store) InsertCallLog(ctx context.Context, c *models.CallLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO call_logs (`+callLogColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.ClientID, c.RepID, c.Phone, c.Outcome, c.DurationSeconds, c.Notes, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert call log: %w", err)
	}
	return nil
}

func (s *Store) ListCallLogs(ctx context.Context, p access.Principal, w Window) ([]models.CallLog, error) {
	scope := s.policy.Scope(p, "rep_id", 1)
	win, winArgs := w.clause("created_at", scope.Next(1))
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+callLogColumns+` FROM call_logs WHERE `+scope.Clause+` AND `+win+` ORDER BY created_at`,
		append(scope.Args, winArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("list call logs: %w", err)
	}
	defer rows.Close()

	var out []models.CallLog
	for rows.Next() {
		var c models.CallLog
		if err := rows.Scan(&c.ID, &c.ClientID, &c.RepID, &c.Phone, &c.Outcome,
			&c.DurationSeconds, &c.Notes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan call log: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) InsertTask(ctx context.Context, t *models.Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, client_id, assignee_id, created_by, title, due_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, nullString(t.ClientID), t.AssigneeID, t.CreatedBy, t.Title, nullTime(t.DueAt), t.Status, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *Store) InsertPhoto(ctx context.Context, ph *models.PhotoEvidence) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO photo_evidence (id, client_id, visit_id, rep_id, category, content_type, image_data, object_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ph.ID, ph.ClientID, nullStringPtr(ph.VisitID), ph.RepID, ph.Category, ph.ContentType,
		ph.ImageData, ph.ObjectKey, ph.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert photo evidence: %w", err)
	}
	return nil
}

// LoadActivity returns every dashboard input row in p's view for w. The four
// tables are read concurrently and the first failure cancels the rest.
func (s *Store) LoadActivity(ctx context.Context, p access.Principal, w Window) (*dashboard.Activity, error) {
	var a dashboard.Activity
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		a.Visits, err = s.ListVisits(gctx, p, w)
		return err
	})
	g.Go(func() (err error) {
		a.Orders, err = s.ListOrders(gctx, p, w)
		return err
	})
	g.Go(func() (err error) {
		a.Calls, err = s.ListCallLogs(gctx, p, w)
		return err
	})
	g.Go(func() (err error) {
		a.Quotations, err = s.ListQuotations(gctx, p, w)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &a, nil
}
