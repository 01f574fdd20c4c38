package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fieldsales-workers/internal/models"
)

const userColumns = `id, email, full_name, role, manager_id, phone, created_at`

func scanUser(r rowScanner) (models.User, error) {
	var (
		u         models.User
		managerID sql.NullString
	)
	if err := r.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &managerID, &u.Phone, &u.CreatedAt); err != nil {
		return u, err
	}
	u.ManagerID = stringPtr(managerID)
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// EnsureUser inserts u unless a profile with the same id exists.
func (s *Store) EnsureUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		u.ID, u.Email, u.FullName, u.Role, nullStringPtr(u.ManagerID), u.Phone, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

// TeamMemberIDs lists the users reporting directly to managerID.
func (s *Store) TeamMemberIDs(ctx context.Context, managerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users WHERE manager_id = $1 ORDER BY id`, managerID)
	if err != nil {
		return nil, fmt.Errorf("team members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) ListManagers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = 'manager' ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("list managers: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan manager: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
