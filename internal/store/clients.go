package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/models"
)

const clientColumns = `id, name, address, zone, latitude, longitude, phone, email, contact_name, owner_id, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClient(r rowScanner) (models.Client, error) {
	var c models.Client
	err := r.Scan(&c.ID, &c.Name, &c.Address, &c.Zone, &c.Latitude, &c.Longitude,
		&c.Phone, &c.Email, &c.ContactName, &c.OwnerID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) InsertClient(ctx context.Context, c *models.Client) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		c.ID, c.Name, c.Address, c.Zone, c.Latitude, c.Longitude,
		c.Phone, c.Email, c.ContactName, c.OwnerID, c.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (s *Store) GetClient(ctx context.Context, id string) (*models.Client, error) {
	c, err := scanClient(s.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: client %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &c, nil
}

// ListClients returns the clients owned by anyone in p's view, by name.
func (s *Store) ListClients(ctx context.Context, p access.Principal) ([]models.Client, error) {
	scope := s.policy.Scope(p, "owner_id", 1)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE `+scope.Clause+` ORDER BY name`, scope.Args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var out []models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
