// Package store is the table-scoped data access layer over PostgreSQL.
// Listing functions take an access.Scope so rows outside the caller's view
// are never fetched.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fieldsales-workers/internal/access"
)

var (
	ErrNotFound = errors.New("RESOURCE_NOT_FOUND")
	// ErrConflict means a guarded update matched no row because the record
	// changed state since it was read.
	ErrConflict = errors.New("STATE_CONFLICT")
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store must be backed by a *sql.DB when used from LoadActivity, which
// queries concurrently.
type Store struct {
	db     DBTX
	policy access.Policy
}

func New(db DBTX) *Store {
	return &Store{db: db}
}

// WithTx returns a Store bound to tx.
func (s *Store) WithTx(tx *sql.Tx) *Store {
	return &Store{db: tx, policy: s.policy}
}

// Window is a half-open [From, To) time range. A zero To means open-ended.
type Window struct {
	From time.Time
	To   time.Time
}

// clause renders the window on column using placeholders from next on.
func (w Window) clause(column string, next int) (string, []interface{}) {
	if w.To.IsZero() {
		return fmt.Sprintf("%s >= $%d", column, next), []interface{}{w.From}
	}
	return fmt.Sprintf("%s >= $%d AND %s < $%d", column, next, column, next+1), []interface{}{w.From, w.To}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: strings.TrimSpace(s) != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return nullString(*s)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// affectedOne turns a zero-row update into ErrNotFound.
func affectedOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return nil
}

// conditional turns a zero-row guarded update into ErrConflict.
func conditional(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrConflict, what)
	}
	return nil
}
