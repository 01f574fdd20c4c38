package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/database"
	"fieldsales-workers/internal/models"
)

const OneInProgressIndex = "visits_one_in_progress"

// ErrVisitInProgress is returned when the rep already has an open visit at
// the client, detected by the partial unique index.
var ErrVisitInProgress = errors.New("VISIT_ALREADY_IN_PROGRESS")

const visitColumns = `id, client_id, rep_id, status, scheduled_for, check_in_at, check_in_lat, check_in_lng,
	check_out_at, check_out_lat, check_out_lng, geofence_override, check_in_distance_m, notes,
	calendar_event_id, created_at`

func scanVisit(r rowScanner) (models.Visit, error) {
	var (
		v                                  models.Visit
		scheduledFor, checkInAt, checkOut  sql.NullTime
		inLat, inLng, outLat, outLng, dist sql.NullFloat64
	)
	err := r.Scan(&v.ID, &v.ClientID, &v.RepID, &v.Status, &scheduledFor, &checkInAt, &inLat, &inLng,
		&checkOut, &outLat, &outLng, &v.GeofenceOverride, &dist, &v.Notes, &v.CalendarEventID, &v.CreatedAt)
	if err != nil {
		return v, err
	}
	v.ScheduledFor = timePtr(scheduledFor)
	v.CheckInAt = timePtr(checkInAt)
	v.CheckInLat, v.CheckInLng = floatPtr(inLat), floatPtr(inLng)
	v.CheckOutAt = timePtr(checkOut)
	v.CheckOutLat, v.CheckOutLng = floatPtr(outLat), floatPtr(outLng)
	v.CheckInDistanceM = floatPtr(dist)
	return v, nil
}

func (s *Store) InsertVisit(ctx context.Context, v *models.Visit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visits (`+visitColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		v.ID, v.ClientID, v.RepID, v.Status, nullTime(v.ScheduledFor), nullTime(v.CheckInAt),
		nullFloat(v.CheckInLat), nullFloat(v.CheckInLng), nullTime(v.CheckOutAt),
		nullFloat(v.CheckOutLat), nullFloat(v.CheckOutLng), v.GeofenceOverride,
		nullFloat(v.CheckInDistanceM), v.Notes, v.CalendarEventID, v.CreatedAt,
	)
	if database.IsUniqueViolation(err, OneInProgressIndex) {
		return fmt.Errorf("%w: rep %s at client %s", ErrVisitInProgress, v.RepID, v.ClientID)
	}
	if err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

func (s *Store) GetVisit(ctx context.Context, id string) (*models.Visit, error) {
	v, err := scanVisit(s.db.QueryRowContext(ctx, `SELECT `+visitColumns+` FROM visits WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: visit %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get visit: %w", err)
	}
	return &v, nil
}

// FindInProgressVisit returns the rep's open visit at the client, or ErrNotFound.
func (s *Store) FindInProgressVisit(ctx context.Context, repID, clientID string) (*models.Visit, error) {
	v, err := scanVisit(s.db.QueryRowContext(ctx, `
		SELECT `+visitColumns+` FROM visits
		WHERE rep_id = $1 AND client_id = $2 AND status = 'in-progress'
		LIMIT 1`, repID, clientID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find in-progress visit: %w", err)
	}
	return &v, nil
}

// CheckIn is the recorded arrival at a client.
type CheckIn struct {
	At             time.Time
	Latitude       float64
	Longitude      float64
	Override       bool
	DistanceMeters float64
}

// StartScheduledVisit moves a scheduled visit to in-progress. ErrConflict
// means the visit was no longer scheduled.
func (s *Store) StartScheduledVisit(ctx context.Context, id string, in CheckIn) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE visits
		SET status = 'in-progress', check_in_at = $2, check_in_lat = $3, check_in_lng = $4,
		    geofence_override = $5, check_in_distance_m = $6
		WHERE id = $1 AND status = 'scheduled'`,
		id, in.At, in.Latitude, in.Longitude, in.Override, in.DistanceMeters,
	)
	if database.IsUniqueViolation(err, OneInProgressIndex) {
		return fmt.Errorf("%w: visit %s", ErrVisitInProgress, id)
	}
	if err != nil {
		return fmt.Errorf("start visit: %w", err)
	}
	return conditional(res, "visit "+id+" is not scheduled")
}

type CheckOut struct {
	At        time.Time
	Latitude  float64
	Longitude float64
	Notes     string
}

// CompleteVisit closes an in-progress visit. Empty notes keep the current ones.
func (s *Store) CompleteVisit(ctx context.Context, id string, out CheckOut) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE visits
		SET status = 'completed', check_out_at = $2, check_out_lat = $3, check_out_lng = $4,
		    notes = COALESCE(NULLIF($5, ''), notes)
		WHERE id = $1 AND status = 'in-progress'`,
		id, out.At, out.Latitude, out.Longitude, out.Notes,
	)
	if err != nil {
		return fmt.Errorf("complete visit: %w", err)
	}
	return conditional(res, "visit "+id+" is not in progress")
}

func (s *Store) CancelVisit(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE visits SET status = 'cancelled' WHERE id = $1 AND status = 'scheduled'`, id)
	if err != nil {
		return fmt.Errorf("cancel visit: %w", err)
	}
	return conditional(res, "visit "+id+" is not scheduled")
}

func (s *Store) SetVisitCalendarEvent(ctx context.Context, id, eventID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE visits SET calendar_event_id = $2 WHERE id = $1`, id, eventID)
	if err != nil {
		return fmt.Errorf("set calendar event: %w", err)
	}
	return affectedOne(res, "visit "+id)
}

// ListVisits returns visits by reps in p's view that started within w.
func (s *Store) ListVisits(ctx context.Context, p access.Principal, w Window) ([]models.Visit, error) {
	scope := s.policy.Scope(p, "rep_id", 1)
	win, winArgs := w.clause("COALESCE(check_in_at, scheduled_for, created_at)", scope.Next(1))
	return s.queryVisits(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE `+scope.Clause+` AND `+win+` ORDER BY created_at`,
		append(scope.Args, winArgs...)...)
}

// ListScheduledVisits returns scheduled visits in p's view due within w.
func (s *Store) ListScheduledVisits(ctx context.Context, p access.Principal, w Window) ([]models.Visit, error) {
	scope := s.policy.Scope(p, "rep_id", 1)
	win, winArgs := w.clause("scheduled_for", scope.Next(1))
	return s.queryVisits(ctx,
		`SELECT `+visitColumns+` FROM visits WHERE status = 'scheduled' AND `+scope.Clause+` AND `+win+` ORDER BY scheduled_for`,
		append(scope.Args, winArgs...)...)
}

// LastCompletedVisits returns, for each client owned within p's view, one
// synthetic completed visit carrying the latest check-out time.
func (s *Store) LastCompletedVisits(ctx context.Context, p access.Principal) ([]models.Visit, error) {
	scope := s.policy.Scope(p, "c.owner_id", 1)
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.client_id, MAX(COALESCE(v.check_out_at, v.check_in_at, v.created_at))
		FROM visits v
		JOIN clients c ON c.id = v.client_id
		WHERE `+scope.Clause+` AND v.status = 'completed'
		GROUP BY v.client_id`, scope.Args...)
	if err != nil {
		return nil, fmt.Errorf("last completed visits: %w", err)
	}
	defer rows.Close()

	var out []models.Visit
	for rows.Next() {
		var (
			clientID string
			last     time.Time
		)
		if err := rows.Scan(&clientID, &last); err != nil {
			return nil, fmt.Errorf("scan last visit: %w", err)
		}
		at := last
		out = append(out, models.Visit{
			ClientID:   clientID,
			Status:     models.VisitStatusCompleted,
			CheckInAt:  &at,
			CheckOutAt: &at,
		})
	}
	return out, rows.Err()
}

func (s *Store) queryVisits(ctx context.Context, query string, args ...interface{}) ([]models.Visit, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	defer rows.Close()

	var out []models.Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
