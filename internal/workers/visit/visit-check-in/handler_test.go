package visitcheckin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldsales-workers/internal/access"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/common/realtime"
	"fieldsales-workers/internal/visit"
)

// ==========================
// Test Helper Functions
// ==========================

var (
	clinicLat = -33.4489
	clinicLng = -70.6693
	fixedNow  = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	rep       = access.Principal{UserID: "rep-1", Email: "rep@dentalsupply.cl", Role: access.RoleRep}
)

var clientCols = []string{"id", "name", "address", "zone", "latitude", "longitude", "phone", "email",
	"contact_name", "owner_id", "status", "created_at", "updated_at"}

var visitCols = []string{"id", "client_id", "rep_id", "status", "scheduled_for", "check_in_at", "check_in_lat",
	"check_in_lng", "check_out_at", "check_out_lat", "check_out_lng", "geofence_override",
	"check_in_distance_m", "notes", "calendar_event_id", "created_at"}

func createTestConfig() *Config {
	return &Config{
		Timeout:        5 * time.Second,
		GeofenceRadius: 2000,
		Target:         20 * time.Minute,
		ClientCacheTTL: 10 * time.Minute,
	}
}

func createTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock, *miniredis.Miniredis, *redis.Client) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	h := NewHandler(createTestConfig(), db, rdb, logger.NewTestLogger(t))
	h.now = func() time.Time { return fixedNow }
	return h, mock, mr, rdb
}

// offsetNorth returns a point the given distance north of the clinic.
func offsetNorth(meters float64) *visit.Position {
	deg := meters / (visit.EarthRadiusMeters * 3.141592653589793 / 180)
	return &visit.Position{Latitude: clinicLat + deg, Longitude: clinicLng, Accuracy: 10}
}

func expectClient(mock sqlmock.Sqlmock, ownerID string) {
	mock.ExpectQuery("SELECT (.+) FROM clients WHERE id = \\$1").
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows(clientCols).AddRow(
			"c-1", "Clinica Dental Norte", "Av. Providencia 1234", "Providencia", clinicLat, clinicLng,
			"+56221234567", "contacto@norte.cl", "Dra. Rojas", ownerID, "active", fixedNow, fixedNow))
}

func expectNoOpenVisit(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("FROM visits\\s+WHERE rep_id = \\$1 AND client_id = \\$2 AND status = 'in-progress'").
		WithArgs("rep-1", "c-1").
		WillReturnRows(sqlmock.NewRows(visitCols))
}

func expectInsert(mock sqlmock.Sqlmock, override bool) {
	mock.ExpectExec("INSERT INTO visits").
		WithArgs(sqlmock.AnyArg(), "c-1", "rep-1", "in-progress", sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			override, sqlmock.AnyArg(), "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func errorCode(t *testing.T, err error) apperrors.ErrorCode {
	t.Helper()
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr), "expected StandardError, got %v", err)
	return stdErr.Code
}

func createInput(pos *visit.Position, override bool) *Input {
	return &Input{Principal: rep, ClientID: "c-1", Position: pos, OverrideConfirmed: override}
}

// ==========================
// Geofence gate
// ==========================

func TestHandler_Execute_AtClinic(t *testing.T) {
	h, mock, mr, _ := createTestHandler(t)
	expectClient(mock, "rep-1")
	expectNoOpenVisit(mock)
	expectInsert(mock, false)

	out, err := h.Execute(context.Background(), createInput(&visit.Position{Latitude: clinicLat, Longitude: clinicLng}, false))

	require.NoError(t, err)
	assert.NotEmpty(t, out.VisitID)
	assert.Equal(t, "in-progress", out.Status)
	assert.Equal(t, fixedNow, out.CheckInAt)
	assert.InDelta(t, 0, out.DistanceMeters, 0.001)
	assert.False(t, out.OverrideUsed)
	assert.Equal(t, int64(1200), out.TargetSeconds)
	assert.True(t, mr.Exists("client:geo:c-1"), "client position is cached")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_OutsideGeofenceNeedsOverride(t *testing.T) {
	h, mock, _, _ := createTestHandler(t)
	expectClient(mock, "rep-1")

	out, err := h.Execute(context.Background(), createInput(offsetNorth(3000), false))

	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, visit.ErrOverrideRequired)
	assert.Equal(t, apperrors.ErrCodeGeofenceOverrideRequired, errorCode(t, err))

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.InDelta(t, 3000, stdErr.Metadata["distanceMeters"].(float64), 1)
	assert.False(t, stdErr.Retryable)
	assert.NoError(t, mock.ExpectationsWereMet(), "no visit is inserted")
}

func TestHandler_Execute_OverrideRecorded(t *testing.T) {
	h, mock, _, _ := createTestHandler(t)
	expectClient(mock, "rep-1")
	expectNoOpenVisit(mock)
	expectInsert(mock, true)

	out, err := h.Execute(context.Background(), createInput(offsetNorth(3000), true))

	require.NoError(t, err)
	assert.True(t, out.OverrideUsed)
	assert.InDelta(t, 3000, out.DistanceMeters, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_JustInsideRadius(t *testing.T) {
	h, mock, _, _ := createTestHandler(t)
	expectClient(mock, "rep-1")
	expectNoOpenVisit(mock)
	expectInsert(mock, false)

	out, err := h.Execute(context.Background(), createInput(offsetNorth(1999), false))

	require.NoError(t, err)
	assert.False(t, out.OverrideUsed)
}

// ==========================
// Uniqueness
// ==========================

func TestHandler_Execute_AlreadyInProgress(t *testing.T) {
	h, mock, _, _ := createTestHandler(t)
	expectClient(mock, "rep-1")
	mock.ExpectQuery("FROM visits\\s+WHERE rep_id").
		WithArgs("rep-1", "c-1").
		WillReturnRows(sqlmock.NewRows(visitCols).AddRow(
			"v-open", "c-1", "rep-1", "in-progress", nil, fixedNow.Add(-time.Hour), clinicLat, clinicLng,
			nil, nil, nil, false, 0.0, "", "", fixedNow.Add(-time.Hour)))

	_, err := h.Execute(context.Background(), createInput(&visit.Position{Latitude: clinicLat, Longitude: clinicLng}, false))

	assert.Equal(t, apperrors.ErrCodeVisitAlreadyInProgress, errorCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_UniqueIndexRace(t *testing.T) {
	h, mock, _, _ := createTestHandler(t)
	expectClient(mock, "rep-1")
	expectNoOpenVisit(mock)
	mock.ExpectExec("INSERT INTO visits").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "visits_one_in_progress"})

	_, err := h.Execute(context.Background(), createInput(&visit.Position{Latitude: clinicLat, Longitude: clinicLng}, false))

	assert.Equal(t, apperrors.ErrCodeVisitAlreadyInProgress, errorCode(t, err))
}

// ==========================
// Scheduled visits
// ==========================

func TestHandler_Execute_StartsScheduledVisit(t *testing.T) {
	h, mock, _, _ := createTestHandler(t)
	expectClient(mock, "rep-1")
	mock.ExpectQuery("SELECT (.+) FROM visits WHERE id = \\$1").
		WithArgs("v-sched").
		WillReturnRows(sqlmock.NewRows(visitCols).AddRow(
			"v-sched", "c-1", "rep-1", "scheduled", fixedNow, nil, nil, nil,
			nil, nil, nil, false, nil, "", "evt-1", fixedNow.Add(-24*time.Hour)))
	mock.ExpectExec("UPDATE visits\\s+SET status = 'in-progress'").
		WithArgs("v-sched", fixedNow, clinicLat, clinicLng, false, 0.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	input := createInput(&visit.Position{Latitude: clinicLat, Longitude: clinicLng}, false)
	input.ScheduledVisitID = "v-sched"
	out, err := h.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, "v-sched", out.VisitID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_ScheduledVisitAlreadyCompleted(t *testing.T) {
	h, mock, _, _ := createTestHandler(t)
	expectClient(mock, "rep-1")
	mock.ExpectQuery("SELECT (.+) FROM visits WHERE id = \\$1").
		WithArgs("v-done").
		WillReturnRows(sqlmock.NewRows(visitCols).AddRow(
			"v-done", "c-1", "rep-1", "completed", fixedNow, fixedNow, clinicLat, clinicLng,
			fixedNow, clinicLat, clinicLng, false, 0.0, "", "", fixedNow))

	input := createInput(&visit.Position{Latitude: clinicLat, Longitude: clinicLng}, false)
	input.ScheduledVisitID = "v-done"
	_, err := h.Execute(context.Background(), input)

	assert.Equal(t, apperrors.ErrCodeInvalidVisitTransition, errorCode(t, err))
	assert.NoError(t, mock.ExpectationsWereMet(), "status is left untouched")
}

// ==========================
// Input and permission failures
// ==========================

func TestHandler_Execute_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		input *Input
		owner string
		code  apperrors.ErrorCode
	}{
		{"missing principal", &Input{ClientID: "c-1", Position: offsetNorth(0)}, "", apperrors.ErrCodeSessionExpired},
		{"missing client", &Input{Principal: rep, Position: offsetNorth(0)}, "", apperrors.ErrCodeValidationFailed},
		{"missing position", createInput(nil, false), "", apperrors.ErrCodeGeolocationUnavailable},
		{"invalid position", createInput(&visit.Position{Latitude: 120, Longitude: 0}, false), "rep-1", apperrors.ErrCodeGeolocationUnavailable},
		{"someone else's client", createInput(offsetNorth(0), false), "rep-2", apperrors.ErrCodePermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock, _, _ := createTestHandler(t)
			if tt.owner != "" {
				expectClient(mock, tt.owner)
			}
			_, err := h.Execute(context.Background(), tt.input)
			assert.Equal(t, tt.code, errorCode(t, err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_DatabaseErrorIsRetryable(t *testing.T) {
	h, mock, _, _ := createTestHandler(t)
	mock.ExpectQuery("FROM clients").WillReturnError(sql.ErrConnDone)

	_, err := h.Execute(context.Background(), createInput(offsetNorth(0), false))

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeDatabaseQueryFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

// ==========================
// Cache and realtime
// ==========================

func TestHandler_Execute_UsesCachedClient(t *testing.T) {
	h, mock, mr, _ := createTestHandler(t)
	data, _ := json.Marshal(clientGeo{ID: "c-1", OwnerID: "rep-1", Latitude: clinicLat, Longitude: clinicLng})
	require.NoError(t, mr.Set("client:geo:c-1", string(data)))
	expectNoOpenVisit(mock)
	expectInsert(mock, false)

	_, err := h.Execute(context.Background(), createInput(offsetNorth(10), false))

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "client row is not queried")
}

func TestHandler_Execute_PublishesChange(t *testing.T) {
	h, mock, _, rdb := createTestHandler(t)
	expectClient(mock, "rep-1")
	expectNoOpenVisit(mock)
	expectInsert(mock, false)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	changes, err := realtime.NewSubscriber(rdb, logger.NewTestLogger(t)).Subscribe(ctx, "visits")
	require.NoError(t, err)

	out, err := h.Execute(ctx, createInput(offsetNorth(0), false))
	require.NoError(t, err)

	select {
	case c := <-changes:
		assert.Equal(t, out.VisitID, c.ID)
		assert.Equal(t, realtime.OpInsert, c.Operation)
		assert.Equal(t, "rep-1", c.OwnerID)
	case <-ctx.Done():
		t.Fatal("no change published")
	}
}
