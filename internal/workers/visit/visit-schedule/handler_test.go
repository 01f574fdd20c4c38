package visitschedule

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/calendar"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
)

var (
	fixedNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	rep      = access.Principal{UserID: "rep-1", Email: "rep1@dentalsupply.cl", Role: access.RoleRep}
	manager  = access.Principal{UserID: "mgr-1", Role: access.RoleManager, TeamIDs: []string{"rep-1", "rep-2"}}
)

var clientCols = []string{"id", "name", "address", "zone", "latitude", "longitude", "phone", "email",
	"contact_name", "owner_id", "status", "created_at", "updated_at"}

var userCols = []string{"id", "email", "full_name", "role", "manager_id", "phone", "created_at"}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second, DefaultCalendarID: "primary", DefaultDuration: time.Hour}
}

func createTestHandler(t *testing.T, calendarURL string) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewHandler(createTestConfig(), db, nil, calendar.NewClient(calendarURL, time.Second), logger.NewTestLogger(t))
	h.now = func() time.Time { return fixedNow }
	return h, mock
}

func expectClient(mock sqlmock.Sqlmock, ownerID string) {
	mock.ExpectQuery("SELECT (.+) FROM clients WHERE id = \\$1").
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows(clientCols).AddRow(
			"c-1", "Clinica Norte", "Av. Recoleta 123", "Norte", -33.40, -70.64, "", "", "",
			ownerID, "active", fixedNow, fixedNow))
}

func errorCode(t *testing.T, err error) apperrors.ErrorCode {
	t.Helper()
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr), "expected StandardError, got %v", err)
	return stdErr.Code
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_ScheduleWithoutCalendar(t *testing.T) {
	h, mock := createTestHandler(t, "http://127.0.0.1:1")
	expectClient(mock, "rep-1")
	mock.ExpectExec("INSERT INTO visits").WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), &Input{
		Principal:    rep,
		ClientID:     "c-1",
		ScheduledFor: "2026-10-21T10:00:00-03:00",
	})

	require.NoError(t, err)
	assert.Equal(t, "scheduled", out.Status)
	assert.Equal(t, "rep-1", out.AssigneeID)
	assert.Equal(t, time.Date(2026, 10, 21, 13, 0, 0, 0, time.UTC), out.ScheduledFor)
	assert.False(t, out.CalendarSynced)
	assert.NotEmpty(t, out.VisitID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_ManagerAssignsWithCalendar(t *testing.T) {
	var got calendar.Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendars/primary/events", r.URL.Path)
		assert.Equal(t, "Bearer cal-token", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"evt-1","htmlLink":"https://calendar.example/evt-1"}`))
	}))
	defer srv.Close()

	h, mock := createTestHandler(t, srv.URL)
	expectClient(mock, "rep-2")
	mock.ExpectExec("INSERT INTO visits").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\$1").
		WithArgs("rep-2").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("rep-2", "rep2@dentalsupply.cl", "Rep Two", "rep", "mgr-1", "", fixedNow))
	mock.ExpectExec("UPDATE visits SET calendar_event_id").
		WithArgs(sqlmock.AnyArg(), "evt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), &Input{
		Principal:       manager,
		ClientID:        "c-1",
		AssigneeID:      "rep-2",
		ScheduledFor:    "2026-10-21T13:00:00Z",
		DurationMinutes: 30,
		SyncCalendar:    true,
		CalendarToken:   "cal-token",
	})

	require.NoError(t, err)
	assert.True(t, out.CalendarSynced)
	assert.Equal(t, "evt-1", out.CalendarEventID)
	assert.Equal(t, "https://calendar.example/evt-1", out.CalendarLink)
	assert.Equal(t, "Visit: Clinica Norte", got.Summary)
	assert.Equal(t, []calendar.Attendee{{Email: "rep2@dentalsupply.cl"}}, got.Attendees)
	assert.Equal(t, 30*time.Minute, got.End.DateTime.Sub(got.Start.DateTime))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_CalendarFailureKeepsVisit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	h, mock := createTestHandler(t, srv.URL)
	expectClient(mock, "rep-1")
	mock.ExpectExec("INSERT INTO visits").WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), &Input{
		Principal:     rep,
		ClientID:      "c-1",
		ScheduledFor:  "2026-10-21T13:00:00Z",
		SyncCalendar:  true,
		CalendarToken: "stale",
	})

	require.NoError(t, err)
	assert.False(t, out.CalendarSynced)
	assert.Empty(t, out.CalendarEventID)
	assert.NotEmpty(t, out.VisitID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Rejections
// ==========================

func TestHandler_Execute_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		input Input
		want  apperrors.ErrorCode
	}{
		{"no principal", Input{ClientID: "c-1", ScheduledFor: "2026-10-21T13:00:00Z"}, apperrors.ErrCodeSessionExpired},
		{"missing client", Input{Principal: rep, ScheduledFor: "2026-10-21T13:00:00Z"}, apperrors.ErrCodeValidationFailed},
		{"bad date", Input{Principal: rep, ClientID: "c-1", ScheduledFor: "next tuesday"}, apperrors.ErrCodeValidationFailed},
		{"rep assigns other", Input{Principal: rep, ClientID: "c-1", AssigneeID: "rep-2", ScheduledFor: "2026-10-21T13:00:00Z"}, apperrors.ErrCodePermissionDenied},
		{"manager outside team", Input{Principal: manager, ClientID: "c-1", AssigneeID: "rep-9", ScheduledFor: "2026-10-21T13:00:00Z"}, apperrors.ErrCodePermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := createTestHandler(t, "http://127.0.0.1:1")
			_, err := h.Execute(context.Background(), &tt.input)
			assert.Equal(t, tt.want, errorCode(t, err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_ClientOfAnotherRep(t *testing.T) {
	h, mock := createTestHandler(t, "http://127.0.0.1:1")
	expectClient(mock, "rep-2")

	_, err := h.Execute(context.Background(), &Input{Principal: rep, ClientID: "c-1", ScheduledFor: "2026-10-21T13:00:00Z"})
	assert.Equal(t, apperrors.ErrCodePermissionDenied, errorCode(t, err))
}

func TestHandler_Execute_UnknownClient(t *testing.T) {
	h, mock := createTestHandler(t, "http://127.0.0.1:1")
	mock.ExpectQuery("FROM clients").WillReturnRows(sqlmock.NewRows(clientCols))

	_, err := h.Execute(context.Background(), &Input{Principal: rep, ClientID: "c-1", ScheduledFor: "2026-10-21T13:00:00Z"})
	assert.Equal(t, apperrors.ErrCodeResourceNotFound, errorCode(t, err))
}
