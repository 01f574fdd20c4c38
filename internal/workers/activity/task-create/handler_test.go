package taskcreate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldsales-workers/internal/access"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
)

var (
	fixedNow   = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	rep        = access.Principal{UserID: "rep-1", Role: access.RoleRep}
	manager    = access.Principal{UserID: "mgr-1", Role: access.RoleManager, TeamIDs: []string{"rep-1", "rep-2"}}
	clientCols = []string{"id", "name", "address", "zone", "latitude", "longitude", "phone", "email",
		"contact_name", "owner_id", "status", "created_at", "updated_at"}
)

func createTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewHandler(&Config{Timeout: 5 * time.Second}, db, nil, logger.NewTestLogger(t))
	h.now = func() time.Time { return fixedNow }
	return h, mock
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

func TestHandler_Execute_SelfAssigned(t *testing.T) {
	h, mock := createTestHandler(t)
	mock.ExpectExec("INSERT INTO tasks").
		WithArgs(sqlmock.AnyArg(), nil, "rep-1", "rep-1", "Send catalogue", nil, "pending", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), &Input{Principal: rep, Title: " Send catalogue "})

	require.NoError(t, err)
	assert.Equal(t, "rep-1", out.Task.AssigneeID)
	assert.Equal(t, "pending", out.Task.Status)
	assert.Nil(t, out.Task.DueAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_ManagerAssignsWithClientAndDueDate(t *testing.T) {
	h, mock := createTestHandler(t)
	mock.ExpectQuery("SELECT (.+) FROM clients WHERE id = \\$1").WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows(clientCols).AddRow(
			"c-1", "Clinica Oriente", "", "Oriente", -33.4, -70.5, "", "", "", "rep-2", "active", fixedNow, fixedNow))
	due := time.Date(2026, 10, 21, 15, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO tasks").
		WithArgs(sqlmock.AnyArg(), "c-1", "rep-2", "mgr-1", "Collect overdue invoice", due, "pending", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), &Input{
		Principal:  manager,
		Title:      "Collect overdue invoice",
		ClientID:   "c-1",
		AssigneeID: "rep-2",
		DueAt:      "2026-10-21T12:00:00-03:00",
	})

	require.NoError(t, err)
	require.NotNil(t, out.Task.DueAt)
	assert.True(t, due.Equal(*out.Task.DueAt))
	assert.Equal(t, "mgr-1", out.Task.CreatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Validation and permissions
// ==========================

func TestHandler_Execute_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input Input
	}{
		{"blank title", Input{Principal: rep, Title: "   "}},
		{"title too long", Input{Principal: rep, Title: strings.Repeat("x", 201)}},
		{"bad due date", Input{Principal: rep, Title: "Call back", DueAt: "tomorrow"}},
		{"date without zone", Input{Principal: rep, Title: "Call back", DueAt: "2026-10-21T12:00:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := createTestHandler(t)
			input := tt.input
			_, err := h.Execute(context.Background(), &input)
			assert.Equal(t, apperrors.ErrCodeValidationFailed, errorCode(t, err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_RepCannotAssignOthers(t *testing.T) {
	h, _ := createTestHandler(t)
	_, err := h.Execute(context.Background(), &Input{Principal: rep, Title: "Visit", AssigneeID: "rep-2"})
	assert.Equal(t, apperrors.ErrCodePermissionDenied, errorCode(t, err))
}

func TestHandler_Execute_UnknownClient(t *testing.T) {
	h, mock := createTestHandler(t)
	mock.ExpectQuery("FROM clients WHERE id").WillReturnRows(sqlmock.NewRows(clientCols))

	_, err := h.Execute(context.Background(), &Input{Principal: rep, Title: "Visit", ClientID: "c-404"})
	assert.Equal(t, apperrors.ErrCodeResourceNotFound, errorCode(t, err))
}
