package calllogcreate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldsales-workers/internal/access"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/common/realtime"
)

var (
	fixedNow   = time.Date(2026, 10, 19, 10, 30, 0, 0, time.UTC)
	rep        = access.Principal{UserID: "rep-1", Role: access.RoleRep}
	clientCols = []string{"id", "name", "address", "zone", "latitude", "longitude", "phone", "email",
		"contact_name", "owner_id", "status", "created_at", "updated_at"}
)

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second, DefaultRegion: "US"}
}

func createTestHandler(t *testing.T, rdb *redis.Client) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewHandler(createTestConfig(), db, rdb, logger.NewTestLogger(t))
	h.now = func() time.Time { return fixedNow }
	return h, mock
}

func expectClient(mock sqlmock.Sqlmock, ownerID, phone string) {
	mock.ExpectQuery("SELECT (.+) FROM clients WHERE id = \\$1").
		WithArgs("c-1").
		WillReturnRows(sqlmock.NewRows(clientCols).AddRow(
			"c-1", "Clinica Centro", "", "Centro", -33.4, -70.6, phone, "", "", ownerID, "active", fixedNow, fixedNow))
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

func TestHandler_Execute_NormalizesPhoneAndPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	h, mock := createTestHandler(t, rdb)

	sub := rdb.Subscribe(context.Background(), realtime.Channel("call_logs"))
	defer sub.Close()
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	expectClient(mock, "rep-1", "")
	mock.ExpectExec("INSERT INTO call_logs").
		WithArgs(sqlmock.AnyArg(), "c-1", "rep-1", "+16502530000", "connected", 240, "", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), &Input{
		Principal:       rep,
		ClientID:        "c-1",
		Phone:           "(650) 253-0000",
		Outcome:         "Connected",
		DurationSeconds: 240,
	})

	require.NoError(t, err)
	assert.Equal(t, "+16502530000", out.Call.Phone)
	assert.Equal(t, "connected", out.Call.Outcome)

	msg, err := sub.ReceiveMessage(context.Background())
	require.NoError(t, err)
	assert.Contains(t, msg.Payload, out.Call.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_FallsBackToClientPhone(t *testing.T) {
	h, mock := createTestHandler(t, nil)
	expectClient(mock, "rep-1", "+16502530000")
	mock.ExpectExec("INSERT INTO call_logs").
		WithArgs(sqlmock.AnyArg(), "c-1", "rep-1", "+16502530000", "no-answer", 0, "", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), &Input{Principal: rep, ClientID: "c-1", Outcome: "no-answer"})

	require.NoError(t, err)
	assert.Equal(t, "+16502530000", out.Call.Phone)
}

// ==========================
// Validation
// ==========================

func TestHandler_Execute_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input Input
	}{
		{"missing client", Input{Principal: rep, Outcome: "connected"}},
		{"unknown outcome", Input{Principal: rep, ClientID: "c-1", Outcome: "busy"}},
		{"negative duration", Input{Principal: rep, ClientID: "c-1", Outcome: "voicemail", DurationSeconds: -5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := createTestHandler(t, nil)
			input := tt.input
			_, err := h.Execute(context.Background(), &input)
			assert.Equal(t, apperrors.ErrCodeValidationFailed, errorCode(t, err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_InvalidPhone(t *testing.T) {
	h, mock := createTestHandler(t, nil)
	expectClient(mock, "rep-1", "")

	_, err := h.Execute(context.Background(), &Input{Principal: rep, ClientID: "c-1", Phone: "12345", Outcome: "connected"})
	assert.Equal(t, apperrors.ErrCodeValidationFailed, errorCode(t, err))
}

func TestHandler_Execute_NoPhoneAnywhere(t *testing.T) {
	h, mock := createTestHandler(t, nil)
	expectClient(mock, "rep-1", "")

	_, err := h.Execute(context.Background(), &Input{Principal: rep, ClientID: "c-1", Outcome: "connected"})
	assert.Equal(t, apperrors.ErrCodeValidationFailed, errorCode(t, err))
}

func TestHandler_Execute_ForeignClient(t *testing.T) {
	h, mock := createTestHandler(t, nil)
	expectClient(mock, "rep-9", "+16502530000")

	_, err := h.Execute(context.Background(), &Input{Principal: rep, ClientID: "c-1", Outcome: "connected"})
	assert.Equal(t, apperrors.ErrCodePermissionDenied, errorCode(t, err))
}
