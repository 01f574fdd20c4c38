package clientcreate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/clientindex"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
)

var (
	fixedNow = time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC)
	rep      = access.Principal{UserID: "rep-1", Role: access.RoleRep}
	manager  = access.Principal{UserID: "mgr-1", Role: access.RoleManager, TeamIDs: []string{"rep-1"}}
)

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second, DefaultRegion: "US"}
}

// fakeES records indexed documents; status controls the index response.
type fakeES struct {
	status int
	docs   []clientindex.Document
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
		return
	}
	var doc clientindex.Document
	_ = json.NewDecoder(r.Body).Decode(&doc)
	f.docs = append(f.docs, doc)
	_, _ = w.Write([]byte(`{"result":"created"}`))
}

func createTestHandler(t *testing.T, es *fakeES) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	srv := httptest.NewServer(es)
	t.Cleanup(srv.Close)
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}, MaxRetries: 1})
	require.NoError(t, err)

	h := NewHandler(createTestConfig(), db, clientindex.New(client, "clients"), nil, logger.NewTestLogger(t))
	h.now = func() time.Time { return fixedNow }
	return h, mock
}

func validInput() *Input {
	lat, lng := -33.40, -70.64
	return &Input{
		Principal:   rep,
		Name:        " Clinica Norte ",
		Address:     "Av. Recoleta 123",
		Zone:        "Norte",
		Latitude:    &lat,
		Longitude:   &lng,
		Phone:       "(650) 253-0000",
		Email:       "Contacto@Norte.cl",
		ContactName: "Dra. Soto",
	}
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

func TestHandler_Execute_Success(t *testing.T) {
	es := &fakeES{}
	h, mock := createTestHandler(t, es)
	mock.ExpectExec("INSERT INTO clients").
		WithArgs(sqlmock.AnyArg(), "Clinica Norte", "Av. Recoleta 123", "Norte", -33.40, -70.64,
			"+16502530000", "contacto@norte.cl", "Dra. Soto", "rep-1", "lead", fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), validInput())

	require.NoError(t, err)
	assert.True(t, out.Indexed)
	assert.Equal(t, "lead", out.Client.Status)
	assert.Equal(t, "+16502530000", out.Client.Phone)
	require.Len(t, es.docs, 1)
	assert.Equal(t, out.Client.ID, es.docs[0].ID)
	assert.Equal(t, clientindex.GeoPoint{Lat: -33.40, Lon: -70.64}, es.docs[0].Location)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_ManagerCreatesForRep(t *testing.T) {
	h, mock := createTestHandler(t, &fakeES{})
	mock.ExpectExec("INSERT INTO clients").WillReturnResult(sqlmock.NewResult(0, 1))

	in := validInput()
	in.Principal = manager
	in.OwnerID = "rep-1"
	in.Status = "active"

	out, err := h.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "rep-1", out.Client.OwnerID)
	assert.Equal(t, "active", out.Client.Status)
}

func TestHandler_Execute_IndexFailureKeepsClient(t *testing.T) {
	h, mock := createTestHandler(t, &fakeES{status: http.StatusInternalServerError})
	mock.ExpectExec("INSERT INTO clients").WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), validInput())

	require.NoError(t, err)
	assert.False(t, out.Indexed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Rejections
// ==========================

func TestHandler_Execute_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Input)
		want   apperrors.ErrorCode
	}{
		{"no principal", func(in *Input) { in.Principal = access.Principal{} }, apperrors.ErrCodeSessionExpired},
		{"blank name", func(in *Input) { in.Name = "  " }, apperrors.ErrCodeValidationFailed},
		{"missing latitude", func(in *Input) { in.Latitude = nil }, apperrors.ErrCodeValidationFailed},
		{"longitude out of range", func(in *Input) { lng := 181.0; in.Longitude = &lng }, apperrors.ErrCodeValidationFailed},
		{"bad status", func(in *Input) { in.Status = "vip" }, apperrors.ErrCodeValidationFailed},
		{"bad email", func(in *Input) { in.Email = "nope@" }, apperrors.ErrCodeValidationFailed},
		{"bad phone", func(in *Input) { in.Phone = "12345" }, apperrors.ErrCodeValidationFailed},
		{"rep for other owner", func(in *Input) { in.OwnerID = "rep-2" }, apperrors.ErrCodePermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := createTestHandler(t, &fakeES{})
			in := validInput()
			tt.modify(in)

			_, err := h.Execute(context.Background(), in)
			assert.Equal(t, tt.want, errorCode(t, err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_DatabaseError(t *testing.T) {
	es := &fakeES{}
	h, mock := createTestHandler(t, es)
	mock.ExpectExec("INSERT INTO clients").WillReturnError(errors.New("connection reset"))

	_, err := h.Execute(context.Background(), validInput())
	assert.Equal(t, apperrors.ErrCodeDatabaseQueryFailed, errorCode(t, err))
	assert.Empty(t, es.docs)
}
