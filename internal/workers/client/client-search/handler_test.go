package clientsearch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/clientindex"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
)

var (
	rep   = access.Principal{UserID: "rep-1", Role: access.RoleRep}
	admin = access.Principal{UserID: "adm-1", Role: access.RoleAdmin}
)

const twoHits = `{"took":2,"hits":{"total":{"value":2},"hits":[
  {"_score":1.4,"_source":{"id":"c-1","name":"Clinica Norte","owner_id":"rep-1","status":"active"}},
  {"_score":0.9,"_source":{"id":"c-2","name":"Norte Dental","owner_id":"rep-1","status":"lead"}}]}}`

func createTestHandler(t *testing.T, handler http.HandlerFunc) *Handler {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}, MaxRetries: 1})
	require.NoError(t, err)
	return NewHandler(&Config{Timeout: 5 * time.Second}, clientindex.New(es, "clients"), logger.NewTestLogger(t))
}

func errorCode(t *testing.T, err error) apperrors.ErrorCode {
	t.Helper()
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr), "expected StandardError, got %v", err)
	return stdErr.Code
}

func TestHandler_Execute_RepSearchIsScoped(t *testing.T) {
	var body string
	h := createTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		_, _ = w.Write([]byte(twoHits))
	})

	out, err := h.Execute(context.Background(), &Input{Principal: rep, Text: "norte", Status: "active"})

	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Total)
	require.Len(t, out.Clients, 2)
	assert.Equal(t, "Clinica Norte", out.Clients[0].Name)
	assert.Contains(t, body, `"owner_id":["rep-1"]`)
	assert.Contains(t, body, `"multi_match"`)
}

func TestHandler_Execute_AdminSeesAll(t *testing.T) {
	var body string
	h := createTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		_, _ = w.Write([]byte(twoHits))
	})

	_, err := h.Execute(context.Background(), &Input{Principal: admin})
	require.NoError(t, err)
	assert.NotContains(t, body, "owner_id")
}

func TestHandler_Execute_Rejections(t *testing.T) {
	h := createTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("search must not run")
	})

	tests := []struct {
		name  string
		input Input
		want  apperrors.ErrorCode
	}{
		{"no principal", Input{Text: "x"}, apperrors.ErrCodeSessionExpired},
		{"bad status", Input{Principal: rep, Status: "gold"}, apperrors.ErrCodeValidationFailed},
		{"bad near", Input{Principal: rep, Near: &clientindex.Near{Latitude: 95, Longitude: 0, RadiusMeters: 10}}, apperrors.ErrCodeValidationFailed},
		{"zero radius", Input{Principal: rep, Near: &clientindex.Near{Latitude: -33, Longitude: -70}}, apperrors.ErrCodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), &tt.input)
			assert.Equal(t, tt.want, errorCode(t, err))
		})
	}
}

func TestHandler_Execute_SearchFailureIsRetryable(t *testing.T) {
	h := createTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	})

	_, err := h.Execute(context.Background(), &Input{Principal: rep})
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeSearchQueryFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}
