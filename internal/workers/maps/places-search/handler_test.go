package placessearch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldsales-workers/internal/access"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/common/maps"
)

var (
	rep      = access.Principal{UserID: "rep-1", Role: access.RoleRep}
	santiago = &maps.LatLng{Lat: -33.4489, Lng: -70.6693}
)

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second, DefaultRadius: 2000, MaxRadius: 50000, DefaultKeyword: "dentist", MaxResults: 20}
}

func createTestHandler(t *testing.T, handler http.HandlerFunc) *Handler {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHandler(createTestConfig(), maps.NewClient(srv.URL, "key", 50, time.Second), logger.NewTestLogger(t))
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

func TestHandler_Execute_Autocomplete(t *testing.T) {
	h := createTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/autocomplete/json", r.URL.Path)
		assert.Equal(t, "clinica sonrisa", r.URL.Query().Get("input"))
		assert.Equal(t, "2000", r.URL.Query().Get("radius"))
		_, _ = w.Write([]byte(`{"status":"OK","predictions":[{"place_id":"p1","description":"Clinica Sonrisa, Providencia","structured_formatting":{"main_text":"Clinica Sonrisa","secondary_text":"Providencia"}}]}`))
	})

	out, err := h.Execute(context.Background(), &Input{Principal: rep, Mode: "Autocomplete", Query: " clinica sonrisa ", Location: santiago})

	require.NoError(t, err)
	assert.Equal(t, ModeAutocomplete, out.Mode)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "Clinica Sonrisa", out.Predictions[0].MainText)
}

func TestHandler_Execute_NearbySortedByDistance(t *testing.T) {
	h := createTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/nearbysearch/json", r.URL.Path)
		assert.Equal(t, "dentist", r.URL.Query().Get("keyword"))
		_, _ = w.Write([]byte(`{"status":"OK","results":[
			{"place_id":"far","name":"Dental Lejos","geometry":{"location":{"lat":-33.4600,"lng":-70.6693}}},
			{"place_id":"gone","name":"Cerrada","business_status":"CLOSED_PERMANENTLY","geometry":{"location":{"lat":-33.4489,"lng":-70.6693}}},
			{"place_id":"near","name":"Dental Cerca","geometry":{"location":{"lat":-33.4500,"lng":-70.6693}}}
		]}`))
	})

	out, err := h.Execute(context.Background(), &Input{Principal: rep, Mode: ModeNearby, Location: santiago})

	require.NoError(t, err)
	require.Len(t, out.Places, 2)
	assert.Equal(t, "near", out.Places[0].PlaceID)
	assert.Equal(t, "far", out.Places[1].PlaceID)
	assert.InDelta(t, 122, out.Places[0].DistanceMeters, 2)
	assert.InDelta(t, 1234, out.Places[1].DistanceMeters, 5)
}

func TestHandler_Execute_ZeroResults(t *testing.T) {
	h := createTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})

	out, err := h.Execute(context.Background(), &Input{Principal: rep, Mode: ModeNearby, Location: santiago, RadiusMeters: 500})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Count)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Validation(t *testing.T) {
	h := createTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called for invalid input")
	})

	tests := []struct {
		name string
		in   Input
	}{
		{"unknown mode", Input{Principal: rep, Mode: "text"}},
		{"short query", Input{Principal: rep, Mode: ModeAutocomplete, Query: "c"}},
		{"nearby without location", Input{Principal: rep, Mode: ModeNearby}},
		{"radius too large", Input{Principal: rep, Mode: ModeNearby, Location: santiago, RadiusMeters: 90000}},
		{"invalid location", Input{Principal: rep, Mode: ModeNearby, Location: &maps.LatLng{Lat: 95, Lng: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			_, err := h.Execute(context.Background(), &in)
			assert.Equal(t, apperrors.ErrCodeValidationFailed, errorCode(t, err))
		})
	}
}

func TestHandler_Execute_ProviderDenied(t *testing.T) {
	h := createTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"API key invalid"}`))
	})

	_, err := h.Execute(context.Background(), &Input{Principal: rep, Mode: ModeAutocomplete, Query: "clinica"})
	assert.Equal(t, apperrors.ErrCodeExternalService, errorCode(t, err))
}

func TestHandler_Execute_MissingPrincipal(t *testing.T) {
	h := createTestHandler(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := h.Execute(context.Background(), &Input{Mode: ModeNearby})
	assert.Equal(t, apperrors.ErrCodeSessionExpired, errorCode(t, err))
}
