package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/realms/fieldsales/protocol/openid-connect/userinfo", r.URL.Path)
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"sub":"u-1","email":"rep@dentalsupply.cl","given_name":"Ana","family_name":"Rojas"}`))
		case "Bearer down":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
}

func TestUserInfo(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	kc := NewKeycloakClient(srv.URL+"/", "fieldsales", time.Second)

	t.Run("valid token", func(t *testing.T) {
		info, err := kc.UserInfo(context.Background(), "Bearer good")
		require.NoError(t, err)
		assert.Equal(t, "u-1", info.Subject)
		assert.Equal(t, "Ana Rojas", info.DisplayName())
	})

	t.Run("expired token", func(t *testing.T) {
		_, err := kc.UserInfo(context.Background(), "stale")
		assert.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := kc.UserInfo(context.Background(), "  ")
		assert.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("provider failure is not a session error", func(t *testing.T) {
		_, err := kc.UserInfo(context.Background(), "down")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrSessionExpired)
	})
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Full", UserInfo{Name: "Full", Email: "e"}.DisplayName())
	assert.Equal(t, "user", UserInfo{PreferredUsername: "user", Email: "e"}.DisplayName())
	assert.Equal(t, "e", UserInfo{Email: "e"}.DisplayName())
}
