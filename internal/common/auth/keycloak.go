package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	apphttp "fieldsales-workers/internal/common/http"
)

// ErrSessionExpired is returned when the identity provider rejects the token.
var ErrSessionExpired = errors.New("SESSION_EXPIRED")

// KeycloakClient resolves end-user bearer tokens against a Keycloak realm.
type KeycloakClient struct {
	baseURL string
	realm   string
	http    *apphttp.Client
}

// UserInfo is the OpenID Connect userinfo payload.
type UserInfo struct {
	Subject           string `json:"sub"`
	Email             string `json:"email"`
	EmailVerified     bool   `json:"email_verified"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
}

// DisplayName picks the best available human-readable name.
func (u UserInfo) DisplayName() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.GivenName != "" || u.FamilyName != "":
		return strings.TrimSpace(u.GivenName + " " + u.FamilyName)
	case u.PreferredUsername != "":
		return u.PreferredUsername
	default:
		return u.Email
	}
}

func NewKeycloakClient(baseURL, realm string, timeout time.Duration) *KeycloakClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KeycloakClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		realm:   realm,
		http:    apphttp.NewClient(timeout),
	}
}

// UserInfo exchanges the user's access token for their identity claims.
// 401 and 403 map to ErrSessionExpired.
func (k *KeycloakClient) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	token := strings.TrimSpace(strings.TrimPrefix(accessToken, "Bearer "))
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrSessionExpired)
	}

	endpoint := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/userinfo", k.baseURL, k.realm)
	header := http.Header{"Authorization": []string{"Bearer " + token}}

	var info UserInfo
	if err := k.http.DoJSON(ctx, http.MethodGet, endpoint, header, nil, &info); err != nil {
		var se *apphttp.StatusError
		if errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: keycloak returned %d", ErrSessionExpired, se.StatusCode)
		}
		return nil, fmt.Errorf("keycloak userinfo: %w", err)
	}
	if info.Subject == "" {
		return nil, fmt.Errorf("%w: userinfo without subject", ErrSessionExpired)
	}
	return &info, nil
}
