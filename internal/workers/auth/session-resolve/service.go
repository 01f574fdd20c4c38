package sessionresolve

import (
	"context"
	"errors"
	"fmt"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/auth"
	"fieldsales-workers/internal/common/database"
	"fieldsales-workers/internal/models"
	"fieldsales-workers/internal/store"
)

// SessionKey is the Redis key holding the resolved principal of subject.
func SessionKey(subject string) string {
	return "session:" + subject
}

type session struct {
	Principal   access.Principal `json:"principal"`
	Provisioned bool             `json:"provisioned"`
}

// identify always asks the identity provider, so a revoked token fails even
// when the profile is cached.
func (h *Handler) identify(ctx context.Context, token string) (*auth.UserInfo, error) {
	info, err := h.keycloak.UserInfo(ctx, token)
	if errors.Is(err, auth.ErrSessionExpired) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIdentityProvider, err)
	}
	return info, nil
}

func (h *Handler) loadSession(ctx context.Context, info *auth.UserInfo) (session, bool, error) {
	warn := func(op, key string, err error) {
		h.logger.Warn("session cache unavailable", map[string]interface{}{"op": op, "key": key, "error": err})
	}
	s, hit, err := database.ReadThrough(ctx, h.redis, SessionKey(info.Subject), h.config.CacheTTL, warn,
		func(ctx context.Context) (session, error) {
			return h.buildSession(ctx, info)
		})
	if err != nil {
		if errors.Is(err, access.ErrPermissionDenied) {
			return session{}, false, err
		}
		return session{}, false, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return s, hit, nil
}

// buildSession loads the CRM profile for the subject. A subject seen for the
// first time gets a rep profile.
func (h *Handler) buildSession(ctx context.Context, info *auth.UserInfo) (session, error) {
	provisioned := false
	u, err := h.store.GetUser(ctx, info.Subject)
	if errors.Is(err, store.ErrNotFound) {
		u = &models.User{
			ID:        info.Subject,
			Email:     info.Email,
			FullName:  info.DisplayName(),
			Role:      string(access.RoleRep),
			CreatedAt: h.now().UTC(),
		}
		if err := h.store.EnsureUser(ctx, u); err != nil {
			return session{}, err
		}
		provisioned = true
	} else if err != nil {
		return session{}, err
	}

	role, err := access.ParseRole(u.Role)
	if err != nil {
		return session{}, fmt.Errorf("%w: %v", access.ErrPermissionDenied, err)
	}

	p := access.Principal{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.FullName,
		Role:        role,
	}
	if p.Email == "" {
		p.Email = info.Email
	}
	if role == access.RoleManager {
		if p.TeamIDs, err = h.store.TeamMemberIDs(ctx, u.ID); err != nil {
			return session{}, err
		}
	}
	return session{Principal: p, Provisioned: provisioned}, nil
}
