package visitcheckin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fieldsales-workers/internal/common/database"
	"fieldsales-workers/internal/models"
	"fieldsales-workers/internal/store"
	"fieldsales-workers/internal/visit"
)

func clientGeoKey(clientID string) string {
	return "client:geo:" + clientID
}

// loadClient reads the client position through the Redis cache. Cache
// failures only degrade to a database read.
func (h *Handler) loadClient(ctx context.Context, clientID string) (clientGeo, error) {
	warn := func(op, key string, err error) {
		h.logger.Warn("client cache unavailable", map[string]interface{}{"op": op, "key": key, "error": err})
	}
	geo, _, err := database.ReadThrough(ctx, h.redis, clientGeoKey(clientID), h.config.ClientCacheTTL, warn,
		func(ctx context.Context) (clientGeo, error) {
			c, err := h.store.GetClient(ctx, clientID)
			if err != nil {
				return clientGeo{}, err
			}
			return clientGeo{ID: c.ID, OwnerID: c.OwnerID, Latitude: c.Latitude, Longitude: c.Longitude}, nil
		})
	if err != nil {
		return clientGeo{}, dbError(err)
	}
	return geo, nil
}

// openVisit inserts a fresh in-progress visit. The pre-check gives a clear
// error in the common case; the partial unique index settles races.
func (h *Handler) openVisit(ctx context.Context, input *Input, in store.CheckIn) (string, error) {
	status, err := visit.Next(visit.ActionCheckIn, "")
	if err != nil {
		return "", err
	}

	existing, err := h.store.FindInProgressVisit(ctx, input.Principal.UserID, input.ClientID)
	switch {
	case err == nil:
		return "", fmt.Errorf("%w: visit %s is still open", store.ErrVisitInProgress, existing.ID)
	case !errors.Is(err, store.ErrNotFound):
		return "", dbError(err)
	}

	lat, lng, dist := in.Latitude, in.Longitude, in.DistanceMeters
	at := in.At
	v := &models.Visit{
		ID:               uuid.New().String(),
		ClientID:         input.ClientID,
		RepID:            input.Principal.UserID,
		Status:           status,
		CheckInAt:        &at,
		CheckInLat:       &lat,
		CheckInLng:       &lng,
		GeofenceOverride: in.Override,
		CheckInDistanceM: &dist,
		CreatedAt:        at,
	}
	if err := h.store.InsertVisit(ctx, v); err != nil {
		return "", dbError(err)
	}
	return v.ID, nil
}

// startScheduled checks in against a visit that was planned in advance.
func (h *Handler) startScheduled(ctx context.Context, input *Input, in store.CheckIn) (string, error) {
	v, err := h.store.GetVisit(ctx, input.ScheduledVisitID)
	if err != nil {
		return "", dbError(err)
	}
	if v.RepID != input.Principal.UserID {
		return "", fmt.Errorf("%w: visit %s is assigned to %s", ErrValidation, v.ID, v.RepID)
	}
	if v.ClientID != input.ClientID {
		return "", fmt.Errorf("%w: visit %s belongs to client %s", ErrValidation, v.ID, v.ClientID)
	}
	if _, err := visit.Next(visit.ActionStart, v.Status); err != nil {
		return "", err
	}
	if err := h.store.StartScheduledVisit(ctx, v.ID, in); err != nil {
		return "", dbError(err)
	}
	return v.ID, nil
}

// dbError tags unexpected store failures as retryable while keeping the
// store sentinels visible to errors.Is.
func dbError(err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrVisitInProgress) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrQueryFailed, err)
}
