package visitcheckin

import (
	"time"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/visit"
)

type Input struct {
	Principal         access.Principal `json:"principal"`
	ClientID          string           `json:"clientId"`
	Position          *visit.Position  `json:"position"`
	OverrideConfirmed bool             `json:"overrideConfirmed"`
	ScheduledVisitID  string           `json:"scheduledVisitId,omitempty"`
}

type Output struct {
	VisitID        string    `json:"visitId"`
	Status         string    `json:"status"`
	CheckInAt      time.Time `json:"checkInAt"`
	DistanceMeters float64   `json:"distanceMeters"`
	OverrideUsed   bool      `json:"overrideUsed"`
	TargetSeconds  int64     `json:"targetSeconds"`
}

// clientGeo is the cached slice of a client needed to gate a check-in.
type clientGeo struct {
	ID        string  `json:"id"`
	OwnerID   string  `json:"ownerId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
