// Package visit holds the in-person visit rules: the geofence around a
// client, the on-site timer and the status transitions.
package visit

import (
	"errors"
	"fmt"
	"math"
)

const (
	EarthRadiusMeters     = 6371000.0
	DefaultGeofenceRadius = 2000.0
)

var (
	ErrOverrideRequired    = errors.New("GEOFENCE_OVERRIDE_REQUIRED")
	ErrPositionUnavailable = errors.New("GEOLOCATION_UNAVAILABLE")
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Position is a device fix. Accuracy is the reported radius in meters.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

func (p Position) Coordinates() Coordinates {
	return Coordinates{Latitude: p.Latitude, Longitude: p.Longitude}
}

// Valid reports whether c is a finite point on the globe.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Distance is the haversine great-circle distance between a and b in meters.
func Distance(a, b Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

type GeofenceResult struct {
	DistanceMeters float64 `json:"distanceMeters"`
	RadiusMeters   float64 `json:"radiusMeters"`
	Inside         bool    `json:"inside"`
	OverrideUsed   bool    `json:"overrideUsed"`
}

// CheckGeofence gates a check-in. A device at radius or farther needs an
// explicit override; the result always carries the measured distance.
func CheckGeofence(client, device Coordinates, radius float64, override bool) (GeofenceResult, error) {
	if radius <= 0 {
		radius = DefaultGeofenceRadius
	}
	if !device.Valid() {
		return GeofenceResult{RadiusMeters: radius}, fmt.Errorf("%w: invalid device position", ErrPositionUnavailable)
	}

	res := GeofenceResult{
		DistanceMeters: Distance(client, device),
		RadiusMeters:   radius,
	}
	res.Inside = res.DistanceMeters < radius
	if res.Inside {
		return res, nil
	}
	if !override {
		return res, fmt.Errorf("%w: device is %.0f m from client (radius %.0f m)",
			ErrOverrideRequired, res.DistanceMeters, radius)
	}
	res.OverrideUsed = true
	return res, nil
}

// RequirePosition is the check-out rule: a fix must be present and valid,
// there is no override.
func RequirePosition(p *Position) (Coordinates, error) {
	if p == nil {
		return Coordinates{}, fmt.Errorf("%w: no device position", ErrPositionUnavailable)
	}
	c := p.Coordinates()
	if !c.Valid() || (c.Latitude == 0 && c.Longitude == 0) {
		return Coordinates{}, fmt.Errorf("%w: invalid device position %.6f,%.6f", ErrPositionUnavailable, c.Latitude, c.Longitude)
	}
	return c, nil
}
