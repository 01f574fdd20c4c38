package placessearch

import (
	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/maps"
)

const (
	ModeAutocomplete = "autocomplete"
	ModeNearby       = "nearby"
)

type Input struct {
	Principal    access.Principal `json:"principal"`
	Mode         string           `json:"mode"`
	Query        string           `json:"query,omitempty"`
	Location     *maps.LatLng     `json:"location,omitempty"`
	RadiusMeters int              `json:"radiusMeters,omitempty"`
	Keyword      string           `json:"keyword,omitempty"`
}

// Result is a nearby place with its distance from the search point.
type Result struct {
	maps.Place
	DistanceMeters float64 `json:"distanceMeters"`
}

type Output struct {
	Mode        string            `json:"mode"`
	Predictions []maps.Prediction `json:"predictions,omitempty"`
	Places      []Result          `json:"places,omitempty"`
	Count       int               `json:"count"`
}
