package salesseries

import (
	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/dashboard"
)

type Input struct {
	Principal access.Principal `json:"principal"`
}

type Result struct {
	Month      string                    `json:"month"`
	Summary    dashboard.Summary         `json:"summary"`
	OrderTrend []dashboard.DayTotal      `json:"orderTrend"`
	Activity   []dashboard.ActivityPoint `json:"activity"`
	Zones      []dashboard.ZoneCount     `json:"zones"`
}

type Output struct {
	Result
	Cached bool `json:"cached"`
}
