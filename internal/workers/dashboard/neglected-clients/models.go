package neglectedclients

import (
	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/dashboard"
)

type Input struct {
	Principal access.Principal `json:"principal"`
}

type Result struct {
	ThresholdDays int                         `json:"thresholdDays"`
	AsOf          string                      `json:"asOf"`
	Clients       []dashboard.NeglectedClient `json:"clients"`
	Count         int                         `json:"count"`
}

type Output struct {
	Result
	Cached bool `json:"cached"`
}
