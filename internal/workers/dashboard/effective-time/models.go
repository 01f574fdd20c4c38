package effectivetime

import (
	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/dashboard"
)

// Input.Date (yyyy-mm-dd) is the last day of the window; empty means today.
type Input struct {
	Principal access.Principal `json:"principal"`
	Date      string           `json:"date,omitempty"`
}

type Result struct {
	From         string                           `json:"from"`
	To           string                           `json:"to"`
	Reps         []dashboard.EffectiveTimeSummary `json:"reps"`
	TotalMinutes int                              `json:"totalMinutes"`
	Formatted    string                           `json:"formatted"`
}

type Output struct {
	Result
	Cached bool `json:"cached"`
}
