package visittimer

import (
	"time"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/visit"
)

type Input struct {
	Principal access.Principal `json:"principal"`
	VisitID   string           `json:"visitId"`
}

// Output is the timer as of the moment the job ran. A completed visit
// reports the timer frozen at check-out.
type Output struct {
	VisitID   string    `json:"visitId"`
	Status    string    `json:"status"`
	CheckInAt time.Time `json:"checkInAt"`
	AsOf      time.Time `json:"asOf"`
	visit.TimerDisplay
}
