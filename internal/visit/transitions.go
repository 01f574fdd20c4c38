package visit

import (
	"errors"
	"fmt"

	"fieldsales-workers/internal/models"
)

const (
	ActionCheckIn  = "check-in"
	ActionStart    = "start"
	ActionComplete = "complete"
	ActionCancel   = "cancel"
)

var ErrInvalidTransition = errors.New("INVALID_VISIT_TRANSITION")

type transition struct {
	from []string
	to   string
}

// An empty from status is a visit that does not exist yet.
var transitionMap = map[string]transition{
	ActionCheckIn:  {from: []string{""}, to: models.VisitStatusInProgress},
	ActionStart:    {from: []string{models.VisitStatusScheduled}, to: models.VisitStatusInProgress},
	ActionComplete: {from: []string{models.VisitStatusInProgress}, to: models.VisitStatusCompleted},
	ActionCancel:   {from: []string{models.VisitStatusScheduled}, to: models.VisitStatusCancelled},
}

func ValidTransition(action, fromStatus string) bool {
	t, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range t.from {
		if status == fromStatus {
			return true
		}
	}
	return false
}

// Next returns the status action leads to from fromStatus.
func Next(action, fromStatus string) (string, error) {
	if !ValidTransition(action, fromStatus) {
		return "", fmt.Errorf("%w: cannot %s a visit that is %q", ErrInvalidTransition, action, fromStatus)
	}
	return transitionMap[action].to, nil
}

func Terminal(status string) bool {
	return status == models.VisitStatusCompleted || status == models.VisitStatusCancelled
}
