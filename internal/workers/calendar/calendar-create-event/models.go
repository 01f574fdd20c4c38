package calendarcreateevent

import (
	"time"

	"fieldsales-workers/internal/access"
)

type Input struct {
	Principal     access.Principal `json:"principal"`
	CalendarToken string           `json:"calendarToken"`
	CalendarID    string           `json:"calendarId,omitempty"`
	Summary       string           `json:"summary"`
	Description   string           `json:"description,omitempty"`
	Location      string           `json:"location,omitempty"`
	Start         string           `json:"start"`
	End           string           `json:"end,omitempty"`
	AssigneeID    string           `json:"assigneeId,omitempty"`
}

type Output struct {
	EventID   string    `json:"eventId"`
	HTMLLink  string    `json:"htmlLink,omitempty"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Attendees []string  `json:"attendees,omitempty"`
}
