package calendarlistevents

import (
	"time"

	"fieldsales-workers/internal/access"
)

type Input struct {
	Principal     access.Principal `json:"principal"`
	From          string           `json:"from,omitempty"`
	To            string           `json:"to,omitempty"`
	CalendarToken string           `json:"calendarToken,omitempty"`
	CalendarID    string           `json:"calendarId,omitempty"`
}

const (
	SourceVisit    = "visit"
	SourceCalendar = "calendar"
)

// AgendaItem is either a scheduled visit or an external calendar event.
type AgendaItem struct {
	Source   string     `json:"source"`
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Start    time.Time  `json:"start"`
	End      *time.Time `json:"end,omitempty"`
	ClientID string     `json:"clientId,omitempty"`
	RepID    string     `json:"repId,omitempty"`
	Location string     `json:"location,omitempty"`
	Link     string     `json:"link,omitempty"`
	EventID  string     `json:"eventId,omitempty"`
}

type Output struct {
	From             time.Time    `json:"from"`
	To               time.Time    `json:"to"`
	Items            []AgendaItem `json:"items"`
	Count            int          `json:"count"`
	ExternalIncluded bool         `json:"externalIncluded"`
}
