package visitschedule

import (
	"time"

	"fieldsales-workers/internal/access"
)

type Input struct {
	Principal       access.Principal `json:"principal"`
	ClientID        string           `json:"clientId"`
	AssigneeID      string           `json:"assigneeId,omitempty"`
	ScheduledFor    string           `json:"scheduledFor"`
	DurationMinutes int              `json:"durationMinutes,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	SyncCalendar    bool             `json:"syncCalendar"`
	CalendarToken   string           `json:"calendarToken,omitempty"`
	CalendarID      string           `json:"calendarId,omitempty"`
}

type Output struct {
	VisitID         string    `json:"visitId"`
	Status          string    `json:"status"`
	AssigneeID      string    `json:"assigneeId"`
	ScheduledFor    time.Time `json:"scheduledFor"`
	CalendarSynced  bool      `json:"calendarSynced"`
	CalendarEventID string    `json:"calendarEventId,omitempty"`
	CalendarLink    string    `json:"calendarLink,omitempty"`
}
