package visitcancel

import "fieldsales-workers/internal/access"

type Input struct {
	Principal     access.Principal `json:"principal"`
	VisitID       string           `json:"visitId"`
	CalendarToken string           `json:"calendarToken,omitempty"`
	CalendarID    string           `json:"calendarId,omitempty"`
}

type Output struct {
	VisitID              string `json:"visitId"`
	Status               string `json:"status"`
	CalendarEventDeleted bool   `json:"calendarEventDeleted"`
}
