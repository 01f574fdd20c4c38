package models

import "time"

const (
	VisitStatusScheduled  = "scheduled"
	VisitStatusInProgress = "in-progress"
	VisitStatusCompleted  = "completed"
	VisitStatusCancelled  = "cancelled"
)

// Visit is one rep/client interaction. Its duration is derived from the
// check-in and check-out times and never stored.
type Visit struct {
	ID               string     `json:"id" db:"id"`
	ClientID         string     `json:"clientId" db:"client_id"`
	RepID            string     `json:"repId" db:"rep_id"`
	Status           string     `json:"status" db:"status"`
	ScheduledFor     *time.Time `json:"scheduledFor,omitempty" db:"scheduled_for"`
	CheckInAt        *time.Time `json:"checkInAt,omitempty" db:"check_in_at"`
	CheckInLat       *float64   `json:"checkInLat,omitempty" db:"check_in_lat"`
	CheckInLng       *float64   `json:"checkInLng,omitempty" db:"check_in_lng"`
	CheckOutAt       *time.Time `json:"checkOutAt,omitempty" db:"check_out_at"`
	CheckOutLat      *float64   `json:"checkOutLat,omitempty" db:"check_out_lat"`
	CheckOutLng      *float64   `json:"checkOutLng,omitempty" db:"check_out_lng"`
	GeofenceOverride bool       `json:"geofenceOverride" db:"geofence_override"`
	CheckInDistanceM *float64   `json:"checkInDistanceMeters,omitempty" db:"check_in_distance_m"`
	Notes            string     `json:"notes,omitempty" db:"notes"`
	CalendarEventID  string     `json:"calendarEventId,omitempty" db:"calendar_event_id"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
}

// Duration is the time between check-in and check-out, or now when the visit
// is still open. It is never negative.
func (v Visit) Duration(now time.Time) time.Duration {
	if v.CheckInAt == nil {
		return 0
	}
	end := now
	if v.CheckOutAt != nil {
		end = *v.CheckOutAt
	}
	d := end.Sub(*v.CheckInAt)
	if d < 0 {
		return 0
	}
	return d
}

// StartedAt is the check-in time, falling back to the schedule and then to
// the creation time.
func (v Visit) StartedAt() time.Time {
	switch {
	case v.CheckInAt != nil:
		return *v.CheckInAt
	case v.ScheduledFor != nil:
		return *v.ScheduledFor
	}
	return v.CreatedAt
}
