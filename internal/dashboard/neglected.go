package dashboard

import (
	"sort"
	"time"

	"fieldsales-workers/internal/models"
)

const (
	DefaultNeglectThresholdDays = 15
	// NeverVisitedDays stands in for clients with no completed visit.
	NeverVisitedDays = 999
)

type NeglectedClient struct {
	ClientID    string     `json:"clientId"`
	Name        string     `json:"name"`
	Zone        string     `json:"zone,omitempty"`
	OwnerID     string     `json:"ownerId"`
	DaysSince   int        `json:"daysSince"`
	LastVisitAt *time.Time `json:"lastVisitAt,omitempty"`
}

// NeglectedClients keeps clients whose last completed visit is threshold days
// old or more, most neglected first.
func NeglectedClients(clients []models.Client, visits []models.Visit, now time.Time, threshold int) []NeglectedClient {
	if threshold <= 0 {
		threshold = DefaultNeglectThresholdDays
	}

	last := map[string]time.Time{}
	for _, v := range visits {
		if v.Status != models.VisitStatusCompleted {
			continue
		}
		at := v.StartedAt()
		if v.CheckOutAt != nil {
			at = *v.CheckOutAt
		}
		if prev, ok := last[v.ClientID]; !ok || at.After(prev) {
			last[v.ClientID] = at
		}
	}

	out := []NeglectedClient{}
	for _, c := range clients {
		n := NeglectedClient{ClientID: c.ID, Name: c.Name, Zone: c.Zone, OwnerID: c.OwnerID, DaysSince: NeverVisitedDays}
		if at, ok := last[c.ID]; ok {
			at := at
			n.LastVisitAt = &at
			n.DaysSince = DaysBetween(at, now)
		}
		if n.DaysSince >= threshold {
			out = append(out, n)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DaysSince != out[j].DaysSince {
			return out[i].DaysSince > out[j].DaysSince
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// DaysBetween counts whole elapsed days from then to now.
func DaysBetween(then, now time.Time) int {
	d := now.Sub(then)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}
