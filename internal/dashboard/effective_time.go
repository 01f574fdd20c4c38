// Package dashboard turns visit, order, call and quotation rows into the
// numbers and series shown to reps and managers. Every function here is pure:
// callers pass rows already filtered by access.Policy.
package dashboard

import (
	"fmt"
	"sort"
	"time"

	"fieldsales-workers/internal/models"
)

// CreditRules are the fixed minutes credited for activity that has no
// measured duration.
type CreditRules struct {
	OrderWithoutVisit time.Duration `json:"orderWithoutVisit"`
	Call              time.Duration `json:"call"`
	RemoteQuotation   time.Duration `json:"remoteQuotation"`
	InPersonQuotation time.Duration `json:"inPersonQuotation"`
}

var DefaultCreditRules = CreditRules{
	OrderWithoutVisit: 15 * time.Minute,
	Call:              7 * time.Minute,
	RemoteQuotation:   7 * time.Minute,
	InPersonQuotation: 20 * time.Minute,
}

// Activity is the raw input for a window.
type Activity struct {
	Visits     []models.Visit
	Orders     []models.Order
	Calls      []models.CallLog
	Quotations []models.Quotation
}

type EffectiveTimeSummary struct {
	RepID        string         `json:"repId"`
	TotalMinutes int            `json:"totalMinutes"`
	Formatted    string         `json:"formatted"`
	ByClient     map[string]int `json:"byClient"`
}

// EffectiveTime estimates the minutes each rep spent per client.
//
// Visits add their measured duration. Orders add OrderWithoutVisit only when
// not linked to a visit. Calls add Call. Quotations add RemoteQuotation for
// phone and WhatsApp; any other quotation adds InPersonQuotation unless the
// same rep already has a visit for that client in the window.
func EffectiveTime(activity Activity, now time.Time, rules CreditRules) map[string]EffectiveTimeSummary {
	acc := map[string]map[string]time.Duration{}
	covered := map[string]map[string]bool{}

	add := func(rep, client string, d time.Duration) {
		if acc[rep] == nil {
			acc[rep] = map[string]time.Duration{}
		}
		acc[rep][client] += d
	}

	for _, v := range activity.Visits {
		if v.CheckInAt == nil || v.Status == models.VisitStatusCancelled {
			continue
		}
		add(v.RepID, v.ClientID, v.Duration(now))
		if covered[v.RepID] == nil {
			covered[v.RepID] = map[string]bool{}
		}
		covered[v.RepID][v.ClientID] = true
	}

	for _, o := range activity.Orders {
		if o.HasVisit() {
			add(o.RepID, o.ClientID, 0)
			continue
		}
		add(o.RepID, o.ClientID, rules.OrderWithoutVisit)
	}

	for _, c := range activity.Calls {
		add(c.RepID, c.ClientID, rules.Call)
	}

	for _, q := range activity.Quotations {
		switch {
		case q.Remote():
			add(q.RepID, q.ClientID, rules.RemoteQuotation)
		case covered[q.RepID][q.ClientID]:
			add(q.RepID, q.ClientID, 0)
		default:
			add(q.RepID, q.ClientID, rules.InPersonQuotation)
		}
	}

	out := make(map[string]EffectiveTimeSummary, len(acc))
	for rep, clients := range acc {
		s := EffectiveTimeSummary{RepID: rep, ByClient: make(map[string]int, len(clients))}
		for client, d := range clients {
			m := int(d / time.Minute)
			s.ByClient[client] = m
			s.TotalMinutes += m
		}
		s.Formatted = FormatMinutes(s.TotalMinutes)
		out[rep] = s
	}
	return out
}

// SortedSummaries orders summaries by total minutes descending, then rep id.
func SortedSummaries(m map[string]EffectiveTimeSummary) []EffectiveTimeSummary {
	out := make([]EffectiveTimeSummary, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalMinutes != out[j].TotalMinutes {
			return out[i].TotalMinutes > out[j].TotalMinutes
		}
		return out[i].RepID < out[j].RepID
	})
	return out
}

// FormatMinutes renders minutes as "Hh Mm".
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
