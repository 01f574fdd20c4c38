package dashboard

import (
	"math"
	"sort"
	"time"

	"fieldsales-workers/internal/models"
)

const (
	DateLayout        = "2006-01-02"
	UnassignedZone    = "unassigned"
	DefaultWindowDays = 7
)

type DayTotal struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

type ActivityPoint struct {
	Date   string `json:"date"`
	Visits int    `json:"visits"`
	Orders int    `json:"orders"`
}

type ZoneCount struct {
	Zone   string `json:"zone"`
	Visits int    `json:"visits"`
}

// Summary holds the headline numbers for the month.
type Summary struct {
	TotalSales       float64 `json:"totalSales"`
	OrderCount       int     `json:"orderCount"`
	CompletedVisits  int     `json:"completedVisits"`
	PendingApprovals int     `json:"pendingApprovals"`
}

// MonthStart is midnight on the first of now's month, in now's location.
func MonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// OrderTrend sums order totals per day for every day of the month that
// starts at monthStart. Days without orders are present with zero.
func OrderTrend(orders []models.Order, monthStart, now time.Time) []DayTotal {
	loc := now.Location()
	monthStart = MonthStart(monthStart.In(loc))
	next := monthStart.AddDate(0, 1, 0)

	idx := map[string]int{}
	var out []DayTotal
	for d := monthStart; d.Before(next); d = d.AddDate(0, 0, 1) {
		key := d.Format(DateLayout)
		idx[key] = len(out)
		out = append(out, DayTotal{Date: key})
	}

	for _, o := range orders {
		if o.ApprovalStatus == models.ApprovalRejected {
			continue
		}
		i, ok := idx[o.CreatedAt.In(loc).Format(DateLayout)]
		if !ok {
			continue
		}
		out[i].Total += o.Total
		out[i].Count++
	}
	for i := range out {
		out[i].Total = roundCents(out[i].Total)
	}
	return out
}

// ActivitySeries counts visits and orders per day over the trailing window
// of days ending today.
func ActivitySeries(visits []models.Visit, orders []models.Order, now time.Time, days int) []ActivityPoint {
	if days <= 0 {
		days = DefaultWindowDays
	}
	loc := now.Location()
	first := dayStart(now).AddDate(0, 0, -(days - 1))

	idx := map[string]int{}
	out := make([]ActivityPoint, days)
	for i := 0; i < days; i++ {
		key := first.AddDate(0, 0, i).Format(DateLayout)
		idx[key] = i
		out[i].Date = key
	}

	for _, v := range visits {
		if v.Status == models.VisitStatusCancelled {
			continue
		}
		if i, ok := idx[v.StartedAt().In(loc).Format(DateLayout)]; ok {
			out[i].Visits++
		}
	}
	for _, o := range orders {
		if i, ok := idx[o.CreatedAt.In(loc).Format(DateLayout)]; ok {
			out[i].Orders++
		}
	}
	return out
}

// ZoneDistribution counts visits since monthStart by the visited client's zone.
func ZoneDistribution(visits []models.Visit, clients []models.Client, monthStart time.Time) []ZoneCount {
	zones := make(map[string]string, len(clients))
	for _, c := range clients {
		zones[c.ID] = c.Zone
	}

	counts := map[string]int{}
	for _, v := range visits {
		if v.Status == models.VisitStatusCancelled || v.StartedAt().Before(monthStart) {
			continue
		}
		zone := zones[v.ClientID]
		if zone == "" {
			zone = UnassignedZone
		}
		counts[zone]++
	}

	out := make([]ZoneCount, 0, len(counts))
	for z, n := range counts {
		out = append(out, ZoneCount{Zone: z, Visits: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Visits != out[j].Visits {
			return out[i].Visits > out[j].Visits
		}
		return out[i].Zone < out[j].Zone
	})
	return out
}

// Summarize computes the month KPIs from rows since monthStart.
func Summarize(orders []models.Order, visits []models.Visit, monthStart time.Time) Summary {
	var s Summary
	for _, o := range orders {
		if o.CreatedAt.Before(monthStart) {
			continue
		}
		switch o.ApprovalStatus {
		case models.ApprovalPending:
			s.PendingApprovals++
		case models.ApprovalRejected:
			continue
		}
		s.OrderCount++
		s.TotalSales += o.Total
	}
	for _, v := range visits {
		if v.Status == models.VisitStatusCompleted && !v.StartedAt().Before(monthStart) {
			s.CompletedVisits++
		}
	}
	s.TotalSales = roundCents(s.TotalSales)
	return s
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
