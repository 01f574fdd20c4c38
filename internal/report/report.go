// Package report gathers month-to-date dashboard figures for a principal and
// renders them as an xlsx workbook.
package report

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/dashboard"
	"fieldsales-workers/internal/models"
	"fieldsales-workers/internal/store"
)

// Source is the part of the store a report reads.
type Source interface {
	LoadActivity(ctx context.Context, p access.Principal, w store.Window) (*dashboard.Activity, error)
	ListClients(ctx context.Context, p access.Principal) ([]models.Client, error)
	LastCompletedVisits(ctx context.Context, p access.Principal) ([]models.Visit, error)
}

type Data struct {
	UserID        string
	GeneratedAt   time.Time
	Month         string
	Summary       dashboard.Summary
	EffectiveTime []dashboard.EffectiveTimeSummary
	Neglected     []dashboard.NeglectedClient
	OrderTrend    []dashboard.DayTotal
	Zones         []dashboard.ZoneCount
}

// Gather loads everything in p's view from the start of now's month.
func Gather(ctx context.Context, src Source, p access.Principal, now time.Time, thresholdDays int) (*Data, error) {
	monthStart := dashboard.MonthStart(now)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	w := store.Window{From: monthStart, To: today.AddDate(0, 0, 1)}

	var (
		activity *dashboard.Activity
		clients  []models.Client
		last     []models.Visit
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		activity, err = src.LoadActivity(gctx, p, w)
		return err
	})
	g.Go(func() (err error) {
		clients, err = src.ListClients(gctx, p)
		return err
	})
	g.Go(func() (err error) {
		last, err = src.LastCompletedVisits(gctx, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("gather report data: %w", err)
	}

	return &Data{
		UserID:        p.UserID,
		GeneratedAt:   now,
		Month:         monthStart.Format("2006-01"),
		Summary:       dashboard.Summarize(activity.Orders, activity.Visits, monthStart),
		EffectiveTime: dashboard.SortedSummaries(dashboard.EffectiveTime(*activity, now, dashboard.DefaultCreditRules)),
		Neglected:     dashboard.NeglectedClients(clients, last, now, thresholdDays),
		OrderTrend:    dashboard.OrderTrend(activity.Orders, monthStart, now),
		Zones:         dashboard.ZoneDistribution(activity.Visits, clients, monthStart),
	}, nil
}

// FileName is the suggested download name of d's workbook.
func (d *Data) FileName() string {
	return fmt.Sprintf("fieldsales-%s-%s.xlsx", d.UserID, d.GeneratedAt.Format(dashboard.DateLayout))
}
