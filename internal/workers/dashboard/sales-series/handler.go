package salesseries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/dashboard"
	"fieldsales-workers/internal/models"
	"fieldsales-workers/internal/store"
	"fieldsales-workers/internal/workers/dashboard/dashcache"
)

const TaskType = "sales-series"

var ErrQueryFailed = errors.New("DATABASE_QUERY_FAILED")

var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: access.ErrPermissionDenied, Code: apperrors.ErrCodePermissionDenied},
	{Sentinel: ErrQueryFailed, Code: apperrors.ErrCodeDatabaseQueryFailed},
}

type Handler struct {
	config *Config
	store  *store.Store
	cache  *dashcache.Cache
	logger logger.Logger
	runner *camunda.JobRunner
	now    func() time.Time
}

func NewHandler(config *Config, db *sql.DB, rdb *redis.Client, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store.New(db),
		cache:  dashcache.New(rdb, config.CacheTTL, log),
		logger: log,
		runner: camunda.NewJobRunner(TaskType, config.Timeout, log),
		now:    time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Run(h.runner, client, job, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	out, err := h.execute(ctx, input)
	if err != nil {
		return nil, apperrors.FromSentinel(err, errorMappings...)
	}
	return out, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	p := input.Principal
	if err := p.Validate(); err != nil {
		return nil, err
	}
	now := h.now().In(h.config.Location)
	day, _ := dashcache.Today("", now, h.config.Location)

	res, hit, err := dashcache.Load(ctx, h.cache, p, TaskType, day, func(ctx context.Context) (Result, error) {
		return h.compute(ctx, p, day, now)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return &Output{Result: res, Cached: hit}, nil
}

// compute reads from the earlier of the month start and the trailing
// activity window, so both series come from one pass over the rows.
func (h *Handler) compute(ctx context.Context, p access.Principal, day, now time.Time) (Result, error) {
	days := h.config.WindowDays
	if days <= 0 {
		days = dashboard.DefaultWindowDays
	}
	monthStart := dashboard.MonthStart(day)
	from := day.AddDate(0, 0, -(days - 1))
	if monthStart.Before(from) {
		from = monthStart
	}
	w := store.Window{From: from, To: day.AddDate(0, 0, 1)}

	var (
		visits  []models.Visit
		orders  []models.Order
		clients []models.Client
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		visits, err = h.store.ListVisits(gctx, p, w)
		return err
	})
	g.Go(func() (err error) {
		orders, err = h.store.ListOrders(gctx, p, w)
		return err
	})
	g.Go(func() (err error) {
		clients, err = h.store.ListClients(gctx, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	return Result{
		Month:      monthStart.Format("2006-01"),
		Summary:    dashboard.Summarize(orders, visits, monthStart),
		OrderTrend: dashboard.OrderTrend(orders, monthStart, now),
		Activity:   dashboard.ActivitySeries(visits, orders, now, days),
		Zones:      dashboard.ZoneDistribution(visits, clients, monthStart),
	}, nil
}
