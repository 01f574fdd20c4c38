package effectivetime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/dashboard"
	"fieldsales-workers/internal/store"
	"fieldsales-workers/internal/workers/dashboard/dashcache"
)

const TaskType = "effective-time"

var (
	ErrValidation  = errors.New("VALIDATION_FAILED")
	ErrQueryFailed = errors.New("DATABASE_QUERY_FAILED")
)

var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: access.ErrPermissionDenied, Code: apperrors.ErrCodePermissionDenied},
	{Sentinel: ErrValidation, Code: apperrors.ErrCodeValidationFailed},
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
	day, err := dashcache.Today(input.Date, now, h.config.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be yyyy-mm-dd", ErrValidation)
	}

	res, hit, err := dashcache.Load(ctx, h.cache, p, TaskType, day, func(ctx context.Context) (Result, error) {
		return h.compute(ctx, p, day, now)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	h.logger.Debug("effective time computed", map[string]interface{}{
		"userId": p.UserID,
		"day":    res.To,
		"reps":   len(res.Reps),
		"cached": hit,
	})
	return &Output{Result: res, Cached: hit}, nil
}

// compute covers the configured number of days ending on day. Open visits of
// a past day are measured up to the end of that day.
func (h *Handler) compute(ctx context.Context, p access.Principal, day, now time.Time) (Result, error) {
	days := h.config.WindowDays
	if days <= 0 {
		days = dashboard.DefaultWindowDays
	}
	w := store.Window{From: day.AddDate(0, 0, -(days - 1)), To: day.AddDate(0, 0, 1)}
	if now.After(w.To) {
		now = w.To
	}

	activity, err := h.store.LoadActivity(ctx, p, w)
	if err != nil {
		return Result{}, err
	}

	reps := dashboard.SortedSummaries(dashboard.EffectiveTime(*activity, now, h.config.Rules))
	total := 0
	for _, r := range reps {
		total += r.TotalMinutes
	}
	return Result{
		From:         w.From.Format(dashboard.DateLayout),
		To:           day.Format(dashboard.DateLayout),
		Reps:         reps,
		TotalMinutes: total,
		Formatted:    dashboard.FormatMinutes(total),
	}, nil
}
