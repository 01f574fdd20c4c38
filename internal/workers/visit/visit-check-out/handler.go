package visitcheckout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/common/realtime"
	"fieldsales-workers/internal/dashboard"
	"fieldsales-workers/internal/store"
	"fieldsales-workers/internal/visit"
)

const TaskType = "visit-check-out"

var (
	ErrValidation  = errors.New("VALIDATION_FAILED")
	ErrQueryFailed = errors.New("DATABASE_QUERY_FAILED")
)

// Check-out has no override path: a missing fix is final.
var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: ErrValidation, Code: apperrors.ErrCodeValidationFailed},
	{Sentinel: visit.ErrPositionUnavailable, Code: apperrors.ErrCodeGeolocationUnavailable},
	{Sentinel: store.ErrNotFound, Code: apperrors.ErrCodeVisitNotFound},
	{Sentinel: visit.ErrInvalidTransition, Code: apperrors.ErrCodeInvalidVisitTransition},
	{Sentinel: store.ErrConflict, Code: apperrors.ErrCodeInvalidVisitTransition},
	{Sentinel: ErrQueryFailed, Code: apperrors.ErrCodeDatabaseQueryFailed},
}

type Handler struct {
	config    *Config
	store     *store.Store
	publisher *realtime.Publisher
	policy    access.Policy
	logger    logger.Logger
	runner    *camunda.JobRunner
	now       func() time.Time
}

func NewHandler(config *Config, db *sql.DB, rdb *redis.Client, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		store:     store.New(db),
		publisher: realtime.NewPublisher(rdb),
		logger:    log,
		runner:    camunda.NewJobRunner(TaskType, config.Timeout, log),
		now:       time.Now,
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
	if err := input.Principal.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.VisitID) == "" {
		return nil, fmt.Errorf("%w: visitId is required", ErrValidation)
	}

	pos, err := visit.RequirePosition(input.Position)
	if err != nil {
		return nil, err
	}

	v, err := h.store.GetVisit(ctx, input.VisitID)
	if err != nil {
		return nil, dbError(err)
	}
	// A visit outside the caller's view is reported as missing.
	if !h.policy.CanView(input.Principal, v.RepID) {
		return nil, fmt.Errorf("%w: visit %s", store.ErrNotFound, v.ID)
	}
	status, err := visit.Next(visit.ActionComplete, v.Status)
	if err != nil {
		return nil, err
	}

	at := h.now().UTC()
	err = h.store.CompleteVisit(ctx, v.ID, store.CheckOut{
		At:        at,
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		Notes:     strings.TrimSpace(input.Notes),
	})
	if err != nil {
		return nil, dbError(err)
	}
	v.CheckOutAt = &at

	h.publisher.PublishBestEffort(ctx, h.logger, realtime.Change{
		Table:     "visits",
		Operation: realtime.OpUpdate,
		ID:        v.ID,
		OwnerID:   v.RepID,
	})

	d := v.Duration(at)
	minutes := int(d / time.Minute)
	h.logger.Info("visit checked out", map[string]interface{}{
		"visitId":         v.ID,
		"durationMinutes": minutes,
	})

	return &Output{
		VisitID:         v.ID,
		ClientID:        v.ClientID,
		Status:          status,
		CheckOutAt:      at,
		DurationMinutes: minutes,
		Duration:        dashboard.FormatMinutes(minutes),
		Overtime:        d >= h.config.Target,
	}, nil
}

func dbError(err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrConflict) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrQueryFailed, err)
}
