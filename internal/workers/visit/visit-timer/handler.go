package visittimer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/store"
	"fieldsales-workers/internal/visit"
)

const TaskType = "visit-timer"

var (
	ErrValidation  = errors.New("VALIDATION_FAILED")
	ErrNotStarted  = errors.New("VISIT_NOT_STARTED")
	ErrQueryFailed = errors.New("DATABASE_QUERY_FAILED")
)

var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: ErrValidation, Code: apperrors.ErrCodeValidationFailed},
	{Sentinel: store.ErrNotFound, Code: apperrors.ErrCodeVisitNotFound},
	{Sentinel: ErrNotStarted, Code: apperrors.ErrCodeInvalidVisitTransition, Message: "Visit has not been checked in"},
	{Sentinel: ErrQueryFailed, Code: apperrors.ErrCodeDatabaseQueryFailed},
}

type Handler struct {
	config *Config
	store  *store.Store
	policy access.Policy
	logger logger.Logger
	runner *camunda.JobRunner
	now    func() time.Time
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store.New(db),
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
	if err := input.Principal.Validate(); err != nil {
		return nil, err
	}
	if input.VisitID == "" {
		return nil, fmt.Errorf("%w: visitId is required", ErrValidation)
	}

	v, err := h.store.GetVisit(ctx, input.VisitID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	if !h.policy.CanView(input.Principal, v.RepID) {
		return nil, fmt.Errorf("%w: visit %s", store.ErrNotFound, v.ID)
	}
	if v.CheckInAt == nil {
		return nil, fmt.Errorf("%w: visit %s is %s", ErrNotStarted, v.ID, v.Status)
	}

	asOf := h.now().UTC()
	if v.CheckOutAt != nil {
		asOf = *v.CheckOutAt
	}

	return &Output{
		VisitID:      v.ID,
		Status:       v.Status,
		CheckInAt:    *v.CheckInAt,
		AsOf:         asOf,
		TimerDisplay: visit.NewTimer(*v.CheckInAt, h.config.Target).At(asOf),
	}, nil
}
