package ordercreate

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
	"fieldsales-workers/internal/common/aws"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/common/metrics"
	"fieldsales-workers/internal/common/realtime"
	"fieldsales-workers/internal/models"
	"fieldsales-workers/internal/store"
)

const TaskType = "order-create"

var (
	ErrValidation  = errors.New("VALIDATION_FAILED")
	ErrQueryFailed = errors.New("DATABASE_QUERY_FAILED")
)

var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: access.ErrPermissionDenied, Code: apperrors.ErrCodePermissionDenied},
	{Sentinel: ErrValidation, Code: apperrors.ErrCodeValidationFailed},
	{Sentinel: store.ErrNotFound, Code: apperrors.ErrCodeResourceNotFound, Message: "Client or visit not found"},
	{Sentinel: ErrQueryFailed, Code: apperrors.ErrCodeDatabaseQueryFailed},
}

type Handler struct {
	config    *Config
	store     *store.Store
	mailer    *aws.Mailer
	publisher *realtime.Publisher
	policy    access.Policy
	logger    logger.Logger
	runner    *camunda.JobRunner
	now       func() time.Time
}

// NewHandler wires the order worker. A nil mailer disables manager notices.
func NewHandler(config *Config, db *sql.DB, rdb *redis.Client, mailer *aws.Mailer, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		store:     store.New(db),
		mailer:    mailer,
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
	if err := h.validate(input); err != nil {
		return nil, err
	}
	if err := h.checkRefs(ctx, input); err != nil {
		return nil, err
	}

	o, err := h.buildOrder(input)
	if err != nil {
		return nil, err
	}
	if err := h.store.InsertOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	metrics.OrdersCreated.WithLabelValues(o.ApprovalStatus).Inc()
	h.publisher.PublishBestEffort(ctx, h.logger, realtime.Change{
		Table:     "orders",
		Operation: realtime.OpInsert,
		ID:        o.ID,
		OwnerID:   o.RepID,
	})

	out := &Output{Order: *o}
	if o.ApprovalStatus == models.ApprovalPending {
		out.ManagerNotified = h.notifyManager(ctx, input.Principal, o)
	}

	h.logger.Info("order created", map[string]interface{}{
		"orderId":        o.ID,
		"clientId":       o.ClientID,
		"total":          o.Total,
		"approvalStatus": o.ApprovalStatus,
	})
	return out, nil
}
