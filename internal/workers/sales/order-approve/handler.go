package orderapprove

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
	"fieldsales-workers/internal/common/aws"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/common/realtime"
	"fieldsales-workers/internal/models"
	"fieldsales-workers/internal/orders"
	"fieldsales-workers/internal/store"
)

const TaskType = "order-approve"

var (
	ErrValidation  = errors.New("VALIDATION_FAILED")
	ErrQueryFailed = errors.New("DATABASE_QUERY_FAILED")
)

var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: access.ErrPermissionDenied, Code: apperrors.ErrCodePermissionDenied},
	{Sentinel: ErrValidation, Code: apperrors.ErrCodeValidationFailed},
	{Sentinel: store.ErrNotFound, Code: apperrors.ErrCodeResourceNotFound, Message: "Order not found"},
	{Sentinel: orders.ErrInvalidTransition, Code: apperrors.ErrCodeInvalidOrderTransition},
	{Sentinel: store.ErrConflict, Code: apperrors.ErrCodeInvalidOrderTransition},
	{Sentinel: ErrQueryFailed, Code: apperrors.ErrCodeDatabaseQueryFailed},
}

type Handler struct {
	config    *Config
	store     *store.Store
	sms       *aws.SMSSender
	publisher *realtime.Publisher
	policy    access.Policy
	logger    logger.Logger
	runner    *camunda.JobRunner
	now       func() time.Time
}

func NewHandler(config *Config, db *sql.DB, rdb *redis.Client, sms *aws.SMSSender, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		store:     store.New(db),
		sms:       sms,
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
	p := input.Principal
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !p.IsManager() && !p.IsAdmin() {
		return nil, fmt.Errorf("%w: only managers approve orders", access.ErrPermissionDenied)
	}
	if input.OrderID == "" {
		return nil, fmt.Errorf("%w: orderId is required", ErrValidation)
	}
	decision := strings.ToLower(strings.TrimSpace(input.Decision))

	o, err := h.store.GetOrder(ctx, input.OrderID)
	if err != nil {
		return nil, dbError(err)
	}
	if err := h.policy.Require(p, o.RepID); err != nil {
		return nil, err
	}
	if err := orders.Decide(o.ApprovalStatus, decision); err != nil {
		return nil, err
	}

	at := h.now().UTC()
	if err := h.store.DecideOrder(ctx, o.ID, decision, p.UserID, at); err != nil {
		return nil, dbError(err)
	}

	h.publisher.PublishBestEffort(ctx, h.logger, realtime.Change{
		Table:     "orders",
		Operation: realtime.OpUpdate,
		ID:        o.ID,
		OwnerID:   o.RepID,
	})

	notified := h.notifyRep(ctx, o, decision, strings.TrimSpace(input.Reason))

	h.logger.Info("order decided", map[string]interface{}{
		"orderId":     o.ID,
		"decision":    decision,
		"decidedBy":   p.UserID,
		"repNotified": notified,
	})
	return &Output{
		OrderID:        o.ID,
		ApprovalStatus: decision,
		DecidedBy:      p.UserID,
		DecidedAt:      at,
		RepNotified:    notified,
	}, nil
}

// notifyRep texts the rep the decision when a phone number is on file.
func (h *Handler) notifyRep(ctx context.Context, o *models.Order, decision, reason string) bool {
	rep, err := h.store.GetUser(ctx, o.RepID)
	if err != nil {
		h.logger.Warn("rep not notified", map[string]interface{}{"orderId": o.ID, "error": err.Error()})
		return false
	}
	if rep.Phone == "" {
		return false
	}

	msg := fmt.Sprintf("Order %s (total %.2f) was %s.", shortID(o.ID), o.Total, decision)
	if reason != "" {
		msg += " " + reason
	}
	if _, err := h.sms.Send(ctx, rep.Phone, msg); err != nil {
		if !errors.Is(err, aws.ErrSMSDisabled) {
			h.logger.Warn("rep not notified", map[string]interface{}{"orderId": o.ID, "error": err.Error()})
		}
		return false
	}
	return true
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func dbError(err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrConflict) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrQueryFailed, err)
}
