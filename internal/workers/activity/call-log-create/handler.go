package calllogcreate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/common/realtime"
	"fieldsales-workers/internal/common/validation"
	"fieldsales-workers/internal/models"
	"fieldsales-workers/internal/store"
)

const TaskType = "call-log-create"

var (
	ErrValidation  = errors.New("VALIDATION_FAILED")
	ErrQueryFailed = errors.New("DATABASE_QUERY_FAILED")
)

var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: access.ErrPermissionDenied, Code: apperrors.ErrCodePermissionDenied},
	{Sentinel: ErrValidation, Code: apperrors.ErrCodeValidationFailed},
	{Sentinel: validation.ErrInvalidPhone, Code: apperrors.ErrCodeValidationFailed, Message: "Invalid phone number"},
	{Sentinel: store.ErrNotFound, Code: apperrors.ErrCodeResourceNotFound, Message: "Client not found"},
	{Sentinel: ErrQueryFailed, Code: apperrors.ErrCodeDatabaseQueryFailed},
}

var inputSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"principal": {Type: "object"},
		"clientId":  {Type: "string", MinLength: validation.IntPtr(1)},
		"phone":     {Type: "string"},
		"outcome": {Type: "string", Enum: []string{
			models.CallConnected, models.CallNoAnswer, models.CallVoicemail, models.CallCallback,
		}},
		"durationSeconds": {Type: "integer", Minimum: validation.FloatPtr(0)},
		"notes":           {Type: "string", MaxLength: validation.IntPtr(2000)},
	},
	Required: []string{"clientId", "outcome"},
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
	input.Outcome = strings.ToLower(strings.TrimSpace(input.Outcome))
	if res := validation.ValidateObject(input, inputSchema); !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrValidation, res.Error())
	}

	c, err := h.store.GetClient(ctx, input.ClientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	if err := h.policy.Require(input.Principal, c.OwnerID); err != nil {
		return nil, err
	}

	raw := input.Phone
	if strings.TrimSpace(raw) == "" {
		raw = c.Phone
	}
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: phone: required when the client has none on file", ErrValidation)
	}
	phone, err := validation.NormalizePhone(raw, h.config.DefaultRegion)
	if err != nil {
		return nil, err
	}

	call := &models.CallLog{
		ID:              uuid.New().String(),
		ClientID:        c.ID,
		RepID:           input.Principal.UserID,
		Phone:           phone,
		Outcome:         input.Outcome,
		DurationSeconds: input.DurationSeconds,
		Notes:           strings.TrimSpace(input.Notes),
		CreatedAt:       h.now().UTC(),
	}
	if err := h.store.InsertCallLog(ctx, call); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	h.publisher.PublishBestEffort(ctx, h.logger, realtime.Change{
		Table:     "call_logs",
		Operation: realtime.OpInsert,
		ID:        call.ID,
		OwnerID:   call.RepID,
	})

	h.logger.Info("call logged", map[string]interface{}{
		"callId":   call.ID,
		"clientId": call.ClientID,
		"outcome":  call.Outcome,
	})
	return &Output{Call: *call}, nil
}
