package taskcreate

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
	"fieldsales-workers/internal/models"
	"fieldsales-workers/internal/store"
)

const TaskType = "task-create"

const maxTitleLength = 200

var (
	ErrValidation  = errors.New("VALIDATION_FAILED")
	ErrQueryFailed = errors.New("DATABASE_QUERY_FAILED")
)

var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: access.ErrPermissionDenied, Code: apperrors.ErrCodePermissionDenied},
	{Sentinel: ErrValidation, Code: apperrors.ErrCodeValidationFailed},
	{Sentinel: store.ErrNotFound, Code: apperrors.ErrCodeResourceNotFound, Message: "Client not found"},
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
	p := input.Principal
	if err := p.Validate(); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if len(title) > maxTitleLength {
		return nil, fmt.Errorf("%w: title must be at most %d characters", ErrValidation, maxTitleLength)
	}

	var due *time.Time
	if input.DueAt != "" {
		t, err := time.Parse(time.RFC3339, input.DueAt)
		if err != nil {
			return nil, fmt.Errorf("%w: dueAt must be RFC3339", ErrValidation)
		}
		t = t.UTC()
		due = &t
	}

	assignee := input.AssigneeID
	if assignee == "" {
		assignee = p.UserID
	}
	if !h.policy.CanAssign(p, assignee) {
		return nil, fmt.Errorf("%w: %s may not assign tasks to %s", access.ErrPermissionDenied, p.UserID, assignee)
	}

	if input.ClientID != "" {
		c, err := h.store.GetClient(ctx, input.ClientID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
		}
		if err := h.policy.Require(p, c.OwnerID); err != nil {
			return nil, err
		}
	}

	task := &models.Task{
		ID:         uuid.New().String(),
		ClientID:   input.ClientID,
		AssigneeID: assignee,
		CreatedBy:  p.UserID,
		Title:      title,
		DueAt:      due,
		Status:     models.TaskPending,
		CreatedAt:  h.now().UTC(),
	}
	if err := h.store.InsertTask(ctx, task); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	h.publisher.PublishBestEffort(ctx, h.logger, realtime.Change{
		Table:     "tasks",
		Operation: realtime.OpInsert,
		ID:        task.ID,
		OwnerID:   assignee,
	})

	h.logger.Info("task created", map[string]interface{}{
		"taskId":     task.ID,
		"assigneeId": assignee,
		"createdBy":  p.UserID,
	})
	return &Output{Task: *task}, nil
}
