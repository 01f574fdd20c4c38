package visitcancel

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/calendar"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/common/realtime"
	"fieldsales-workers/internal/models"
	"fieldsales-workers/internal/store"
	"fieldsales-workers/internal/visit"
)

const TaskType = "visit-cancel"

var (
	ErrValidation  = errors.New("VALIDATION_FAILED")
	ErrQueryFailed = errors.New("DATABASE_QUERY_FAILED")
)

var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: ErrValidation, Code: apperrors.ErrCodeValidationFailed},
	{Sentinel: store.ErrNotFound, Code: apperrors.ErrCodeVisitNotFound},
	{Sentinel: visit.ErrInvalidTransition, Code: apperrors.ErrCodeInvalidVisitTransition},
	{Sentinel: store.ErrConflict, Code: apperrors.ErrCodeInvalidVisitTransition},
	{Sentinel: ErrQueryFailed, Code: apperrors.ErrCodeDatabaseQueryFailed},
}

type Handler struct {
	config    *Config
	store     *store.Store
	calendar  *calendar.Client
	publisher *realtime.Publisher
	policy    access.Policy
	logger    logger.Logger
	runner    *camunda.JobRunner
}

func NewHandler(config *Config, db *sql.DB, rdb *redis.Client, cal *calendar.Client, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		store:     store.New(db),
		calendar:  cal,
		publisher: realtime.NewPublisher(rdb),
		logger:    log,
		runner:    camunda.NewJobRunner(TaskType, config.Timeout, log),
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
		return nil, dbError(err)
	}
	if !h.policy.CanView(input.Principal, v.RepID) {
		return nil, fmt.Errorf("%w: visit %s", store.ErrNotFound, v.ID)
	}
	status, err := visit.Next(visit.ActionCancel, v.Status)
	if err != nil {
		return nil, err
	}
	if err := h.store.CancelVisit(ctx, v.ID); err != nil {
		return nil, dbError(err)
	}

	h.publisher.PublishBestEffort(ctx, h.logger, realtime.Change{
		Table:     "visits",
		Operation: realtime.OpUpdate,
		ID:        v.ID,
		OwnerID:   v.RepID,
	})

	out := &Output{VisitID: v.ID, Status: status}
	if v.CalendarEventID != "" {
		out.CalendarEventDeleted = h.deleteEvent(ctx, input, v)
	}

	h.logger.Info("visit cancelled", map[string]interface{}{
		"visitId":              v.ID,
		"calendarEventDeleted": out.CalendarEventDeleted,
	})
	return out, nil
}

// deleteEvent removes the linked calendar event. The cancellation stands
// whatever the provider answers.
func (h *Handler) deleteEvent(ctx context.Context, input *Input, v *models.Visit) bool {
	calendarID := input.CalendarID
	if calendarID == "" {
		calendarID = h.config.DefaultCalendarID
	}
	err := h.calendar.DeleteEvent(ctx, input.CalendarToken, calendarID, v.CalendarEventID)
	if err != nil {
		h.logger.Warn("calendar event not deleted", map[string]interface{}{
			"visitId": v.ID,
			"eventId": v.CalendarEventID,
			"error":   err.Error(),
			"expired": errors.Is(err, calendar.ErrTokenExpired),
		})
		return false
	}
	return true
}

func dbError(err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrConflict) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrQueryFailed, err)
}
