package visitschedule

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
	"fieldsales-workers/internal/common/calendar"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/common/realtime"
	"fieldsales-workers/internal/models"
	"fieldsales-workers/internal/store"
)

const TaskType = "visit-schedule"

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
	calendar  *calendar.Client
	publisher *realtime.Publisher
	policy    access.Policy
	logger    logger.Logger
	runner    *camunda.JobRunner
	now       func() time.Time
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
	if strings.TrimSpace(input.ClientID) == "" {
		return nil, fmt.Errorf("%w: clientId is required", ErrValidation)
	}
	when, err := time.Parse(time.RFC3339, input.ScheduledFor)
	if err != nil {
		return nil, fmt.Errorf("%w: scheduledFor must be RFC3339: %v", ErrValidation, err)
	}
	if input.DurationMinutes < 0 {
		return nil, fmt.Errorf("%w: durationMinutes must be positive", ErrValidation)
	}

	assignee := input.AssigneeID
	if assignee == "" {
		assignee = p.UserID
	}
	if !h.policy.CanAssign(p, assignee) {
		return nil, fmt.Errorf("%w: %s may not schedule visits for %s", access.ErrPermissionDenied, p.UserID, assignee)
	}

	client, err := h.store.GetClient(ctx, input.ClientID)
	if err != nil {
		return nil, dbError(err)
	}
	if err := h.policy.Require(p, client.OwnerID); err != nil {
		return nil, err
	}

	when = when.UTC()
	v := &models.Visit{
		ID:           uuid.New().String(),
		ClientID:     client.ID,
		RepID:        assignee,
		Status:       models.VisitStatusScheduled,
		ScheduledFor: &when,
		Notes:        strings.TrimSpace(input.Notes),
		CreatedAt:    h.now().UTC(),
	}
	if err := h.store.InsertVisit(ctx, v); err != nil {
		return nil, dbError(err)
	}

	h.publisher.PublishBestEffort(ctx, h.logger, realtime.Change{
		Table:     "visits",
		Operation: realtime.OpInsert,
		ID:        v.ID,
		OwnerID:   assignee,
	})

	out := &Output{
		VisitID:      v.ID,
		Status:       v.Status,
		AssigneeID:   assignee,
		ScheduledFor: when,
	}
	if input.SyncCalendar && input.CalendarToken != "" {
		h.syncCalendar(ctx, input, client, v, out)
	}

	h.logger.Info("visit scheduled", map[string]interface{}{
		"visitId":        v.ID,
		"clientId":       client.ID,
		"assigneeId":     assignee,
		"calendarSynced": out.CalendarSynced,
	})
	return out, nil
}

// syncCalendar creates the calendar event after the visit exists. Failures
// leave the visit in place and are reported through CalendarSynced.
func (h *Handler) syncCalendar(ctx context.Context, input *Input, client *models.Client, v *models.Visit, out *Output) {
	duration := h.config.DefaultDuration
	if input.DurationMinutes > 0 {
		duration = time.Duration(input.DurationMinutes) * time.Minute
	}
	calendarID := input.CalendarID
	if calendarID == "" {
		calendarID = h.config.DefaultCalendarID
	}

	ev := calendar.Event{
		Summary:     "Visit: " + client.Name,
		Description: v.Notes,
		Location:    client.Address,
		Start:       calendar.EventTime{DateTime: *v.ScheduledFor},
		End:         calendar.EventTime{DateTime: v.ScheduledFor.Add(duration)},
	}
	ev = calendar.WithAttendee(ev, h.assigneeEmail(ctx, input.Principal, v.RepID))

	created, err := h.calendar.CreateEvent(ctx, input.CalendarToken, calendarID, ev)
	if err != nil {
		h.logger.Warn("calendar event not created", map[string]interface{}{
			"visitId": v.ID,
			"error":   err.Error(),
			"expired": errors.Is(err, calendar.ErrTokenExpired),
		})
		return
	}

	if err := h.store.SetVisitCalendarEvent(ctx, v.ID, created.ID); err != nil {
		h.logger.Warn("calendar event not linked to visit", map[string]interface{}{
			"visitId": v.ID,
			"eventId": created.ID,
			"error":   err.Error(),
		})
	}
	out.CalendarSynced = true
	out.CalendarEventID = created.ID
	out.CalendarLink = created.HTMLLink
}

func (h *Handler) assigneeEmail(ctx context.Context, p access.Principal, assignee string) string {
	if assignee == p.UserID && p.Email != "" {
		return p.Email
	}
	u, err := h.store.GetUser(ctx, assignee)
	if err != nil {
		h.logger.Warn("assignee email unavailable", map[string]interface{}{"assigneeId": assignee, "error": err.Error()})
		return ""
	}
	return u.Email
}

func dbError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrQueryFailed, err)
}
