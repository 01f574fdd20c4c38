package calendarcreateevent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/calendar"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/store"
)

const TaskType = "calendar-create-event"

var (
	ErrValidation  = errors.New("VALIDATION_FAILED")
	ErrQueryFailed = errors.New("DATABASE_QUERY_FAILED")
)

var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: access.ErrPermissionDenied, Code: apperrors.ErrCodePermissionDenied},
	{Sentinel: ErrValidation, Code: apperrors.ErrCodeValidationFailed},
	{Sentinel: calendar.ErrTokenExpired, Code: apperrors.ErrCodeCalendarTokenExpired, Message: "Calendar access expired, sign in again"},
	{Sentinel: calendar.ErrCalendarRequest, Code: apperrors.ErrCodeExternalService},
	{Sentinel: store.ErrNotFound, Code: apperrors.ErrCodeResourceNotFound, Message: "Assignee not found"},
	{Sentinel: ErrQueryFailed, Code: apperrors.ErrCodeDatabaseQueryFailed},
}

type Handler struct {
	config   *Config
	store    *store.Store
	calendar *calendar.Client
	policy   access.Policy
	logger   logger.Logger
	runner   *camunda.JobRunner
}

func NewHandler(config *Config, db *sql.DB, cal *calendar.Client, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		store:    store.New(db),
		calendar: cal,
		logger:   log,
		runner:   camunda.NewJobRunner(TaskType, config.Timeout, log),
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
	if strings.TrimSpace(input.CalendarToken) == "" {
		return nil, fmt.Errorf("%w: no calendar token in session", calendar.ErrTokenExpired)
	}
	summary := strings.TrimSpace(input.Summary)
	if summary == "" {
		return nil, fmt.Errorf("%w: summary is required", ErrValidation)
	}
	start, end, err := h.span(input)
	if err != nil {
		return nil, err
	}

	ev := calendar.Event{
		Summary:     summary,
		Description: strings.TrimSpace(input.Description),
		Location:    strings.TrimSpace(input.Location),
		Start:       calendar.EventTime{DateTime: start},
		End:         calendar.EventTime{DateTime: end},
	}
	if input.AssigneeID != "" && input.AssigneeID != p.UserID {
		if !h.policy.CanAssign(p, input.AssigneeID) {
			return nil, fmt.Errorf("%w: %s may not assign events to %s", access.ErrPermissionDenied, p.UserID, input.AssigneeID)
		}
		u, err := h.store.GetUser(ctx, input.AssigneeID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
		}
		ev = calendar.WithAttendee(ev, u.Email)
	}

	calendarID := input.CalendarID
	if calendarID == "" {
		calendarID = h.config.DefaultCalendarID
	}
	created, err := h.calendar.CreateEvent(ctx, input.CalendarToken, calendarID, ev)
	if err != nil {
		return nil, err
	}

	out := &Output{
		EventID:  created.ID,
		HTMLLink: created.HTMLLink,
		Start:    start,
		End:      end,
	}
	for _, a := range created.Attendees {
		out.Attendees = append(out.Attendees, a.Email)
	}
	h.logger.Info("calendar event created", map[string]interface{}{
		"userId":    p.UserID,
		"eventId":   created.ID,
		"attendees": len(out.Attendees),
	})
	return out, nil
}

func (h *Handler) span(input *Input) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, input.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start must be RFC3339: %v", ErrValidation, err)
	}
	end := start.Add(h.config.DefaultDuration)
	if input.End != "" {
		end, err = time.Parse(time.RFC3339, input.End)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: end must be RFC3339: %v", ErrValidation, err)
		}
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end must be after start", ErrValidation)
	}
	return start.UTC(), end.UTC(), nil
}
