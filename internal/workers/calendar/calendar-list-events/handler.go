package calendarlistevents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"golang.org/x/sync/errgroup"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/calendar"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/models"
	"fieldsales-workers/internal/store"
)

const TaskType = "calendar-list-events"

var (
	ErrValidation  = errors.New("VALIDATION_FAILED")
	ErrQueryFailed = errors.New("DATABASE_QUERY_FAILED")
)

var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: ErrValidation, Code: apperrors.ErrCodeValidationFailed},
	{Sentinel: calendar.ErrTokenExpired, Code: apperrors.ErrCodeCalendarTokenExpired, Message: "Calendar access expired, sign in again"},
	{Sentinel: ErrQueryFailed, Code: apperrors.ErrCodeDatabaseQueryFailed},
}

type Handler struct {
	config   *Config
	store    *store.Store
	calendar *calendar.Client
	logger   logger.Logger
	runner   *camunda.JobRunner
	now      func() time.Time
}

func NewHandler(config *Config, db *sql.DB, cal *calendar.Client, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		store:    store.New(db),
		calendar: cal,
		logger:   log,
		runner:   camunda.NewJobRunner(TaskType, config.Timeout, log),
		now:      time.Now,
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
	w, err := h.window(input)
	if err != nil {
		return nil, err
	}

	var (
		visits  []models.Visit
		clients []models.Client
		events  []calendar.Event
		extErr  error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		visits, err = h.store.ListScheduledVisits(gctx, p, w)
		return err
	})
	g.Go(func() error {
		var err error
		clients, err = h.store.ListClients(gctx, p)
		return err
	})
	if input.CalendarToken != "" {
		calendarID := input.CalendarID
		if calendarID == "" {
			calendarID = h.config.DefaultCalendarID
		}
		g.Go(func() error {
			// Provider failures other than an expired token degrade to a
			// visits-only agenda, so they must not cancel the siblings.
			events, extErr = h.calendar.ListEvents(gctx, input.CalendarToken, calendarID, w.From, w.To)
			if errors.Is(extErr, calendar.ErrTokenExpired) {
				return extErr
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, calendar.ErrTokenExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	external := input.CalendarToken != "" && extErr == nil
	if extErr != nil {
		h.logger.Warn("calendar events unavailable, returning visits only", map[string]interface{}{
			"userId": p.UserID,
			"error":  extErr.Error(),
		})
	}

	items := Merge(visits, clients, events)
	h.logger.Info("agenda listed", map[string]interface{}{
		"userId":   p.UserID,
		"visits":   len(visits),
		"events":   len(events),
		"external": external,
	})
	return &Output{
		From:             w.From,
		To:               w.To,
		Items:            items,
		Count:            len(items),
		ExternalIncluded: external,
	}, nil
}

func (h *Handler) window(input *Input) (store.Window, error) {
	from := h.now().UTC().Truncate(24 * time.Hour)
	if input.From != "" {
		t, err := time.Parse(time.RFC3339, input.From)
		if err != nil {
			return store.Window{}, fmt.Errorf("%w: from must be RFC3339: %v", ErrValidation, err)
		}
		from = t.UTC()
	}
	to := from.Add(h.config.DefaultRange)
	if input.To != "" {
		t, err := time.Parse(time.RFC3339, input.To)
		if err != nil {
			return store.Window{}, fmt.Errorf("%w: to must be RFC3339: %v", ErrValidation, err)
		}
		to = t.UTC()
	}
	if !to.After(from) {
		return store.Window{}, fmt.Errorf("%w: to must be after from", ErrValidation)
	}
	if h.config.MaxRange > 0 && to.Sub(from) > h.config.MaxRange {
		return store.Window{}, fmt.Errorf("%w: range may not exceed %s", ErrValidation, h.config.MaxRange)
	}
	return store.Window{From: from, To: to}, nil
}

// Merge builds one agenda ordered by start. External events already linked to
// a visit through calendar_event_id are listed once, as the visit.
func Merge(visits []models.Visit, clients []models.Client, events []calendar.Event) []AgendaItem {
	names := make(map[string]models.Client, len(clients))
	for _, c := range clients {
		names[c.ID] = c
	}

	linked := make(map[string]bool)
	items := make([]AgendaItem, 0, len(visits)+len(events))
	for _, v := range visits {
		if v.ScheduledFor == nil {
			continue
		}
		item := AgendaItem{
			Source:   SourceVisit,
			ID:       v.ID,
			Title:    "Visit",
			Start:    v.ScheduledFor.UTC(),
			ClientID: v.ClientID,
			RepID:    v.RepID,
			EventID:  v.CalendarEventID,
		}
		if c, ok := names[v.ClientID]; ok {
			item.Title = "Visit: " + c.Name
			item.Location = c.Address
		}
		if v.CalendarEventID != "" {
			linked[v.CalendarEventID] = true
		}
		items = append(items, item)
	}

	for _, ev := range events {
		if ev.Status == "cancelled" || linked[ev.ID] {
			continue
		}
		start, ok := eventStart(ev.Start)
		if !ok {
			continue
		}
		item := AgendaItem{
			Source:   SourceCalendar,
			ID:       ev.ID,
			Title:    ev.Summary,
			Start:    start,
			Location: ev.Location,
			Link:     ev.HTMLLink,
			EventID:  ev.ID,
		}
		if end, ok := eventStart(ev.End); ok {
			item.End = &end
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Start.Before(items[j].Start)
	})
	return items
}

// eventStart reads a timed or all-day event boundary.
func eventStart(t calendar.EventTime) (time.Time, bool) {
	if !t.DateTime.IsZero() {
		return t.DateTime.UTC(), true
	}
	if t.Date != "" {
		d, err := time.Parse("2006-01-02", t.Date)
		if err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
