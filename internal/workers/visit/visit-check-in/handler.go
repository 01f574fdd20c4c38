package visitcheckin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/common/metrics"
	"fieldsales-workers/internal/common/realtime"
	"fieldsales-workers/internal/models"
	"fieldsales-workers/internal/store"
	"fieldsales-workers/internal/visit"
)

const TaskType = "visit-check-in"

var (
	ErrValidation  = errors.New("VALIDATION_FAILED")
	ErrQueryFailed = errors.New("DATABASE_QUERY_FAILED")
)

var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: access.ErrPermissionDenied, Code: apperrors.ErrCodePermissionDenied},
	{Sentinel: ErrValidation, Code: apperrors.ErrCodeValidationFailed},
	{Sentinel: visit.ErrPositionUnavailable, Code: apperrors.ErrCodeGeolocationUnavailable},
	{Sentinel: store.ErrVisitInProgress, Code: apperrors.ErrCodeVisitAlreadyInProgress},
	{Sentinel: visit.ErrInvalidTransition, Code: apperrors.ErrCodeInvalidVisitTransition},
	{Sentinel: store.ErrConflict, Code: apperrors.ErrCodeInvalidVisitTransition},
	{Sentinel: store.ErrNotFound, Code: apperrors.ErrCodeResourceNotFound, Message: "Client or visit not found"},
	{Sentinel: ErrQueryFailed, Code: apperrors.ErrCodeDatabaseQueryFailed},
}

type Handler struct {
	config    *Config
	store     *store.Store
	redis     *redis.Client
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
		redis:     rdb,
		publisher: realtime.NewPublisher(rdb),
		logger:    log,
		runner:    camunda.NewJobRunner(TaskType, config.Timeout, log),
		now:       time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Run(h.runner, client, job, h.Execute)
}

// Execute gates the check-in on the client geofence and opens the visit.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	out, err := h.execute(ctx, input)
	if err != nil {
		return nil, apperrors.FromSentinel(err, errorMappings...)
	}
	return out, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.Position == nil {
		return nil, fmt.Errorf("%w: no device position", visit.ErrPositionUnavailable)
	}

	client, err := h.loadClient(ctx, input.ClientID)
	if err != nil {
		return nil, err
	}
	if err := h.policy.Require(input.Principal, client.OwnerID); err != nil {
		return nil, err
	}

	geo, err := visit.CheckGeofence(
		visit.Coordinates{Latitude: client.Latitude, Longitude: client.Longitude},
		input.Position.Coordinates(),
		h.config.GeofenceRadius,
		input.OverrideConfirmed,
	)
	if errors.Is(err, visit.ErrOverrideRequired) {
		stdErr := apperrors.NewGeofenceOverrideRequiredError(geo.DistanceMeters, geo.RadiusMeters)
		stdErr.Cause = err
		return nil, stdErr
	}
	if err != nil {
		return nil, err
	}

	checkIn := store.CheckIn{
		At:             h.now().UTC(),
		Latitude:       input.Position.Latitude,
		Longitude:      input.Position.Longitude,
		Override:       geo.OverrideUsed,
		DistanceMeters: geo.DistanceMeters,
	}

	var visitID string
	if input.ScheduledVisitID != "" {
		visitID, err = h.startScheduled(ctx, input, checkIn)
	} else {
		visitID, err = h.openVisit(ctx, input, checkIn)
	}
	if err != nil {
		return nil, err
	}

	metrics.VisitsCheckedIn.WithLabelValues(strconv.FormatBool(geo.OverrideUsed)).Inc()
	metrics.GeofenceDistance.Observe(geo.DistanceMeters)

	h.publisher.PublishBestEffort(ctx, h.logger, realtime.Change{
		Table:     "visits",
		Operation: realtime.OpInsert,
		ID:        visitID,
		OwnerID:   input.Principal.UserID,
	})

	h.logger.Info("visit checked in", map[string]interface{}{
		"visitId":        visitID,
		"clientId":       input.ClientID,
		"distanceMeters": geo.DistanceMeters,
		"overrideUsed":   geo.OverrideUsed,
	})

	timer := visit.NewTimer(checkIn.At, h.config.Target)
	return &Output{
		VisitID:        visitID,
		Status:         models.VisitStatusInProgress,
		CheckInAt:      checkIn.At,
		DistanceMeters: geo.DistanceMeters,
		OverrideUsed:   geo.OverrideUsed,
		TargetSeconds:  int64(timer.Target / time.Second),
	}, nil
}
