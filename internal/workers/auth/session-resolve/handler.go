package sessionresolve

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/auth"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/store"
)

const TaskType = "session-resolve"

var (
	ErrIdentityProvider = errors.New("EXTERNAL_SERVICE_ERROR")
	ErrQueryFailed      = errors.New("DATABASE_QUERY_FAILED")
)

var errorMappings = []apperrors.Mapping{
	{Sentinel: auth.ErrSessionExpired, Code: apperrors.ErrCodeSessionExpired, Message: "Session expired, sign in again"},
	{Sentinel: access.ErrPermissionDenied, Code: apperrors.ErrCodePermissionDenied},
	{Sentinel: ErrIdentityProvider, Code: apperrors.ErrCodeExternalService},
	{Sentinel: ErrQueryFailed, Code: apperrors.ErrCodeDatabaseQueryFailed},
}

type Handler struct {
	config   *Config
	keycloak *auth.KeycloakClient
	store    *store.Store
	redis    *redis.Client
	logger   logger.Logger
	runner   *camunda.JobRunner
	now      func() time.Time
}

func NewHandler(config *Config, kc *auth.KeycloakClient, db *sql.DB, rdb *redis.Client, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		keycloak: kc,
		store:    store.New(db),
		redis:    rdb,
		logger:   log,
		runner:   camunda.NewJobRunner(TaskType, config.Timeout, log),
		now:      time.Now,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Run(h.runner, client, job, h.Execute)
}

// Execute turns the caller's bearer token into the Principal every other
// worker expects as its "principal" variable.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	out, err := h.execute(ctx, input)
	if err != nil {
		return nil, apperrors.FromSentinel(err, errorMappings...)
	}
	return out, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	info, err := h.identify(ctx, input.AccessToken)
	if err != nil {
		return nil, err
	}

	s, hit, err := h.loadSession(ctx, info)
	if err != nil {
		return nil, err
	}
	if err := s.Principal.Validate(); err != nil {
		return nil, err
	}

	provisioned := s.Provisioned && !hit

	h.logger.Info("session resolved", map[string]interface{}{
		"userId":      s.Principal.UserID,
		"role":        s.Principal.Role,
		"teamSize":    len(s.Principal.TeamIDs),
		"cached":      hit,
		"provisioned": provisioned,
	})
	return &Output{Principal: s.Principal, Provisioned: provisioned, Cached: hit}, nil
}
