// Package sessionend drops the cached session of a user who signs out.
package sessionend

import (
	"context"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	sessionresolve "fieldsales-workers/internal/workers/auth/session-resolve"
	formdraft "fieldsales-workers/internal/workers/drafts/form-draft"
)

const TaskType = "session-end"

var ErrCache = errors.New("CACHE_UNAVAILABLE")

var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: ErrCache, Code: apperrors.ErrCodeCacheUnavailable},
}

type Handler struct {
	config *Config
	redis  *redis.Client
	logger logger.Logger
	runner *camunda.JobRunner
}

func NewHandler(config *Config, rdb *redis.Client, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		redis:  rdb,
		logger: log,
		runner: camunda.NewJobRunner(TaskType, config.Timeout, log),
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
	if input.Principal.UserID == "" {
		return nil, fmt.Errorf("%w: principal missing", access.ErrNoPrincipal)
	}
	userID := input.Principal.UserID

	n, err := h.redis.Del(ctx, sessionresolve.SessionKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: delete session: %w", ErrCache, err)
	}
	out := &Output{SessionCleared: n > 0}

	if input.ClearDrafts {
		cleared, err := h.clearDrafts(ctx, userID)
		if err != nil {
			return nil, err
		}
		out.DraftsCleared = cleared
	}

	h.logger.Info("session ended", map[string]interface{}{
		"userId":         userID,
		"sessionCleared": out.SessionCleared,
		"draftsCleared":  out.DraftsCleared,
	})
	return out, nil
}

// clearDrafts walks the user's draft keys with SCAN so a large keyspace never
// blocks Redis.
func (h *Handler) clearDrafts(ctx context.Context, userID string) (int, error) {
	var (
		cursor  uint64
		cleared int
	)
	for {
		keys, next, err := h.redis.Scan(ctx, cursor, formdraft.KeyPattern(userID), 100).Result()
		if err != nil {
			return cleared, fmt.Errorf("%w: scan drafts: %w", ErrCache, err)
		}
		if len(keys) > 0 {
			n, err := h.redis.Del(ctx, keys...).Result()
			if err != nil {
				return cleared, fmt.Errorf("%w: delete drafts: %w", ErrCache, err)
			}
			cleared += int(n)
		}
		if next == 0 {
			return cleared, nil
		}
		cursor = next
	}
}
