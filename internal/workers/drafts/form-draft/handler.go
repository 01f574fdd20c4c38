package formdraft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
)

const TaskType = "form-draft"

var (
	ErrValidation = errors.New("VALIDATION_FAILED")
	ErrCache      = errors.New("CACHE_UNAVAILABLE")
)

var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: ErrValidation, Code: apperrors.ErrCodeValidationFailed},
	{Sentinel: ErrCache, Code: apperrors.ErrCodeCacheUnavailable},
}

var formKeyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{0,63}$`)

// Key is the Redis key of one user's draft for one form.
func Key(userID, formKey string) string {
	return "draft:" + userID + ":" + formKey
}

// KeyPattern matches every draft of userID.
func KeyPattern(userID string) string {
	return "draft:" + userID + ":*"
}

type Handler struct {
	config *Config
	redis  *redis.Client
	logger logger.Logger
	runner *camunda.JobRunner
	now    func() time.Time
}

func NewHandler(config *Config, rdb *redis.Client, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		redis:  rdb,
		logger: log,
		runner: camunda.NewJobRunner(TaskType, config.Timeout, log),
		now:    time.Now,
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
	formKey := strings.ToLower(strings.TrimSpace(input.FormKey))
	if !formKeyPattern.MatchString(formKey) {
		return nil, fmt.Errorf("%w: formKey must be 1-64 lowercase letters, digits, '.', '_' or '-'", ErrValidation)
	}
	if h.redis == nil {
		return nil, fmt.Errorf("%w: no redis client", ErrCache)
	}

	key := Key(p.UserID, formKey)
	op := strings.ToLower(strings.TrimSpace(input.Operation))
	out := &Output{Operation: op, FormKey: formKey}

	switch op {
	case OpSave:
		if err := h.save(ctx, key, input.Data, out); err != nil {
			return nil, err
		}
	case OpLoad:
		if err := h.load(ctx, key, out); err != nil {
			return nil, err
		}
	case OpDiscard:
		n, err := h.redis.Del(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCache, err)
		}
		out.Found = n > 0
	default:
		return nil, fmt.Errorf("%w: operation must be save, load or discard", ErrValidation)
	}

	h.logger.Debug("form draft", map[string]interface{}{
		"userId":    p.UserID,
		"formKey":   formKey,
		"operation": op,
		"found":     out.Found,
	})
	return out, nil
}

func (h *Handler) save(ctx context.Context, key string, data map[string]interface{}, out *Output) error {
	if data == nil {
		return fmt.Errorf("%w: data is required to save a draft", ErrValidation)
	}
	now := h.now().UTC()
	payload, err := json.Marshal(Draft{Data: data, SavedAt: now})
	if err != nil {
		return fmt.Errorf("%w: data is not serialisable: %v", ErrValidation, err)
	}
	if h.config.MaxBytes > 0 && len(payload) > h.config.MaxBytes {
		return fmt.Errorf("%w: draft exceeds %d bytes", ErrValidation, h.config.MaxBytes)
	}
	if err := h.redis.Set(ctx, key, payload, h.config.TTL).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCache, err)
	}

	expires := now.Add(h.config.TTL)
	out.Found = true
	out.Data = data
	out.SavedAt = &now
	out.ExpiresAt = &expires
	return nil
}

// load treats a missing key as found=false, not as an error.
func (h *Handler) load(ctx context.Context, key string, out *Output) error {
	raw, err := h.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCache, err)
	}

	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		h.logger.Warn("discarding unreadable draft", map[string]interface{}{"key": key, "error": err.Error()})
		_ = h.redis.Del(ctx, key).Err()
		return nil
	}
	out.Found = true
	out.Data = d.Data
	out.SavedAt = &d.SavedAt

	if ttl, err := h.redis.TTL(ctx, key).Result(); err == nil && ttl > 0 {
		expires := h.now().UTC().Add(ttl)
		out.ExpiresAt = &expires
	}
	return nil
}
