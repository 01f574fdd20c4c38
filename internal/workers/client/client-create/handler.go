package clientcreate

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
	"fieldsales-workers/internal/clientindex"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/common/realtime"
	"fieldsales-workers/internal/common/validation"
	"fieldsales-workers/internal/models"
	"fieldsales-workers/internal/store"
)

const TaskType = "client-create"

var (
	ErrValidation  = errors.New("VALIDATION_FAILED")
	ErrQueryFailed = errors.New("DATABASE_QUERY_FAILED")
)

var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: access.ErrPermissionDenied, Code: apperrors.ErrCodePermissionDenied},
	{Sentinel: ErrValidation, Code: apperrors.ErrCodeValidationFailed},
	{Sentinel: validation.ErrInvalidPhone, Code: apperrors.ErrCodeValidationFailed, Message: "Invalid phone number"},
	{Sentinel: ErrQueryFailed, Code: apperrors.ErrCodeDatabaseQueryFailed},
}

type Handler struct {
	config    *Config
	store     *store.Store
	index     *clientindex.Index
	publisher *realtime.Publisher
	policy    access.Policy
	logger    logger.Logger
	runner    *camunda.JobRunner
	now       func() time.Time
}

func NewHandler(config *Config, db *sql.DB, index *clientindex.Index, rdb *redis.Client, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		store:     store.New(db),
		index:     index,
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
	if err := validateInput(input); err != nil {
		return nil, err
	}

	owner := input.OwnerID
	if owner == "" {
		owner = input.Principal.UserID
	}
	if !h.policy.CanAssign(input.Principal, owner) {
		return nil, fmt.Errorf("%w: %s may not create clients for %s", access.ErrPermissionDenied, input.Principal.UserID, owner)
	}

	var phone string
	if strings.TrimSpace(input.Phone) != "" {
		normalized, err := validation.NormalizePhone(input.Phone, h.config.DefaultRegion)
		if err != nil {
			return nil, err
		}
		phone = normalized
	}

	status := input.Status
	if status == "" {
		status = models.ClientStatusLead
	}
	now := h.now().UTC()
	c := &models.Client{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(input.Name),
		Address:     strings.TrimSpace(input.Address),
		Zone:        strings.TrimSpace(input.Zone),
		Latitude:    *input.Latitude,
		Longitude:   *input.Longitude,
		Phone:       phone,
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		ContactName: strings.TrimSpace(input.ContactName),
		OwnerID:     owner,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.store.InsertClient(ctx, c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	// PostgreSQL is the system of record; a missed index write is repaired by
	// "fieldctl clients reindex".
	indexed := true
	if err := h.index.Put(ctx, clientindex.NewDocument(c)); err != nil {
		indexed = false
		h.logger.Warn("client not indexed", map[string]interface{}{"clientId": c.ID, "error": err.Error()})
	}

	h.publisher.PublishBestEffort(ctx, h.logger, realtime.Change{
		Table:     "clients",
		Operation: realtime.OpInsert,
		ID:        c.ID,
		OwnerID:   owner,
	})

	h.logger.Info("client created", map[string]interface{}{
		"clientId": c.ID,
		"ownerId":  owner,
		"indexed":  indexed,
	})
	return &Output{Client: *c, Indexed: indexed}, nil
}
