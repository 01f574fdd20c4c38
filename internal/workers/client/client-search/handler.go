package clientsearch

import (
	"context"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/clientindex"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/models"
	"fieldsales-workers/internal/visit"
)

const TaskType = "client-search"

var ErrValidation = errors.New("VALIDATION_FAILED")

var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: access.ErrPermissionDenied, Code: apperrors.ErrCodePermissionDenied},
	{Sentinel: ErrValidation, Code: apperrors.ErrCodeValidationFailed},
	{Sentinel: clientindex.ErrSearchFailed, Code: apperrors.ErrCodeSearchQueryFailed},
}

type Handler struct {
	config *Config
	index  *clientindex.Index
	logger logger.Logger
	runner *camunda.JobRunner
}

func NewHandler(config *Config, index *clientindex.Index, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		index:  index,
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
	if err := input.Principal.Validate(); err != nil {
		return nil, err
	}
	if input.Status != "" && !models.ValidClientStatus(input.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, input.Status)
	}
	if n := input.Near; n != nil {
		if !(visit.Coordinates{Latitude: n.Latitude, Longitude: n.Longitude}).Valid() {
			return nil, fmt.Errorf("%w: near: coordinates out of range", ErrValidation)
		}
		if n.RadiusMeters <= 0 {
			return nil, fmt.Errorf("%w: near: radiusMeters must be positive", ErrValidation)
		}
	}

	res, err := h.index.Search(ctx, clientindex.Query{
		Text:   input.Text,
		Status: input.Status,
		Zone:   input.Zone,
		Near:   input.Near,
		From:   input.From,
		Size:   input.Size,
	}, input.Principal)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("client search", map[string]interface{}{
		"userId": input.Principal.UserID,
		"total":  res.Total,
		"tookMs": res.Took,
	})
	return &Output{Total: res.Total, Clients: res.Hits, TookMs: res.Took}, nil
}
