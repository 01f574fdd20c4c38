package placessearch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/common/maps"
	"fieldsales-workers/internal/visit"
)

const TaskType = "places-search"

var ErrValidation = errors.New("VALIDATION_FAILED")

var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: ErrValidation, Code: apperrors.ErrCodeValidationFailed},
	{Sentinel: maps.ErrPlacesRequest, Code: apperrors.ErrCodeExternalService},
}

type Handler struct {
	config *Config
	places *maps.Client
	logger logger.Logger
	runner *camunda.JobRunner
}

func NewHandler(config *Config, places *maps.Client, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		places: places,
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
	if input.Location != nil {
		c := visit.Coordinates{Latitude: input.Location.Lat, Longitude: input.Location.Lng}
		if !c.Valid() {
			return nil, fmt.Errorf("%w: location is not a valid coordinate", ErrValidation)
		}
	}

	start := time.Now()
	var (
		out *Output
		err error
	)
	switch strings.ToLower(strings.TrimSpace(input.Mode)) {
	case ModeAutocomplete:
		out, err = h.autocomplete(ctx, input)
	case ModeNearby:
		out, err = h.nearby(ctx, input)
	default:
		return nil, fmt.Errorf("%w: mode must be %s or %s", ErrValidation, ModeAutocomplete, ModeNearby)
	}
	if err != nil {
		return nil, err
	}

	h.logger.Info("places searched", map[string]interface{}{
		"userId":   input.Principal.UserID,
		"mode":     out.Mode,
		"count":    out.Count,
		"duration": time.Since(start).String(),
	})
	return out, nil
}

func (h *Handler) autocomplete(ctx context.Context, input *Input) (*Output, error) {
	query := strings.TrimSpace(input.Query)
	if len(query) < 2 {
		return nil, fmt.Errorf("%w: query needs at least 2 characters", ErrValidation)
	}
	var bias *maps.Bias
	if input.Location != nil {
		radius, err := h.radius(input.RadiusMeters)
		if err != nil {
			return nil, err
		}
		bias = &maps.Bias{Location: *input.Location, RadiusMeters: radius}
	}

	preds, err := h.places.Autocomplete(ctx, query, bias)
	if err != nil {
		return nil, err
	}
	if len(preds) > h.config.MaxResults {
		preds = preds[:h.config.MaxResults]
	}
	return &Output{Mode: ModeAutocomplete, Predictions: preds, Count: len(preds)}, nil
}

func (h *Handler) nearby(ctx context.Context, input *Input) (*Output, error) {
	if input.Location == nil {
		return nil, fmt.Errorf("%w: location is required for nearby search", ErrValidation)
	}
	radius, err := h.radius(input.RadiusMeters)
	if err != nil {
		return nil, err
	}
	keyword := strings.TrimSpace(input.Keyword)
	if keyword == "" {
		keyword = h.config.DefaultKeyword
	}

	places, err := h.places.NearbySearch(ctx, *input.Location, radius, keyword)
	if err != nil {
		return nil, err
	}
	origin := visit.Coordinates{Latitude: input.Location.Lat, Longitude: input.Location.Lng}
	results := make([]Result, 0, len(places))
	for _, p := range places {
		if p.BusinessStatus == "CLOSED_PERMANENTLY" {
			continue
		}
		results = append(results, Result{
			Place:          p,
			DistanceMeters: visit.Distance(origin, visit.Coordinates{Latitude: p.Location.Lat, Longitude: p.Location.Lng}),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceMeters < results[j].DistanceMeters
	})
	if len(results) > h.config.MaxResults {
		results = results[:h.config.MaxResults]
	}
	return &Output{Mode: ModeNearby, Places: results, Count: len(results)}, nil
}

func (h *Handler) radius(r int) (int, error) {
	switch {
	case r == 0:
		return h.config.DefaultRadius, nil
	case r < 0 || r > h.config.MaxRadius:
		return 0, fmt.Errorf("%w: radiusMeters must be between 1 and %d", ErrValidation, h.config.MaxRadius)
	default:
		return r, nil
	}
}
