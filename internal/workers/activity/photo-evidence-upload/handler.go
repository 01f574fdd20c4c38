package photoevidenceupload

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/aws"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/models"
	"fieldsales-workers/internal/store"
)

const TaskType = "photo-evidence-upload"

var (
	ErrValidation  = errors.New("VALIDATION_FAILED")
	ErrTooLarge    = errors.New("IMAGE_TOO_LARGE")
	ErrQueryFailed = errors.New("DATABASE_QUERY_FAILED")
)

var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: access.ErrPermissionDenied, Code: apperrors.ErrCodePermissionDenied},
	{Sentinel: ErrValidation, Code: apperrors.ErrCodeValidationFailed},
	{Sentinel: ErrTooLarge, Code: apperrors.ErrCodeValidationFailed, Message: "Image too large"},
	{Sentinel: store.ErrNotFound, Code: apperrors.ErrCodeResourceNotFound},
	{Sentinel: ErrQueryFailed, Code: apperrors.ErrCodeDatabaseQueryFailed},
}

var categories = map[string]bool{
	models.PhotoShelf:    true,
	models.PhotoDisplay:  true,
	models.PhotoDelivery: true,
	models.PhotoOther:    true,
}

type Handler struct {
	config  *Config
	store   *store.Store
	objects *aws.ObjectStore
	policy  access.Policy
	logger  logger.Logger
	runner  *camunda.JobRunner
	now     func() time.Time
}

func NewHandler(config *Config, db *sql.DB, objects *aws.ObjectStore, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		store:   store.New(db),
		objects: objects,
		logger:  log,
		runner:  camunda.NewJobRunner(TaskType, config.Timeout, log),
		now:     time.Now,
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
	if input.ClientID == "" {
		return nil, fmt.Errorf("%w: clientId is required", ErrValidation)
	}
	category := input.Category
	if category == "" {
		category = models.PhotoOther
	}
	if !categories[category] {
		return nil, fmt.Errorf("%w: category %q is not supported", ErrValidation, category)
	}
	img, err := decodeImage(input.ImageData, h.config.MaxBytes)
	if err != nil {
		return nil, err
	}

	c, err := h.store.GetClient(ctx, input.ClientID)
	if err != nil {
		return nil, dbError(err)
	}
	if err := h.policy.Require(p, c.OwnerID); err != nil {
		return nil, err
	}

	var visitID *string
	if input.VisitID != "" {
		v, err := h.store.GetVisit(ctx, input.VisitID)
		if err != nil {
			return nil, dbError(err)
		}
		if !h.policy.CanView(p, v.RepID) {
			return nil, fmt.Errorf("%w: visit %s", store.ErrNotFound, v.ID)
		}
		if v.ClientID != c.ID {
			return nil, fmt.Errorf("%w: visit %s belongs to another client", ErrValidation, v.ID)
		}
		visitID = &v.ID
	}

	photo := &models.PhotoEvidence{
		ID:          uuid.New().String(),
		ClientID:    c.ID,
		VisitID:     visitID,
		RepID:       p.UserID,
		Category:    category,
		ContentType: img.ContentType,
		ImageData:   img.Encoded,
		CreatedAt:   h.now().UTC(),
	}
	archived := h.archive(ctx, photo, img.Bytes)

	if err := h.store.InsertPhoto(ctx, photo); err != nil {
		return nil, dbError(err)
	}

	h.logger.Info("photo evidence stored", map[string]interface{}{
		"photoId":  photo.ID,
		"clientId": photo.ClientID,
		"bytes":    len(img.Bytes),
		"archived": archived,
	})
	return &Output{Photo: *photo, Bytes: len(img.Bytes), Archived: archived}, nil
}

// archive copies the bytes to object storage and records the key. The inline
// copy is authoritative, so a failed upload only loses the archive.
func (h *Handler) archive(ctx context.Context, photo *models.PhotoEvidence, data []byte) bool {
	if !h.config.Archive || !h.objects.Enabled() {
		return false
	}
	key := fmt.Sprintf("photos/%s/%s", photo.ClientID, photo.ID)
	if err := h.objects.Put(ctx, key, photo.ContentType, data); err != nil {
		h.logger.Warn("photo not archived", map[string]interface{}{"photoId": photo.ID, "error": err.Error()})
		return false
	}
	photo.ObjectKey = key
	return true
}

func dbError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrQueryFailed, err)
}
