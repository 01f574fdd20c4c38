package reportexport

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"fieldsales-workers/internal/access"
	"fieldsales-workers/internal/common/aws"
	"fieldsales-workers/internal/common/camunda"
	apperrors "fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/dashboard"
	"fieldsales-workers/internal/report"
	"fieldsales-workers/internal/store"
)

const TaskType = "report-export"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	ErrQueryFailed  = errors.New("DATABASE_QUERY_FAILED")
	ErrRenderFailed = errors.New("REPORT_RENDER_FAILED")
	ErrUpload       = errors.New("EXTERNAL_SERVICE_ERROR")
)

var errorMappings = []apperrors.Mapping{
	{Sentinel: access.ErrNoPrincipal, Code: apperrors.ErrCodeSessionExpired},
	{Sentinel: access.ErrPermissionDenied, Code: apperrors.ErrCodePermissionDenied},
	{Sentinel: aws.ErrStoreDisabled, Code: apperrors.ErrCodeBusinessRule, Message: "Report storage is not configured"},
	{Sentinel: ErrQueryFailed, Code: apperrors.ErrCodeDatabaseQueryFailed},
	{Sentinel: ErrUpload, Code: apperrors.ErrCodeExternalService, Message: "Report upload failed"},
	{Sentinel: ErrRenderFailed, Code: apperrors.ErrCodeInternal},
}

type Handler struct {
	config  *Config
	store   *store.Store
	objects *aws.ObjectStore
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
	// Fail before touching the database when there is nowhere to put the file.
	if !h.objects.Enabled() {
		return nil, aws.ErrStoreDisabled
	}

	now := h.now().In(h.config.Location)
	data, err := report.Gather(ctx, h.store, p, now, h.config.ThresholdDays)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	body, err := report.Workbook(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}

	key := path.Join(h.config.Prefix, p.UserID, now.Format(dashboard.DateLayout), uuid.New().String()+".xlsx")
	if err := h.objects.Put(ctx, key, xlsxContentType, body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpload, err)
	}
	url, err := h.objects.PresignGet(ctx, key, h.config.PresignTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpload, err)
	}

	h.logger.Info("report exported", map[string]interface{}{
		"userId":    p.UserID,
		"objectKey": key,
		"bytes":     len(body),
	})
	return &Output{
		ObjectKey:   key,
		FileName:    data.FileName(),
		DownloadURL: url,
		ExpiresAt:   now.Add(h.config.PresignTTL).UTC(),
		Bytes:       len(body),
		Month:       data.Month,
		Sheets:      report.Sheets,
	}, nil
}
