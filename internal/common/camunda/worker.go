// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"fieldsales-workers/internal/common/config"
	"fieldsales-workers/internal/common/errors"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/common/metrics"
)

// CamundaWorker is an open job subscription for one task type.
type CamundaWorker struct {
	worker   worker.JobWorker
	logger   *zap.Logger
	taskType string
}

// Open subscribes handler to taskType using the worker's configured limits.
func Open(
	client zbc.Client,
	taskType string,
	wcfg config.WorkerConfig,
	handler worker.JobHandler,
	log *zap.Logger,
) *CamundaWorker {
	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Name(taskType).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeoutMs", wcfg.Timeout),
	)

	return &CamundaWorker{worker: jobWorker, logger: log, taskType: taskType}
}

func (w *CamundaWorker) TaskType() string {
	return w.taskType
}

func (w *CamundaWorker) Stop() {
	w.logger.Info("stopping worker", zap.String("taskType", w.taskType))
	w.worker.Close()
	w.worker.AwaitClose()
}

// Recorder receives job outcomes in addition to the Prometheus counters.
type Recorder interface {
	RecordJob(ctx context.Context, taskType, status, errorCode string, elapsed time.Duration)
}

var recorder Recorder

const tracerName = "fieldsales-workers/camunda"

// UseRecorder installs r for every JobRunner. Call it before opening workers.
func UseRecorder(r Recorder) {
	recorder = r
}

// JobRunner holds the per-worker plumbing shared by all handlers: variable
// decoding, the job deadline, metrics and reporting back to the broker.
type JobRunner struct {
	taskType string
	timeout  time.Duration
	logger   logger.Logger
	errors   *errors.ErrorHandler
}

func NewJobRunner(taskType string, timeout time.Duration, log logger.Logger) *JobRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &JobRunner{
		taskType: taskType,
		timeout:  timeout,
		logger:   log,
		errors:   errors.NewErrorHandler(log),
	}
}

// Run decodes the job variables into In, calls exec under the worker deadline
// and completes the job with its result, or reports the error.
func Run[In any, Out any](r *JobRunner, client worker.JobClient, job entities.Job, exec func(context.Context, *In) (Out, error)) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(r.taskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(r.taskType).Dec()

	r.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	ctx, span := otel.Tracer(tracerName).Start(ctx, r.taskType,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.Int64("zeebe.job_key", job.Key),
			attribute.Int64("zeebe.process_instance_key", job.ProcessInstanceKey),
			attribute.String("zeebe.bpmn_process_id", job.BpmnProcessId),
		))
	defer span.End()

	var input In
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		r.fail(ctx, client, job, errors.NewInputParsingError(err), start)
		return
	}

	out, err := exec(ctx, &input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.fail(ctx, client, job, err, start)
		return
	}

	r.complete(ctx, client, job, out, start)
}

func (r *JobRunner) complete(ctx context.Context, client worker.JobClient, job entities.Job, out interface{}, start time.Time) {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(out)
	if err != nil {
		r.fail(ctx, client, job, errors.NewInternalError(err), start)
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		r.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
		r.record(ctx, "send_failed", "", start)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(r.taskType).Inc()
	r.record(ctx, "completed", "", start)
	r.logger.Info("job completed", map[string]interface{}{
		"jobKey":     job.Key,
		"durationMs": time.Since(start).Milliseconds(),
	})
}

func (r *JobRunner) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	// Report with a fresh context so a blown deadline can still be sent.
	reportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	bpmnErr := r.errors.HandleJobError(reportCtx, client, job, err)
	metrics.WorkerJobsFailed.WithLabelValues(r.taskType, bpmnErr.Code).Inc()
	r.record(reportCtx, "failed", bpmnErr.Code, start)
}

func (r *JobRunner) record(ctx context.Context, status, errorCode string, start time.Time) {
	elapsed := time.Since(start)
	metrics.WorkerJobDuration.WithLabelValues(r.taskType).Observe(elapsed.Seconds())
	if recorder != nil {
		recorder.RecordJob(ctx, r.taskType, status, errorCode, elapsed)
	}
}
