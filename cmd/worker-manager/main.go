// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"fieldsales-workers/internal/clientindex"
	"fieldsales-workers/internal/common/auth"
	"fieldsales-workers/internal/common/aws"
	"fieldsales-workers/internal/common/calendar"
	"fieldsales-workers/internal/common/camunda"
	"fieldsales-workers/internal/common/config"
	"fieldsales-workers/internal/common/database"
	"fieldsales-workers/internal/common/logger"
	"fieldsales-workers/internal/common/maps"
	"fieldsales-workers/internal/common/observability"
	"fieldsales-workers/internal/common/realtime"
	"fieldsales-workers/internal/digest"
	"fieldsales-workers/internal/store"
	"fieldsales-workers/internal/workers/dashboard/dashcache"
	"fieldsales-workers/pkg/registry"

	// Auth
	se "fieldsales-workers/internal/workers/auth/session-end"
	sr "fieldsales-workers/internal/workers/auth/session-resolve"

	// Visits
	vcn "fieldsales-workers/internal/workers/visit/visit-cancel"
	vci "fieldsales-workers/internal/workers/visit/visit-check-in"
	vco "fieldsales-workers/internal/workers/visit/visit-check-out"
	vsc "fieldsales-workers/internal/workers/visit/visit-schedule"
	vtm "fieldsales-workers/internal/workers/visit/visit-timer"

	// Clients
	cc "fieldsales-workers/internal/workers/client/client-create"
	cs "fieldsales-workers/internal/workers/client/client-search"

	// Sales
	oa "fieldsales-workers/internal/workers/sales/order-approve"
	oc "fieldsales-workers/internal/workers/sales/order-create"
	qc "fieldsales-workers/internal/workers/sales/quotation-create"

	// Activity
	clc "fieldsales-workers/internal/workers/activity/call-log-create"
	peu "fieldsales-workers/internal/workers/activity/photo-evidence-upload"
	tc "fieldsales-workers/internal/workers/activity/task-create"

	// Dashboards
	et "fieldsales-workers/internal/workers/dashboard/effective-time"
	nc "fieldsales-workers/internal/workers/dashboard/neglected-clients"
	re "fieldsales-workers/internal/workers/dashboard/report-export"
	ss "fieldsales-workers/internal/workers/dashboard/sales-series"

	// Calendar, maps and drafts
	cce "fieldsales-workers/internal/workers/calendar/calendar-create-event"
	cle "fieldsales-workers/internal/workers/calendar/calendar-list-events"
	fd "fieldsales-workers/internal/workers/drafts/form-draft"
	ps "fieldsales-workers/internal/workers/maps/places-search"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// registration pairs a task type with its job handler.
type registration struct {
	taskType string
	handle   func(worker.JobClient, entities.Job)
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.FromConfig(cfg.Logging)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("worker-manager", log)
	camunda.UseRecorder(obs)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	shutdownTracing := observability.SetupTracing(ctx, cfg.App.Name, cfg.Tracing, log)

	// --- Init Zeebe Client with retry ---
	var zeebeClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = camunda.NewClientWithConfig(camunda.ClientConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if applied, err := store.Migrate(ctx, pg.DB); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	} else if len(applied) > 0 {
		zapLog.Info("schema migrations applied", zap.Strings("migrations", applied))
	}

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	if created, err := esClient.EnsureIndex(ctx, cfg.Database.Elasticsearch.ClientIndex, database.ClientIndexMapping); err != nil {
		zapLog.Fatal("client index unavailable", zap.Error(err))
	} else if created {
		zapLog.Info("client index created", zap.String("index", cfg.Database.Elasticsearch.ClientIndex))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	redis := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init External Service Clients ---
	kc := auth.NewKeycloakClient(cfg.Auth.Keycloak.URL, cfg.Auth.Keycloak.Realm, config.GetDuration(cfg.Auth.Keycloak.Timeout))
	cal := calendar.NewClient(cfg.Integrations.Calendar.BaseURL, config.GetDuration(cfg.Integrations.Calendar.Timeout))
	places := maps.NewClient(
		cfg.Integrations.Maps.BaseURL,
		cfg.Integrations.Maps.APIKey,
		cfg.Integrations.Maps.RequestsPerSecond,
		config.GetDuration(cfg.Integrations.Maps.Timeout),
	)
	index := clientindex.New(esClient.Client, cfg.Database.Elasticsearch.ClientIndex)
	mailer, sms, objects := awsClients(ctx, cfg, zapLog)

	zapLog.Info("All external service clients initialized")

	// --- Register Workers ---
	db, rdb := pg.DB, redis.Client
	registrations := []registration{
		{sr.TaskType, sr.NewHandler(sr.LoadConfig(cfg), kc, db, rdb, log).Handle},
		{se.TaskType, se.NewHandler(se.LoadConfig(cfg), rdb, log).Handle},

		{vci.TaskType, vci.NewHandler(vci.LoadConfig(cfg), db, rdb, log).Handle},
		{vco.TaskType, vco.NewHandler(vco.LoadConfig(cfg), db, rdb, log).Handle},
		{vtm.TaskType, vtm.NewHandler(vtm.LoadConfig(cfg), db, log).Handle},
		{vsc.TaskType, vsc.NewHandler(vsc.LoadConfig(cfg), db, rdb, cal, log).Handle},
		{vcn.TaskType, vcn.NewHandler(vcn.LoadConfig(cfg), db, rdb, cal, log).Handle},

		{cc.TaskType, cc.NewHandler(cc.LoadConfig(cfg), db, index, rdb, log).Handle},
		{cs.TaskType, cs.NewHandler(cs.LoadConfig(cfg), index, log).Handle},

		{oc.TaskType, oc.NewHandler(oc.LoadConfig(cfg), db, rdb, mailer, log).Handle},
		{oa.TaskType, oa.NewHandler(oa.LoadConfig(cfg), db, rdb, sms, log).Handle},
		{qc.TaskType, qc.NewHandler(qc.LoadConfig(cfg), db, rdb, log).Handle},

		{clc.TaskType, clc.NewHandler(clc.LoadConfig(cfg), db, rdb, log).Handle},
		{tc.TaskType, tc.NewHandler(tc.LoadConfig(cfg), db, rdb, log).Handle},
		{peu.TaskType, peu.NewHandler(peu.LoadConfig(cfg), db, objects, log).Handle},

		{et.TaskType, et.NewHandler(et.LoadConfig(cfg), db, rdb, log).Handle},
		{nc.TaskType, nc.NewHandler(nc.LoadConfig(cfg), db, rdb, log).Handle},
		{ss.TaskType, ss.NewHandler(ss.LoadConfig(cfg), db, rdb, log).Handle},
		{re.TaskType, re.NewHandler(re.LoadConfig(cfg), db, objects, log).Handle},

		{cle.TaskType, cle.NewHandler(cle.LoadConfig(cfg), db, cal, log).Handle},
		{cce.TaskType, cce.NewHandler(cce.LoadConfig(cfg), db, cal, log).Handle},
		{ps.TaskType, ps.NewHandler(ps.LoadConfig(cfg), places, log).Handle},
		{fd.TaskType, fd.NewHandler(fd.LoadConfig(cfg), rdb, log).Handle},
	}

	var running []*camunda.CamundaWorker
	for _, r := range registrations {
		wcfg := config.GetWorkerConfig(cfg, r.taskType)
		if !wcfg.Enabled {
			zapLog.Info("worker disabled", zap.String("taskType", r.taskType))
			continue
		}
		running = append(running, camunda.Open(zeebeClient.Raw(), r.taskType, wcfg, r.handle, zapLog))
	}
	zapLog.Info("Workers registered", zap.Int("enabled", len(running)), zap.Int("known", len(registrations)))
	checkRegistry(cfg.RegistryPath, registrations, zapLog)

	// --- Background jobs ---
	invalidator := realtime.NewInvalidator(rdb, log)
	go func() {
		if err := invalidator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLog.Error("dashboard cache invalidator stopped", zap.Error(err))
		}
	}()

	var scheduler *digest.Scheduler
	if cfg.Digest.Enabled {
		d := digest.New(store.New(db), mailer, cfg.Dashboard.NeglectThresholdDays, log)
		scheduler, err = digest.NewScheduler(d, cfg.Digest.Schedule, dashcache.Location(cfg.Dashboard.Timezone), log)
		if err != nil {
			zapLog.Fatal("digest scheduler", zap.Error(err))
		}
		scheduler.Start()
		zapLog.Info("digest scheduled", zap.Time("next", scheduler.Next()))
	}

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		rctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"postgres": "ok", "redis": "ok"}
		code := http.StatusOK
		if err := pg.Ping(rctx); err != nil {
			checks["postgres"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		if err := redis.Ping(rctx); err != nil {
			checks["redis"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		checks["time"] = time.Now().Format(time.RFC3339)
		writeStatus(w, code, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	server := &http.Server{Addr: cfg.Server.Address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range running {
		w.Stop()
	}
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping meter provider", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zapLog.Error("Error flushing traces", zap.Error(err))
	}
	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

// awsClients builds the SES, SNS and S3 wrappers. Any service that is not
// configured gets a disabled wrapper, so workers degrade instead of failing.
func awsClients(ctx context.Context, cfg *config.Config, log *zap.Logger) (*aws.Mailer, *aws.SMSSender, *aws.ObjectStore) {
	awsCfg := cfg.Integrations.AWS
	var (
		sesAPI     aws.SESService
		snsAPI     aws.SNSService
		s3API      aws.S3Service
		presignAPI aws.PresignService
	)

	if awsCfg.Region != "" && (awsCfg.SES.Enabled || awsCfg.SNS.Enabled || awsCfg.S3.Bucket != "") {
		clients, err := aws.NewClients(ctx, awsCfg.Region)
		if err != nil {
			log.Warn("aws clients unavailable, notifications and uploads disabled", zap.Error(err))
		} else {
			if awsCfg.SES.Enabled {
				sesAPI = clients.SES
			}
			if awsCfg.SNS.Enabled {
				snsAPI = clients.SNS
			}
			if awsCfg.S3.Bucket != "" {
				s3API, presignAPI = clients.S3, clients.Presign
			}
		}
	}

	log.Info("aws services",
		zap.Bool("ses", sesAPI != nil),
		zap.Bool("sns", snsAPI != nil),
		zap.Bool("s3", s3API != nil),
	)
	return aws.NewMailer(sesAPI, awsCfg.SES.FromEmail),
		aws.NewSMSSender(snsAPI, awsCfg.SNS.SenderID),
		aws.NewObjectStore(s3API, presignAPI, awsCfg.S3.Bucket)
}

// checkRegistry only warns: the registry documents the workers, it does not gate them.
func checkRegistry(path string, registrations []registration, log *zap.Logger) {
	reg, err := registry.Load(path)
	if err != nil {
		log.Warn("worker registry not loaded", zap.String("path", path), zap.Error(err))
		return
	}
	taskTypes := make([]string, len(registrations))
	for i, r := range registrations {
		taskTypes[i] = r.taskType
	}
	missing, orphaned := reg.Diff(taskTypes)
	if len(missing) > 0 || len(orphaned) > 0 {
		log.Warn("worker registry is out of date",
			zap.Strings("notRegistered", missing),
			zap.Strings("notImplemented", orphaned))
	}
	for _, problem := range reg.Validate() {
		log.Warn("worker registry problem", zap.String("problem", problem))
	}
}

func writeStatus(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
