// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fieldsales"

// Job plumbing, labelled by task type.
var (
	WorkerJobsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "jobs_active",
		Help:      "Jobs currently being handled",
	}, []string{"task_type"})

	WorkerJobsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "jobs_completed_total",
		Help:      "Jobs completed back to the broker",
	}, []string{"task_type"})

	WorkerJobsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "jobs_failed_total",
		Help:      "Jobs failed or thrown as BPMN errors, by error code",
	}, []string{"task_type", "error_code"})

	WorkerJobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "job_duration_seconds",
		Help:      "Wall time from activation to completion or failure",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"task_type"})
)

// Field activity.
var (
	VisitsCheckedIn = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "visits_checked_in_total",
		Help:      "Visits checked in, labelled by whether the geofence override was used",
	}, []string{"override"})

	GeofenceDistance = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "geofence_distance_meters",
		Help:      "Distance between device and client at check-in",
		Buckets:   []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 50000},
	})

	OrdersCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Orders created, labelled by initial approval status",
	}, []string{"approval"})

	DashboardCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dashboard_cache_hits_total",
		Help:      "Dashboard results served from cache",
	}, []string{"kind"})
)
