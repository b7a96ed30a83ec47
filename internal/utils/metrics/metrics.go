// File: backend/services/audit-service/internal/utils/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event processing outcomes.
const (
	StatusSuccess    = "success"
	StatusFailure    = "failure"
	StatusRetry      = "retry"
	StatusDeadLetter = "dead_letter"
)

var (
	// RequestsTotal counts HTTP requests.
	RequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_service_requests_total",
		Help: "The total number of requests",
	})

	// ResponsesTotal counts HTTP responses by status code.
	ResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_service_responses_total",
		Help: "The total number of responses by status code",
	}, []string{"status"})

	// RequestDurationByPath observes HTTP latency per route.
	RequestDurationByPath = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "audit_service_request_duration_by_path_seconds",
		Help:    "The request duration in seconds by method and path",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// EventsProcessedTotal counts applied events by type and outcome.
	EventsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_service_events_processed_total",
		Help: "The total number of consumed events by type and outcome",
	}, []string{"event_type", "status"})

	// EventProcessingDuration observes how long one event takes to apply.
	EventProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "audit_service_event_processing_duration_seconds",
		Help:    "The time taken to apply one event to the projection",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})

	// DeliveriesTotal counts bus deliveries by transport and outcome.
	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_service_bus_deliveries_total",
		Help: "The total number of bus deliveries by transport, event type and outcome",
	}, []string{"transport", "event_type", "status"})

	// UsersCreatedTotal counts projection users created on first sight.
	UsersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_service_projection_users_created_total",
		Help: "The total number of projection users created by the resolver",
	})

	// IdentityRacesTotal counts lost insert races recovered by re-reading.
	IdentityRacesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_service_identity_races_total",
		Help: "The total number of concurrent first-sight creations resolved by re-reading",
	})

	// CacheResultsTotal counts user cache hits and misses.
	CacheResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_service_cache_results_total",
		Help: "The total number of user cache lookups by result",
	}, []string{"result"})

	// SearchIndexFailuresTotal counts log entries that could not be indexed.
	SearchIndexFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_service_search_index_failures_total",
		Help: "The total number of log entries that failed to reach the search index",
	})

	// ActivityPublishedTotal counts synthetic activity events by outcome.
	ActivityPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_service_activity_events_published_total",
		Help: "The total number of generated activity events by outcome",
	}, []string{"status"})

	// GrpcRequestsTotal counts gRPC calls by method and status code.
	GrpcRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_service_grpc_requests_total",
		Help: "The total number of gRPC requests by method and status code",
	}, []string{"method", "code"})

	// GrpcPanicsTotal counts panics recovered in gRPC handlers.
	GrpcPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_service_grpc_panics_total",
		Help: "The total number of panics recovered in gRPC handlers",
	})
)
