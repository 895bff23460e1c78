package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements Recorder on top of client_golang collectors.
type PrometheusRecorder struct {
	usersCreated  prometheus.Counter
	usersDeleted  prometheus.Counter
	storeDuration *prometheus.HistogramVec
	storeErrors   *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewPrometheus registers the application collectors with reg.
// Pass a fresh prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewPrometheus(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		usersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "userapi_users_created_total",
			Help: "Total number of users created",
		}),
		usersDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "userapi_users_deleted_total",
			Help: "Total number of users deleted",
		}),
		storeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "userapi_store_operation_duration_seconds",
				Help:    "Duration of record store operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"operation", "outcome"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "userapi_store_errors_total",
				Help: "Total number of record store transport failures",
			},
			[]string{"operation"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "userapi_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "userapi_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// IncUserCreated increments the users created counter.
func (p *PrometheusRecorder) IncUserCreated() {
	p.usersCreated.Inc()
}

// IncUserDeleted increments the users deleted counter.
func (p *PrometheusRecorder) IncUserDeleted() {
	p.usersDeleted.Inc()
}

// ObserveStoreOperation records store call latency; transport failures are also counted.
func (p *PrometheusRecorder) ObserveStoreOperation(operation, outcome string, duration time.Duration) {
	p.storeDuration.WithLabelValues(operation, outcome).Observe(duration.Seconds())
	if outcome == OutcomeError {
		p.storeErrors.WithLabelValues(operation).Inc()
	}
}

// ObserveHTTPRequest records one served request.
func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
