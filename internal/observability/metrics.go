package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequests counts gateway calls by operation and outcome (ok or an error code).
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialfeed_api_requests_total",
		Help: "Total number of backend API calls by operation and outcome",
	}, []string{"operation", "outcome"})

	// APIRequestDuration records gateway call latency by operation.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialfeed_api_request_duration_seconds",
		Help:    "Backend API call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// ControllerActions counts user intents handled by controllers.
	ControllerActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialfeed_controller_actions_total",
		Help: "Total number of user actions handled by controllers",
	}, []string{"controller", "action", "outcome"})
)

// TrackAPICall returns a function that records latency and outcome when called (e.g. defer).
func TrackAPICall(operation string) func(outcome string) {
	start := time.Now()
	return func(outcome string) {
		APIRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		APIRequests.WithLabelValues(operation, outcome).Inc()
	}
}

// RecordAction increments the controller action counter.
func RecordAction(controller, action string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ControllerActions.WithLabelValues(controller, action, outcome).Inc()
}
