package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskboard_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	eventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_events_emitted_total",
		Help: "Task events accepted onto the dispatch queue",
	}, []string{"kind"})

	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_events_dropped_total",
		Help: "Task events dropped because the dispatch queue was full",
	}, []string{"kind"})

	eventDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_event_deliveries_total",
		Help: "Listener invocations by event kind and result",
	}, []string{"kind", "listener", "result"})

	notificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_notifications_sent_total",
		Help: "Emails handed to the mail transport by result",
	}, []string{"kind", "result"})

	eventStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "taskboard_event_streams_active",
		Help: "Number of connected task event stream clients",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveEventEmitted counts an event accepted for dispatch
func ObserveEventEmitted(kind string) {
	eventsEmitted.WithLabelValues(kind).Inc()
}

// ObserveEventDropped counts an event lost to a full queue
func ObserveEventDropped(kind string) {
	eventsDropped.WithLabelValues(kind).Inc()
}

// ObserveEventDelivery records a listener invocation outcome
func ObserveEventDelivery(kind, listener, result string) {
	eventDeliveries.WithLabelValues(kind, listener, result).Inc()
}

// ObserveNotification records a mail send attempt outcome
func ObserveNotification(kind, result string) {
	notificationsSent.WithLabelValues(kind, result).Inc()
}

// IncrementEventStreams increments the connected stream gauge
func IncrementEventStreams() {
	eventStreams.Inc()
}

// DecrementEventStreams decrements the connected stream gauge
func DecrementEventStreams() {
	eventStreams.Dec()
}
