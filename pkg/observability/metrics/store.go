// Package metrics provides Prometheus metrics for document store operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache event labels recorded by RecordCacheEvent.
const (
	CacheEventHit        = "hit"
	CacheEventMiss       = "miss"
	CacheEventError      = "error"
	CacheEventInvalidate = "invalidate"
)

var (
	// storeOperationDuration tracks store operation duration in seconds.
	// Labels: collection, operation, status
	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docstore_operation_duration_seconds",
			Help:    "Document store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection", "operation", "status"},
	)

	// storeOperationsTotal tracks the total number of store operations.
	// Labels: collection, operation, status
	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_operations_total",
			Help: "Total number of document store operations",
		},
		[]string{"collection", "operation", "status"},
	)

	// storeOperationsInFlight tracks store operations currently executing.
	storeOperationsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docstore_operations_in_flight",
			Help: "Current number of document store operations being processed",
		},
	)

	// cacheEventsTotal tracks document cache activity.
	// Labels: collection, event
	cacheEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_cache_events_total",
			Help: "Total number of document cache events",
		},
		[]string{"collection", "event"},
	)
)

// RecordStoreOperation records one store operation outcome. The status label
// is "ok" for nil errors and "error" otherwise.
func RecordStoreOperation(collection, operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	storeOperationDuration.WithLabelValues(collection, operation, status).Observe(duration.Seconds())
	storeOperationsTotal.WithLabelValues(collection, operation, status).Inc()
}

// RecordCacheEvent records one document cache event.
func RecordCacheEvent(collection, event string) {
	cacheEventsTotal.WithLabelValues(collection, event).Inc()
}

// IncrementInFlight increments the in-flight operations gauge.
func IncrementInFlight() {
	storeOperationsInFlight.Inc()
}

// DecrementInFlight decrements the in-flight operations gauge.
func DecrementInFlight() {
	storeOperationsInFlight.Dec()
}
