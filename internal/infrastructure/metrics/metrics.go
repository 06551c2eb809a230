package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qc",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "qc",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// Photo ingestion counters
	IngestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qc",
			Subsystem: "api",
			Name:      "photo_ingests_total",
			Help:      "Total photo ingestion attempts",
		},
		[]string{"source_format", "status"},
	)

	// Ingested bytes counter
	IngestBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "qc",
			Subsystem: "api",
			Name:      "photo_ingest_bytes_total",
			Help:      "Total normalized photo bytes stored",
		},
	)

	// Object storage operations counter
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qc",
			Subsystem: "api",
			Name:      "storage_operations_total",
			Help:      "Total object storage operations",
		},
		[]string{"operation", "status"},
	)

	// Audit trail write counter
	AuditWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qc",
			Subsystem: "api",
			Name:      "audit_writes_total",
			Help:      "Total audit log writes",
		},
		[]string{"action", "status"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordIngest records a photo ingestion attempt
func RecordIngest(sourceFormat, status string, bytes int64) {
	IngestsTotal.WithLabelValues(sourceFormat, status).Inc()
	if status == "success" {
		IngestBytesTotal.Add(float64(bytes))
	}
}

// RecordStorageOperation records an object storage operation
func RecordStorageOperation(operation, status string) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordAuditWrite records an audit log write
func RecordAuditWrite(action, status string) {
	AuditWritesTotal.WithLabelValues(action, status).Inc()
}
