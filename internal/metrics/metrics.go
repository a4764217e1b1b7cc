// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StoreWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkzone_store_writes_total",
		Help: "Collection writes committed to the shared store",
	}, []string{"key"})

	StoreWritesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkzone_store_writes_skipped_total",
		Help: "Collection writes skipped because the stored value was identical",
	}, []string{"key"})

	StoreWriteErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkzone_store_write_errors_total",
		Help: "Collection writes that failed; in-memory state was kept",
	}, []string{"key"})

	StoreDecodeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkzone_store_decode_errors_total",
		Help: "Stored collection values that could not be decoded",
	}, []string{"key"})

	// ReconcilesTotal counts reconcile attempts by source (load, notify, poll)
	// and result (replaced, unchanged, stale, invalid).
	ReconcilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkzone_reconciles_total",
		Help: "Reconcile attempts of in-memory collections against the shared store",
	}, []string{"key", "source", "result"})

	MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkzone_mutations_total",
		Help: "State mutations applied by this context",
	}, []string{"op"})

	FormulationFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkzone_formulation_fallbacks_total",
		Help: "Formulation requests answered with the fallback ink",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkzone_http_requests_total",
		Help: "HTTP requests served",
	}, []string{"method", "pattern", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkzone_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "pattern"})
)
