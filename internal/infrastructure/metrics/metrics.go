// Package metrics exposes Prometheus counters and histograms for the plant's
// ledger and production flows.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LedgerPostingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_postings_total",
		Help: "Total number of ledger entries posted",
	}, []string{"kind"})

	LedgerPostingsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_postings_rejected_total",
		Help: "Total number of rejected ledger postings",
	}, []string{"reason"})

	BatchesPlannedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batches_planned_total",
		Help: "Total number of production batches planned",
	})

	BatchesCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batches_completed_total",
		Help: "Total number of production batches completed",
	})

	BatchesCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batches_cancelled_total",
		Help: "Total number of production batches cancelled",
	})

	BatchCompletionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "batch_completion_latency_seconds",
		Help:    "Latency of batch completion including all stock postings",
		Buckets: prometheus.DefBuckets,
	})

	OutboxRelayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_relayed_total",
		Help: "Total number of outbox messages delivered to the broker",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
