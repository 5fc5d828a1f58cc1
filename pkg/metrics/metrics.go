// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultApplied  = "applied"
	ResultRejected = "rejected"
	ResultSuccess  = "success"
	ResultFailure  = "failure"
)

var (
	// Operations counts entry point calls by operation and outcome.
	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "economy_operations_total",
		Help: "Currency operations by outcome",
	}, []string{"op", "result"})

	// Flushes counts remote writes by kind (update, transfer) and outcome.
	Flushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "economy_sync_writes_total",
		Help: "Remote writes issued by the sync executor",
	}, []string{"kind", "result"})

	// FlushDuration tracks remote write latency.
	FlushDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "economy_sync_write_duration_seconds",
		Help:    "Latency distribution of remote writes",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"kind"})

	// PendingAccounts is the number of accounts with unconfirmed changes.
	PendingAccounts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "economy_pending_accounts",
		Help: "Accounts holding changes not yet confirmed by the store",
	})

	// Snapshots counts remote snapshots by whether local pending fields overrode them.
	Snapshots = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "economy_snapshots_total",
		Help: "Remote snapshots reconciled, labeled by whether pending values were overlaid",
	}, []string{"overlaid"})

	// HTTPRequests counts gateway requests.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "economy_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "status"})
)
