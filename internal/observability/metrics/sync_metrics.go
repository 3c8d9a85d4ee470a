// Package metrics holds the Prometheus instruments for the background
// index-sync pipeline. Everything registers against the default
// registerer and is scraped through the /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

var Module = fx.Module("observability.metrics",
	fx.Provide(func() *SyncMetrics {
		return NewSyncMetrics(prometheus.DefaultRegisterer)
	}),
)

// SyncMetrics instruments the outbox worker. A nil receiver is a no-op
// so the worker runs unchanged without a registry.
type SyncMetrics struct {
	entriesProcessed *prometheus.CounterVec
	batchDuration    prometheus.Histogram
	claimFailures    prometheus.Counter
}

func NewSyncMetrics(registerer prometheus.Registerer) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	entriesProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "search_outbox_entries_total",
		Help: "Outbox entries processed by the sync worker, by operation and result.",
	}, []string{"op", "result"})

	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "search_outbox_batch_seconds",
		Help:    "Wall time of one outbox drain pass.",
		Buckets: prometheus.DefBuckets,
	})

	claimFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "search_outbox_claim_failures_total",
		Help: "Failed attempts to claim a batch from the outbox.",
	})

	registerer.MustRegister(entriesProcessed, batchDuration, claimFailures)

	return &SyncMetrics{
		entriesProcessed: entriesProcessed,
		batchDuration:    batchDuration,
		claimFailures:    claimFailures,
	}
}

func (m *SyncMetrics) ObserveEntry(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.entriesProcessed.WithLabelValues(op, result).Inc()
}

func (m *SyncMetrics) ObserveBatch(start time.Time) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(time.Since(start).Seconds())
}

func (m *SyncMetrics) ObserveClaimFailure() {
	if m == nil {
		return
	}
	m.claimFailures.Inc()
}
