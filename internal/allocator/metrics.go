package allocator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "passdist"

const (
	resultOK        = "ok"
	resultExhausted = "exhausted"
	resultConflict  = "conflict"
	resultError     = "error"
)

// Metrics is safe to use as a nil pointer, in which case nothing is recorded.
type Metrics struct {
	allocations *prometheus.CounterVec
	conflicts   *prometheus.CounterVec
	resets      prometheus.Counter
	fetch       prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocations_total",
			Help:      "Allocation requests by outcome.",
		}, []string{"result"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_conflicts_total",
			Help:      "Conditional writes rejected because the document changed.",
		}, []string{"op"}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Successful document resets.",
		}),
		fetch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_fetch_seconds",
			Help:      "Latency of document fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.allocations, m.conflicts, m.resets, m.fetch)
	}
	return m
}

func (m *Metrics) allocation(result string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(result).Inc()
}

func (m *Metrics) conflict(op string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(op).Inc()
}

func (m *Metrics) reset() {
	if m == nil {
		return
	}
	m.resets.Inc()
}

func (m *Metrics) observeFetch(started time.Time) {
	if m == nil {
		return
	}
	m.fetch.Observe(time.Since(started).Seconds())
}
