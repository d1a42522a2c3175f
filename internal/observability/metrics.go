package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for acquisition and caching.
type Metrics struct {
	UpstreamQueries *prometheus.CounterVec // labels: source
	CacheLookups    *prometheus.CounterVec // labels: kind, result={hit,miss}

	// Refresh metrics.
	Refreshes          *prometheus.CounterVec   // labels: kind, outcome={ok,empty,failed,nodata}
	RefreshDuration    *prometheus.HistogramVec // labels: kind
	ExtractionFailures *prometheus.CounterVec   // labels: kind
	SnapshotRecords    *prometheus.GaugeVec     // labels: kind

	LocatorScans *prometheus.CounterVec // labels: result={found,exhausted}
}

const namespace = "tidal"

var refreshBuckets = []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.UpstreamQueries,
		m.CacheLookups,
		m.Refreshes,
		m.RefreshDuration,
		m.ExtractionFailures,
		m.SnapshotRecords,
		m.LocatorScans,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		UpstreamQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_queries_total",
			Help:      "Outbound HTTP attempts by source, counted before the call is made.",
		}, []string{"source"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Snapshot freshness checks by kind and result.",
		}, []string{"kind", "result"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Cache-miss refreshes by kind and outcome.",
		}, []string{"kind", "outcome"}),
		RefreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a cache-miss refresh.",
			Buckets:   refreshBuckets,
		}, []string{"kind"}),
		ExtractionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_failures_total",
			Help:      "Fetch or extraction failures by kind.",
		}, []string{"kind"}),
		SnapshotRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_records",
			Help:      "Records in the last committed snapshot.",
		}, []string{"kind"}),
		LocatorScans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locator_scans_total",
			Help:      "Station subnet scans by result.",
		}, []string{"result"}),
	}
}

// QueryHook returns a callback counting upstream queries for source.
func (m *Metrics) QueryHook(source string) func(url string) {
	c := m.UpstreamQueries.WithLabelValues(source)
	return func(string) { c.Inc() }
}

// ScanHook returns a callback counting locator scans.
func (m *Metrics) ScanHook() func(found bool) {
	return func(found bool) {
		result := "exhausted"
		if found {
			result = "found"
		}
		m.LocatorScans.WithLabelValues(result).Inc()
	}
}
