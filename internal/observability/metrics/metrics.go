package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics exposes counters/histograms for the appointment sync layer:
// cache reads by index, refresh outcomes by mode, and CRM gateway latency.
type SyncMetrics struct {
	cacheReads   *prometheus.CounterVec
	refreshTotal *prometheus.CounterVec
	crmLatency   *prometheus.HistogramVec
}

func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		cacheReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "cache",
			Name:      "reads_total",
			Help:      "Appointment cache reads by index and result (fresh/stale/miss)",
		}, []string{"index", "result"}),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "frontdesk",
			Subsystem: "sync",
			Name:      "refresh_total",
			Help:      "Appointment refresh attempts by mode and outcome",
		}, []string{"mode", "outcome"}),
		crmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "frontdesk",
			Subsystem: "crm",
			Name:      "request_latency_seconds",
			Help:      "Latency of CRM gateway requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.cacheReads, m.refreshTotal, m.crmLatency)
	return m
}

func (m *SyncMetrics) ObserveCacheRead(index, result string) {
	if m == nil {
		return
	}
	m.cacheReads.WithLabelValues(index, result).Inc()
}

func (m *SyncMetrics) ObserveRefresh(mode, outcome string) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(mode, outcome).Inc()
}

func (m *SyncMetrics) ObserveCRMRequest(endpoint string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.crmLatency.WithLabelValues(endpoint, strconv.Itoa(status)).Observe(seconds)
}
