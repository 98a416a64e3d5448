package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSyncMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)
	m.ObserveCacheRead("day", "fresh")
	m.ObserveRefresh("blocking", "ok")
	m.ObserveCRMRequest("appointments.search", 200, 0.05)
}

func TestSyncMetricsNilSafe(t *testing.T) {
	var m *SyncMetrics
	m.ObserveCacheRead("day", "miss")
	m.ObserveRefresh("background", "error")
	m.ObserveCRMRequest("wallet.balance", 500, 0.1)
}
