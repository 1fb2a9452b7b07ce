package middleware

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherCounter(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			if matchLabels(m, labels) {
				if c := m.GetCounter(); c != nil {
					return c.GetValue()
				}
				if g := m.GetGauge(); g != nil {
					return g.GetValue()
				}
			}
		}
	}
	return -1
}

func matchLabels(m *dto.Metric, want map[string]string) bool {
	got := map[string]string{}
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestMetricsObserveDispatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithNamespace("test"))

	m.ObserveDispatch("approve", "ok", 20*time.Millisecond)
	m.ObserveDispatch("approve", "ok", 30*time.Millisecond)
	m.ObserveDispatch("delete", "cancelled", 0)

	if got := gatherCounter(t, reg, "test_dispatches_total", map[string]string{
		"kind": "approve", "outcome": "ok",
	}); got != 2 {
		t.Fatalf("approve/ok = %v, want 2", got)
	}
	if got := gatherCounter(t, reg, "test_dispatches_total", map[string]string{
		"kind": "delete", "outcome": "cancelled",
	}); got != 1 {
		t.Fatalf("delete/cancelled = %v, want 1", got)
	}
}

func TestMetricsObserveRefresh(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))

	m.ObserveRefresh("notifications", "applied")
	m.ObserveRefresh("notifications", "superseded")
	m.ObserveRefresh("notifications", "superseded")

	if got := gatherCounter(t, reg, "orderfood_refreshes_total", map[string]string{
		"key": "notifications", "outcome": "superseded",
	}); got != 2 {
		t.Fatalf("superseded = %v, want 2", got)
	}
}

func TestMetricsSessionGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	if got := gatherCounter(t, reg, "orderfood_active_sessions", nil); got != 1 {
		t.Fatalf("active_sessions = %v, want 1", got)
	}
}
