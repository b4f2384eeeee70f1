package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestReminderMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReminderMetrics(reg)
	m.ObserveTrigger("first", "ok")
	m.ObserveDispatch("second", "skipped")
	m.ObserveDispatch("second", "skipped")
	m.ObserveConfirmation("confirmed")
	m.ObserveInbound("text", "handled")
	m.ObserveWebhookLatency("text", 0.5)

	var metric dto.Metric
	if err := m.dispatchTotal.WithLabelValues("second", "skipped").Write(&metric); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 skipped dispatches, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 5 {
		t.Fatalf("expected 5 metric families, got %d", len(families))
	}
}

func TestReminderMetricsNilSafe(t *testing.T) {
	var m *ReminderMetrics
	m.ObserveTrigger("first", "ok")
	m.ObserveDispatch("first", "sent")
	m.ObserveConfirmation("not_found")
	m.ObserveInbound("event", "status")
	m.ObserveWebhookLatency("event", 0.1)
}
