package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReminderMetrics exposes counters/histograms for the reminder lifecycle
// and the WhatsApp webhook.
type ReminderMetrics struct {
	triggersTotal  *prometheus.CounterVec
	dispatchTotal  *prometheus.CounterVec
	confirmTotal   *prometheus.CounterVec
	inboundTotal   *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
}

func NewReminderMetrics(reg prometheus.Registerer) *ReminderMetrics {
	m := &ReminderMetrics{
		triggersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "reminders",
			Name:      "trigger_upserts_total",
			Help:      "Total reminder trigger upserts",
		}, []string{"action", "status"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "reminders",
			Name:      "dispatch_total",
			Help:      "Total reminder trigger firings by outcome",
		}, []string{"action", "outcome"}),
		confirmTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "reminders",
			Name:      "confirmations_total",
			Help:      "Total patient confirmation attempts",
		}, []string{"outcome"}),
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "whatsapp",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound WhatsApp webhook events",
		}, []string{"event_type", "status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "whatsapp",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of WhatsApp webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.triggersTotal, m.dispatchTotal, m.confirmTotal, m.inboundTotal, m.webhookLatency)
	return m
}

func (m *ReminderMetrics) ObserveTrigger(action, status string) {
	if m == nil {
		return
	}
	m.triggersTotal.WithLabelValues(action, status).Inc()
}

func (m *ReminderMetrics) ObserveDispatch(action, outcome string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(action, outcome).Inc()
}

func (m *ReminderMetrics) ObserveConfirmation(outcome string) {
	if m == nil {
		return
	}
	m.confirmTotal.WithLabelValues(outcome).Inc()
}

func (m *ReminderMetrics) ObserveInbound(eventType, status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(eventType, status).Inc()
}

func (m *ReminderMetrics) ObserveWebhookLatency(eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(eventType).Observe(seconds)
}
