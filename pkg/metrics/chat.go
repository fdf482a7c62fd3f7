package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ChatMetrics records conversation and payment pipeline counters.
type ChatMetrics struct {
	signals  *prometheus.CounterVec
	webhooks *prometheus.CounterVec
	invoices prometheus.Counter
}

// NewChatMetrics registers the conversation metrics on the provided registerer.
func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	if reg == nil {
		return &ChatMetrics{}
	}
	signals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_signals_total",
		Help: "Inbound chat signals by resulting action.",
	}, []string{"action"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhooks_total",
		Help: "Payment webhook deliveries by outcome.",
	}, []string{"outcome"})
	invoices := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invoices_issued_total",
		Help: "Invoices rendered and sent to customers.",
	})
	reg.MustRegister(signals, webhooks, invoices)
	return &ChatMetrics{
		signals:  signals,
		webhooks: webhooks,
		invoices: invoices,
	}
}

// IncSignal increments the counter for a processed inbound signal.
func (c *ChatMetrics) IncSignal(action string) {
	if c == nil || c.signals == nil {
		return
	}
	c.signals.WithLabelValues(normalizeLabel(action)).Inc()
}

// IncWebhook increments the payment webhook counter for the given outcome.
func (c *ChatMetrics) IncWebhook(outcome string) {
	if c == nil || c.webhooks == nil {
		return
	}
	c.webhooks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncInvoice increments the issued invoice counter.
func (c *ChatMetrics) IncInvoice() {
	if c == nil || c.invoices == nil {
		return
	}
	c.invoices.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
