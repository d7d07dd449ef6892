package metrics

import "github.com/prometheus/client_golang/prometheus"

// Forwarding outcomes per distributor group.
const (
	OutcomeSent      = "sent"
	OutcomeFailed    = "error"
	OutcomeDuplicate = "duplicate"
	OutcomeEmpty     = "empty"
)

// ForwardingMetrics counts purchase-order forwarding outcomes.
type ForwardingMetrics struct {
	groups *prometheus.CounterVec
}

// NewForwardingMetrics registers the forwarding counters on the provided registerer.
func NewForwardingMetrics(reg prometheus.Registerer) *ForwardingMetrics {
	if reg == nil {
		return &ForwardingMetrics{}
	}
	groups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "forwarded_orders_total",
		Help:      "Distributor order groups handled by the forwarding engine by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(groups)
	return &ForwardingMetrics{groups: groups}
}

// IncOutcome counts one distributor group.
func (m *ForwardingMetrics) IncOutcome(outcome string) {
	if m == nil || m.groups == nil {
		return
	}
	m.groups.WithLabelValues(normalizeLabel(outcome)).Inc()
}
