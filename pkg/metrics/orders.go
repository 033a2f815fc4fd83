package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics counts order transitions and rejected transition attempts.
type OrderMetrics struct {
	transitions *prometheus.CounterVec
	rejected    *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on reg. A nil registerer yields
// a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_transitions_total",
		Help:      "Committed order status transitions.",
	}, []string{"from", "to"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_transition_errors_total",
		Help:      "Order operations that failed, by operation and error code.",
	}, []string{"operation", "code"})
	reg.MustRegister(transitions, rejected)
	return &OrderMetrics{transitions: transitions, rejected: rejected}
}

// ObserveTransition counts a committed from -> to move.
func (m *OrderMetrics) ObserveTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// ObserveFailure counts a failed operation by its error code.
func (m *OrderMetrics) ObserveFailure(operation, code string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(operation), normalizeLabel(code)).Inc()
}
