package membership

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK       = "ok"
	resultRejected = "rejected"
	resultPartial  = "partial"
)

// Metrics counts engine operations by outcome. A nil *Metrics records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
}

// NewMetrics registers the membership collectors with reg.
//
//	membership_operations_total{operation, result}
//
// result is "ok", "rejected" (credentials mismatch, unknown token) or "partial".
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "membership",
				Name:      "operations_total",
				Help:      "Number of membership operations by outcome",
			},
			[]string{"operation", "result"},
		),
	}
}

// Operations exposes the counter vector, mainly for tests.
func (m *Metrics) Operations() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.operations
}

func (m *Metrics) observe(op, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result).Inc()
}
