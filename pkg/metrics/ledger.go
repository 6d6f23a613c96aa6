package metrics

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics counts ledger outcomes by transaction type and status.
type LedgerMetrics struct {
	outcomes *prometheus.CounterVec
}

func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sagabank_ledger_outcomes_total",
		Help: "Ledger decisions by transaction type and resulting status.",
	}, []string{"type", "status"})
	reg.MustRegister(outcomes)
	return &LedgerMetrics{outcomes: outcomes}
}

func (l *LedgerMetrics) Observe(txType, status string) {
	if l == nil || l.outcomes == nil {
		return
	}
	l.outcomes.WithLabelValues(normalizeLabel(txType), normalizeLabel(status)).Inc()
}
