package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics métricas del ledger de movimientos. Un *LedgerMetrics nil es válido y no registra nada.
type LedgerMetrics struct {
	recorded  *prometheus.CounterVec
	conflicts prometheus.Counter
	exhausted prometheus.Counter
	commit    *prometheus.HistogramVec
	attempts  prometheus.Histogram
}

// NewLedgerMetrics registra las métricas en el registerer indicado.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	recorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_recorded_total",
		Help: "Movimientos de inventario confirmados por tipo.",
	}, []string{"type"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_cas_conflicts_total",
		Help: "Conflictos de compare-and-swap sobre la cantidad del producto.",
	})
	exhausted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_retries_exhausted_total",
		Help: "Movimientos rechazados por agotar los reintentos.",
	})
	commit := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stock_movement_commit_seconds",
		Help:    "Duración de la transacción movimiento + cantidad.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
	attempts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_movement_attempts",
		Help:    "Intentos necesarios para confirmar un movimiento.",
		Buckets: []float64{1, 2, 3, 5, 8},
	})
	reg.MustRegister(recorded, conflicts, exhausted, commit, attempts)
	return &LedgerMetrics{
		recorded:  recorded,
		conflicts: conflicts,
		exhausted: exhausted,
		commit:    commit,
		attempts:  attempts,
	}
}

// IncRecorded cuenta un movimiento confirmado.
func (m *LedgerMetrics) IncRecorded(movementType string, attempts int) {
	if m == nil || m.recorded == nil {
		return
	}
	m.recorded.WithLabelValues(normalizeLabel(movementType)).Inc()
	m.attempts.Observe(float64(attempts))
}

// IncConflict cuenta un conflicto CAS (cada intento fallido).
func (m *LedgerMetrics) IncConflict() {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.Inc()
}

// IncExhausted cuenta un movimiento que agotó los reintentos.
func (m *LedgerMetrics) IncExhausted() {
	if m == nil || m.exhausted == nil {
		return
	}
	m.exhausted.Inc()
}

// ObserveCommit registra la duración de una transacción confirmada.
func (m *LedgerMetrics) ObserveCommit(movementType string, d time.Duration) {
	if m == nil || m.commit == nil {
		return
	}
	m.commit.WithLabelValues(normalizeLabel(movementType)).Observe(d.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
