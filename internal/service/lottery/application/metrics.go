package application

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 收集抽奖服务的业务指标。
type Metrics struct {
	attempts      *prometheus.CounterVec
	checks        *prometheus.CounterVec
	lockWait      *prometheus.HistogramVec
	slotConflicts prometheus.Counter
}

// NewMetrics 在 reg 上注册指标；reg 为 nil 时指标只在内存中累计。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lottery",
			Name:      "attempts_total",
			Help:      "Lottery attempts by outcome.",
		}, []string{"outcome"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lottery",
			Name:      "eligibility_checks_total",
			Help:      "Eligibility pre-checks by outcome.",
		}, []string{"outcome"}),
		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lottery",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for the member and day-bucket locks.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"scope"}),
		slotConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lottery",
			Name:      "slot_conflicts_total",
			Help:      "Prize slot claims rejected by the storage unique constraint.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.attempts, m.checks, m.lockWait, m.slotConflicts)
	}
	return m
}

func (m *Metrics) observeAttempt(outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeCheck(outcome string) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeLockWait(scope string, d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(scope).Observe(d.Seconds())
}

func (m *Metrics) observeSlotConflict() {
	if m == nil {
		return
	}
	m.slotConflicts.Inc()
}
