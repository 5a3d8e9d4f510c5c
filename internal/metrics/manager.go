// Package metrics — счётчики Prometheus для экономики и тренировок.
// Метрики отдаются по /metrics в режиме serve.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager хранит все метрики приложения.
type Manager struct {
	// counters
	CounterChestOpens     *prometheus.CounterVec // по tier и result
	CounterCoinsCredited  prometheus.Counter
	CounterCoinsDebited   prometheus.Counter
	CounterRefunds        prometheus.Counter
	CounterRefundFailures prometheus.Counter
	CounterSessions       prometheus.Counter
	CounterMilestones     prometheus.Counter
	CounterRequests       *prometheus.CounterVec

	// gauges
	GaugeBalance prometheus.Gauge

	// histograms
	HistSessionReps     prometheus.Histogram
	HistRequestDuration prometheus.Histogram
}

// Результаты открытия сундука (метка result).
const (
	ResultSuccess      = "success"
	ResultInsufficient = "insufficient_funds"
	ResultFailed       = "transaction_failed"
	ResultRefundFailed = "refund_failed"
)

// NewTestManager создаёт менеджер на отдельном реестре (для тестов).
func NewTestManager() *Manager {
	return NewManager("pullups", "test", prometheus.NewRegistry())
}

// NewTestManagerAndRegistry — то же самое, но отдаёт и реестр для проверок.
func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("pullups", "test", reg), reg
}

// NewRegistry создаёт реестр с метриками рантайма Go и процесса.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewManager регистрирует метрики в reg.
func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterChestOpens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chest_opens",
			Help:      "The total number of chest opening attempts",
		}, []string{"tier", "result"}),
		CounterCoinsCredited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "coins_credited",
			Help:      "The total number of coins credited",
		}),
		CounterCoinsDebited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "coins_debited",
			Help:      "The total number of coins debited",
		}),
		CounterRefunds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chest_refunds",
			Help:      "Chest openings rolled back with a refund",
		}),
		CounterRefundFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "chest_refund_failures",
			Help:      "Refunds that failed after a debit",
		}),
		CounterSessions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_logged",
			Help:      "The total number of logged sessions",
		}),
		CounterMilestones: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "milestones_unlocked",
			Help:      "The total number of unlocked milestones",
		}),
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request",
			Help:      "The total number of incoming API requests",
		}, []string{"method", "status"}),
		GaugeBalance: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "coin_balance",
			Help:      "Current coin balance",
		}),
		HistSessionReps: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "session_reps",
			Help:      "Total reps per logged session",
			Buckets:   []float64{5, 10, 20, 30, 50, 75, 100, 150, 200, 300},
		}),
		HistRequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Total duration of API requests in seconds",
			Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}
