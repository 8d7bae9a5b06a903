package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики оркестратора. Экспортируются daemon'ом через /metrics.
var (
	// RunsTotal — количество завершённых запусков по статусам.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dirigent",
		Name:      "runs_total",
		Help:      "Completed runs by final status.",
	}, []string{"status"})

	// AttemptsTotal — количество попыток по исходам (включая маркеры пропуска).
	AttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dirigent",
		Name:      "attempts_total",
		Help:      "Node execution attempts by outcome.",
	}, []string{"status"})

	// RunningNodes — количество попыток в полёте прямо сейчас.
	RunningNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "dirigent",
		Name:      "running_nodes",
		Help:      "Node attempts currently in flight.",
	})

	// AttemptDuration — длительность попыток в секундах.
	AttemptDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dirigent",
		Name:      "attempt_duration_seconds",
		Help:      "Wall-clock duration of node attempts.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	// ScheduledRunsTotal — запуски, инициированные планировщиком daemon'а.
	ScheduledRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dirigent",
		Name:      "scheduled_runs_total",
		Help:      "Runs triggered by the daemon scheduler, by group.",
	}, []string{"group"})
)
