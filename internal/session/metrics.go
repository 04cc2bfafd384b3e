package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// dispatchTotal counts dispatched actions by type and result.
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ladder_dispatch_total",
		Help: "Total dispatched edit actions by type and result",
	}, []string{"action", "result"})

	// dispatchDuration tracks reducer latency.
	dispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ladder_dispatch_duration_seconds",
		Help:    "Edit action reduce duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
	}, []string{"action"})

	// historyOps counts undo and redo requests by result.
	historyOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ladder_history_operations_total",
		Help: "Total undo/redo requests by operation and result",
	}, []string{"operation", "result"})

	// activeSessions is the number of open editing sessions.
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ladder_active_sessions",
		Help: "Number of open editing sessions",
	})

	// sessionsEvicted counts sessions removed by cleanup or capacity.
	sessionsEvicted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ladder_sessions_evicted_total",
		Help: "Total sessions removed by cleanup",
	}, []string{"reason"})
)
