package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "media_uniquer_tasks_started_total",
		Help: "Total number of accepted tasks, by kind",
	}, []string{"kind"})

	TasksFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "media_uniquer_tasks_finished_total",
		Help: "Total number of tasks that reached a terminal state, by kind and state",
	}, []string{"kind", "state"})

	TasksActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "media_uniquer_tasks_active",
		Help: "Number of tasks currently being processed",
	})

	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "media_uniquer_task_duration_seconds",
		Help:    "Duration of a transform from accept to terminal state",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"kind"})

	StatusWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "media_uniquer_status_write_errors_total",
		Help: "Total number of status record writes that failed",
	})

	RetentionRemovedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "media_uniquer_retention_removed_total",
		Help: "Total number of entries removed by the retention sweeper, by population",
	}, []string{"population"})

	RetentionFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "media_uniquer_retention_failed_total",
		Help: "Total number of entries the retention sweeper failed to remove, by population",
	}, []string{"population"})
)
