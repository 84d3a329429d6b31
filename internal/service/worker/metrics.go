package worker

import "github.com/prometheus/client_golang/prometheus"

var (
	tasksFetchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camunda_worker_tasks_fetched_total",
			Help: "Total number of external tasks fetched and locked.",
		},
		[]string{"topic"},
	)

	tasksCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camunda_worker_tasks_completed_total",
			Help: "Total number of external tasks reported as completed.",
		},
		[]string{"topic"},
	)

	tasksFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camunda_worker_tasks_failed_total",
			Help: "Total number of external tasks reported as failed.",
		},
		[]string{"topic"},
	)

	tasksBusinessErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camunda_worker_tasks_business_errors_total",
			Help: "Total number of external tasks reported as BPMN errors.",
		},
		[]string{"topic"},
	)

	tasksInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "camunda_worker_tasks_in_flight",
			Help: "Number of external tasks currently being handled.",
		},
	)

	taskDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "camunda_worker_task_duration_seconds",
			Help:    "Handler execution time per external task, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)

	handlerPanicsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camunda_worker_handler_panics_total",
			Help: "Total number of recovered panics in task handlers.",
		},
		[]string{"topic"},
	)

	pollErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camunda_worker_poll_errors_total",
			Help: "Total number of failed fetch and lock requests.",
		},
		[]string{"topic"},
	)

	reportErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camunda_worker_report_errors_total",
			Help: "Total number of failed task result reports.",
		},
		[]string{"topic", "report"},
	)
)

func init() {
	prometheus.MustRegister(tasksFetchedTotal)
	prometheus.MustRegister(tasksCompletedTotal)
	prometheus.MustRegister(tasksFailedTotal)
	prometheus.MustRegister(tasksBusinessErrorsTotal)
	prometheus.MustRegister(tasksInFlight)
	prometheus.MustRegister(taskDurationSeconds)
	prometheus.MustRegister(handlerPanicsTotal)
	prometheus.MustRegister(pollErrorsTotal)
	prometheus.MustRegister(reportErrorsTotal)
}
