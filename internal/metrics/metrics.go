package metrics

import (
	"context"
	"net/http"

	"github.com/phrazzld/image-tagger/internal/events"
	"github.com/phrazzld/image-tagger/internal/task"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "image_tagger"

// StatusSource supplies the queue counts reported as gauges.
type StatusSource interface {
	Status() task.QueueStatus
}

// Recorder holds all Prometheus metrics. It implements events.EventHandler.
type Recorder struct {
	registry *prometheus.Registry

	// Counters
	tasksStarted  prometheus.Counter
	tasksFinished *prometheus.CounterVec
	workerRuns    prometheus.Counter

	// Gauges
	workerRunning prometheus.Gauge
	taskProgress  prometheus.Gauge

	// Histograms
	taskDuration *prometheus.HistogramVec
}

var _ events.EventHandler = (*Recorder)(nil)

// NewRecorder creates the collectors and registers them, together with
// queue gauges read from source, on a dedicated registry.
func NewRecorder(source StatusSource) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		tasksStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tasks_started_total",
			Help:      "Total number of tasks handed to the analyzer",
		}),
		tasksFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "tasks_finished_total",
				Help:      "Total number of tasks that reached a terminal status",
			},
			[]string{"status"},
		),
		workerRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "worker_runs_total",
			Help:      "Total number of processing loops started",
		}),
		workerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "worker_running",
			Help:      "1 while a processing loop is active, 0 otherwise",
		}),
		taskProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "current_task_progress",
			Help:      "Progress of the task being analyzed, in [0, 1]",
		}),
		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "task_duration_seconds",
				Help:      "Time spent in the analyzer per task",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
	}

	r.registry.MustRegister(
		r.tasksStarted,
		r.tasksFinished,
		r.workerRuns,
		r.workerRunning,
		r.taskProgress,
		r.taskDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if source != nil {
		r.registry.MustRegister(
			queueGauge("queue_pending", "Number of tasks waiting to be analyzed", source,
				func(s task.QueueStatus) int { return s.QueueLength }),
			queueGauge("queue_history", "Number of tasks in history", source,
				func(s task.QueueStatus) int { return s.HistoryLength }),
		)
	}
	return r
}

func queueGauge(name, help string, source StatusSource, pick func(task.QueueStatus) int) prometheus.GaugeFunc {
	return prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Namespace: Namespace, Name: name, Help: help},
		func() float64 { return float64(pick(source.Status())) },
	)
}

// HandleEvent updates the collectors for a worker or task event.
func (r *Recorder) HandleEvent(_ context.Context, event *events.TaskEvent) error {
	switch event.Type {
	case events.WorkerStarted:
		r.workerRuns.Inc()
		r.workerRunning.Set(1)
	case events.WorkerStopped:
		r.workerRunning.Set(0)
		r.taskProgress.Set(0)
	case events.TaskStarted:
		r.tasksStarted.Inc()
		r.taskProgress.Set(0)
	case events.TaskProgress:
		r.taskProgress.Set(event.Progress)
	case events.TaskCompleted, events.TaskFailed, events.TaskInterrupted:
		status := terminalStatus(event.Type)
		r.tasksFinished.WithLabelValues(status).Inc()
		r.taskDuration.WithLabelValues(status).Observe(event.Duration.Seconds())
		r.taskProgress.Set(0)
	}
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the registry the collectors are registered on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func terminalStatus(t events.EventType) string {
	switch t {
	case events.TaskCompleted:
		return string(task.TaskStatusCompleted)
	case events.TaskFailed:
		return string(task.TaskStatusFailed)
	default:
		return string(task.TaskStatusInterrupted)
	}
}
