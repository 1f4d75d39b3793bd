package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	IntentsHandled       *prometheus.CounterVec
	PendingDeliveries    prometheus.Gauge
	QueueDepth           prometheus.Gauge
	TaskTransitions      *prometheus.CounterVec
	TickDuration         prometheus.Histogram
	CollaboratorFailures *prometheus.CounterVec
	ReportRuns           *prometheus.CounterVec

	stages *stageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		IntentsHandled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_handled_total",
			Help:      "Handled intents by tag and outcome.",
		}, []string{"tag", "outcome"}),
		PendingDeliveries: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_deliveries",
			Help:      "Deliveries awaiting counterparty confirmation.",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "planner_queue_depth",
			Help:      "Tasks in the planner queue, terminal states included.",
		}),
		TaskTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_transitions_total",
			Help:      "Planner task state transitions by resulting status.",
		}, []string{"status"}),
		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "planner_tick_duration_ms",
			Help:      "Duration of one planner tick in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
		CollaboratorFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_failures_total",
			Help:      "External collaborator call failures by collaborator.",
		}, []string{"collaborator"}),
		ReportRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_runs_total",
			Help:      "Daily report runs by outcome.",
		}, []string{"outcome"}),
		stages: newStageWindow(256),
	}
}

func (m *Metrics) ObserveIntent(tag, outcome string) {
	if m == nil {
		return
	}
	m.IntentsHandled.WithLabelValues(tag, outcome).Inc()
}

func (m *Metrics) ObserveTaskTransition(status string) {
	if m == nil {
		return
	}
	m.TaskTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.TickDuration.Observe(float64(d.Milliseconds()))
	m.stages.Observe("tick", float64(d.Microseconds())/1000)
}

func (m *Metrics) ObserveCollaboratorFailure(collaborator string) {
	if m == nil {
		return
	}
	m.CollaboratorFailures.WithLabelValues(collaborator).Inc()
}

func (m *Metrics) ReportRunOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ReportRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stages.Observe(stage, float64(d.Microseconds())/1000)
}

func (m *Metrics) SnapshotStages() StageSnapshot {
	if m == nil {
		return StageSnapshot{}
	}
	return m.stages.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
