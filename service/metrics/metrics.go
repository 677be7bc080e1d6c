package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hexsim/hexsim/progress"
)

// Metrics exposes engine counters and gauges to Prometheus. A nil *Metrics
// is valid and records nothing, so instrumentation can stay unconditional at
// call sites.
type Metrics struct {
	admitted    *prometheus.CounterVec
	queued      prometheus.Counter
	promoted    prometheus.Counter
	completed   *prometheus.CounterVec
	cancelled   prometheus.Counter
	failed      prometheus.Counter
	retries     prometheus.Counter
	queueDepth  *prometheus.GaugeVec
	runningProc *prometheus.GaugeVec
}

// New registers the engine metric set with the supplied registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		admitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hexsim", Name: "processes_admitted_total",
			Help: "Processes admitted straight to Running, by type.",
		}, []string{"type"}),
		queued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hexsim", Name: "processes_queued_total",
			Help: "Processes enqueued for lack of free capacity.",
		}),
		promoted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hexsim", Name: "processes_promoted_total",
			Help: "Queued processes promoted to Running.",
		}),
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hexsim", Name: "processes_completed_total",
			Help: "Processes completed with their effect applied, by type.",
		}, []string{"type"}),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hexsim", Name: "processes_cancelled_total",
			Help: "Processes cancelled before completion.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hexsim", Name: "processes_failed_total",
			Help: "Processes forced to Failed.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hexsim", Name: "resolution_retries_total",
			Help: "Completion effect applications that had to be retried.",
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hexsim", Name: "queue_depth",
			Help: "Processes waiting for capacity, by player.",
		}, []string{"player"}),
		runningProc: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hexsim", Name: "running_processes",
			Help: "Processes currently Running, by player.",
		}, []string{"player"}),
	}
	reg.MustRegister(m.admitted, m.queued, m.promoted, m.completed,
		m.cancelled, m.failed, m.retries, m.queueDepth, m.runningProc)
	return m
}

func (m *Metrics) Admitted(processType string) {
	if m == nil {
		return
	}
	m.admitted.WithLabelValues(processType).Inc()
}

func (m *Metrics) Queued() {
	if m == nil {
		return
	}
	m.queued.Inc()
}

func (m *Metrics) Promoted() {
	if m == nil {
		return
	}
	m.promoted.Inc()
}

func (m *Metrics) Completed(processType string) {
	if m == nil {
		return
	}
	m.completed.WithLabelValues(processType).Inc()
}

func (m *Metrics) Cancelled() {
	if m == nil {
		return
	}
	m.cancelled.Inc()
}

func (m *Metrics) Failed() {
	if m == nil {
		return
	}
	m.failed.Inc()
}

func (m *Metrics) RetriedResolution() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// Observe mirrors a progress snapshot into the per-player gauges.
func (m *Metrics) Observe(c progress.Counters) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(c.Player).Set(float64(c.Queued))
	m.runningProc.WithLabelValues(c.Player).Set(float64(c.Running))
}
