// Package metrics records reconciliation runs as Prometheus metrics. escmd is
// a short lived process, so metrics are not served but written to a file for
// the node_exporter textfile collector.
package metrics

import (
	"github.com/SwissLife-OSS/escmd/internal/reconcile"
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the metrics of one process.
type Recorder struct {
	registry *prometheus.Registry

	items     *prometheus.CounterVec
	planned   *prometheus.GaugeVec
	duration  *prometheus.GaugeVec
	lastRun   *prometheus.GaugeVec
	cancelled *prometheus.GaugeVec
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escmd_reconcile_items_total",
				Help: "Indices processed by reconciliation runs by outcome status",
			},
			[]string{"cluster", "operation", "status"},
		),

		planned: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "escmd_reconcile_planned_indices",
				Help: "Candidate indices of the last run by planning decision",
			},
			[]string{"cluster", "operation", "decision"},
		),

		duration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "escmd_reconcile_duration_seconds",
				Help: "Duration of the execution phase of the last run",
			},
			[]string{"cluster", "operation"},
		),

		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "escmd_reconcile_last_run_timestamp_seconds",
				Help: "Unix time the last run finished",
			},
			[]string{"cluster", "operation"},
		),

		cancelled: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "escmd_reconcile_cancelled",
				Help: "Whether the last run stopped before all planned indices were attempted (1 = stopped)",
			},
			[]string{"cluster", "operation"},
		),
	}

	r.registry.MustRegister(r.items, r.planned, r.duration, r.lastRun, r.cancelled)

	return r
}

// Observer counts outcomes as they complete.
func (r *Recorder) Observer(cluster, operation string) reconcile.Observer {
	return reconcile.ObserverFunc(func(o reconcile.Outcome) {
		r.items.WithLabelValues(cluster, operation, string(o.Status)).Inc()
	})
}

// RecordRun records the plan and the result of a finished run.
func RecordRun[V comparable](r *Recorder, cluster string, report *reconcile.Report[V]) {
	op := report.Operation

	r.planned.WithLabelValues(cluster, op, "update").Set(float64(len(report.Plan.ToUpdate)))
	r.planned.WithLabelValues(cluster, op, "skip").Set(float64(len(report.Plan.ToSkip)))

	res := report.Results
	if res == nil {
		return
	}

	r.duration.WithLabelValues(cluster, op).Set(res.Duration().Seconds())
	r.lastRun.WithLabelValues(cluster, op).Set(float64(res.EndTime.Unix()))

	cancelled := 0.0
	if res.Cancelled {
		cancelled = 1
	}
	r.cancelled.WithLabelValues(cluster, op).Set(cancelled)
}

// WriteTextfile writes all metrics in the text exposition format to path.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
