// Package metrics exposes a run's link measurements as Prometheus metrics,
// written in the node_exporter textfile format so a collector on the
// launching host can pick them up.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rileyhilliard/gpubench/internal/errors"
	"github.com/rileyhilliard/gpubench/internal/mesh"
)

// Recorder is a mesh.Observer that turns pair outcomes into metrics on a
// private registry.
type Recorder struct {
	registry  *prometheus.Registry
	threshold float64

	bandwidth *prometheus.GaugeVec
	failures  *prometheus.CounterVec
	low       *prometheus.GaugeVec
	duration  prometheus.Histogram
	phase     *prometheus.GaugeVec
	lastRun   prometheus.Gauge
}

// NewRecorder returns a Recorder flagging links below thresholdGbps.
func NewRecorder(thresholdGbps float64) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry:  reg,
		threshold: thresholdGbps,
		bandwidth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gpubench_link_bandwidth_gbps",
				Help: "Measured throughput from client to server in Gbit/s",
			},
			[]string{"client", "server"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gpubench_link_failures_total",
				Help: "Pairs that could not be measured",
			},
			[]string{"client", "server"},
		),
		low: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gpubench_link_low",
				Help: "1 if the link measured below the threshold, else 0",
			},
			[]string{"client", "server"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gpubench_measure_duration_seconds",
				Help:    "Wall time of one pair measurement",
				Buckets: []float64{0.5, 1, 2, 3, 5, 10, 30},
			},
		),
		phase: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gpubench_phase_duration_seconds",
				Help: "Wall time of each run phase",
			},
			[]string{"phase"},
		),
		lastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gpubench_last_run_timestamp_seconds",
				Help: "Unix time the last measure phase finished",
			},
		),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// PhaseStarted implements mesh.Observer.
func (r *Recorder) PhaseStarted(mesh.Phase, int) {}

// HostDone implements mesh.Observer.
func (r *Recorder) HostDone(mesh.Phase, string, error) {}

// PairDone implements mesh.Observer.
func (r *Recorder) PairDone(p mesh.Pair, o mesh.Outcome, elapsed time.Duration) {
	r.duration.Observe(elapsed.Seconds())
	if o.Failed() {
		r.failures.WithLabelValues(p.Client, p.Server).Inc()
		return
	}
	r.bandwidth.WithLabelValues(p.Client, p.Server).Set(o.Gbps)
	low := 0.0
	if o.Gbps < r.threshold {
		low = 1
	}
	r.low.WithLabelValues(p.Client, p.Server).Set(low)
}

// PhaseDone implements mesh.Observer.
func (r *Recorder) PhaseDone(phase mesh.Phase, elapsed time.Duration) {
	r.phase.WithLabelValues(string(phase)).Set(elapsed.Seconds())
	if phase == mesh.PhaseMeasure {
		r.lastRun.SetToCurrentTime()
	}
}

// WriteTextfile writes every metric to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return errors.WrapWithCode(err, errors.ErrReport,
			"Couldn't write metrics to "+path,
			"Point --metrics-file at a writable path, e.g. the node_exporter textfile directory.")
	}
	return nil
}
