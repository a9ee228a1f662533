// Package metrics exposes scan and probe measurements for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Compile-time interface check.
var _ probe.Recorder = (*Recorder)(nil)

// Recorder collects metrics on its own registry so that several instances,
// such as one per test, never collide.
type Recorder struct {
	registry *prometheus.Registry

	probeRuns     *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec
	findings      *prometheus.CounterVec
	scans         *prometheus.CounterVec
	scanDuration  prometheus.Histogram
	activeScans   prometheus.Gauge
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		probeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "baseera_probe_runs_total",
			Help: "Probe invocations by probe and outcome.",
		}, []string{"probe", "outcome"}),
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "baseera_probe_duration_seconds",
			Help:    "Time spent in a single probe.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"probe"}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "baseera_findings_total",
			Help: "Findings reported by completed scans, by severity.",
		}, []string{"severity"}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "baseera_scans_total",
			Help: "Scans by final status.",
		}, []string{"status"}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "baseera_scan_duration_seconds",
			Help:    "Wall time of completed scans.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		activeScans: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "baseera_active_scans",
			Help: "Scans currently running.",
		}),
	}
	r.registry.MustRegister(
		r.probeRuns, r.probeDuration, r.findings, r.scans, r.scanDuration, r.activeScans,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ProbeFinished implements probe.Recorder.
func (r *Recorder) ProbeFinished(name string, outcome probe.Outcome, elapsed time.Duration, _ int) {
	r.probeRuns.WithLabelValues(name, string(outcome)).Inc()
	r.probeDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// ScanFinished implements probe.Recorder.
func (r *Recorder) ScanFinished(status string, elapsed time.Duration, summary types.SeveritySummary) {
	r.scans.WithLabelValues(status).Inc()
	if status != "completed" {
		return
	}
	r.scanDuration.Observe(elapsed.Seconds())
	for _, sev := range types.Severities() {
		if n := summary.Count(sev); n > 0 {
			r.findings.WithLabelValues(string(sev)).Add(float64(n))
		}
	}
}

// ScanStarted and ScanStopped track the number of running scans.
func (r *Recorder) ScanStarted() { r.activeScans.Inc() }
func (r *Recorder) ScanStopped() { r.activeScans.Dec() }

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
