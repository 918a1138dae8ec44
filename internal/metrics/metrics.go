// Package metrics exposes scan session metrics in Prometheus format. Every
// method on a nil *Recorder is a no-op so callers can leave metrics unwired.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry; it never touches the global default.
type Recorder struct {
	registry *prometheus.Registry

	pollsTotal     *prometheus.CounterVec
	progress       *prometheus.GaugeVec
	phaseSeconds   *prometheus.GaugeVec
	findings       *prometheus.GaugeVec
	discoveredURLs prometheus.Gauge
	gatePassed     prometheus.Gauge
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		pollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scangate_progress_queries_total",
			Help: "Progress queries issued to the scanner, by phase",
		}, []string{"phase"}),
		progress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scangate_phase_progress_percent",
			Help: "Last progress reading reported by the scanner, by phase",
		}, []string{"phase"}),
		phaseSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scangate_phase_duration_seconds",
			Help: "Wall time spent in each scan phase",
		}, []string{"phase"}),
		findings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "scangate_findings",
			Help: "Findings remaining after each triage stage",
		}, []string{"stage"}),
		discoveredURLs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scangate_discovered_urls",
			Help: "URLs reported by the spider",
		}),
		gatePassed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scangate_risk_gate_passed",
			Help: "1 when the last risk gate passed, 0 when it failed",
		}),
	}
	r.registry.MustRegister(r.pollsTotal, r.progress, r.phaseSeconds, r.findings, r.discoveredURLs, r.gatePassed)
	return r
}

// Progress records one progress reading for phase.
func (r *Recorder) Progress(phase string, pct int) {
	if r == nil {
		return
	}
	r.pollsTotal.WithLabelValues(phase).Inc()
	r.progress.WithLabelValues(phase).Set(float64(pct))
}

// PhaseDone records how long phase took.
func (r *Recorder) PhaseDone(phase string, d time.Duration) {
	if r == nil {
		return
	}
	r.phaseSeconds.WithLabelValues(phase).Set(d.Seconds())
}

// Findings records the finding count after a triage stage.
func (r *Recorder) Findings(stage string, n int) {
	if r == nil {
		return
	}
	r.findings.WithLabelValues(stage).Set(float64(n))
}

// Discovered records the number of spidered URLs.
func (r *Recorder) Discovered(n int) {
	if r == nil {
		return
	}
	r.discoveredURLs.Set(float64(n))
}

// Verdict records the risk gate outcome.
func (r *Recorder) Verdict(passed bool) {
	if r == nil {
		return
	}
	if passed {
		r.gatePassed.Set(1)
		return
	}
	r.gatePassed.Set(0)
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// WriteTextfile writes the current metrics for node_exporter's textfile
// collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
