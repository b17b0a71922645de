// Package telemetry provides install pipeline metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts install pipeline events.
type Metrics interface {
	// IncInstallOutcome counts a finished install request by outcome
	// status.
	IncInstallOutcome(status string)

	// ObserveInstallDuration records how long an install request took,
	// by outcome status.
	ObserveInstallDuration(status string, durationSeconds float64)

	// IncFetch counts a source fetch by origin type and result.
	IncFetch(source, result string)

	// IncTrustCompromised counts network trust transitions. At most one
	// per process lifetime.
	IncTrustCompromised()
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncInstallOutcome(string)             {}
func (Noop) ObserveInstallDuration(string, float64) {}
func (Noop) IncFetch(string, string)              {}
func (Noop) IncTrustCompromised()                 {}

// Prom implements Metrics backed by Prometheus collectors.
type Prom struct {
	installOutcomes  *prometheus.CounterVec
	installDuration  *prometheus.HistogramVec
	fetches          *prometheus.CounterVec
	trustCompromised prometheus.Counter
}

// NewProm creates Prometheus-backed metrics registered on the default
// registry.
func NewProm(namespace string) *Prom {
	return newProm(namespace, prometheus.DefaultRegisterer)
}

func newProm(namespace string, reg prometheus.Registerer) *Prom {
	p := &Prom{
		installOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "install_outcomes_total",
			Help:      "Finished install requests by outcome status",
		}, []string{"status"}),
		installDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "install_duration_seconds",
			Help:      "Install request duration by outcome status",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"status"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Package fetches by source type and result",
		}, []string{"source", "result"}),
		trustCompromised: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trust_compromised_total",
			Help:      "Network trust compromise transitions",
		}),
	}
	reg.MustRegister(p.installOutcomes, p.installDuration, p.fetches, p.trustCompromised)
	return p
}

func (p *Prom) IncInstallOutcome(status string) {
	p.installOutcomes.WithLabelValues(status).Inc()
}

func (p *Prom) ObserveInstallDuration(status string, durationSeconds float64) {
	p.installDuration.WithLabelValues(status).Observe(durationSeconds)
}

func (p *Prom) IncFetch(source, result string) {
	p.fetches.WithLabelValues(source, result).Inc()
}

func (p *Prom) IncTrustCompromised() {
	p.trustCompromised.Inc()
}
