// Package metrics exposes compile and apply metrics. zonefw runs as a
// one-shot command, so metrics are written to a node_exporter textfile
// instead of being scraped.
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds all zonefw metrics on a private prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	ZonesConfigured prometheus.Gauge
	ZonesRunning    prometheus.Gauge
	LoadWarnings    prometheus.Counter

	ChainsEmitted *prometheus.CounterVec
	RulesEmitted  *prometheus.CounterVec
	ChainsRemoved *prometheus.CounterVec

	Applies       *prometheus.CounterVec
	ApplyDuration *prometheus.HistogramVec
	LastApply     *prometheus.GaugeVec
}

// Get returns the process-wide registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = New()
	})
	return registry
}

// New creates an independent registry. Tests use it to avoid sharing
// counters.
func New() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}
	f := promauto.With(r.reg)

	r.ZonesConfigured = f.NewGauge(prometheus.GaugeOpts{
		Name: "zonefw_zones_configured",
		Help: "Number of valid zones in the loaded configuration",
	})
	r.ZonesRunning = f.NewGauge(prometheus.GaugeOpts{
		Name: "zonefw_zones_running",
		Help: "Number of zones materialised in the live ruleset",
	})
	r.LoadWarnings = f.NewCounter(prometheus.CounterOpts{
		Name: "zonefw_load_warnings_total",
		Help: "Warnings raised while loading configuration",
	})

	r.ChainsEmitted = f.NewCounterVec(prometheus.CounterOpts{
		Name: "zonefw_chains_emitted_total",
		Help: "Chain declarations emitted",
	}, []string{"family", "operation"})
	r.RulesEmitted = f.NewCounterVec(prometheus.CounterOpts{
		Name: "zonefw_rules_emitted_total",
		Help: "Rules emitted",
	}, []string{"family", "operation"})
	r.ChainsRemoved = f.NewCounterVec(prometheus.CounterOpts{
		Name: "zonefw_chains_removed_total",
		Help: "Chain deletions emitted",
	}, []string{"family", "operation"})

	r.Applies = f.NewCounterVec(prometheus.CounterOpts{
		Name: "zonefw_applies_total",
		Help: "Restore documents applied, by result",
	}, []string{"family", "operation", "result"})
	r.ApplyDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zonefw_apply_duration_seconds",
		Help:    "Time spent applying a restore document",
		Buckets: prometheus.DefBuckets,
	}, []string{"family"})
	r.LastApply = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zonefw_last_apply_timestamp_seconds",
		Help: "Unix time of the last successful apply",
	}, []string{"family"})

	return r
}

// Gatherer returns the underlying prometheus registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteTextfile writes all metrics in the text exposition format for the
// node_exporter textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
