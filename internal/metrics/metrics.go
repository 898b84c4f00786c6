// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/fastygo/crm-analytics/domain"
)

// Snapshot outcomes.
const (
	OutcomeComputed = "computed"
	OutcomeCached   = "cached"
	OutcomeMirror   = "mirror"
	OutcomeFailed   = "failed"
)

// Metrics owns a private registry. A nil *Metrics records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	snapshots      *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	sourceFailures *prometheus.CounterVec
	warnings       *prometheus.CounterVec
	dependencyUp   *prometheus.GaugeVec
	mirrorEntries  prometheus.Gauge
}

// New registers every instrument under the given namespace.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Analytics snapshots served, by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_duration_seconds",
			Help:      "Time spent producing a snapshot, by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_source_failures_total",
			Help:      "History sources that could not be read.",
		}, []string{"source"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warnings_total",
			Help:      "Warnings attached to computed snapshots, by code.",
		}, []string{"code"}),
		dependencyUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dependency_up",
			Help:      "1 when the dependency answered the last health probe.",
		}, []string{"dependency"}),
		mirrorEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mirror_entries",
			Help:      "Customers with a mirrored history.",
		}),
	}
	m.registry.MustRegister(
		m.snapshots, m.duration, m.sourceFailures, m.warnings, m.dependencyUp, m.mirrorEntries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fasthttp.RequestHandler {
	if m == nil {
		return func(ctx *fasthttp.RequestCtx) { ctx.SetStatusCode(fasthttp.StatusNotFound) }
	}
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) ObserveSnapshot(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.snapshots.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) SourceFailed(source string) {
	if m == nil {
		return
	}
	m.sourceFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) WarningsRaised(warnings []domain.Warning) {
	if m == nil {
		return
	}
	for _, w := range warnings {
		m.warnings.WithLabelValues(string(w.Code)).Inc()
	}
}

func (m *Metrics) SetDependency(name string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1
	}
	m.dependencyUp.WithLabelValues(name).Set(v)
}

func (m *Metrics) SetMirrorEntries(n int) {
	if m == nil {
		return
	}
	m.mirrorEntries.Set(float64(n))
}
