// Package prom mirrors received metric collections into Prometheus collectors.
package prom

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vshulcz/netstats/internal/netstats"
)

const (
	namespace = "netstats"
	// unknownStat labels every id missing from the registry so senders cannot grow the series set.
	unknownStat = "unknown"
)

// Exporter keeps one Prometheus series per received stat. It is safe for concurrent use.
type Exporter struct {
	reg      *netstats.Registry
	registry *prometheus.Registry

	frames   prometheus.Counter
	counters *prometheus.CounterVec
	gauges   *prometheus.GaugeVec
	timers   *prometheus.GaugeVec
	events   *prometheus.CounterVec
}

var _ netstats.Observer = (*Exporter)(nil)

// New creates an exporter with its own Prometheus registry. Stat names come from reg.
func New(reg *netstats.Registry) *Exporter {
	e := &Exporter{
		reg:      reg,
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collections_total",
			Help:      "Metric collections received.",
		}),
		counters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "counter_total",
			Help:      "Sum of counter deltas received per stat.",
		}, []string{"stat"}),
		gauges: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gauge",
			Help:      "Latest gauge value received per stat.",
		}, []string{"stat"}),
		timers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "timer_seconds",
			Help:      "Latest timer value received per stat.",
		}, []string{"stat"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Event values received per stat and payload type.",
		}, []string{"stat", "type"}),
	}
	e.registry.MustRegister(e.frames, e.counters, e.gauges, e.timers, e.events)
	return e
}

// Notify records c. Negative counter deltas are ignored since Prometheus counters only grow.
func (e *Exporter) Notify(_ context.Context, c *netstats.MetricCollection) error {
	if c == nil {
		return nil
	}
	e.frames.Inc()
	for id, v := range c.Counters() {
		if v > 0 {
			e.counters.WithLabelValues(e.stat(id)).Add(float64(v))
		}
	}
	for id, v := range c.Gauges() {
		e.gauges.WithLabelValues(e.stat(id)).Set(v)
	}
	for id, v := range c.Timers() {
		e.timers.WithLabelValues(e.stat(id)).Set(v.Seconds())
	}
	for id, v := range c.Events() {
		e.events.WithLabelValues(e.stat(id), v.TypeName()).Add(float64(v.Len()))
	}
	return nil
}

func (e *Exporter) stat(id netstats.MetricID) string {
	if _, ok := e.reg.Metadata(id); !ok {
		return unknownStat
	}
	return e.reg.Name(id)
}

// Handle adapts Notify to a netstats.Handler for adapter subscriptions.
func (e *Exporter) Handle(c *netstats.MetricCollection) {
	_ = e.Notify(context.Background(), c)
}

// Gatherer exposes the underlying registry.
func (e *Exporter) Gatherer() prometheus.Gatherer { return e.registry }

// Handler serves the exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
