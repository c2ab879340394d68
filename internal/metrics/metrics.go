// Package metrics exports reader-session counters through Prometheus.
//
// A Metrics value satisfies the observer interfaces of the event bus, the
// transform pipeline and the plugin registry, so one instance can be
// attached to all three.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/folio/internal/event"
	"github.com/dshills/folio/internal/event/topic"
	"github.com/dshills/folio/internal/pipeline"
	"github.com/dshills/folio/internal/plugin"
)

// Namespace prefixes every metric name.
const Namespace = "folio"

// Compile-time interface checks.
var (
	_ event.Observer    = (*Metrics)(nil)
	_ pipeline.Observer = (*Metrics)(nil)
	_ plugin.Observer   = (*Metrics)(nil)
)

// Option configures Metrics.
type Option func(*options)

type options struct {
	runtime bool
}

// WithRuntimeCollectors also registers the Go runtime and process
// collectors.
func WithRuntimeCollectors() Option {
	return func(o *options) {
		o.runtime = true
	}
}

// Metrics holds the collectors for one reader session.
type Metrics struct {
	registry *prometheus.Registry

	eventsPublished      *prometheus.CounterVec
	handlerFailures      *prometheus.CounterVec
	foldDuration         *prometheus.HistogramVec
	contributionFailures *prometheus.CounterVec
	transitions          *prometheus.CounterVec
	pluginsReady         prometheus.Gauge
}

// New creates Metrics backed by a private registry.
func New(opts ...Option) *Metrics {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "bus",
			Name:      "events_published_total",
			Help:      "Events published, by topic.",
		}, []string{"topic"}),
		handlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "bus",
			Name:      "handler_failures_total",
			Help:      "Handler errors and panics, by topic and owning plugin.",
		}, []string{"topic", "owner", "panicked"}),
		foldDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "pipeline",
			Name:      "fold_duration_seconds",
			Help:      "Time spent folding contributions for one stage run.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}, []string{"stage"}),
		contributionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "pipeline",
			Name:      "contribution_failures_total",
			Help:      "Failed middleware steps, by owner and contribution name.",
		}, []string{"owner", "name"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "plugin",
			Name:      "transitions_total",
			Help:      "Plugin lifecycle transitions, by target state.",
		}, []string{"to"}),
		pluginsReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "plugin",
			Name:      "ready",
			Help:      "Plugins currently in the ready state.",
		}),
	}

	m.registry.MustRegister(
		m.eventsPublished,
		m.handlerFailures,
		m.foldDuration,
		m.contributionFailures,
		m.transitions,
		m.pluginsReady,
	)
	if o.runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// EventPublished implements event.Observer.
func (m *Metrics) EventPublished(t topic.Topic) {
	m.eventsPublished.WithLabelValues(string(t)).Inc()
}

// HandlerFailed implements event.Observer.
func (m *Metrics) HandlerFailed(t topic.Topic, owner string, panicked bool) {
	m.handlerFailures.WithLabelValues(string(t), owner, strconv.FormatBool(panicked)).Inc()
}

// FoldObserved implements pipeline.Observer.
func (m *Metrics) FoldObserved(stage string, d time.Duration) {
	m.foldDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ContributionFailed implements pipeline.Observer.
func (m *Metrics) ContributionFailed(owner, name string) {
	m.contributionFailures.WithLabelValues(owner, name).Inc()
}

// PluginTransition implements plugin.Observer.
func (m *Metrics) PluginTransition(_, from, to string) {
	m.transitions.WithLabelValues(to).Inc()
	ready := plugin.StateReady.String()
	if from == ready {
		m.pluginsReady.Dec()
	}
	if to == ready {
		m.pluginsReady.Inc()
	}
}
